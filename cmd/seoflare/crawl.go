package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/seoflare/seoflare/internal/classifier"
	"github.com/seoflare/seoflare/internal/config"
	"github.com/seoflare/seoflare/internal/crawler"
	"github.com/seoflare/seoflare/internal/database"
)

// progressInterval is how often a running crawl prints its counters.
const progressInterval = 5 * time.Second

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [start-url]",
		Short: "Start a new crawl session",
		Long: `Crawl spiders a site from a starting URL, or fetches a fixed list of
URLs with --list. Results are written continuously to a SQLite session
file; interrupting the crawl (Ctrl-C) stops it cleanly and the session
can be finished later with "seoflare resume".

Examples:
  # Spider a site
  seoflare crawl https://example.com/

  # Crawl a fixed list of URLs, one per line
  seoflare crawl --list urls.txt

  # Limit throughput to 10 URLs per second with 8 workers
  seoflare crawl --threads 8 --rate 10 https://example.com/

  # Start from a settings file
  seoflare crawl -c settings.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCrawlCmd,
	}

	cmd.Flags().StringP("config", "c", "", "Settings file (YAML)")
	cmd.Flags().StringP("db", "d", "", "Session database path (default: per-site file under the user data directory)")
	cmd.Flags().StringP("list", "l", "", "Crawl the URLs listed in this file instead of spidering")
	cmd.Flags().IntP("threads", "t", config.DefaultThreads, "Number of fetch workers")
	cmd.Flags().IntP("rate", "r", config.DefaultURLsPerSecond, "Maximum URLs per second (0 = unlimited)")
	cmd.Flags().StringP("user-agent", "u", config.DefaultUserAgent, "User-Agent request header")
	cmd.Flags().Int("max-retries", config.DefaultMaxRetries, "Fetch attempts per URL before recording a failure")
	cmd.Flags().Bool("ignore-robots", false, "Crawl URLs disallowed by robots.txt")
	cmd.Flags().String("proxy", "", "Proxy URL for all requests")
	cmd.Flags().String("proxy-user", "", "Proxy username")
	cmd.Flags().String("proxy-password", "", "Proxy password")
	cmd.Flags().String("auth-user", "", "HTTP basic auth username")
	cmd.Flags().String("auth-password", "", "HTTP basic auth password")

	return cmd
}

// runCrawlCmd builds the settings, creates the session, and runs the
// crawl until it finishes or is interrupted.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	settings, err := crawlSettings(cmd, args)
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	dbPath, _ := cmd.Flags().GetString("db")
	if dbPath == "" {
		dbPath = config.DefaultDatabasePath(classifier.Domain(robotsSource(settings)))
	}
	if _, err := os.Stat(dbPath); err == nil {
		return fmt.Errorf("session file %s already exists; use \"seoflare resume %s\" or remove it", dbPath, dbPath)
	}

	cdb, err := database.Create(dbPath, settings)
	if err != nil {
		return err
	}
	defer func() { _ = cdb.Close() }()

	c, err := crawler.New(settings, cdb, crawler.WithLogger(slog.Default()))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := c.Start(ctx); err != nil {
		return err
	}
	return waitWithProgress(ctx, cmd, c)
}

// crawlSettings assembles the crawl configuration from the settings
// file and flag overrides.
func crawlSettings(cmd *cobra.Command, args []string) (*config.Settings, error) {
	settings := config.NewSettings()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		settings = loaded
	}

	if len(args) == 1 {
		settings.Mode = config.ModeSpider
		settings.StartURL = args[0]
	}
	if listPath, _ := cmd.Flags().GetString("list"); listPath != "" {
		urls, err := readURLList(listPath)
		if err != nil {
			return nil, err
		}
		settings.Mode = config.ModeList
		settings.ListURLs = urls
	}

	flags := cmd.Flags()
	if flags.Changed("threads") {
		settings.Threads, _ = flags.GetInt("threads")
	}
	if flags.Changed("rate") {
		settings.URLsPerSecond, _ = flags.GetInt("rate")
	}
	if flags.Changed("user-agent") {
		settings.UserAgent, _ = flags.GetString("user-agent")
	}
	if flags.Changed("max-retries") {
		settings.MaxRetries, _ = flags.GetInt("max-retries")
	}
	if flags.Changed("proxy") {
		settings.ProxyHost, _ = flags.GetString("proxy")
	}
	if flags.Changed("proxy-user") {
		settings.ProxyUser, _ = flags.GetString("proxy-user")
	}
	if flags.Changed("proxy-password") {
		settings.ProxyPassword, _ = flags.GetString("proxy-password")
	}
	if flags.Changed("auth-user") {
		settings.AuthUser, _ = flags.GetString("auth-user")
	}
	if flags.Changed("auth-password") {
		settings.AuthPassword, _ = flags.GetString("auth-password")
	}
	if ignore, _ := flags.GetBool("ignore-robots"); ignore {
		kept := settings.CrawlItems[:0]
		for _, item := range settings.CrawlItems {
			if item != config.ItemRespectRobotsTxt {
				kept = append(kept, item)
			}
		}
		settings.CrawlItems = kept
	}
	return settings, nil
}

// readURLList reads one URL per line, skipping blanks and # comments.
func readURLList(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // user-provided list path is intentional
	if err != nil {
		return nil, fmt.Errorf("open url list: %w", err)
	}
	defer func() { _ = f.Close() }()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read url list: %w", err)
	}
	return urls, nil
}

// robotsSource returns the URL whose host names the session.
func robotsSource(settings *config.Settings) string {
	if settings.Mode == config.ModeSpider {
		return settings.StartURL
	}
	if len(settings.ListURLs) > 0 {
		return settings.ListURLs[0]
	}
	return ""
}

// waitWithProgress blocks until the crawl ends, printing counters
// along the way.
func waitWithProgress(ctx context.Context, cmd *cobra.Command, c *crawler.Crawler) error {
	done := make(chan error, 1)
	go func() { done <- c.Wait() }()

	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p := c.Progress()
			fmt.Fprintf(cmd.ErrOrStderr(), "crawled %d/%d urls (%.1f/s, %d workers busy)\n",
				p.URLsCrawled, p.URLsTotal, p.Throughput, p.ActiveWorkers)
		case <-ctx.Done():
			c.Stop()
			err := <-done
			printOutcome(cmd, c)
			return err
		case err := <-done:
			printOutcome(cmd, c)
			return err
		}
	}
}

// printOutcome prints the final session counters.
func printOutcome(cmd *cobra.Command, c *crawler.Crawler) {
	p := c.Progress()
	fmt.Fprintf(cmd.ErrOrStderr(), "session %s: %d/%d urls crawled\n",
		p.Status, p.URLsCrawled, p.URLsTotal)
}
