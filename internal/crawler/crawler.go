package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/seoflare/seoflare/internal/classifier"
	"github.com/seoflare/seoflare/internal/config"
	"github.com/seoflare/seoflare/internal/database"
	"github.com/seoflare/seoflare/internal/model"
	"github.com/seoflare/seoflare/internal/robots"
)

// resultBuffer bounds the exchanges parked between workers and the
// consumer. Workers block once it fills, which keeps memory flat when
// persistence falls behind.
const resultBuffer = 25

// Crawler runs one crawl session against one session database.
type Crawler struct {
	settings   *config.Settings
	db         *database.CrawlDB
	logger     *slog.Logger
	fetcher    *fetcher
	rules      *robots.Rules
	classifier *classifier.Classifier

	frontier *frontier
	results  chan *model.Exchange
	state    *state

	done   chan struct{}
	cancel context.CancelFunc
	group  *errgroup.Group

	mu      sync.Mutex
	running bool
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithLogger sets the session logger. The default discards nothing
// and writes through slog's default handler.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) {
		c.logger = logger
	}
}

// New builds a Crawler for validated settings and an open session
// database.
func New(settings *config.Settings, db *database.CrawlDB, opts ...Option) (*Crawler, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	f, err := newFetcher(settings)
	if err != nil {
		return nil, err
	}

	rules := robots.New("", settings.RobotsUserAgent)
	cl, err := classifier.New(settings, rules)
	if err != nil {
		return nil, err
	}

	c := &Crawler{
		settings:   settings,
		db:         db,
		logger:     slog.Default(),
		fetcher:    f,
		rules:      rules,
		classifier: cl,
		frontier:   newFrontier(),
		results:    make(chan *model.Exchange, resultBuffer),
		state:      newState(),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Start begins a fresh crawl. In spider mode the starting URL is
// fetched synchronously first; an unreachable start fails fast instead
// of spinning up workers with nothing to do.
func (c *Crawler) Start(ctx context.Context) error {
	if err := c.markRunning(); err != nil {
		return err
	}

	if err := c.loadRobots(ctx); err != nil {
		c.logger.WarnContext(ctx, "robots.txt unavailable, allowing all",
			slog.String("error", err.Error()))
	}

	switch c.settings.Mode {
	case config.ModeSpider:
		if err := c.seedSpider(ctx); err != nil {
			c.markStopped()
			return err
		}
	case config.ModeList:
		if err := c.seedList(ctx); err != nil {
			c.markStopped()
			return err
		}
	}

	c.refreshCounts(ctx)
	c.launch(ctx)
	return nil
}

// Resume continues a stopped session from its pending URL set. Retry
// counters start fresh; everything else comes from the database.
func (c *Crawler) Resume(ctx context.Context) error {
	if err := c.markRunning(); err != nil {
		return err
	}

	pending, err := c.db.PendingURLs(ctx)
	if err != nil {
		c.markStopped()
		return err
	}
	if len(pending) == 0 {
		c.state.setStatus(StatusCompleted)
		c.markStopped()
		return ErrNothingToResume
	}

	if err := c.loadRobots(ctx); err != nil {
		c.logger.WarnContext(ctx, "robots.txt unavailable, allowing all",
			slog.String("error", err.Error()))
	}
	c.setScope()

	c.refreshCounts(ctx)
	c.frontier.push(pending...)
	c.logger.InfoContext(ctx, "resuming crawl",
		slog.Int("pending", len(pending)),
		slog.String("database", c.db.Path()))

	c.launch(ctx)
	return nil
}

// Wait blocks until the session ends and returns its outcome.
func (c *Crawler) Wait() error {
	c.mu.Lock()
	g := c.group
	cancel := c.cancel
	c.mu.Unlock()
	if g == nil {
		return nil
	}

	err := g.Wait()
	if cancel != nil {
		cancel()
	}
	c.markStopped()
	return err
}

// Stop asks a running session to stop after the in-flight work is
// persisted. The session can be resumed later.
func (c *Crawler) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Reset returns a finished or stopped session to idle so Start can
// run it again against the same database. Resetting a running session
// fails.
func (c *Crawler) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return ErrAlreadyRunning
	}
	c.frontier = newFrontier()
	c.results = make(chan *model.Exchange, resultBuffer)
	c.state = newState()
	c.done = make(chan struct{})
	c.cancel = nil
	c.group = nil
	return nil
}

// Progress returns a snapshot of the session counters.
func (c *Crawler) Progress() Progress {
	c.mu.Lock()
	st, f := c.state, c.frontier
	c.mu.Unlock()
	p := st.snapshot()
	p.ActiveWorkers = f.busyCount()
	return p
}

func (c *Crawler) markRunning() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return ErrAlreadyRunning
	}
	c.running = true
	c.state.setStatus(StatusRunning)
	return nil
}

func (c *Crawler) markStopped() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
}

// robotsSourceURL returns the URL whose host provides the session's
// robots.txt. List sessions take it from the first listed URL.
func (c *Crawler) robotsSourceURL() string {
	if c.settings.Mode == config.ModeSpider {
		return c.settings.StartURL
	}
	if len(c.settings.ListURLs) > 0 {
		return c.settings.ListURLs[0]
	}
	return ""
}

// loadRobots fetches and installs the session's robots.txt ruleset.
func (c *Crawler) loadRobots(ctx context.Context) error {
	source := c.robotsSourceURL()
	if source == "" {
		return nil
	}
	robotsURL := classifier.RobotsTxtURL(source)
	if robotsURL == "" {
		return fmt.Errorf("no robots.txt location for %q", source)
	}

	body, err := c.fetcher.FetchRobotsTxt(ctx, robotsURL)
	if err != nil {
		return err
	}
	c.rules.SetRobotsTxt(body, c.settings.RobotsUserAgent)
	c.logger.DebugContext(ctx, "robots.txt loaded",
		slog.String("url", robotsURL),
		slog.Int("bytes", len(body)))
	return nil
}

// setScope fixes the classifier's root domain for spider sessions.
func (c *Crawler) setScope() {
	if c.settings.Mode == config.ModeSpider {
		c.classifier.SetRootDomain(classifier.Domain(c.settings.StartURL))
	}
}

// seedSpider fetches the starting URL synchronously and parks the
// exchange for the consumer.
func (c *Crawler) seedSpider(ctx context.Context) error {
	start, err := classifier.Canonicalize(c.settings.StartURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStartURLUnreachable, err)
	}
	c.settings.StartURL = start
	c.setScope()

	ex := c.fetcher.Fetch(ctx, start)
	if ex.Failed() {
		c.state.setStatus(StatusTimedOut)
		return fmt.Errorf("%w: %s", ErrStartURLUnreachable, ex.FailureReason)
	}

	if err := c.db.InsertNewURLs(ctx, []string{start}); err != nil {
		return err
	}
	c.results <- ex
	c.logger.InfoContext(ctx, "starting crawl",
		slog.String("start_url", start),
		slog.String("database", c.db.Path()))
	return nil
}

// seedList records the listed URLs and queues them all.
func (c *Crawler) seedList(ctx context.Context) error {
	urls := make([]string, 0, len(c.settings.ListURLs))
	for _, raw := range c.settings.ListURLs {
		u, err := classifier.Canonicalize(raw)
		if err != nil {
			c.logger.WarnContext(ctx, "skipping invalid url", slog.String("url", raw))
			continue
		}
		urls = append(urls, u)
	}
	if len(urls) == 0 {
		return fmt.Errorf("%w: no valid urls in list", ErrStartURLUnreachable)
	}

	if err := c.db.InsertNewURLs(ctx, urls); err != nil {
		return err
	}
	c.frontier.push(urls...)
	c.logger.InfoContext(ctx, "starting list crawl",
		slog.Int("urls", len(urls)),
		slog.String("database", c.db.Path()))
	return nil
}

// refreshCounts pulls the URL counters from the database.
func (c *Crawler) refreshCounts(ctx context.Context) {
	total, err := c.db.CountTotal(ctx)
	if err != nil {
		return
	}
	crawled, err := c.db.CountCrawled(ctx)
	if err != nil {
		return
	}
	c.state.setCounts(total, crawled)
}

// launch starts the worker pool, the consumer, and the rate
// controller.
func (c *Crawler) launch(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(runCtx)

	for i := 0; i < c.settings.Threads; i++ {
		id := i
		g.Go(func() error { return c.work(gctx, id) })
	}
	g.Go(func() error { return c.consume(gctx) })
	g.Go(func() error { return c.controlRate(gctx) })

	c.mu.Lock()
	c.cancel = cancel
	c.group = g
	c.mu.Unlock()
}

// finish is the single exit path of the consumer, run exactly once per
// session: it releases the workers, flushes the open batch, stores the
// settings for resume, and records the final status.
func (c *Crawler) finish(status Status, cause error) error {
	close(c.done)
	c.frontier.close()

	ctx := context.Background()
	if err := c.db.CommitBatch(); err != nil && !errors.Is(err, database.ErrNoBatch) {
		if cause == nil {
			cause = err
		}
		c.logger.Warn("final batch commit failed", slog.String("error", err.Error()))
	}
	if err := c.db.SaveSettings(ctx, c.settings); err != nil {
		c.logger.Warn("storing settings failed", slog.String("error", err.Error()))
	}
	c.refreshCounts(ctx)
	c.state.setStatus(status)

	p := c.state.snapshot()
	c.logger.Info("crawl finished",
		slog.String("status", string(status)),
		slog.Int64("urls_total", p.URLsTotal),
		slog.Int64("urls_crawled", p.URLsCrawled))
	return cause
}
