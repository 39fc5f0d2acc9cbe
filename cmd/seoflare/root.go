// Package main provides the entry point for the seoflare CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/seoflare/seoflare/internal/log"
)

// NewRootCmd creates the root command for seoflare.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seoflare",
		Short: "Technical SEO crawler with resumable sessions",
		Long: `Seoflare crawls a site the way a search engine does: it respects
robots.txt, follows redirects hop by hop, and records status codes,
on-page elements, and indexability signals for every URL.

Each crawl is one session stored in a single SQLite file. A stopped
crawl resumes from exactly where it left off.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			verbose, _ := cmd.Flags().GetBool("verbose")
			slog.SetDefault(log.NewLogger(os.Stderr, verbose))
		},
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewResumeCmd())
	cmd.AddCommand(NewExportCmd())
	cmd.AddCommand(NewReportCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
