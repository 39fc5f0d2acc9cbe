package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/seoflare/seoflare/internal/crawler"
	"github.com/seoflare/seoflare/internal/database"
)

// NewResumeCmd creates the resume command.
func NewResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume <session.db>",
		Short: "Continue a stopped crawl session",
		Long: `Resume reopens a session database and crawls the URLs that were
discovered but not yet fetched. The configuration stored in the
session is used as-is; a session with nothing pending is left alone.

Example:
  seoflare resume example.com.db`,
		Args: cobra.ExactArgs(1),
		RunE: runResumeCmd,
	}
}

// runResumeCmd reopens the session and finishes its pending URLs.
func runResumeCmd(cmd *cobra.Command, args []string) error {
	cdb, err := database.Open(args[0])
	if err != nil {
		return err
	}
	defer func() { _ = cdb.Close() }()

	settings, err := cdb.LoadSettings(cmd.Context())
	if err != nil {
		return err
	}

	c, err := crawler.New(settings, cdb, crawler.WithLogger(slog.Default()))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := c.Resume(ctx); err != nil {
		if errors.Is(err, crawler.ErrNothingToResume) {
			fmt.Fprintln(cmd.ErrOrStderr(), "session is already complete, nothing to resume")
			return nil
		}
		return err
	}
	return waitWithProgress(ctx, cmd, c)
}
