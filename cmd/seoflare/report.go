package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/seoflare/seoflare/internal/database"
	"github.com/seoflare/seoflare/internal/report"
)

// NewReportCmd creates the report command.
func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <session.db>",
		Short: "Render a Markdown summary of a crawl session",
		Long: `Report summarizes a session: URL totals, status code and content-type
breakdowns, indexability classification, and broken internal links.

Example:
  seoflare report example.com.db -o report.md`,
		Args: cobra.ExactArgs(1),
		RunE: runReportCmd,
	}

	cmd.Flags().StringP("output", "o", "", "Write the report to this file instead of stdout")

	return cmd
}

// runReportCmd renders the session summary.
func runReportCmd(cmd *cobra.Command, args []string) error {
	cdb, err := database.Open(args[0])
	if err != nil {
		return err
	}
	defer func() { _ = cdb.Close() }()

	out := cmd.OutOrStdout()
	if path, _ := cmd.Flags().GetString("output"); path != "" {
		f, err := os.Create(path) //nolint:gosec // user-provided output path is intentional
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	return report.NewWriter(out).Write(cmd.Context(), cdb)
}
