package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/seoflare/seoflare/internal/database"
)

// NewExportCmd creates the export command.
func NewExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <session.db>",
		Short: "Export crawled rows as CSV",
		Long: `Export writes the session's crawled rows as UTF-8 CSV, one column per
configured crawl item plus the unique inlink count.

Filters restrict the output and have the form column:operator:value
with operators equals, contains, begins_with, ends_with, and regex.

Examples:
  # Everything, to stdout
  seoflare export example.com.db

  # All 404s, to a file
  seoflare export example.com.db -o broken.csv -f status_code:equals:404

  # Non-indexable blog pages
  seoflare export example.com.db \
    -f url:begins_with:https://example.com/blog/ \
    -f crawl_status:contains:noindex`,
		Args: cobra.ExactArgs(1),
		RunE: runExportCmd,
	}

	cmd.Flags().StringP("output", "o", "", "Write CSV to this file instead of stdout")
	cmd.Flags().StringArrayP("filter", "f", nil, "Row filter as column:operator:value (repeatable)")

	return cmd
}

// runExportCmd streams the filtered rows as CSV.
func runExportCmd(cmd *cobra.Command, args []string) error {
	cdb, err := database.Open(args[0])
	if err != nil {
		return err
	}
	defer func() { _ = cdb.Close() }()

	rawFilters, _ := cmd.Flags().GetStringArray("filter")
	filters, err := parseFilters(rawFilters)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if path, _ := cmd.Flags().GetString("output"); path != "" {
		f, err := os.Create(path) //nolint:gosec // user-provided output path is intentional
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	return cdb.ExportCSV(cmd.Context(), out, filters)
}

// parseFilters parses column:operator:value filter expressions.
func parseFilters(raw []string) ([]database.Filter, error) {
	filters := make([]database.Filter, 0, len(raw))
	for _, expr := range raw {
		parts := strings.SplitN(expr, ":", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid filter %q, expected column:operator:value", expr)
		}
		filters = append(filters, database.Filter{
			Column:   parts[0],
			Operator: parts[1],
			Value:    parts[2],
		})
	}
	return filters, nil
}
