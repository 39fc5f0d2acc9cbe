package database

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
)

// utf8BOM marks exported CSV files as UTF-8 for spreadsheet tools that
// otherwise guess a legacy encoding.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ExportCSV writes the session's crawled rows as CSV with a UTF-8 byte
// order mark, one column per storage column plus the computed inlink
// count, filtered like Query.
func (cdb *CrawlDB) ExportCSV(ctx context.Context, w io.Writer, filters []Filter) error {
	header, records, err := cdb.Query(ctx, filters, "", nil)
	if err != nil {
		return err
	}

	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, record := range records {
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}
