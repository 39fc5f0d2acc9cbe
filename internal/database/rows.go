package database

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/seoflare/seoflare/internal/config"
	"github.com/seoflare/seoflare/internal/model"
)

// maxBindParams is SQLite's default bind parameter ceiling. Statements
// over large URL sets are chunked to stay under it.
const maxBindParams = 999

// InsertNewURLs adds discovered URLs as pending rows. Already known
// URLs are left untouched.
func (cdb *CrawlDB) InsertNewURLs(ctx context.Context, urls []string) error {
	cdb.mu.Lock()
	defer cdb.mu.Unlock()

	w := cdb.writer()
	for _, chunk := range chunkStrings(urls, maxBindParams) {
		placeholders := make([]string, len(chunk))
		args := make([]any, len(chunk))
		for i, u := range chunk {
			placeholders[i] = "(?)"
			args[i] = u
		}
		stmt := "INSERT OR IGNORE INTO crawl (url) VALUES " + strings.Join(placeholders, ", ")
		if _, err := w.ExecContext(ctx, stmt, args...); err != nil {
			return fmt.Errorf("insert new urls: %w", err)
		}
	}
	return nil
}

// GetNewURLs returns the subset of candidates not yet present in the
// session, preserving candidate order.
func (cdb *CrawlDB) GetNewURLs(ctx context.Context, candidates []string) ([]string, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	cdb.mu.Lock()
	defer cdb.mu.Unlock()

	w := cdb.writer()
	known := make(map[string]struct{})
	for _, chunk := range chunkStrings(candidates, maxBindParams) {
		placeholders := make([]string, len(chunk))
		args := make([]any, len(chunk))
		for i, u := range chunk {
			placeholders[i] = "?"
			args[i] = u
		}
		stmt := "SELECT url FROM crawl WHERE url IN (" + strings.Join(placeholders, ", ") + ")"
		rows, err := w.QueryContext(ctx, stmt, args...)
		if err != nil {
			return nil, fmt.Errorf("filter known urls: %w", err)
		}
		for rows.Next() {
			var u string
			if err := rows.Scan(&u); err != nil {
				_ = rows.Close()
				return nil, fmt.Errorf("filter known urls: %w", err)
			}
			known[u] = struct{}{}
		}
		if err := rows.Err(); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("filter known urls: %w", err)
		}
		_ = rows.Close()
	}

	fresh := make([]string, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, u := range candidates {
		if _, ok := known[u]; ok {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		fresh = append(fresh, u)
	}
	return fresh, nil
}

// InsertCrawlData upserts classified rows. The returned counts
// partition the batch into URLs never seen before (inserted) and URLs
// already discovered whose record was written over (updated).
func (cdb *CrawlDB) InsertCrawlData(ctx context.Context, rows []model.PageRow) (inserted, updated int64, err error) {
	cdb.mu.Lock()
	defer cdb.mu.Unlock()

	w := cdb.writer()

	cols := cdb.columns
	assignments := make([]string, 0, len(cols)-1)
	for _, c := range cols {
		if c == model.ColumnURL {
			continue
		}
		assignments = append(assignments, c+" = excluded."+c)
	}
	stmt := fmt.Sprintf(
		"INSERT INTO crawl (%s) VALUES (%s) ON CONFLICT(url) DO UPDATE SET %s",
		strings.Join(cols, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "),
		strings.Join(assignments, ", "),
	)

	for i := range rows {
		row := &rows[i]

		var known bool
		err := w.QueryRowContext(ctx,
			"SELECT EXISTS (SELECT 1 FROM crawl WHERE url = ?)", row.URL).Scan(&known)
		if err != nil {
			return inserted, updated, fmt.Errorf("check existing row: %w", err)
		}
		if known {
			updated++
		} else {
			inserted++
		}

		args := make([]any, 0, len(cols))
		for _, c := range cols {
			args = append(args, row.Value(c))
		}
		if _, err := w.ExecContext(ctx, stmt, args...); err != nil {
			return inserted, updated, fmt.Errorf("insert crawl row %s: %w", row.URL, err)
		}
	}
	return inserted, updated, nil
}

// InsertInlinks records link graph edges from one page to its targets.
func (cdb *CrawlDB) InsertInlinks(ctx context.Context, from string, to []string) error {
	cdb.mu.Lock()
	defer cdb.mu.Unlock()

	w := cdb.writer()
	for _, chunk := range chunkStrings(to, maxBindParams/2) {
		placeholders := make([]string, len(chunk))
		args := make([]any, 0, len(chunk)*2)
		for i, target := range chunk {
			placeholders[i] = "(?, ?)"
			args = append(args, from, target)
		}
		stmt := "INSERT OR IGNORE INTO inlinks (from_url, to_url) VALUES " + strings.Join(placeholders, ", ")
		if _, err := w.ExecContext(ctx, stmt, args...); err != nil {
			return fmt.Errorf("insert inlinks: %w", err)
		}
	}
	return nil
}

// PendingURLs returns all discovered but not yet crawled URLs in
// discovery order. A crawl resumes from exactly this set.
func (cdb *CrawlDB) PendingURLs(ctx context.Context) ([]string, error) {
	cdb.mu.Lock()
	defer cdb.mu.Unlock()

	rows, err := cdb.writer().QueryContext(ctx,
		"SELECT url FROM crawl WHERE crawl_status = '' ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("pending urls: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("pending urls: %w", err)
		}
		urls = append(urls, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pending urls: %w", err)
	}
	return urls, nil
}

// CountTotal returns the number of discovered URLs.
func (cdb *CrawlDB) CountTotal(ctx context.Context) (int64, error) {
	return cdb.count(ctx, "SELECT COUNT(*) FROM crawl")
}

// CountCrawled returns the number of URLs with a recorded result.
func (cdb *CrawlDB) CountCrawled(ctx context.Context) (int64, error) {
	return cdb.count(ctx, "SELECT COUNT(*) FROM crawl WHERE crawl_status != ''")
}

func (cdb *CrawlDB) count(ctx context.Context, stmt string, args ...any) (int64, error) {
	cdb.mu.Lock()
	defer cdb.mu.Unlock()

	var n int64
	if err := cdb.writer().QueryRowContext(ctx, stmt, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return n, nil
}

// Filter restricts query results to rows whose column matches a value
// under an operator. Operators are the exclusion rule operators; the
// regex operator is evaluated after the database read.
type Filter struct {
	Column   string
	Operator string
	Value    string
}

// Query returns the session's crawled rows as a header plus string
// records, filtered and ordered by discovery. A non-empty view name
// restricts rows to one of the report views; a non-empty column list
// selects a subset of the session's columns in the given order.
// Column, operator, and view names are checked against allow lists;
// values are always bound as parameters.
func (cdb *CrawlDB) Query(ctx context.Context, filters []Filter, view string, columns []string) ([]string, [][]string, error) {
	available := append(append([]string{}, cdb.Columns()...), model.ColumnUniqueInlinks)
	header := available
	if len(columns) > 0 {
		header = make([]string, 0, len(columns))
		for _, c := range columns {
			if columnIndex(available, c) < 0 {
				return nil, nil, fmt.Errorf("%w: %q", ErrUnknownColumn, c)
			}
			header = append(header, c)
		}
	}

	selects := make([]string, len(header))
	for i, c := range header {
		if c == model.ColumnUniqueInlinks {
			selects[i] = "(SELECT COUNT(DISTINCT from_url) FROM inlinks WHERE to_url = c.url)"
			continue
		}
		selects[i] = "c." + c
	}

	var (
		conditions   []string
		args         []any
		regexFilters []func(record []string) bool
	)
	if view != "" {
		if _, ok := crawlViews[view]; !ok {
			return nil, nil, fmt.Errorf("%w: %q", ErrUnknownView, view)
		}
		conditions = append(conditions, "c.url IN (SELECT url FROM v_"+view+")")
	}
	for _, f := range filters {
		idx := columnIndex(header, f.Column)
		if idx < 0 {
			return nil, nil, fmt.Errorf("%w: %q", ErrUnknownColumn, f.Column)
		}
		switch f.Operator {
		case config.OperatorEquals:
			conditions = append(conditions, selects[idx]+" = ?")
			args = append(args, f.Value)
		case config.OperatorContains:
			conditions = append(conditions, selects[idx]+" LIKE ? ESCAPE '\\'")
			args = append(args, "%"+escapeLike(f.Value)+"%")
		case config.OperatorBeginsWith:
			conditions = append(conditions, selects[idx]+" LIKE ? ESCAPE '\\'")
			args = append(args, escapeLike(f.Value)+"%")
		case config.OperatorEndsWith:
			conditions = append(conditions, selects[idx]+" LIKE ? ESCAPE '\\'")
			args = append(args, "%"+escapeLike(f.Value))
		case config.OperatorRegex:
			re, err := regexp.Compile(f.Value)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: %v", ErrUnknownOperator, err)
			}
			i := idx
			regexFilters = append(regexFilters, func(record []string) bool {
				return re.MatchString(record[i])
			})
		default:
			return nil, nil, fmt.Errorf("%w: %q", ErrUnknownOperator, f.Operator)
		}
	}

	stmt := "SELECT " + strings.Join(selects, ", ") + " FROM crawl c WHERE c.crawl_status != ''"
	if len(conditions) > 0 {
		stmt += " AND " + strings.Join(conditions, " AND ")
	}
	stmt += " ORDER BY c.id"

	cdb.mu.Lock()
	defer cdb.mu.Unlock()
	rows, err := cdb.writer().QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("query crawl data: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records [][]string
scan:
	for rows.Next() {
		fields := make([]sql.NullString, len(header))
		dests := make([]any, len(header))
		for i := range fields {
			dests[i] = &fields[i]
		}
		if err := rows.Scan(dests...); err != nil {
			return nil, nil, fmt.Errorf("query crawl data: %w", err)
		}
		record := make([]string, len(header))
		for i, f := range fields {
			record[i] = f.String
		}
		for _, keep := range regexFilters {
			if !keep(record) {
				continue scan
			}
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("query crawl data: %w", err)
	}
	return header, records, nil
}

// Inlinks returns the distinct URLs linking to target.
func (cdb *CrawlDB) Inlinks(ctx context.Context, target string) ([]string, error) {
	cdb.mu.Lock()
	defer cdb.mu.Unlock()

	rows, err := cdb.writer().QueryContext(ctx,
		"SELECT DISTINCT from_url FROM inlinks WHERE to_url = ? ORDER BY from_url", target)
	if err != nil {
		return nil, fmt.Errorf("inlinks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sources []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("inlinks: %w", err)
		}
		sources = append(sources, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("inlinks: %w", err)
	}
	return sources, nil
}

// UniqueInlinkCount returns how many distinct pages link to target.
func (cdb *CrawlDB) UniqueInlinkCount(ctx context.Context, target string) (int64, error) {
	return cdb.count(ctx,
		"SELECT COUNT(DISTINCT from_url) FROM inlinks WHERE to_url = ?", target)
}

// columnIndex returns the position of a column in the header, or -1.
func columnIndex(header []string, column string) int {
	for i, c := range header {
		if c == column {
			return i
		}
	}
	return -1
}

// escapeLike escapes LIKE metacharacters in a user value.
func escapeLike(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, "%", `\%`)
	return strings.ReplaceAll(v, "_", `\_`)
}

// chunkStrings splits values into slices of at most size elements.
func chunkStrings(values []string, size int) [][]string {
	if len(values) == 0 {
		return nil
	}
	chunks := make([][]string, 0, len(values)/size+1)
	for len(values) > size {
		chunks = append(chunks, values[:size])
		values = values[size:]
	}
	return append(chunks, values)
}
