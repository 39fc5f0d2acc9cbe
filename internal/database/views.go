package database

import (
	"context"
	"fmt"
	"sort"
)

// crawlViews maps view names to the crawled-row predicate each one
// selects. Every view implicitly excludes pending rows.
var crawlViews = map[string]string{
	"status_2xx": "status_code BETWEEN 200 AND 299",
	"status_3xx": "status_code BETWEEN 300 AND 399",
	"status_4xx": "status_code BETWEEN 400 AND 499",
	"status_5xx": "status_code BETWEEN 500 AND 599",
	"failed":     "status_code = 0",

	"content_html":  "content_type LIKE 'text/html%'",
	"content_image": "content_type LIKE 'image/%'",
	"content_css":   "content_type LIKE 'text/css%'",
	"content_font": "content_type LIKE 'font/%' " +
		"OR content_type LIKE 'application/font%'",
	"content_json": "content_type LIKE 'application/json%'",
	"content_xml": "content_type LIKE 'application/xml%' " +
		"OR content_type LIKE 'text/xml%'",
	"content_js": "content_type LIKE 'application/javascript%' " +
		"OR content_type LIKE 'text/javascript%'",

	"crawl_ok":            "crawl_status = 'ok'",
	"crawl_not_ok":        "crawl_status != 'ok'",
	"crawl_canonicalised": "crawl_status LIKE '%canonicalised%'",
	"crawl_blocked":       "crawl_status LIKE '%blocked by robots.txt%'",
	"crawl_noindex":       "crawl_status LIKE '%noindex%'",
}

// brokenInlinksView lists every internal link whose target failed or
// answered with a client or server error.
const brokenInlinksView = `CREATE VIEW IF NOT EXISTS v_broken_inlinks AS
	SELECT i.from_url, i.to_url, c.status_code, c.crawl_status
	FROM inlinks i
	JOIN crawl c ON c.url = i.to_url
	WHERE c.crawl_status != '' AND (c.status_code >= 400 OR c.status_code = 0)`

// createViews creates the reporting views.
func (cdb *CrawlDB) createViews(ctx context.Context) error {
	for name, predicate := range crawlViews {
		stmt := fmt.Sprintf(
			"CREATE VIEW IF NOT EXISTS v_%s AS SELECT * FROM crawl WHERE crawl_status != '' AND (%s)",
			name, predicate)
		if _, err := cdb.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create view %s: %w", name, err)
		}
	}
	if _, err := cdb.db.ExecContext(ctx, brokenInlinksView); err != nil {
		return fmt.Errorf("create view broken_inlinks: %w", err)
	}
	return nil
}

// ViewNames lists the available report views in stable order.
func ViewNames() []string {
	names := make([]string, 0, len(crawlViews)+1)
	for name := range crawlViews {
		names = append(names, name)
	}
	names = append(names, "broken_inlinks")
	sort.Strings(names)
	return names
}

// CountView returns the row count of a report view.
func (cdb *CrawlDB) CountView(ctx context.Context, name string) (int64, error) {
	if _, ok := crawlViews[name]; !ok && name != "broken_inlinks" {
		return 0, fmt.Errorf("%w: %q", ErrUnknownView, name)
	}
	return cdb.count(ctx, "SELECT COUNT(*) FROM v_"+name)
}

// ViewURLs returns the URLs a crawl view selects, capped at limit.
// Zero means no cap. The broken_inlinks view is keyed by link target
// rather than URL and is not served here.
func (cdb *CrawlDB) ViewURLs(ctx context.Context, name string, limit int) ([]string, error) {
	if _, ok := crawlViews[name]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownView, name)
	}
	stmt := "SELECT url FROM v_" + name + " ORDER BY id"
	if limit > 0 {
		stmt += " LIMIT " + fmt.Sprint(limit)
	}

	cdb.mu.Lock()
	defer cdb.mu.Unlock()
	rows, err := cdb.writer().QueryContext(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("view %s: %w", name, err)
	}
	defer func() { _ = rows.Close() }()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("view %s: %w", name, err)
		}
		urls = append(urls, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("view %s: %w", name, err)
	}
	return urls, nil
}

// BrokenInlinks returns source/target/status triples for internal
// links pointing at failed or erroring URLs.
func (cdb *CrawlDB) BrokenInlinks(ctx context.Context) ([][3]string, error) {
	cdb.mu.Lock()
	defer cdb.mu.Unlock()

	rows, err := cdb.writer().QueryContext(ctx,
		"SELECT from_url, to_url, status_code FROM v_broken_inlinks ORDER BY to_url, from_url")
	if err != nil {
		return nil, fmt.Errorf("broken inlinks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out [][3]string
	for rows.Next() {
		var from, to string
		var status int64
		if err := rows.Scan(&from, &to, &status); err != nil {
			return nil, fmt.Errorf("broken inlinks: %w", err)
		}
		out = append(out, [3]string{from, to, fmt.Sprint(status)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("broken inlinks: %w", err)
	}
	return out, nil
}
