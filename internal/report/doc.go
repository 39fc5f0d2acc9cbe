// Package report renders a Markdown summary of a crawl session from
// the session database: URL totals, status and content-type breakdowns,
// non-indexable pages, and broken internal links.
package report
