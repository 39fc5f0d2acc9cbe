// Package main provides the entry point for the seoflare CLI.
//
// Seoflare is a site crawler for technical SEO audits. It crawls a
// site politely, stores every result in a resumable session database,
// and exports the findings as CSV or Markdown reports.
//
// Usage:
//
//	seoflare crawl https://example.com/
//	seoflare resume example.com.db
//	seoflare export example.com.db -o crawl.csv
//
// See --help for all available options.
package main

// main is the entry point for seoflare.
func main() {
	Execute()
}
