// Package classifier turns one HTTP exchange, including its redirect
// history, into structured page rows and a filtered set of discovered
// links. It owns URL canonicalization, on-page and directive
// extraction, the composite crawl status, and the link pipeline's
// exclusion/robots/scope filters.
package classifier
