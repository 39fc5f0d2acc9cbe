// Package database persists one crawl session in a single SQLite file:
// the crawl rows, the internal link graph, the configuration the
// session was started with, and the reporting views derived from them.
// All access goes through CrawlDB; callers never see SQL.
package database
