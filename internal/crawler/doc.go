// Package crawler runs one crawl session: a worker pool fetching URLs
// from a shared frontier, a single consumer classifying and persisting
// the results, and a rate controller keeping measured throughput under
// the configured cap. Sessions stop cleanly at any point and resume
// from the pending URL set recorded in the session database.
package crawler
