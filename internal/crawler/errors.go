package crawler

import "errors"

var (
	// ErrCrawlTimedOut is returned by Wait when no worker produced a
	// result for the timeout window while URLs were still outstanding.
	ErrCrawlTimedOut = errors.New("crawl timed out waiting for results")

	// ErrStartURLUnreachable is returned by Start when the starting
	// URL cannot be fetched at all.
	ErrStartURLUnreachable = errors.New("start url unreachable")

	// ErrAlreadyRunning is returned when Start or Resume is called on
	// a session that is already running.
	ErrAlreadyRunning = errors.New("crawl already running")

	// ErrNothingToResume is returned by Resume when the session has no
	// pending URLs left.
	ErrNothingToResume = errors.New("no pending urls to resume")
)
