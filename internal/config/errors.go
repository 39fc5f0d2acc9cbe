package config

import "errors"

var (
	// ErrNoStartURL is returned when spider mode has no starting URL.
	ErrNoStartURL = errors.New("spider mode requires a starting URL")

	// ErrNoListURLs is returned when list mode has an empty URL list.
	ErrNoListURLs = errors.New("list mode requires at least one URL")

	// ErrInvalidMode is returned for an unrecognized crawl mode.
	ErrInvalidMode = errors.New("mode must be Spider or List")

	// ErrInvalidThreads is returned for a non-positive thread count.
	ErrInvalidThreads = errors.New("thread count must be positive")

	// ErrInvalidRate is returned for a negative throughput cap.
	ErrInvalidRate = errors.New("throughput cap must not be negative")

	// ErrInvalidMaxRetries is returned for a negative retry limit.
	ErrInvalidMaxRetries = errors.New("max retries must not be negative")

	// ErrInvalidExclusion is returned when an exclusion rule uses an
	// unknown operator or an uncompilable regex value.
	ErrInvalidExclusion = errors.New("invalid exclusion rule")

	// ErrInvalidExtraction is returned when a custom extraction uses an
	// unknown selector kind or has an empty name.
	ErrInvalidExtraction = errors.New("invalid custom extraction")
)
