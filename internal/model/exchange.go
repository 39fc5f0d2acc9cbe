package model

import (
	"net/http"
	"strings"
)

// Failure reasons recorded when a fetch cannot produce a response.
// They appear in the content_type and crawl_status columns of the
// terminal row so failed URLs stay visible in exports and reports.
const (
	FailureTimedOut         = "timed out"
	FailureConnRefused      = "connection refused"
	FailureTooManyRedirects = "too many redirects"
	FailureInvalidURL       = "invalid url"
	FailureConnection       = "connection error"
)

// Hop is one redirect step observed while fetching a URL.
type Hop struct {
	// URL is the canonicalized URL that answered with a redirect.
	URL string

	// StatusCode is the redirect status (301, 302, 303, 307, 308).
	StatusCode int

	// ContentType is the hop's Content-Type header.
	ContentType string

	// XRobotsTag is the hop's X-Robots-Tag header.
	XRobotsTag string
}

// Exchange is the raw outcome of fetching one URL: the final response,
// the redirect chain that led to it, or the reason no response could
// be obtained.
type Exchange struct {
	// RequestURL is the URL the fetch started from.
	RequestURL string

	// FinalURL is the canonicalized URL that produced the terminal
	// response. It differs from RequestURL after redirects.
	FinalURL string

	// StatusCode is the terminal response status. Zero when the fetch
	// failed.
	StatusCode int

	// Header holds the terminal response headers.
	Header http.Header

	// Body is the response body for textual responses, capped and
	// decoded to UTF-8. Nil for non-textual responses and failures.
	Body []byte

	// Hops records each redirect step in order.
	Hops []Hop

	// FailureReason is set when no terminal response was obtained.
	FailureReason string
}

// Failed reports whether the fetch produced no terminal response.
func (e *Exchange) Failed() bool {
	return e.FailureReason != ""
}

// Redirected reports whether the fetch followed at least one redirect.
func (e *Exchange) Redirected() bool {
	return len(e.Hops) > 0
}

// IsTextual reports whether the terminal response carries a textual
// body worth parsing.
func (e *Exchange) IsTextual() bool {
	if e.Header == nil {
		return false
	}
	return strings.Contains(e.Header.Get("Content-Type"), "text")
}
