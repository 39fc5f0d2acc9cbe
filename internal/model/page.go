package model

// Core column names. These are always present in the crawl table and in
// every exported row set, regardless of configuration.
const (
	ColumnURL         = "url"
	ColumnStatusCode  = "status_code"
	ColumnContentType = "content_type"
	ColumnRedirectURL = "redirect_url"
	ColumnCrawlStatus = "crawl_status"
)

// Optional column names, enabled through the crawl-item configuration.
const (
	ColumnH1                  = "h1"
	ColumnH2                  = "h2"
	ColumnPageTitle           = "page_title"
	ColumnMetaDescription     = "meta_description"
	ColumnCanonicalTag        = "canonical_tag"
	ColumnCanonicalHTTPHeader = "canonical_http_header"
	ColumnRobotsTxt           = "robots_txt"
	ColumnMetaRobots          = "meta_robots"
	ColumnXRobotsTag          = "x_robots_tag"
	ColumnUniqueInlinks       = "unique_inlinks"
)

// CoreColumns lists the always-present columns in storage order.
func CoreColumns() []string {
	return []string{
		ColumnURL,
		ColumnStatusCode,
		ColumnContentType,
		ColumnRedirectURL,
		ColumnCrawlStatus,
	}
}

// OptionalColumns lists the configurable columns in storage order.
// ColumnUniqueInlinks is computed from the inlink edge table at query
// time and therefore has no storage column of its own.
func OptionalColumns() []string {
	return []string{
		ColumnH1,
		ColumnH2,
		ColumnPageTitle,
		ColumnMetaDescription,
		ColumnCanonicalTag,
		ColumnCanonicalHTTPHeader,
		ColumnRobotsTxt,
		ColumnMetaRobots,
		ColumnXRobotsTag,
	}
}

// IsBuiltinColumn reports whether name is one of the core or optional
// column names. Custom extraction definitions that collide with a
// builtin column are renamed by the configuration layer.
func IsBuiltinColumn(name string) bool {
	for _, c := range CoreColumns() {
		if c == name {
			return true
		}
	}
	for _, c := range OptionalColumns() {
		if c == name {
			return true
		}
	}
	return name == ColumnUniqueInlinks
}

// PageRow is one classified URL record. A row is created empty when a
// URL is first discovered as a link target and filled in exactly once
// per classification pass.
type PageRow struct {
	// URL is the canonicalized URL and the unique key of the record.
	URL string

	// StatusCode is the HTTP status of the exchange. Zero means the
	// fetch failed permanently; ContentType then carries the reason.
	StatusCode int

	// ContentType is the response Content-Type header, or the failure
	// reason for permanently failed fetches.
	ContentType string

	// RedirectURL is the target this URL redirects to, when it does.
	RedirectURL string

	// CrawlStatus is the composite human-readable classification
	// (e.g. "ok", "canonicalised", "not found, noindex").
	CrawlStatus string

	// On-page elements; populated only for textual bodies.
	H1              string
	H2              string
	PageTitle       string
	MetaDescription string

	// Directives.
	CanonicalTag        string
	CanonicalHTTPHeader string
	MetaRobots          string
	XRobotsTag          string

	// RobotsTxt is "allowed" or "blocked" for this URL under the
	// active robots.txt ruleset.
	RobotsTxt string

	// Custom holds values of configured custom extractions, keyed by
	// the (collision-renamed) extraction name.
	Custom map[string]string
}

// Value returns the row's value for a column name. Unknown columns
// resolve through the custom extraction map and default to "".
func (r *PageRow) Value(column string) any {
	switch column {
	case ColumnURL:
		return r.URL
	case ColumnStatusCode:
		return r.StatusCode
	case ColumnContentType:
		return r.ContentType
	case ColumnRedirectURL:
		return r.RedirectURL
	case ColumnCrawlStatus:
		return r.CrawlStatus
	case ColumnH1:
		return r.H1
	case ColumnH2:
		return r.H2
	case ColumnPageTitle:
		return r.PageTitle
	case ColumnMetaDescription:
		return r.MetaDescription
	case ColumnCanonicalTag:
		return r.CanonicalTag
	case ColumnCanonicalHTTPHeader:
		return r.CanonicalHTTPHeader
	case ColumnRobotsTxt:
		return r.RobotsTxt
	case ColumnMetaRobots:
		return r.MetaRobots
	case ColumnXRobotsTag:
		return r.XRobotsTag
	default:
		return r.Custom[column]
	}
}
