package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/adrg/xdg"

	"github.com/seoflare/seoflare/internal/model"
)

// Default configuration values.
const (
	// DefaultThreads is the fetch worker pool size. Five parallel
	// fetches keep a typical site busy without tripping rate limiting.
	DefaultThreads = 5

	// DefaultMaxRetries bounds how often a transiently failing URL is
	// re-enqueued before a terminal failure row is recorded.
	DefaultMaxRetries = 5

	// DefaultURLsPerSecond is the throughput cap. Zero means unlimited.
	DefaultURLsPerSecond = 0

	// DefaultUserAgent identifies the crawler in HTTP requests.
	DefaultUserAgent = "Seoflare SEO Spider/1.0 (+https://github.com/seoflare/seoflare)"

	// DefaultRobotsUserAgent is the short UA family name matched
	// against robots.txt User-agent tokens.
	DefaultRobotsUserAgent = "Seoflare"

	// DefaultSeparator joins multiple matches of an on-page element
	// (several h1 tags, for example) into one column value.
	DefaultSeparator = "; "

	// DefaultMaxBodySize caps how much of a response body is read.
	// 5MB covers any sane HTML document.
	DefaultMaxBodySize = 5 * 1024 * 1024

	// AppName is used for XDG directory paths and the database name.
	AppName = "seoflare"
)

// Mode selects how the frontier is seeded.
type Mode string

const (
	// ModeSpider crawls outward from a single starting URL.
	ModeSpider Mode = "Spider"

	// ModeList crawls a fixed list of URLs without following links.
	ModeList Mode = "List"
)

// Crawl-item names that toggle behavior rather than columns. They live
// in the same CrawlItems list as the optional columns, mirroring how a
// stored configuration round-trips through the database.
const (
	// ItemRespectRobotsTxt makes the crawler skip robots-blocked URLs.
	ItemRespectRobotsTxt = "respect_robots_txt"

	// ItemFollowBlockedRedirects keeps robots-blocked redirect hops in
	// the reconstructed chain.
	ItemFollowBlockedRedirects = "follow_blocked_redirects"

	// ItemCheckBlockedURLs reports robots-blocked links instead of
	// silently dropping them from the frontier.
	ItemCheckBlockedURLs = "check_blocked_urls"

	// ItemExternalLinks crawls links pointing off the root domain.
	ItemExternalLinks = "external_links"

	// ItemRespectNofollow drops anchors carrying rel=nofollow.
	ItemRespectNofollow = "respect_nofollow"

	// ItemHreflangLinks, ItemCanonicalLinks and ItemPaginationLinks
	// add the matching <link> targets to link discovery.
	ItemHreflangLinks   = "hreflang_links"
	ItemCanonicalLinks  = "canonical_links"
	ItemPaginationLinks = "pagination_links"

	// ItemImages, ItemStylesheets and ItemScripts add the matching
	// resource references to link discovery.
	ItemImages      = "images"
	ItemStylesheets = "stylesheets"
	ItemScripts     = "scripts"

	// ItemUniqueInlinks records the internal link graph and exposes a
	// computed unique_inlinks column.
	ItemUniqueInlinks = model.ColumnUniqueInlinks
)

// Exclusion rule operators.
const (
	OperatorEquals     = "equals"
	OperatorContains   = "contains"
	OperatorBeginsWith = "begins_with"
	OperatorEndsWith   = "ends_with"
	OperatorRegex      = "regex"
)

// Custom extraction selector kinds.
const (
	SelectorCSS   = "css"
	SelectorXPath = "xpath"
	SelectorRegex = "regex"
)

// ExclusionRule rejects discovered links whose URL matches Value under
// Operator.
type ExclusionRule struct {
	Operator string `yaml:"operator"`
	Value    string `yaml:"value"`
}

// Extraction is a custom extraction definition: a named CSS, XPath, or
// regex selector whose first match becomes an extra column.
type Extraction struct {
	Name     string `yaml:"name"`
	Selector string `yaml:"selector"`
	Value    string `yaml:"value"`
}

// ColumnName returns the storage column for the extraction, renamed
// with a suffix when the configured name shadows a builtin column.
func (e Extraction) ColumnName() string {
	if model.IsBuiltinColumn(e.Name) {
		return e.Name + "_custom"
	}
	return e.Name
}

// Settings holds all configuration for one crawl session. The full
// struct is written to the session database on start and on every
// graceful stop, and read back on resume.
type Settings struct {
	// Mode selects spider or list crawling.
	Mode Mode `yaml:"mode"`

	// StartURL is the spider-mode starting URL.
	StartURL string `yaml:"start_url"`

	// ListURLs is the fixed URL set for list mode.
	ListURLs []string `yaml:"list_urls,omitempty"`

	// Threads is the fetch worker pool size.
	Threads int `yaml:"threads"`

	// URLsPerSecond caps measured throughput. Zero means unlimited.
	URLsPerSecond int `yaml:"urls_per_second"`

	// UserAgent is the full User-Agent request header.
	UserAgent string `yaml:"user_agent"`

	// RobotsUserAgent is the short UA family name used to select the
	// applicable robots.txt block.
	RobotsUserAgent string `yaml:"robots_user_agent"`

	// MaxRetries bounds re-enqueues of transiently failing URLs.
	MaxRetries int `yaml:"max_retries"`

	// Proxy settings. ProxyHost is a URL such as
	// "http://proxy.local:3128"; credentials are optional.
	ProxyHost     string `yaml:"proxy_host,omitempty"`
	ProxyUser     string `yaml:"proxy_user,omitempty"`
	ProxyPassword string `yaml:"proxy_password,omitempty"`

	// Basic-auth credentials sent with every request when set.
	AuthUser     string `yaml:"auth_user,omitempty"`
	AuthPassword string `yaml:"auth_password,omitempty"`

	// CrawlItems selects the optional columns and behavior toggles
	// active for this crawl.
	CrawlItems []string `yaml:"crawl_items"`

	// Exclusions rejects matching links during discovery.
	Exclusions []ExclusionRule `yaml:"exclusions,omitempty"`

	// Extractions defines custom extraction columns.
	Extractions []Extraction `yaml:"extractions,omitempty"`

	// Separator joins multiple matches of one on-page element.
	Separator string `yaml:"separator"`

	// MaxBodySize caps response body reads, in bytes.
	MaxBodySize int64 `yaml:"max_body_size"`
}

// NewSettings returns Settings populated with defaults: spider mode,
// all optional columns enabled, robots.txt respected, inlink recording
// on.
func NewSettings() *Settings {
	items := append([]string{}, model.OptionalColumns()...)
	items = append(items, ItemRespectRobotsTxt, ItemUniqueInlinks)
	return &Settings{
		Mode:            ModeSpider,
		Threads:         DefaultThreads,
		URLsPerSecond:   DefaultURLsPerSecond,
		UserAgent:       DefaultUserAgent,
		RobotsUserAgent: DefaultRobotsUserAgent,
		MaxRetries:      DefaultMaxRetries,
		CrawlItems:      items,
		Separator:       DefaultSeparator,
		MaxBodySize:     DefaultMaxBodySize,
	}
}

// HasItem reports whether a crawl item or behavior toggle is active.
func (s *Settings) HasItem(name string) bool {
	for _, item := range s.CrawlItems {
		if item == name {
			return true
		}
	}
	return false
}

// Columns returns the storage column set for this configuration: the
// core columns, the selected optional columns in canonical order, and
// one column per custom extraction. The set is fixed at database
// creation time.
func (s *Settings) Columns() []string {
	columns := model.CoreColumns()
	for _, c := range model.OptionalColumns() {
		if s.HasItem(c) {
			columns = append(columns, c)
		}
	}
	for _, e := range s.Extractions {
		columns = append(columns, e.ColumnName())
	}
	return columns
}

// CompileExclusions combines all exclusion rules into one alternation.
// A nil pattern means no exclusions are configured.
func (s *Settings) CompileExclusions() (*regexp.Regexp, error) {
	if len(s.Exclusions) == 0 {
		return nil, nil
	}
	parts := make([]string, 0, len(s.Exclusions))
	for _, rule := range s.Exclusions {
		var part string
		switch rule.Operator {
		case OperatorEquals:
			part = "^" + regexp.QuoteMeta(rule.Value) + "$"
		case OperatorContains:
			part = regexp.QuoteMeta(rule.Value)
		case OperatorBeginsWith:
			part = "^" + regexp.QuoteMeta(rule.Value)
		case OperatorEndsWith:
			part = regexp.QuoteMeta(rule.Value) + "$"
		case OperatorRegex:
			part = rule.Value
		default:
			return nil, fmt.Errorf("%w: unknown operator %q", ErrInvalidExclusion, rule.Operator)
		}
		parts = append(parts, "(?:"+part+")")
	}
	re, err := regexp.Compile(strings.Join(parts, "|"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExclusion, err)
	}
	return re, nil
}

// DefaultDatabasePath returns the XDG data path for a new session
// database named after the crawled host.
func DefaultDatabasePath(host string) string {
	name := strings.ReplaceAll(host, ":", "_")
	if name == "" {
		name = "crawl"
	}
	return filepath.Join(xdg.DataHome, AppName, name+".db")
}

// Validate checks the settings and returns the first problem found.
// It is called once before a crawl starts; later layers can assume a
// valid configuration.
func (s *Settings) Validate() error {
	switch s.Mode {
	case ModeSpider:
		if strings.TrimSpace(s.StartURL) == "" {
			return ErrNoStartURL
		}
		u, err := url.Parse(s.StartURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: %q is not an absolute http(s) URL", ErrNoStartURL, s.StartURL)
		}
	case ModeList:
		if len(s.ListURLs) == 0 {
			return ErrNoListURLs
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMode, s.Mode)
	}

	if s.Threads <= 0 {
		return ErrInvalidThreads
	}
	if s.URLsPerSecond < 0 {
		return ErrInvalidRate
	}
	if s.MaxRetries < 0 {
		return ErrInvalidMaxRetries
	}

	if _, err := s.CompileExclusions(); err != nil {
		return err
	}

	for _, e := range s.Extractions {
		if strings.TrimSpace(e.Name) == "" {
			return fmt.Errorf("%w: extraction with empty name", ErrInvalidExtraction)
		}
		switch e.Selector {
		case SelectorCSS, SelectorXPath:
		case SelectorRegex:
			if _, err := regexp.Compile(e.Value); err != nil {
				return fmt.Errorf("%w: regex extraction %q: %v", ErrInvalidExtraction, e.Name, err)
			}
		default:
			return fmt.Errorf("%w: unknown selector kind %q", ErrInvalidExtraction, e.Selector)
		}
	}
	return nil
}
