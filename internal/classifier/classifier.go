package classifier

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/seoflare/seoflare/internal/config"
	"github.com/seoflare/seoflare/internal/model"
	"github.com/seoflare/seoflare/internal/robots"
)

// Robots.txt status values recorded per URL.
const (
	RobotsAllowed = "allowed"
	RobotsBlocked = "blocked"
)

// Result is the outcome of classifying one exchange: the terminal
// page row, one synthetic row per redirect hop, and the discovered
// links that survived the filter pipeline.
type Result struct {
	Row          model.PageRow
	RedirectRows []model.PageRow
	Links        []string
}

// Classifier turns raw exchanges into rows under the active settings,
// robots ruleset, and crawl scope. It holds no per-exchange state and
// is safe to reuse across the whole session from the single consumer
// goroutine.
type Classifier struct {
	settings   *config.Settings
	rules      *robots.Rules
	exclusions *regexp.Regexp
	regexes    map[string]*regexp.Regexp
	rootDomain string
	spider     bool
}

// New builds a Classifier, compiling the exclusion alternation and any
// regex extractions up front.
func New(settings *config.Settings, rules *robots.Rules) (*Classifier, error) {
	exclusions, err := settings.CompileExclusions()
	if err != nil {
		return nil, err
	}

	regexes := make(map[string]*regexp.Regexp)
	for _, e := range settings.Extractions {
		if e.Selector != config.SelectorRegex {
			continue
		}
		re, err := regexp.Compile(e.Value)
		if err != nil {
			return nil, fmt.Errorf("compile extraction %q: %w", e.Name, err)
		}
		regexes[e.ColumnName()] = re
	}

	return &Classifier{
		settings:   settings,
		rules:      rules,
		exclusions: exclusions,
		regexes:    regexes,
		spider:     settings.Mode == config.ModeSpider,
	}, nil
}

// SetRootDomain fixes the crawl's root domain; links outside it are
// external.
func (c *Classifier) SetRootDomain(domain string) {
	c.rootDomain = domain
}

// RootDomain returns the active root domain.
func (c *Classifier) RootDomain() string {
	return c.rootDomain
}

// RobotsStatus returns the robots.txt verdict recorded for a URL.
func (c *Classifier) RobotsStatus(rawURL string) string {
	if c.rules.IsAllowed(rawURL) {
		return RobotsAllowed
	}
	return RobotsBlocked
}

// IsExternal reports whether a URL points outside the crawl's root
// domain. With no root domain set (list mode) nothing is external.
func (c *Classifier) IsExternal(rawURL string) bool {
	if c.rootDomain == "" {
		return false
	}
	return Domain(rawURL) != c.rootDomain
}

// FailureRow builds the terminal row for a URL whose fetch failed
// permanently. Status zero and the failure reason in the content-type
// column keep the URL visible in reports.
func (c *Classifier) FailureRow(rawURL, reason string) model.PageRow {
	return model.PageRow{
		URL:         rawURL,
		StatusCode:  0,
		ContentType: reason,
		CrawlStatus: reason,
		RobotsTxt:   c.RobotsStatus(rawURL),
	}
}

// Classify turns one exchange into rows and discovered links.
func (c *Classifier) Classify(ex *model.Exchange) (*Result, error) {
	if ex.Failed() {
		return &Result{Row: c.FailureRow(ex.RequestURL, ex.FailureReason)}, nil
	}

	finalURL, err := Canonicalize(ex.FinalURL)
	if err != nil {
		finalURL = ex.RequestURL
	}

	row := model.PageRow{
		URL:                 finalURL,
		StatusCode:          ex.StatusCode,
		ContentType:         ex.Header.Get("Content-Type"),
		XRobotsTag:          ex.Header.Get("X-Robots-Tag"),
		CanonicalHTTPHeader: canonicalFromLinkHeader(ex.Header.Get("Link")),
		RobotsTxt:           c.RobotsStatus(finalURL),
	}

	res := &Result{}

	if ex.IsTextual() && len(ex.Body) > 0 {
		if err := c.classifyBody(ex, finalURL, &row, res); err != nil {
			return nil, err
		}
	}

	row.CrawlStatus = c.crawlStatus(&row)
	res.Row = row
	res.RedirectRows = c.redirectRows(ex, finalURL)
	return res, nil
}

// classifyBody parses the HTML body once and fills on-page elements,
// directives, custom extractions, and discovered links.
func (c *Classifier) classifyBody(ex *model.Exchange, finalURL string, row *model.PageRow, res *Result) error {
	root, err := html.Parse(bytes.NewReader(ex.Body))
	if err != nil {
		return fmt.Errorf("parse %s: %w", finalURL, err)
	}
	doc := goquery.NewDocumentFromNode(root)

	if c.settings.HasItem(model.ColumnH1) {
		row.H1 = c.selectText(doc, "h1")
	}
	if c.settings.HasItem(model.ColumnH2) {
		row.H2 = c.selectText(doc, "h2")
	}
	if c.settings.HasItem(model.ColumnPageTitle) {
		row.PageTitle = c.selectText(doc, "title")
	}
	if c.settings.HasItem(model.ColumnMetaDescription) {
		row.MetaDescription = metaContent(doc, "description")
	}
	if c.settings.HasItem(model.ColumnCanonicalTag) {
		row.CanonicalTag = strings.TrimSpace(doc.Find(`link[rel="canonical"]`).First().AttrOr("href", ""))
	}
	if c.settings.HasItem(model.ColumnMetaRobots) {
		row.MetaRobots = c.metaRobots(doc)
	}

	row.Custom = c.customExtractions(doc, root, ex.Body)

	if c.spider {
		base := baseURL(doc, finalURL)
		res.Links = c.extractLinks(doc, base)
	}
	return nil
}

// selectText joins the text of all elements matching a selector with
// the configured separator.
func (c *Classifier) selectText(doc *goquery.Document, selector string) string {
	var parts []string
	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		if txt := strings.TrimSpace(sel.Text()); txt != "" {
			parts = append(parts, txt)
		}
	})
	return strings.Join(parts, c.settings.Separator)
}

// metaContent returns the content attribute of the first meta tag with
// the given name, compared case-insensitively.
func metaContent(doc *goquery.Document, name string) string {
	content := ""
	doc.Find("meta").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if strings.EqualFold(sel.AttrOr("name", ""), name) {
			content = strings.TrimSpace(sel.AttrOr("content", ""))
			return false
		}
		return true
	})
	return content
}

// metaRobots resolves the robots meta directive for the active user
// agent, falling back to the generic "robots" name.
func (c *Classifier) metaRobots(doc *goquery.Document) string {
	if ua := strings.ToLower(c.settings.RobotsUserAgent); ua != "" {
		if v := metaContent(doc, ua); v != "" {
			return v
		}
	}
	return metaContent(doc, "robots")
}

// customExtractions evaluates the configured CSS/XPath/regex
// extractions against the parsed document.
func (c *Classifier) customExtractions(doc *goquery.Document, root *html.Node, body []byte) map[string]string {
	if len(c.settings.Extractions) == 0 {
		return nil
	}
	out := make(map[string]string, len(c.settings.Extractions))
	for _, e := range c.settings.Extractions {
		name := e.ColumnName()
		switch e.Selector {
		case config.SelectorCSS:
			out[name] = strings.TrimSpace(doc.Find(e.Value).First().Text())
		case config.SelectorXPath:
			node, err := htmlquery.Query(root, e.Value)
			if err != nil || node == nil {
				out[name] = ""
				continue
			}
			out[name] = strings.TrimSpace(htmlquery.InnerText(node))
		case config.SelectorRegex:
			out[name] = firstRegexMatch(c.regexes[name], body)
		}
	}
	return out
}

// firstRegexMatch returns the first capture group when the pattern has
// one, the whole match otherwise.
func firstRegexMatch(re *regexp.Regexp, body []byte) string {
	if re == nil {
		return ""
	}
	m := re.FindSubmatch(body)
	switch {
	case m == nil:
		return ""
	case len(m) > 1:
		return strings.TrimSpace(string(m[1]))
	default:
		return strings.TrimSpace(string(m[0]))
	}
}

// crawlStatus builds the composite status from the most actionable
// signals in precedence order. When anything beyond a plain "ok"
// applies, the leading "ok" is dropped so the actionable signal leads.
func (c *Classifier) crawlStatus(row *model.PageRow) string {
	parts := []string{statusPhrase(row.StatusCode)}

	appendOnce := func(part string) {
		for _, p := range parts {
			if p == part {
				return
			}
		}
		parts = append(parts, part)
	}

	if strings.Contains(strings.ToLower(row.XRobotsTag), "noindex") {
		appendOnce("noindex")
	}
	if row.RobotsTxt == RobotsBlocked {
		appendOnce("blocked by robots.txt")
	}
	if hasNoindexDirective(row.MetaRobots) {
		appendOnce("noindex")
	}
	if canonicalMismatch(row.CanonicalTag, row.URL) {
		appendOnce("canonicalised")
	}
	if canonicalMismatch(row.CanonicalHTTPHeader, row.URL) {
		appendOnce("canonicalised")
	}

	if len(parts) > 1 && parts[0] == "ok" {
		parts = parts[1:]
	}
	return strings.Join(parts, ", ")
}

// statusPhrase maps an HTTP status code to its lowercased phrase.
func statusPhrase(code int) string {
	if phrase := http.StatusText(code); phrase != "" {
		return strings.ToLower(phrase)
	}
	return fmt.Sprintf("status %d", code)
}

// hasNoindexDirective reports whether a robots meta value carries
// noindex among its comma-separated directives.
func hasNoindexDirective(metaRobots string) bool {
	for _, d := range strings.Split(metaRobots, ",") {
		if strings.TrimSpace(strings.ToLower(d)) == "noindex" {
			return true
		}
	}
	return false
}

// canonicalMismatch reports whether a canonical reference names a
// different document than pageURL, ignoring a trailing slash.
func canonicalMismatch(canonical, pageURL string) bool {
	canonical = strings.TrimSpace(canonical)
	if canonical == "" {
		return false
	}
	return trimSlash(canonical) != trimSlash(pageURL)
}

// canonicalFromLinkHeader extracts the rel=canonical target from an
// HTTP Link header.
func canonicalFromLinkHeader(header string) string {
	for _, part := range strings.Split(header, ",") {
		target, params, ok := strings.Cut(part, ";")
		if !ok || !strings.Contains(strings.ToLower(params), "canonical") {
			continue
		}
		target = strings.TrimSpace(target)
		target = strings.TrimPrefix(target, "<")
		target = strings.TrimSuffix(target, ">")
		return target
	}
	return ""
}

// redirectRows reconstructs the redirect chain as one synthetic row
// per hop, each pointing at the next hop (the terminal URL for the
// last). The chain stops at the first external hop unless external
// links are crawled, and robots-blocked hops are skipped unless
// blocked redirects are followed.
func (c *Classifier) redirectRows(ex *model.Exchange, finalURL string) []model.PageRow {
	if !ex.Redirected() {
		return nil
	}

	followBlocked := !c.settings.HasItem(config.ItemRespectRobotsTxt) ||
		c.settings.HasItem(config.ItemFollowBlockedRedirects)
	externalOK := c.settings.HasItem(config.ItemExternalLinks)

	rows := make([]model.PageRow, 0, len(ex.Hops))
	for i, hop := range ex.Hops {
		if !externalOK && c.IsExternal(hop.URL) {
			break
		}

		status := c.RobotsStatus(hop.URL)
		if status == RobotsBlocked && !followBlocked {
			continue
		}

		redirectTo := finalURL
		if i+1 < len(ex.Hops) {
			redirectTo = ex.Hops[i+1].URL
		}

		rows = append(rows, model.PageRow{
			URL:         hop.URL,
			StatusCode:  hop.StatusCode,
			ContentType: hop.ContentType,
			RedirectURL: redirectTo,
			CrawlStatus: statusPhrase(hop.StatusCode),
			XRobotsTag:  hop.XRobotsTag,
			RobotsTxt:   status,
		})
	}
	return rows
}

// baseURL resolves the page's link-resolution base: an in-page <base>
// tag when present, the response URL otherwise.
func baseURL(doc *goquery.Document, pageURL string) *url.URL {
	base, err := url.Parse(pageURL)
	if err != nil {
		return &url.URL{}
	}
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if ref, err := url.Parse(strings.TrimSpace(href)); err == nil {
			base = base.ResolveReference(ref)
		}
	}
	return base
}
