package classifier

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/seoflare/seoflare/internal/config"
)

// extractLinks collects candidate link targets from the parsed
// document and runs them through the filter pipeline. The returned
// slice is de-duplicated with first-seen order preserved.
func (c *Classifier) extractLinks(doc *goquery.Document, base *url.URL) []string {
	respectNofollow := c.settings.HasItem(config.ItemRespectNofollow)

	var candidates []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		if respectNofollow && hasNofollow(sel.AttrOr("rel", "")) {
			return
		}
		candidates = append(candidates, sel.AttrOr("href", ""))
	})

	if c.settings.HasItem(config.ItemHreflangLinks) {
		candidates = appendAttrs(candidates, doc, `link[rel="alternate"][hreflang][href]`, "href")
	}
	if c.settings.HasItem(config.ItemCanonicalLinks) {
		candidates = appendAttrs(candidates, doc, `link[rel="canonical"][href]`, "href")
	}
	if c.settings.HasItem(config.ItemPaginationLinks) {
		candidates = appendAttrs(candidates, doc, `link[rel="next"][href], link[rel="prev"][href]`, "href")
	}
	if c.settings.HasItem(config.ItemImages) {
		candidates = appendAttrs(candidates, doc, "img[src]", "src")
	}
	if c.settings.HasItem(config.ItemStylesheets) {
		candidates = appendAttrs(candidates, doc, `link[rel="stylesheet"][href]`, "href")
	}
	if c.settings.HasItem(config.ItemScripts) {
		candidates = appendAttrs(candidates, doc, "script[src]", "src")
	}

	return c.filterLinks(candidates, base)
}

// filterLinks resolves candidates against base and applies the scope,
// exclusion, and robots filters.
func (c *Classifier) filterLinks(candidates []string, base *url.URL) []string {
	respectRobots := c.settings.HasItem(config.ItemRespectRobotsTxt)
	checkBlocked := c.settings.HasItem(config.ItemCheckBlockedURLs)
	externalOK := c.settings.HasItem(config.ItemExternalLinks)

	seen := make(map[string]struct{}, len(candidates))
	links := make([]string, 0, len(candidates))
	for _, href := range candidates {
		link := Resolve(base, href)
		if link == "" {
			continue
		}
		if u, err := url.Parse(link); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			continue
		}
		if !externalOK && c.IsExternal(link) {
			continue
		}
		if c.exclusions != nil && c.exclusions.MatchString(link) {
			continue
		}
		// Blocked URLs are dropped here unless the crawl reports on
		// them; kept ones are fetched and their rows carry the
		// robots.txt block in crawl_status.
		if respectRobots && !checkBlocked && !c.rules.IsAllowed(link) {
			continue
		}
		if _, ok := seen[link]; ok {
			continue
		}
		seen[link] = struct{}{}
		links = append(links, link)
	}
	return links
}

// appendAttrs appends the named attribute of every selector match.
func appendAttrs(dst []string, doc *goquery.Document, selector, attr string) []string {
	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		dst = append(dst, sel.AttrOr(attr, ""))
	})
	return dst
}

// hasNofollow reports whether a rel attribute carries the nofollow
// token.
func hasNofollow(rel string) bool {
	for _, token := range strings.Fields(rel) {
		if strings.EqualFold(token, "nofollow") {
			return true
		}
	}
	return false
}
