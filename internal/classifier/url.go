package classifier

import (
	"net/url"
	"strings"
)

// Canonicalize normalizes a URL for use as a row key: lowercased
// scheme and host, default ports dropped, fragment stripped, path
// re-encoded. Canonicalizing an already canonical URL returns the
// identical string.
func Canonicalize(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	canonicalizeURL(u)
	return u.String(), nil
}

// canonicalizeURL applies the normalization rules in place.
func canonicalizeURL(u *url.URL) {
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	// Search engines treat :80/:443 and the bare authority as the
	// same document.
	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		u.Host = u.Hostname()
	}

	u.Fragment = ""
	u.RawFragment = ""

	if u.Host != "" && u.Path == "" {
		u.Path = "/"
	}
}

// Resolve resolves href against base (an absolute page URL) and
// canonicalizes the result. The empty string is returned for
// unparseable input.
func Resolve(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(ref)
	canonicalizeURL(abs)
	return abs.String()
}

// Domain returns the registrable host of a URL with any "www." prefix
// removed, the identity used for internal/external scoping.
func Domain(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// RobotsTxtURL returns the robots.txt URL for rawURL's authority.
func RobotsTxtURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	robots := &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/robots.txt"}
	canonicalizeURL(robots)
	return robots.String()
}

// trimSlash normalizes a trailing slash away for canonical-tag
// comparison, where https://example.com and https://example.com/ name
// the same document.
func trimSlash(u string) string {
	return strings.TrimSuffix(u, "/")
}
