package robots

import "testing"

// TestIsAllowed covers rule precedence and pattern handling.
func TestIsAllowed(t *testing.T) {
	t.Parallel()

	t.Run("longest literal rule wins", func(t *testing.T) {
		t.Parallel()

		txt := "User-agent: *\nDisallow: /test*\nAllow: /test/\n"
		r := New(txt, "Seoflare")

		if !r.IsAllowed("https://example.com/test/is/allowed.html") {
			t.Error("expected /test/is/allowed.html to be allowed (Allow: /test/ is more specific)")
		}
		if r.IsAllowed("https://example.com/testing") {
			t.Error("expected /testing to be disallowed by /test* (no allow rule matches)")
		}
	})

	t.Run("allow wins exact length ties", func(t *testing.T) {
		t.Parallel()

		txt := "User-agent: *\nDisallow: /dir/\nAllow: /dir2/\n"
		r := New(txt, "Seoflare")

		if r.IsAllowed("https://example.com/dir/page") {
			t.Error("expected /dir/page to be disallowed")
		}
		if !r.IsAllowed("https://example.com/dir2/page") {
			t.Error("expected /dir2/page to be allowed")
		}
	})

	t.Run("no matching rule means allowed", func(t *testing.T) {
		t.Parallel()

		txt := "User-agent: *\nDisallow: /private/\n"
		r := New(txt, "Seoflare")

		if !r.IsAllowed("https://example.com/public/page.html") {
			t.Error("expected unmatched URL to be allowed")
		}
	})

	t.Run("trailing dollar anchors rule at end", func(t *testing.T) {
		t.Parallel()

		txt := "User-agent: *\nDisallow: /*.pdf$\n"
		r := New(txt, "Seoflare")

		if r.IsAllowed("https://example.com/docs/file.pdf") {
			t.Error("expected .pdf URL to be disallowed")
		}
		if !r.IsAllowed("https://example.com/docs/file.pdf.html") {
			t.Error("expected .pdf.html URL to be allowed (anchor must not match mid-path)")
		}
	})

	t.Run("wildcard inside rule matches any sequence", func(t *testing.T) {
		t.Parallel()

		txt := "User-agent: *\nDisallow: /search*sort=price\n"
		r := New(txt, "Seoflare")

		if r.IsAllowed("https://example.com/search?q=shoes&sort=price") {
			t.Error("expected wildcard rule to match across the query")
		}
		if !r.IsAllowed("https://example.com/search?q=shoes") {
			t.Error("expected non-matching query to be allowed")
		}
	})

	t.Run("rules match path and query only", func(t *testing.T) {
		t.Parallel()

		txt := "User-agent: *\nDisallow: /admin\n"
		r := New(txt, "Seoflare")

		if r.IsAllowed("https://sub.example.com:8080/admin/login") {
			t.Error("expected rule to apply regardless of authority")
		}
	})

	t.Run("empty robots allows everything", func(t *testing.T) {
		t.Parallel()

		r := New("", "Seoflare")
		if !r.IsAllowed("https://example.com/anything") {
			t.Error("expected empty robots.txt to allow all")
		}
	})
}

// TestUserAgentIsolation covers block selection by UA family name.
func TestUserAgentIsolation(t *testing.T) {
	t.Parallel()

	t.Run("specific block overrides wildcard", func(t *testing.T) {
		t.Parallel()

		txt := "User-agent: *\nDisallow: /\n\nUser-agent: Googlebot\nAllow: /\n"
		r := New(txt, "Googlebot")

		if !r.IsAllowed("https://example.com/page") {
			t.Error("expected Googlebot block to override wildcard disallow-all")
		}

		other := New(txt, "Bingbot")
		if other.IsAllowed("https://example.com/page") {
			t.Error("expected non-matching UA to fall back to wildcard disallow-all")
		}
	})

	t.Run("token matching is case-insensitive substring", func(t *testing.T) {
		t.Parallel()

		txt := "User-agent: googlebot-news\nDisallow: /news/\n\nUser-agent: *\nAllow: /\n"
		r := New(txt, "Googlebot-News")

		if r.IsAllowed("https://example.com/news/today") {
			t.Error("expected case-insensitive token match to select the news block")
		}
	})

	t.Run("longest matching token wins", func(t *testing.T) {
		t.Parallel()

		txt := "User-agent: google\nDisallow:\n\nUser-agent: googlebot\nDisallow: /blocked/\n\nUser-agent: *\nDisallow: /\n"
		r := New(txt, "Googlebot")

		if r.IsAllowed("https://example.com/blocked/page") {
			t.Error("expected the longer googlebot token to win over google")
		}
		if !r.IsAllowed("https://example.com/open") {
			t.Error("expected URLs outside /blocked/ to be allowed")
		}
	})

	t.Run("consecutive user-agent lines share one ruleset", func(t *testing.T) {
		t.Parallel()

		txt := "User-agent: Googlebot\nUser-agent: Bingbot\nDisallow: /shared/\n"
		g := New(txt, "Googlebot")
		b := New(txt, "Bingbot")

		if g.IsAllowed("https://example.com/shared/x") || b.IsAllowed("https://example.com/shared/x") {
			t.Error("expected both agents to share the disallow ruleset")
		}
	})

	t.Run("no applicable block allows all", func(t *testing.T) {
		t.Parallel()

		txt := "User-agent: Bingbot\nDisallow: /\n"
		r := New(txt, "Googlebot")

		if !r.IsAllowed("https://example.com/page") {
			t.Error("expected missing block and missing wildcard to allow all")
		}
	})
}
