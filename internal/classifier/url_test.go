package classifier

import (
	"net/url"
	"testing"
)

// TestCanonicalize checks URL normalization and its idempotence.
func TestCanonicalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases scheme and host", "HTTPS://Example.COM/Path", "https://example.com/Path"},
		{"drops default https port", "https://example.com:443/a", "https://example.com/a"},
		{"drops default http port", "http://example.com:80/a", "http://example.com/a"},
		{"keeps explicit port", "https://example.com:8443/a", "https://example.com:8443/a"},
		{"strips fragment", "https://example.com/a#section", "https://example.com/a"},
		{"adds root path", "https://example.com", "https://example.com/"},
		{"keeps query", "https://example.com/a?b=1&c=2", "https://example.com/a?b=1&c=2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Canonicalize(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Canonicalize(%q) = %q, want %q", tt.in, got, tt.want)
			}

			again, err := Canonicalize(got)
			if err != nil {
				t.Fatalf("unexpected error on second pass: %v", err)
			}
			if again != got {
				t.Errorf("not idempotent: %q became %q", got, again)
			}
		})
	}
}

// TestResolve checks relative reference resolution.
func TestResolve(t *testing.T) {
	t.Parallel()

	base, err := url.Parse("https://example.com/dir/page.html")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		href string
		want string
	}{
		{"other.html", "https://example.com/dir/other.html"},
		{"/top", "https://example.com/top"},
		{"//cdn.example.com/x.js", "https://cdn.example.com/x.js"},
		{"https://other.org/", "https://other.org/"},
		{"?page=2", "https://example.com/dir/page.html?page=2"},
		{"#anchor", "https://example.com/dir/page.html"},
	}
	for _, tt := range tests {
		if got := Resolve(base, tt.href); got != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.href, got, tt.want)
		}
	}
}

// TestDomain checks the internal/external identity derivation.
func TestDomain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"https://www.example.com/a", "example.com"},
		{"https://Example.COM/a", "example.com"},
		{"https://sub.example.com/a", "sub.example.com"},
		{"https://example.com:8080/a", "example.com"},
	}
	for _, tt := range tests {
		if got := Domain(tt.in); got != tt.want {
			t.Errorf("Domain(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// TestRobotsTxtURL checks robots.txt URL derivation.
func TestRobotsTxtURL(t *testing.T) {
	t.Parallel()

	got := RobotsTxtURL("https://Example.com/deep/path?q=1")
	if got != "https://example.com/robots.txt" {
		t.Errorf("RobotsTxtURL = %q", got)
	}
}
