package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/seoflare/seoflare/internal/classifier"
	"github.com/seoflare/seoflare/internal/config"
	"github.com/seoflare/seoflare/internal/model"
)

const (
	// connectTimeout bounds TCP connection establishment.
	connectTimeout = 3 * time.Second

	// headerTimeout bounds the wait for response headers.
	headerTimeout = 5 * time.Second

	// requestTimeout bounds one whole request including the body read.
	requestTimeout = 30 * time.Second

	// maxRedirects bounds how many hops one fetch follows.
	maxRedirects = 20

	// maxRobotsSize caps the robots.txt read.
	maxRobotsSize = 512 * 1024
)

// fetcher issues HTTP requests for the worker pool. Redirects are
// followed by hand so every hop is recorded.
type fetcher struct {
	// client does not follow redirects.
	client *http.Client

	// following follows redirects, for robots.txt.
	following *http.Client

	settings *config.Settings
}

// newFetcher builds the HTTP clients from the session settings.
func newFetcher(settings *config.Settings) (*fetcher, error) {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout: connectTimeout,
		}).DialContext,
		ResponseHeaderTimeout: headerTimeout,
		MaxIdleConnsPerHost:   settings.Threads,
	}

	if settings.ProxyHost != "" {
		proxyURL, err := url.Parse(settings.ProxyHost)
		if err != nil {
			return nil, fmt.Errorf("parse proxy host: %w", err)
		}
		if settings.ProxyUser != "" {
			proxyURL.User = url.UserPassword(settings.ProxyUser, settings.ProxyPassword)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return &fetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   requestTimeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		following: &http.Client{
			Transport: transport,
			Timeout:   requestTimeout,
		},
		settings: settings,
	}, nil
}

// decorate applies the session's request headers and credentials.
func (f *fetcher) decorate(req *http.Request) {
	req.Header.Set("User-Agent", f.settings.UserAgent)
	req.Header.Set("Accept", "*/*")
	if f.settings.AuthUser != "" {
		req.SetBasicAuth(f.settings.AuthUser, f.settings.AuthPassword)
	}
}

// Fetch retrieves one URL, following redirects by hand and recording
// every hop. Redirects are walked with HEAD requests; a GET is issued
// only once the terminal response announces a textual content type, so
// binary resources cost headers rather than a download. The body is
// capped at the configured size and decoded to UTF-8. Failures are
// reported in the exchange rather than as errors so the caller can
// decide between retry and terminal record.
func (f *fetcher) Fetch(ctx context.Context, rawURL string) *model.Exchange {
	ex := &model.Exchange{RequestURL: rawURL}

	current := rawURL
	method := http.MethodHead
	for {
		if len(ex.Hops) > maxRedirects {
			ex.FailureReason = model.FailureTooManyRedirects
			return ex
		}

		req, err := http.NewRequestWithContext(ctx, method, current, nil)
		if err != nil {
			ex.FailureReason = model.FailureInvalidURL
			return ex
		}
		f.decorate(req)

		resp, err := f.client.Do(req)
		if err != nil {
			ex.FailureReason = failureReason(err)
			return ex
		}

		if location := redirectTarget(resp); location != "" {
			drain(resp)
			hopURL, err := classifier.Canonicalize(current)
			if err != nil {
				hopURL = current
			}
			ex.Hops = append(ex.Hops, model.Hop{
				URL:         hopURL,
				StatusCode:  resp.StatusCode,
				ContentType: resp.Header.Get("Content-Type"),
				XRobotsTag:  resp.Header.Get("X-Robots-Tag"),
			})

			base, err := url.Parse(current)
			if err != nil {
				ex.FailureReason = model.FailureInvalidURL
				return ex
			}
			next := classifier.Resolve(base, location)
			if next == "" {
				ex.FailureReason = model.FailureInvalidURL
				return ex
			}
			current = next
			continue
		}

		if method == http.MethodHead && wantsBody(resp) {
			drain(resp)
			method = http.MethodGet
			continue
		}

		finalURL, err := classifier.Canonicalize(current)
		if err != nil {
			finalURL = current
		}
		ex.FinalURL = finalURL
		ex.StatusCode = resp.StatusCode
		ex.Header = resp.Header.Clone()

		if method == http.MethodGet && ex.IsTextual() {
			body, err := f.readBody(resp)
			if err != nil {
				drain(resp)
				ex.FailureReason = failureReason(err)
				return ex
			}
			ex.Body = body
		}
		drain(resp)
		return ex
	}
}

// wantsBody reports whether a terminal HEAD response warrants a
// follow-up GET: textual content has a body worth classifying, and a
// server rejecting HEAD outright gets a second chance with GET.
func wantsBody(resp *http.Response) bool {
	if resp.StatusCode == http.StatusMethodNotAllowed {
		return true
	}
	return strings.Contains(resp.Header.Get("Content-Type"), "text")
}

// readBody reads a capped, UTF-8 decoded copy of the response body.
func (f *fetcher) readBody(resp *http.Response) ([]byte, error) {
	limited := io.LimitReader(resp.Body, f.settings.MaxBodySize)
	decoded, err := charset.NewReader(limited, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}
	return io.ReadAll(decoded)
}

// FetchRobotsTxt retrieves the robots.txt body for a site, following
// redirects. A missing or erroring robots.txt yields an empty ruleset,
// which allows everything.
func (f *fetcher) FetchRobotsTxt(ctx context.Context, robotsURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return "", fmt.Errorf("build robots.txt request: %w", err)
	}
	f.decorate(req)

	resp, err := f.following.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", nil
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsSize))
	if err != nil {
		return "", fmt.Errorf("read robots.txt: %w", err)
	}
	return string(body), nil
}

// redirectTarget returns the Location header for redirect responses,
// or "" for terminal ones.
func redirectTarget(resp *http.Response) string {
	switch resp.StatusCode {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return resp.Header.Get("Location")
	default:
		return ""
	}
}

// drain discards the rest of the body so the connection can be reused.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
	_ = resp.Body.Close()
}

// failureReason maps a transport error to the recorded failure reason.
func failureReason(err error) string {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return model.FailureTimedOut
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return model.FailureTimedOut
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return model.FailureConnRefused
	}
	return model.FailureConnection
}
