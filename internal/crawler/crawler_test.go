package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/seoflare/seoflare/internal/config"
	"github.com/seoflare/seoflare/internal/database"
	"github.com/seoflare/seoflare/internal/model"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSettings(mutate func(*config.Settings)) *config.Settings {
	s := config.NewSettings()
	s.Threads = 2
	s.MaxRetries = 2
	if mutate != nil {
		mutate(s)
	}
	return s
}

func newSessionDB(t *testing.T, s *config.Settings) *database.CrawlDB {
	t.Helper()
	cdb, err := database.Create(filepath.Join(t.TempDir(), "session.db"), s)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	t.Cleanup(func() { _ = cdb.Close() })
	return cdb
}

func queryStatuses(t *testing.T, cdb *database.CrawlDB) map[string]string {
	t.Helper()
	header, records, err := cdb.Query(context.Background(), nil, "", nil)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	urlIdx, statusIdx := -1, -1
	for i, c := range header {
		switch c {
		case model.ColumnURL:
			urlIdx = i
		case model.ColumnCrawlStatus:
			statusIdx = i
		}
	}
	out := make(map[string]string, len(records))
	for _, r := range records {
		out[r[urlIdx]] = r[statusIdx]
	}
	return out
}

// siteMux serves a small site: the root links to two pages, one page
// redirects, and one section is blocked by robots.txt.
func siteMux() *http.ServeMux {
	mux := http.NewServeMux()
	page := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = fmt.Fprint(w, body)
		}
	}
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = fmt.Fprint(w, "User-agent: *\nDisallow: /private/\n")
	})
	mux.Handle("/", page(`<html><head><title>Home</title></head><body>
		<h1>Welcome</h1>
		<a href="/a">a</a>
		<a href="/b">b</a>
		<a href="/private/secret">secret</a>
	</body></html>`))
	mux.Handle("/a", page(`<html><head><title>A</title></head><body><h1>Page A</h1></body></html>`))
	mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/c", http.StatusMovedPermanently)
	})
	mux.Handle("/c", page(`<html><head><title>C</title></head><body><h1>Page C</h1></body></html>`))
	mux.HandleFunc("/private/secret", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	})
	return mux
}

// TestSpiderCrawl runs a full spider session against a local site and
// checks the persisted outcome.
func TestSpiderCrawl(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(siteMux())
	defer srv.Close()

	s := testSettings(func(s *config.Settings) {
		s.StartURL = srv.URL + "/"
	})
	cdb := newSessionDB(t, s)

	c, err := New(s, cdb, WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	if got := c.Progress().Status; got != StatusCompleted {
		t.Fatalf("status = %q", got)
	}

	statuses := queryStatuses(t, cdb)
	if statuses[srv.URL+"/"] != "ok" {
		t.Errorf("root status = %q", statuses[srv.URL+"/"])
	}
	if statuses[srv.URL+"/a"] != "ok" {
		t.Errorf("/a status = %q", statuses[srv.URL+"/a"])
	}
	if statuses[srv.URL+"/b"] != "moved permanently" {
		t.Errorf("/b status = %q", statuses[srv.URL+"/b"])
	}
	if statuses[srv.URL+"/c"] != "ok" {
		t.Errorf("/c status = %q", statuses[srv.URL+"/c"])
	}
	if _, crawled := statuses[srv.URL+"/private/secret"]; crawled {
		t.Error("robots-blocked url was crawled")
	}

	pending, err := cdb.PendingURLs(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Errorf("pending after completion = %v", pending)
	}

	// The redirect hop points at its target.
	header, records, err := cdb.Query(context.Background(), []database.Filter{
		{Column: model.ColumnURL, Operator: config.OperatorEquals, Value: srv.URL + "/b"},
	}, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("redirect rows = %v", records)
	}
	redirectIdx := -1
	for i, col := range header {
		if col == model.ColumnRedirectURL {
			redirectIdx = i
		}
	}
	if records[0][redirectIdx] != srv.URL+"/c" {
		t.Errorf("redirect_url = %q", records[0][redirectIdx])
	}

	// Every persisted row comes out of exactly one poll.
	drained := c.DrainNewRows()
	if len(drained) == 0 {
		t.Error("DrainNewRows returned nothing after a full crawl")
	}
	if again := c.DrainNewRows(); len(again) != 0 {
		t.Errorf("second drain returned %d rows", len(again))
	}

	inlinks, err := c.GetInlinks(context.Background(), srv.URL+"/a")
	if err != nil {
		t.Fatal(err)
	}
	if len(inlinks) != 1 || inlinks[0] != srv.URL+"/" {
		t.Errorf("inlinks of /a = %v", inlinks)
	}

	_, viewRows, err := c.GetCrawlData(context.Background(), nil, "status_3xx",
		[]string{model.ColumnURL, model.ColumnRedirectURL})
	if err != nil {
		t.Fatal(err)
	}
	if len(viewRows) != 1 || viewRows[0][0] != srv.URL+"/b" {
		t.Errorf("status_3xx rows = %v", viewRows)
	}

	// A terminal session resets back to idle for a fresh start.
	if err := c.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if got := c.Progress().Status; got != StatusIdle {
		t.Errorf("status after reset = %q", got)
	}
}

// TestListCrawl checks that list sessions fetch exactly the listed
// URLs without following links.
func TestListCrawl(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(siteMux())
	defer srv.Close()

	s := testSettings(func(s *config.Settings) {
		s.Mode = config.ModeList
		s.ListURLs = []string{srv.URL + "/", srv.URL + "/a"}
	})
	cdb := newSessionDB(t, s)

	c, err := New(s, cdb, WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	statuses := queryStatuses(t, cdb)
	if len(statuses) != 2 {
		t.Errorf("list crawl touched %d urls: %v", len(statuses), statuses)
	}
	if _, followed := statuses[srv.URL+"/b"]; followed {
		t.Error("list crawl followed a link")
	}
}

// TestRetryExhaustion checks that a dead host yields a terminal
// failure row after the retry budget runs out.
func TestRetryExhaustion(t *testing.T) {
	t.Parallel()

	// A port that was just released refuses connections.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	deadURL := "http://" + l.Addr().String() + "/"
	_ = l.Close()

	s := testSettings(func(s *config.Settings) {
		s.Mode = config.ModeList
		s.ListURLs = []string{deadURL}
		s.MaxRetries = 2
	})
	cdb := newSessionDB(t, s)

	c, err := New(s, cdb, WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	header, records, err := cdb.Query(context.Background(), nil, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %v", records)
	}
	statusIdx := -1
	for i, col := range header {
		if col == model.ColumnStatusCode {
			statusIdx = i
		}
	}
	if records[0][statusIdx] != "0" {
		t.Errorf("status_code = %q, want 0", records[0][statusIdx])
	}
}

// TestUnreachableStart checks the fail-fast path for spider sessions.
func TestUnreachableStart(t *testing.T) {
	t.Parallel()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	deadURL := "http://" + l.Addr().String() + "/"
	_ = l.Close()

	s := testSettings(func(s *config.Settings) {
		s.StartURL = deadURL
	})
	cdb := newSessionDB(t, s)

	c, err := New(s, cdb, WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Start(context.Background()); !errors.Is(err, ErrStartURLUnreachable) {
		t.Fatalf("expected ErrStartURLUnreachable, got %v", err)
	}
	if got := c.Progress().Status; got != StatusTimedOut {
		t.Errorf("status = %q", got)
	}
}

// TestStopPersistsParkedResults checks that exchanges already fetched
// and waiting in the result queue are written out when the session
// stops, instead of being refetched on resume.
func TestStopPersistsParkedResults(t *testing.T) {
	t.Parallel()

	s := testSettings(func(s *config.Settings) {
		s.Mode = config.ModeList
		s.ListURLs = []string{"https://example.com/x"}
	})
	cdb := newSessionDB(t, s)

	c, err := New(s, cdb, WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	if err := cdb.InsertNewURLs(ctx, []string{"https://example.com/x"}); err != nil {
		t.Fatal(err)
	}

	header := http.Header{}
	header.Set("Content-Type", "text/html; charset=utf-8")
	c.results <- &model.Exchange{
		RequestURL: "https://example.com/x",
		FinalURL:   "https://example.com/x",
		StatusCode: http.StatusOK,
		Header:     header,
		Body:       []byte("<html><head><title>X</title></head><body></body></html>"),
	}

	if err := c.drainRemaining(); err != nil {
		t.Fatalf("drainRemaining: %v", err)
	}

	statuses := queryStatuses(t, cdb)
	if statuses["https://example.com/x"] != "ok" {
		t.Errorf("parked result not persisted: %v", statuses)
	}
	pending, err := cdb.PendingURLs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Errorf("pending after drain = %v", pending)
	}
}

// TestStopAndResume stops a session mid-crawl, then finishes it with a
// second crawler built from the stored settings.
func TestStopAndResume(t *testing.T) {
	t.Parallel()

	mux := siteMux()
	for i := 0; i < 12; i++ {
		path := fmt.Sprintf("/slow/%d", i)
		mux.HandleFunc(path, func(w http.ResponseWriter, _ *http.Request) {
			time.Sleep(150 * time.Millisecond)
			w.Header().Set("Content-Type", "text/html")
			_, _ = fmt.Fprint(w, "<html><body>slow</body></html>")
		})
	}
	srv := httptest.NewServer(mux)
	defer srv.Close()

	urls := make([]string, 0, 12)
	for i := 0; i < 12; i++ {
		urls = append(urls, fmt.Sprintf("%s/slow/%d", srv.URL, i))
	}

	s := testSettings(func(s *config.Settings) {
		s.Mode = config.ModeList
		s.ListURLs = urls
		s.Threads = 1
	})

	path := filepath.Join(t.TempDir(), "session.db")
	cdb, err := database.Create(path, s)
	if err != nil {
		t.Fatal(err)
	}

	c, err := New(s, cdb, WithLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(200 * time.Millisecond)
	c.Stop()
	if err := c.Wait(); err != nil {
		t.Fatalf("Wait after stop: %v", err)
	}
	if got := c.Progress().Status; got != StatusStopped {
		t.Fatalf("status after stop = %q", got)
	}

	pending, err := cdb.PendingURLs(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) == 0 {
		t.Fatal("expected pending urls after stop")
	}
	if err := cdb.Close(); err != nil {
		t.Fatal(err)
	}

	// Reopen the session the way the resume command does.
	reopened, err := database.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	stored, err := reopened.LoadSettings(context.Background())
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	resumed, err := New(stored, reopened, WithLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}
	if err := resumed.Resume(context.Background()); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if err := resumed.Wait(); err != nil {
		t.Fatalf("Wait after resume: %v", err)
	}
	if got := resumed.Progress().Status; got != StatusCompleted {
		t.Errorf("status after resume = %q", got)
	}

	pending, err = reopened.PendingURLs(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Errorf("pending after resume = %v", pending)
	}

	// Resuming a finished session is a no-op.
	again, err := New(stored, reopened, WithLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}
	if err := again.Resume(context.Background()); !errors.Is(err, ErrNothingToResume) {
		t.Errorf("expected ErrNothingToResume, got %v", err)
	}
}
