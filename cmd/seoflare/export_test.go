package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/seoflare/seoflare/internal/config"
	"github.com/seoflare/seoflare/internal/database"
	"github.com/seoflare/seoflare/internal/model"
)

func seedSession(t *testing.T) string {
	t.Helper()

	s := config.NewSettings()
	s.StartURL = "https://example.com/"
	path := filepath.Join(t.TempDir(), "session.db")
	cdb, err := database.Create(path, s)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	rows := []model.PageRow{
		{URL: "https://example.com/", StatusCode: 200, ContentType: "text/html", CrawlStatus: "ok"},
		{URL: "https://example.com/gone", StatusCode: 404, ContentType: "text/html", CrawlStatus: "not found"},
	}
	if _, _, err := cdb.InsertCrawlData(context.Background(), rows); err != nil {
		t.Fatalf("seed rows: %v", err)
	}
	if err := cdb.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestParseFilters checks the filter expression syntax.
func TestParseFilters(t *testing.T) {
	t.Parallel()

	filters, err := parseFilters([]string{
		"status_code:equals:404",
		"url:begins_with:https://example.com/blog",
		"h1:regex:^Spring: sale$",
	})
	if err != nil {
		t.Fatalf("parseFilters: %v", err)
	}
	if len(filters) != 3 {
		t.Fatalf("filters = %v", filters)
	}
	if filters[0].Column != "status_code" || filters[0].Operator != "equals" || filters[0].Value != "404" {
		t.Errorf("filter 0 = %+v", filters[0])
	}
	// Only the first two colons split; the value keeps its own.
	if filters[2].Value != "^Spring: sale$" {
		t.Errorf("filter 2 value = %q", filters[2].Value)
	}

	if _, err := parseFilters([]string{"no-colons"}); err == nil {
		t.Error("expected error for malformed filter")
	}
}

// TestExportCmd runs the export command against a seeded session.
func TestExportCmd(t *testing.T) {
	t.Parallel()

	path := seedSession(t)

	var out, errOut bytes.Buffer
	cmd := NewExportCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{path, "-f", "status_code:equals:404"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	csv := out.String()
	if !strings.Contains(csv, "https://example.com/gone") {
		t.Errorf("filtered row missing: %s", csv)
	}
	if strings.Contains(csv, "https://example.com/,") {
		t.Errorf("unfiltered row present: %s", csv)
	}
}

// TestReportCmd runs the report command against a seeded session.
func TestReportCmd(t *testing.T) {
	t.Parallel()

	path := seedSession(t)

	var out bytes.Buffer
	cmd := NewReportCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{path})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	if !strings.Contains(out.String(), "# Crawl Report") {
		t.Errorf("report missing header: %s", out.String())
	}
}
