package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/seoflare/seoflare/internal/config"
)

// TestCrawlSettings checks flag overrides on top of defaults and a
// settings file.
func TestCrawlSettings(t *testing.T) {
	t.Parallel()

	t.Run("positional url selects spider mode", func(t *testing.T) {
		t.Parallel()

		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{"--threads", "8", "--rate", "3"}); err != nil {
			t.Fatal(err)
		}

		s, err := crawlSettings(cmd, []string{"https://example.com/"})
		if err != nil {
			t.Fatalf("crawlSettings: %v", err)
		}
		if s.Mode != config.ModeSpider || s.StartURL != "https://example.com/" {
			t.Errorf("mode/start = %q/%q", s.Mode, s.StartURL)
		}
		if s.Threads != 8 || s.URLsPerSecond != 3 {
			t.Errorf("overrides not applied: threads=%d rate=%d", s.Threads, s.URLsPerSecond)
		}
		// Untouched flags keep defaults.
		if s.MaxRetries != config.DefaultMaxRetries {
			t.Errorf("max retries = %d", s.MaxRetries)
		}
	})

	t.Run("list file selects list mode", func(t *testing.T) {
		t.Parallel()

		listPath := filepath.Join(t.TempDir(), "urls.txt")
		content := "https://example.com/a\n\n# comment\nhttps://example.com/b\n"
		if err := os.WriteFile(listPath, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{"--list", listPath}); err != nil {
			t.Fatal(err)
		}

		s, err := crawlSettings(cmd, nil)
		if err != nil {
			t.Fatalf("crawlSettings: %v", err)
		}
		if s.Mode != config.ModeList {
			t.Errorf("mode = %q", s.Mode)
		}
		if len(s.ListURLs) != 2 || s.ListURLs[1] != "https://example.com/b" {
			t.Errorf("list urls = %v", s.ListURLs)
		}
	})

	t.Run("ignore-robots drops the toggle", func(t *testing.T) {
		t.Parallel()

		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{"--ignore-robots"}); err != nil {
			t.Fatal(err)
		}

		s, err := crawlSettings(cmd, []string{"https://example.com/"})
		if err != nil {
			t.Fatalf("crawlSettings: %v", err)
		}
		if s.HasItem(config.ItemRespectRobotsTxt) {
			t.Error("respect_robots_txt still set")
		}
	})

	t.Run("settings file provides the base", func(t *testing.T) {
		t.Parallel()

		base := config.NewSettings()
		base.StartURL = "https://example.com/"
		base.Threads = 3
		path := filepath.Join(t.TempDir(), "settings.yaml")
		if err := config.Save(path, base); err != nil {
			t.Fatal(err)
		}

		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{"--config", path}); err != nil {
			t.Fatal(err)
		}

		s, err := crawlSettings(cmd, nil)
		if err != nil {
			t.Fatalf("crawlSettings: %v", err)
		}
		if s.StartURL != "https://example.com/" || s.Threads != 3 {
			t.Errorf("settings file not applied: %+v", s)
		}
	})
}
