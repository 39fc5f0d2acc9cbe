package main

import (
	"bytes"
	"strings"
	"testing"
)

// TestNewRootCmd checks command registration and help output.
func TestNewRootCmd(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()

	want := map[string]bool{
		"crawl":   false,
		"resume":  false,
		"export":  false,
		"report":  false,
		"version": false,
	}
	for _, sub := range cmd.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}

	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs([]string{"--help"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("help: %v", err)
	}
	if !strings.Contains(buf.String(), "robots.txt") {
		t.Errorf("help output missing description: %s", buf.String())
	}
}
