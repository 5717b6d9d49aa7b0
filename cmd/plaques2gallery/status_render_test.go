package main

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"plaques2gallery/internal/preflight"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Search quota", statusError, "100/100 used", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Search quota:", "[ERROR] 100/100 used")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Watcher running", statusOK, "yes", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestPreflightLines(t *testing.T) {
	results := []preflight.Result{
		{Name: "Plaques directory", Passed: true},
		{Name: "Search credentials", Detail: "missing api_key"},
		{Name: "Tesseract", Passed: true, Detail: "languages eng"},
	}
	lines := preflightLines(results, false)
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "[OK] ready") {
		t.Fatalf("expected default ready detail, got %q", lines[0])
	}
	if !strings.Contains(lines[1], "[ERROR] missing api_key") {
		t.Fatalf("expected error detail, got %q", lines[1])
	}
	if !strings.Contains(lines[3], "1 of 3 checks failed: Search credentials") {
		t.Fatalf("expected failure summary, got %q", lines[3])
	}

	passing := preflightLines(results[:1], false)
	if !strings.Contains(passing[len(passing)-1], "[OK] 1 checks passed") {
		t.Fatalf("expected passing summary, got %q", passing[len(passing)-1])
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}
