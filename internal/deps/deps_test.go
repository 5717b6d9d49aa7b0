package deps

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestCheckChromeConfiguredPath(t *testing.T) {
	binDir := t.TempDir()
	chrome := filepath.Join(binDir, executableName("my-chrome"))
	if err := os.WriteFile(chrome, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write chrome stub: %v", err)
	}

	status := CheckChrome(chrome)
	if !status.Available {
		t.Fatalf("expected configured chrome to be available, got detail %q", status.Detail)
	}
	if status.Path != chrome {
		t.Fatalf("expected path %q, got %q", chrome, status.Path)
	}

	missing := CheckChrome(filepath.Join(binDir, "absent"))
	if missing.Available || !strings.Contains(missing.Detail, "chrome_path") {
		t.Fatalf("expected missing configured chrome to fail with detail, got %#v", missing)
	}
}

func TestCheckChromeSearchesPath(t *testing.T) {
	binDir := t.TempDir()
	chromium := filepath.Join(binDir, executableName("chromium"))
	if err := os.WriteFile(chromium, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write chromium stub: %v", err)
	}
	t.Setenv("PATH", binDir)

	status := CheckChrome("")
	if !status.Available {
		t.Fatalf("expected chromium on PATH, got detail %q", status.Detail)
	}
	if status.Path != chromium {
		t.Fatalf("expected path %q, got %q", chromium, status.Path)
	}
}

func TestCheckChromeNotFound(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	status := CheckChrome("")
	if status.Available || status.Path != "" {
		t.Fatalf("expected chrome resolution to fail, got %#v", status)
	}
	if status.Detail == "" {
		t.Fatal("expected detail message when chrome is unavailable")
	}
}

func TestCheckTessdata(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "tessdata")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, lang := range []string{"eng", "deu"} {
		if err := os.WriteFile(filepath.Join(dir, lang+".traineddata"), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name      string
		languages string
		prefix    string
		available bool
		path      string
		detail    string
	}{
		{"tessdata dir", "eng+deu", dir, true, dir, "eng+deu"},
		{"parent of tessdata", "eng", root, true, dir, "eng"},
		{"missing language", "eng+kor+jpn", dir, false, dir, "missing traineddata for kor, jpn"},
		{"prefix absent", "eng", filepath.Join(root, "nope"), false, "", "is not a directory"},
		{"no languages", " + ", dir, false, "", "no OCR languages"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status := CheckTessdata(tc.languages, tc.prefix)
			if status.Available != tc.available || status.Path != tc.path {
				t.Fatalf("unexpected status %#v", status)
			}
			if !strings.Contains(status.Detail, tc.detail) {
				t.Fatalf("expected detail containing %q, got %q", tc.detail, status.Detail)
			}
		})
	}
}

func executableName(base string) string {
	if runtime.GOOS == "windows" {
		return base + ".exe"
	}
	return base
}
