package daemonrun

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"

	"plaques2gallery/internal/testsupport"
)

func TestOpenWiresRuntimeAndCloses(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	rt, err := Open(context.Background(), cfg, Options{LogLevel: "warn"})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if rt.Store == nil || rt.Quota == nil || rt.Workflow == nil || rt.Daemon == nil || rt.Metrics == nil {
		t.Fatalf("runtime not fully wired: %+v", rt)
	}
	if cfg.Logging.Level != "warn" {
		t.Fatalf("expected log level override, got %q", cfg.Logging.Level)
	}
	if _, err := os.Stat(cfg.DatabasePath()); err != nil {
		t.Fatalf("expected database created: %v", err)
	}

	if _, err := rt.Daemon.RunOnce(context.Background(), false); err == nil || !strings.Contains(err.Error(), "stages not configured") {
		t.Fatalf("expected unconfigured stages error, got %v", err)
	}

	if err := rt.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := rt.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
}

func TestOpenRejectsUnknownQuotaBackend(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Quota.Backend = "memcached"
	if _, err := Open(context.Background(), cfg, Options{}); err == nil {
		t.Fatal("expected error for unknown quota backend")
	}
}

func TestLogDependencySnapshot(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Search.APIKey = ""
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	logDependencySnapshot(logger, cfg)
	out := buf.String()
	for _, want := range []string{"dependency snapshot", "search_key_present=false", "llm_key_present=true", "resolver_engine=static"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %s", want, out)
		}
	}
	if strings.Contains(out, "chrome_available") {
		t.Fatalf("static engine should not look for chrome: %s", out)
	}
}
