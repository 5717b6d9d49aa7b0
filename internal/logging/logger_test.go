package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"plaques2gallery/internal/config"
	"plaques2gallery/internal/logging"
	"plaques2gallery/internal/services"
)

func TestNewFromConfigWritesJSONLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.Level = "info"

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("batch started", logging.Batch(3))

	content, err := os.ReadFile(cfg.LogFilePath())
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	line := strings.TrimSpace(strings.Split(string(content), "\n")[0])
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log file line is not JSON: %v (%q)", err, line)
	}
	if entry["msg"] != "batch started" {
		t.Fatalf("unexpected msg: %v", entry["msg"])
	}
	if entry["level"] != "info" {
		t.Fatalf("unexpected level: %v", entry["level"])
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatal("expected ts key in JSON output")
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message without caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("message with caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "logger_test.go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestConsoleHeaderCarriesSubject(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "subject.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithBatchID(context.Background(), 2)
	ctx = services.WithPlaqueID(ctx, "room1/IMG_0001.jpg")
	ctx = services.WithStage(ctx, "search")
	component := logging.NewComponentLogger(logger, "workflow")
	logging.WithContext(ctx, component).Info("stage completed", logging.Int("urls", 3))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	for _, want := range []string{"INFO [workflow]", "Batch 2 · room1/IMG_0001.jpg (search)", "stage completed", "urls=3"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
	if strings.Contains(line, "plaque_id=") {
		t.Fatalf("expected plaque id in header only, got %q", line)
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := slogJSON(&buf)
	logging.WarnWithContext(logger, "render failed", "render_failed", logging.String(logging.FieldImpact, "next url tried"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry[logging.FieldEventType] != "render_failed" {
		t.Fatalf("expected event_type, got %v", entry[logging.FieldEventType])
	}
	if entry[logging.FieldErrorHint] == nil {
		t.Fatal("expected default error_hint")
	}
	if entry[logging.FieldImpact] != "next url tried" {
		t.Fatalf("expected caller impact preserved, got %v", entry[logging.FieldImpact])
	}
}

func TestPlaqueFailureAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slogJSON(&buf)
	attrs := append(logging.PlaqueFailure("search", "no results", errors.New("empty")),
		logging.Plaque("p-7"), logging.Batch(2), logging.Stage("search"))
	logger.Warn("plaque failed", logging.Args(attrs...)...)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := map[string]any{
		logging.FieldDecisionType: "plaque_failure",
		logging.FieldAlert:        "plaque_failure",
		logging.FieldPlaqueID:     "p-7",
		logging.FieldBatchID:      float64(2),
		logging.FieldStage:        "search",
		"failure_stage":           "search",
		"decision_reason":         "no results",
		"error":                   "empty",
	}
	for key, value := range want {
		if entry[key] != value {
			t.Fatalf("%s = %v, want %v", key, entry[key], value)
		}
	}
	hint, _ := entry[logging.FieldErrorHint].(string)
	if !strings.Contains(hint, "retry --stage search") {
		t.Fatalf("unexpected error_hint %q", hint)
	}
}

func TestTeeHandlerDuplicatesRecords(t *testing.T) {
	var first, second bytes.Buffer
	logger := slogJSON(&first)
	other := slogJSON(&second)
	tee := logging.TeeHandler(logger.Handler(), other.Handler())
	logging.NewComponentLogger(slogFrom(tee), "test").Info("hello")

	if !strings.Contains(first.String(), "hello") || !strings.Contains(second.String(), "hello") {
		t.Fatalf("expected record in both outputs: %q / %q", first.String(), second.String())
	}
}

func TestProgressSamplerBuckets(t *testing.T) {
	sampler := logging.NewProgressSampler(25)
	var emitted []int
	for done := 1; done <= 8; done++ {
		if sampler.ShouldLog(done, 8) {
			emitted = append(emitted, done)
		}
	}
	want := []int{1, 2, 4, 6, 8}
	if len(emitted) != len(want) {
		t.Fatalf("unexpected emissions: %v", emitted)
	}
	for i := range want {
		if emitted[i] != want[i] {
			t.Fatalf("unexpected emissions: %v", emitted)
		}
	}
}
