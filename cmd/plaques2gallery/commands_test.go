package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"plaques2gallery/internal/records"
	"plaques2gallery/internal/testsupport"
)

func TestListCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	seedRecords(t, env)

	out, _, err := runCLI(t, []string{"list"}, env.configPath)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "room1/night-watch.jpg")
	requireContains(t, out, "The Night Watch by Rembrandt van Rijn")
	requireContains(t, out, "search: no search results")
	requireContains(t, out, "room2/waiting.jpg")

	out, _, err = runCLI(t, []string{"list", "--status", "failed", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("list --json: %v", err)
	}
	var views []recordView
	if err := json.Unmarshal([]byte(out), &views); err != nil {
		t.Fatalf("decode list json: %v\n%s", err, out)
	}
	if len(views) != 1 || views[0].PlaqueID != "room1/blurry.jpg" || views[0].FailureStage != "search" {
		t.Fatalf("unexpected failed plaques %+v", views)
	}

	if _, _, err := runCLI(t, []string{"list", "--status", "done"}, env.configPath); err == nil {
		t.Fatal("expected unknown status to fail")
	}
	if _, _, err := runCLI(t, []string{"list", "--stage", "printing"}, env.configPath); err == nil {
		t.Fatal("expected unknown stage to fail")
	}
}

func TestShowCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	seedRecords(t, env)

	out, _, err := runCLI(t, []string{"show", "room1/night-watch.jpg"}, env.configPath)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, "[OK] Resolved")
	requireContains(t, out, "Rijksmuseum")
	requireContains(t, out, "https://www.rijksmuseum.nl/en/collection/SK-C-5")

	if _, _, err := runCLI(t, []string{"show", "missing.jpg"}, env.configPath); err == nil {
		t.Fatal("expected unknown plaque to fail")
	}
}

func TestBatchesAndStatusCommands(t *testing.T) {
	env := setupCLITestEnv(t)
	seedRecords(t, env)

	out, _, err := runCLI(t, []string{"batches"}, env.configPath)
	if err != nil {
		t.Fatalf("batches: %v", err)
	}
	requireContains(t, out, "Resolved")
	requireContains(t, out, "Total")

	out, _, err = runCLI(t, []string{"status", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}
	var view statusView
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode status json: %v\n%s", err, out)
	}
	if view.WatcherRunning {
		t.Fatal("expected no watcher running")
	}
	if view.Records["resolved"] != 1 || view.Records["failed"] != 1 || view.Records["pending"] != 1 {
		t.Fatalf("unexpected record counts %v", view.Records)
	}
	if view.ActiveBatch == nil {
		t.Fatal("expected an active batch with pending work")
	}
	if view.QuotaLimit != env.cfg.Quota.Limit {
		t.Fatalf("expected quota limit %d, got %d", env.cfg.Quota.Limit, view.QuotaLimit)
	}
}

func TestRetryCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	seedRecords(t, env)

	out, _, err := runCLI(t, []string{"retry", "--stage", "download"}, env.configPath)
	if err != nil {
		t.Fatalf("retry --stage download: %v", err)
	}
	requireContains(t, out, "No failed plaques matched")

	out, _, err = runCLI(t, []string{"retry", "--stage", "search"}, env.configPath)
	if err != nil {
		t.Fatalf("retry --stage search: %v", err)
	}
	requireContains(t, out, "Reset 1 failed plaque(s)")

	record, err := env.store.Get(t.Context(), "room1/blurry.jpg")
	if err != nil || record == nil {
		t.Fatalf("Get: %v", err)
	}
	if record.Status != records.StatusPending {
		t.Fatalf("expected pending after retry, got %s", record.Status)
	}
}

func TestIngestCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	for _, name := range []string{"a.jpg", "room/b.png", "notes.txt"} {
		testsupport.WriteBytes(t, filepath.Join(env.cfg.Paths.PlaquesDir, name), testsupport.PNG(t, 16, 16))
	}

	out, _, err := runCLI(t, []string{"ingest", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	var view ingestView
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode ingest json: %v\n%s", err, out)
	}
	if view.Added != 2 {
		t.Fatalf("expected two plaques added, got %+v", view)
	}

	out, _, err = runCLI(t, []string{"ingest"}, env.configPath)
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	requireContains(t, out, "Added:      0")
	requireContains(t, out, "Existing:   2")
}

func TestExportCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	seedRecords(t, env)
	target := filepath.Join(env.baseDir, "out", "gallery.xlsx")

	out, _, err := runCLI(t, []string{"export", "--path", target, "--sheet", "Visit"}, env.configPath)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	requireContains(t, out, "Exported 3 plaques (1 resolved)")

	book, err := excelize.OpenFile(target)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer book.Close()
	rows, err := book.GetRows("Visit")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header plus three rows, got %d", len(rows))
	}
}

func TestQuotaCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"quota", "--json", "--history", "5"}, env.configPath)
	if err != nil {
		t.Fatalf("quota: %v", err)
	}
	var view quotaView
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode quota json: %v\n%s", err, out)
	}
	if view.Used != 0 || view.Limit != env.cfg.Quota.Limit || view.Remaining != env.cfg.Quota.Limit {
		t.Fatalf("unexpected quota view %+v", view)
	}
	if !view.NextWindow.After(view.WindowStart) {
		t.Fatalf("expected next window after window start, got %+v", view)
	}
}

func TestTestNotifyWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t)
	t.Setenv("NTFY_TOPIC", "")

	out, _, err := runCLI(t, []string{"test-notify"}, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "ntfy topic not configured")
}

func TestRunRequiresCredentials(t *testing.T) {
	env := setupCLITestEnv(t)
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "")
	env.cfg.LLM.APIKey = ""
	writeTestConfig(t, env.configPath, env.cfg)

	_, _, err := runCLI(t, []string{"run", "--skip-preflight"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "llm.api_key is required") {
		t.Fatalf("expected missing llm key error, got %v", err)
	}
}

func TestHealthReportsFailures(t *testing.T) {
	env := setupCLITestEnv(t)
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "")
	env.cfg.LLM.APIKey = ""
	writeTestConfig(t, env.configPath, env.cfg)
	if err := os.WriteFile(env.cfg.Paths.PlaquesDir, []byte("not a directory"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}

	out, _, err := runCLI(t, []string{"health"}, env.configPath)
	if err == nil {
		t.Fatal("expected health to fail")
	}
	requireContains(t, out, "Record store:")
	requireContains(t, out, "Plaques directory:")
	requireContains(t, out, "[ERROR] API key missing")
	requireContains(t, out, "checks failed")
}

func TestLogsCommandFiltersEntries(t *testing.T) {
	env := setupCLITestEnv(t)
	content := strings.Join([]string{
		`{"ts":"2026-03-02T22:30:00Z","level":"info","msg":"plaque resolved","component":"workflow","plaque_id":"room1/a.jpg"}`,
		`{"ts":"2026-03-02T22:31:00Z","level":"error","msg":"download failed","component":"resolver","plaque_id":"room1/b.jpg"}`,
	}, "\n") + "\n"
	testsupport.WriteBytes(t, env.cfg.LogFilePath(), []byte(content))

	out, _, err := runCLI(t, []string{"logs", "--level", "error"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "download failed")
	if strings.Contains(out, "plaque resolved") {
		t.Fatalf("expected info entry to be filtered, got %q", out)
	}
}
