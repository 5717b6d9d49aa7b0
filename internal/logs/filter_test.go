package logs_test

import (
	"strings"
	"testing"

	"plaques2gallery/internal/logs"
)

const (
	infoLine  = `{"ts":"2026-03-02T22:30:00Z","level":"info","msg":"plaque resolved","component":"workflow","batch_id":3,"plaque_id":"room1/a.jpg","museum":"Rijksmuseum","source":"manager_run.go:88"}`
	warnLine  = `{"ts":"2026-03-02T22:31:00Z","level":"warn","msg":"search quota exhausted","component":"search","batch_id":3,"next_window":"2026-03-03T00:00:00Z"}`
	debugLine = `{"ts":"2026-03-02T22:32:00Z","level":"debug","msg":"waiting for work","component":"daemon"}`
)

func TestParseExtractsKnownFields(t *testing.T) {
	entry, err := logs.Parse(infoLine)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if entry.Level != "info" || entry.Component != "workflow" || entry.PlaqueID != "room1/a.jpg" || entry.BatchID != "3" {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if entry.Fields["museum"] != "Rijksmuseum" {
		t.Fatalf("expected extra field, got %v", entry.Fields)
	}
	if _, ok := entry.Fields["source"]; ok {
		t.Fatal("expected source to be dropped")
	}
	if _, err := logs.Parse("plain text"); err == nil {
		t.Fatal("expected error for non-JSON line")
	}
}

func TestApplyFilters(t *testing.T) {
	lines := []string{infoLine, warnLine, debugLine, "panic: boom"}

	all := logs.Apply(lines, logs.Filter{})
	if len(all) != 4 || all[3] != "panic: boom" {
		t.Fatalf("expected every line with empty filter, got %#v", all)
	}

	warn := logs.Apply(lines, logs.Filter{MinLevel: "warn"})
	if len(warn) != 1 || !strings.Contains(warn[0], "search quota exhausted") {
		t.Fatalf("unexpected warn output %#v", warn)
	}

	plaque := logs.Apply(lines, logs.Filter{PlaqueID: "room1/a.jpg"})
	if len(plaque) != 1 || !strings.Contains(plaque[0], "plaque resolved") {
		t.Fatalf("unexpected plaque output %#v", plaque)
	}

	batch := logs.Apply(lines, logs.Filter{BatchID: 3, Component: "SEARCH"})
	if len(batch) != 1 || !strings.Contains(batch[0], "[search]") {
		t.Fatalf("unexpected batch output %#v", batch)
	}
}

func TestFormat(t *testing.T) {
	entry, err := logs.Parse(infoLine)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got := logs.Format(entry)
	want := "2026-03-02T22:30:00Z INFO  [workflow] plaque resolved batch_id=3 plaque_id=room1/a.jpg museum=Rijksmuseum"
	if got != want {
		t.Fatalf("Format mismatch\n got: %q\nwant: %q", got, want)
	}
}
