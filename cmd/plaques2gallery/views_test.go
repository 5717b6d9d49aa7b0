package main

import (
	"strings"
	"testing"
	"time"

	"plaques2gallery/internal/records"
	"plaques2gallery/internal/workflow"
)

func TestBuildBatchRowsTotals(t *testing.T) {
	batches := []records.BatchSummary{
		{
			Batch:  records.Batch{ID: 1, Size: 70, Capacity: 70},
			Counts: map[records.Status]int{records.StatusResolved: 60, records.StatusFailed: 10},
		},
		{
			Batch:  records.Batch{ID: 2, Size: 5, Capacity: 70},
			Counts: map[records.Status]int{records.StatusPending: 3, records.StatusSearched: 2},
		},
	}
	rows, footer := buildBatchRows(batches)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[1][2] != "5/70" {
		t.Fatalf("unexpected size cell %q", rows[1][2])
	}
	want := []string{"Total", "", "75", "3", "2", "60", "10"}
	if strings.Join(footer, "|") != strings.Join(want, "|") {
		t.Fatalf("footer mismatch\n got: %v\nwant: %v", footer, want)
	}
}

func TestParseStatuses(t *testing.T) {
	statuses, err := parseStatuses([]string{"failed,Resolved", " pending "})
	if err != nil {
		t.Fatalf("parseStatuses: %v", err)
	}
	want := []records.Status{records.StatusFailed, records.StatusResolved, records.StatusPending}
	if len(statuses) != len(want) {
		t.Fatalf("expected %v, got %v", want, statuses)
	}
	for i := range want {
		if statuses[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, statuses)
		}
	}
	if _, err := parseStatuses([]string{"archived"}); err == nil {
		t.Fatal("expected unknown status to fail")
	}
}

func TestSummaryLines(t *testing.T) {
	summary := workflow.Summary{
		RunID:          "run-1",
		Batches:        []int64{3, 4},
		Processed:      5,
		Resolved:       3,
		FailedByStage:  map[records.FailureStage]int{records.StageSearch: 1, records.StageDownload: 1},
		QuotaExhausted: true,
		QuotaUsed:      100,
		QuotaLimit:     100,
		NextWindow:     time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
		Duration:       1500 * time.Millisecond,
	}
	joined := strings.Join(summaryLines(summary), "\n")
	for _, want := range []string{
		"Batches:   3, 4",
		"Failed:    2 (download=1, search=1)",
		"Quota:     100/100",
		"Search quota exhausted; resume after",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %q in\n%s", want, joined)
		}
	}
}

func TestTruncateCell(t *testing.T) {
	short := "The Night Watch"
	if got := truncateCell(short); got != short {
		t.Fatalf("unexpected truncation %q", got)
	}
	long := strings.Repeat("a", maxCellWidth+10)
	got := truncateCell(long)
	if len([]rune(got)) != maxCellWidth || !strings.HasSuffix(got, "…") {
		t.Fatalf("expected %d runes ending in ellipsis, got %q", maxCellWidth, got)
	}
}
