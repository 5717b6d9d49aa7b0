package main

import (
	"strings"
	"testing"
)

func TestRenderTableKeepsHeaderCase(t *testing.T) {
	out := renderTableWithFooter(
		[]string{"Batch", "Resolved", "Failed"},
		[][]string{{"1", "60"}},
		[]string{"Total", "60", "0"},
		[]columnAlignment{alignLeft, alignRight, alignRight},
	)
	for _, want := range []string{"Batch", "Resolved", "Failed", "Total"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in table:\n%s", want, out)
		}
	}
	if strings.Contains(out, "RESOLVED") || strings.Contains(out, "TOTAL") {
		t.Fatalf("expected headers rendered as given:\n%s", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Fatal("expected trailing newline")
	}
	if renderTable(nil, nil, nil) != "" {
		t.Fatal("expected empty output without headers")
	}
}
