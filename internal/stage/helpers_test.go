package stage

import (
	"errors"
	"testing"

	"plaques2gallery/internal/records"
	"plaques2gallery/internal/services"
)

func TestRequireQuery(t *testing.T) {
	if err := RequireQuery("search", &records.Record{PlaqueID: "a", Query: &records.Query{Title: "Olympia"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := RequireQuery("search", &records.Record{PlaqueID: "a"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRequireCandidates(t *testing.T) {
	record := &records.Record{PlaqueID: "a", Candidates: []records.Candidate{{URL: "https://x.test", Rank: 0}}}
	if err := RequireCandidates("resolve", record); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := RequireCandidates("resolve", &records.Record{PlaqueID: "a"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := RequireCandidates("resolve", nil); err == nil {
		t.Fatal("expected error for nil record")
	}
}
