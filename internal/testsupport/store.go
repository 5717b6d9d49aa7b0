package testsupport

import (
	"context"
	"testing"

	"plaques2gallery/internal/config"
	"plaques2gallery/internal/records"
)

// MustOpenStore opens a records.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *records.Store {
	t.Helper()

	store, err := records.Open(cfg)
	if err != nil {
		t.Fatalf("records.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// Ingest records a pending plaque using the configured batch size.
func Ingest(t testing.TB, store *records.Store, cfg *config.Config, plaqueID string) *records.Record {
	t.Helper()

	record, _, err := store.Ingest(context.Background(), plaqueID, plaqueID, cfg.Workflow.BatchSize)
	if err != nil {
		t.Fatalf("store.Ingest: %v", err)
	}
	return record
}
