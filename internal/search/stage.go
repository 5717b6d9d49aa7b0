package search

import (
	"context"

	"plaques2gallery/internal/records"
	"plaques2gallery/internal/stage"
)

// Stage searches for the record's query and stores the candidates.
type Stage struct {
	searcher *Searcher
}

// NewStage builds the search stage handler.
func NewStage(searcher *Searcher) *Stage {
	return &Stage{searcher: searcher}
}

// Prepare verifies the record carries a normalized query.
func (s *Stage) Prepare(_ context.Context, record *records.Record) error {
	return stage.RequireQuery(stageName, record)
}

// Execute runs one quota-guarded search.
func (s *Stage) Execute(ctx context.Context, record *records.Record) error {
	candidates, err := s.searcher.Search(ctx, *record.Query)
	if err != nil {
		return err
	}
	record.MarkSearched(candidates)
	return nil
}

// HealthCheck reports whether the provider has credentials.
func (s *Stage) HealthCheck(context.Context) stage.Health {
	if s.searcher == nil || s.searcher.provider == nil {
		return stage.Unhealthy(stageName, "search provider not configured")
	}
	if g, ok := s.searcher.provider.(*GoogleProvider); ok && (g.apiKey == "" || g.engineID == "") {
		return stage.Unhealthy(stageName, "search api key or engine id missing")
	}
	return stage.Healthy(stageName)
}
