package resolver

import (
	"context"
	"errors"

	"plaques2gallery/internal/records"
	"plaques2gallery/internal/stage"
)

const stageName = "resolve"

// FailedStage reports the failure stage of the last attempted candidate.
func (f *ResolutionFailure) FailedStage() records.FailureStage {
	return f.Stage
}

// Stage resolves a searched record into a downloaded image.
type Stage struct {
	resolver *Resolver
}

// NewStage builds the resolution stage handler.
func NewStage(resolver *Resolver) *Stage {
	return &Stage{resolver: resolver}
}

// Prepare verifies the record has candidates.
func (s *Stage) Prepare(_ context.Context, record *records.Record) error {
	return stage.RequireCandidates(stageName, record)
}

// Execute resolves the candidates and records the outcome.
func (s *Stage) Execute(ctx context.Context, record *records.Record) error {
	res, err := s.resolver.Resolve(ctx, record.PlaqueID, record.Candidates)
	if err != nil {
		var failure *ResolutionFailure
		if errors.As(err, &failure) && failure.Museum != "" {
			record.Museum = failure.Museum
		}
		return err
	}
	record.MarkResolved(res.ImagePath, res.SourceURL, res.ImageURL, res.Museum)
	return nil
}

// HealthCheck reports whether a renderer is attached.
func (s *Stage) HealthCheck(context.Context) stage.Health {
	if s.resolver == nil || s.resolver.renderer == nil {
		return stage.Unhealthy(stageName, "renderer not configured")
	}
	if s.resolver.opts.ImagesDir == "" {
		return stage.Unhealthy(stageName, "images directory not configured")
	}
	return stage.Healthy(stageName)
}
