package stage

import (
	"context"

	"plaques2gallery/internal/records"
)

// Handler describes the contract the workflow manager needs from each stage.
type Handler interface {
	Prepare(context.Context, *records.Record) error
	Execute(context.Context, *records.Record) error
	HealthCheck(context.Context) Health
}

// FailureStager is implemented by errors that know which failure stage
// they belong to, overriding the stage's default.
type FailureStager interface {
	FailedStage() records.FailureStage
}
