package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
	ErrQuotaExceeded = errors.New("search quota exceeded")
	ErrStorage       = errors.New("storage failure")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Disposition is what the orchestrator does with a record after a stage error.
type Disposition int

const (
	// DispositionFail persists the record as failed at the current stage.
	DispositionFail Disposition = iota
	// DispositionRetry leaves the record pending for a later run.
	DispositionRetry
	// DispositionStop leaves the record pending and ends the batch.
	DispositionStop
	// DispositionAbort ends the run with an error.
	DispositionAbort
)

func (d Disposition) String() string {
	switch d {
	case DispositionRetry:
		return "retry"
	case DispositionStop:
		return "stop"
	case DispositionAbort:
		return "abort"
	default:
		return "fail"
	}
}

// Classify maps a stage error to the orchestrator disposition.
func Classify(err error) Disposition {
	switch {
	case err == nil:
		return DispositionFail
	case errors.Is(err, ErrQuotaExceeded):
		return DispositionStop
	case errors.Is(err, ErrConfiguration), errors.Is(err, ErrStorage):
		return DispositionAbort
	case errors.Is(err, ErrTransient), errors.Is(err, ErrTimeout):
		return DispositionRetry
	default:
		return DispositionFail
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
