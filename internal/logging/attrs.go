package logging

import (
	"log/slog"
	"time"
)

type Attr = slog.Attr

func Bool(key string, value bool) Attr { return slog.Bool(key, value) }

func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

func Float64(key string, value float64) Attr { return slog.Float64(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func Int64(key string, value int64) Attr { return slog.Int64(key, value) }

func String(key string, value string) Attr { return slog.String(key, value) }

// Plaque tags a line with the plaque image it concerns.
func Plaque(id string) Attr { return slog.String(FieldPlaqueID, id) }

// Batch tags a line with the persisted batch number.
func Batch(id int64) Attr { return slog.Int64(FieldBatchID, id) }

// Stage tags a line with the pipeline stage (ocr, normalize, search, resolve).
func Stage(name string) Attr { return slog.String(FieldStage, name) }

func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

func Args(attrs ...Attr) []any {
	return attrsToArgs(attrs)
}

func attrsToArgs(attrs []Attr) []any {
	args := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		args = append(args, attr)
	}
	return args
}

func NewNop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// NewComponentLogger returns logger tagged with component. A nil logger discards.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(String(FieldComponent, component))
}

// FieldImpact states what a warning means for the gallery being built.
const FieldImpact = "impact"

// PlaqueFailure builds the attributes logged when a plaque reaches the failed
// state: the stage it failed at, the stored reason and an operator alert.
func PlaqueFailure(stage, reason string, err error) []Attr {
	return []Attr{
		String(FieldDecisionType, "plaque_failure"),
		String("decision_result", stage),
		String("decision_reason", reason),
		String(FieldAlert, "plaque_failure"),
		String(FieldEventType, "plaque_failure"),
		String("failure_stage", stage),
		String(FieldErrorHint, "run `plaques2gallery retry --stage "+stage+"` once the cause is fixed"),
		Error(err),
	}
}

// WarnWithContext logs a warning carrying event_type, error_hint and impact.
// Fields the caller omits get generic defaults.
func WarnWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	if logger == nil {
		return
	}
	attrs = withDefault(attrs, FieldEventType, eventType)
	attrs = withDefault(attrs, FieldErrorHint, "check logs for details")
	attrs = withDefault(attrs, FieldImpact, "the run continues with the remaining plaques")
	logger.Warn(msg, Args(attrs...)...)
}

// ErrorWithContext logs an error carrying event_type and error_hint.
func ErrorWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	if logger == nil {
		return
	}
	attrs = withDefault(attrs, FieldEventType, eventType)
	attrs = withDefault(attrs, FieldErrorHint, "check logs for details")
	logger.Error(msg, Args(attrs...)...)
}

func withDefault(attrs []Attr, key, value string) []Attr {
	for _, a := range attrs {
		if a.Key == key {
			return attrs
		}
	}
	return append(attrs, String(key, value))
}
