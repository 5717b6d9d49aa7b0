package normalize

import (
	"context"
	"log/slog"
	"strings"

	"plaques2gallery/internal/ingest"
	"plaques2gallery/internal/logging"
	"plaques2gallery/internal/ocr"
	"plaques2gallery/internal/records"
	"plaques2gallery/internal/stage"
)

const stageName = "normalize"

// TextExtractor reads plaque text; ocr.Extractor satisfies it.
type TextExtractor interface {
	Extract(ctx context.Context, plaque ingest.PlaqueImage) ocr.Extraction
}

// Stage extracts plaque text and normalizes it into the record's query.
type Stage struct {
	extractor  TextExtractor
	normalizer *Normalizer
	logger     *slog.Logger
}

// NewStage builds the normalization stage handler.
func NewStage(extractor TextExtractor, normalizer *Normalizer, logger *slog.Logger) *Stage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Stage{extractor: extractor, normalizer: normalizer, logger: logger}
}

// Prepare clears state left by an earlier, interrupted attempt.
func (s *Stage) Prepare(_ context.Context, record *records.Record) error {
	record.Query = nil
	return nil
}

// Execute runs OCR and normalization. The OCR text and language are kept on
// the record even when normalization fails.
func (s *Stage) Execute(ctx context.Context, record *records.Record) error {
	logger := logging.WithContext(ctx, s.logger)
	extraction := s.extractor.Extract(ctx, ingest.PlaqueImage{ID: record.PlaqueID, Path: record.ImagePath})
	if err := ctx.Err(); err != nil {
		return err
	}
	record.OCRText = strings.TrimSpace(extraction.Text)
	record.OCRConfidence = extraction.Confidence
	record.Language = extraction.Language
	logger.Debug("plaque text extracted",
		logging.Int("chars", len(record.OCRText)),
		logging.Float64("confidence", extraction.Confidence),
		logging.String("language", extraction.Language),
		logging.Int("threshold", extraction.Threshold),
		logging.Bool("inverted", extraction.Inverted),
	)

	query, err := s.normalizer.Normalize(ctx, extraction.Text, extraction.LanguageName)
	if err != nil {
		return err
	}
	record.Query = &query
	logger.Info("query normalized", logging.String("query", query.String()))
	return nil
}

type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthCheck pings the model endpoint when the completer supports it.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	if s.extractor == nil || s.normalizer == nil {
		return stage.Unhealthy(stageName, "stage not configured")
	}
	if checker, ok := s.normalizer.completer.(healthChecker); ok {
		if err := checker.HealthCheck(ctx); err != nil {
			return stage.Unhealthy(stageName, err.Error())
		}
	}
	return stage.Healthy(stageName)
}
