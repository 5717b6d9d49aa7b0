package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"plaques2gallery/internal/logging"
	"plaques2gallery/internal/records"
)

// executeStage runs one handler against record. finished reports that the
// record should not advance further in this run.
func (m *Manager) executeStage(ctx context.Context, base *slog.Logger, stg pipelineStage, record *records.Record) (recordOutcome, bool, error) {
	ctx = withStageContext(ctx, stg.name, uuid.NewString())
	logger := logging.WithContext(ctx, base)

	start := time.Now()
	logger.Debug("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("status", string(record.Status)),
		logging.Int("attempt", record.Attempts),
	)

	if err := stg.handler.Prepare(ctx, record); err != nil {
		return m.handleStageError(ctx, logger, stg, record, err, start)
	}
	if err := stg.handler.Execute(ctx, record); err != nil {
		return m.handleStageError(ctx, logger, stg, record, err, start)
	}
	if err := m.persist(ctx, record); err != nil {
		m.metrics.ObserveStage(stg.name, "error", time.Since(start))
		logging.ErrorWithContext(logger, "failed to persist stage result", "persist_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the state database"),
		)
		return outcomeInterrupted, true, err
	}

	elapsed := time.Since(start)
	m.metrics.ObserveStage(stg.name, "ok", elapsed)
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_status", string(record.Status)),
		logging.Duration("stage_duration", elapsed),
	)
	if record.Status.IsTerminal() {
		m.metrics.RecordTerminal(string(record.Status), "")
		return outcomeTerminal, true, nil
	}
	return outcomeTerminal, false, nil
}
