package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"plaques2gallery/internal/logging"
	"plaques2gallery/internal/records"
	"plaques2gallery/internal/services"
	"plaques2gallery/internal/stage"
)

func (m *Manager) handleStageError(ctx context.Context, logger *slog.Logger, stg pipelineStage, record *records.Record, stageErr error, start time.Time) (recordOutcome, bool, error) {
	elapsed := time.Since(start)
	if ctxErr := ctx.Err(); ctxErr != nil {
		logger.Debug("stage interrupted", logging.Error(stageErr))
		return outcomeInterrupted, true, ctxErr
	}

	switch services.Classify(stageErr) {
	case services.DispositionStop:
		m.metrics.ObserveStage(stg.name, "quota", elapsed)
		logging.WarnWithContext(logger, "search quota exhausted", "quota_exhausted",
			logging.Error(stageErr),
			logging.String(logging.FieldErrorHint, "wait for the next quota window"),
			logging.String(logging.FieldImpact, "remaining plaques stay pending"),
		)
		return outcomeQuota, true, nil
	case services.DispositionRetry:
		record.TransientFailures++
		limit := m.cfg.Workflow.MaxTransientAttempts
		if limit <= 0 || record.TransientFailures < limit {
			if err := m.persist(ctx, record); err != nil {
				m.metrics.ObserveStage(stg.name, "error", elapsed)
				return outcomeInterrupted, true, err
			}
			m.metrics.ObserveStage(stg.name, "retry", elapsed)
			logging.WarnWithContext(logger, "stage failed transiently", "stage_retry",
				logging.Error(stageErr),
				logging.Int("transient_failures", record.TransientFailures),
				logging.Int("max_transient_attempts", limit),
				logging.String(logging.FieldImpact, "plaque stays pending for the next run"),
			)
			return outcomeRetry, true, nil
		}
		stageErr = fmt.Errorf("gave up after %d transient failures: %w", record.TransientFailures, stageErr)
	case services.DispositionAbort:
		m.metrics.ObserveStage(stg.name, "error", elapsed)
		logging.ErrorWithContext(logger, "stage aborted run", "stage_abort",
			logging.Error(stageErr),
			logging.String(logging.FieldErrorHint, "check configuration and the state database"),
		)
		return outcomeInterrupted, true, stageErr
	}

	failureStage := failureStageFor(stg, stageErr)
	record.MarkFailed(failureStage, failureReason(stg.name, stageErr))
	if err := m.persist(ctx, record); err != nil {
		m.metrics.ObserveStage(stg.name, "error", elapsed)
		return outcomeInterrupted, true, err
	}
	m.metrics.ObserveStage(stg.name, "failed", elapsed)
	m.metrics.RecordTerminal(string(records.StatusFailed), string(failureStage))
	logger.Warn("plaque failed", logging.Args(logging.PlaqueFailure(string(failureStage), record.FailureReason, stageErr)...)...)
	return outcomeTerminal, true, nil
}

func failureStageFor(stg pipelineStage, err error) records.FailureStage {
	var staged stage.FailureStager
	if errors.As(err, &staged) {
		if fs := staged.FailedStage(); fs != "" {
			return fs
		}
	}
	return stg.failureStage
}

func failureReason(stageName string, err error) string {
	message := ""
	if err != nil {
		message = strings.TrimSpace(err.Error())
	}
	if message == "" {
		message = stageName + " failed without error detail"
	}
	runes := []rune(message)
	if len(runes) > maxReasonLength {
		message = string(runes[:maxReasonLength-3]) + "..."
	}
	return message
}
