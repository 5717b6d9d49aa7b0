package workflow

import (
	"context"
	"log/slog"

	"plaques2gallery/internal/logging"
	"plaques2gallery/internal/services"
)

func withStageContext(ctx context.Context, stageName, requestID string) context.Context {
	if stageName != "" {
		ctx = services.WithStage(ctx, stageName)
	}
	if requestID != "" {
		ctx = services.WithRequestID(ctx, requestID)
	}
	return ctx
}

func summaryAttrs(summary Summary) []logging.Attr {
	attrs := []logging.Attr{
		logging.Int("processed", summary.Processed),
		logging.Int("resolved", summary.Resolved),
		logging.Int("failed", summary.Failed()),
		logging.Int("retried", summary.Retried),
		logging.Int("pending", summary.Pending),
		logging.Bool("quota_exhausted", summary.QuotaExhausted),
		logging.Int("quota_used", summary.QuotaUsed),
		logging.Int("quota_limit", summary.QuotaLimit),
		logging.Duration("run_duration", summary.Duration),
	}
	for stage, count := range summary.FailedByStage {
		if count > 0 {
			attrs = append(attrs, logging.Int("failed_"+string(stage), count))
		}
	}
	return attrs
}

func (m *Manager) runLogger(ctx context.Context) *slog.Logger {
	return logging.WithContext(ctx, m.logger)
}
