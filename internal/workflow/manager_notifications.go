package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"plaques2gallery/internal/logging"
	"plaques2gallery/internal/notifications"
)

// finish completes the summary, records metrics and sends notifications.
// Bookkeeping runs even when ctx is already cancelled.
func (m *Manager) finish(ctx context.Context, state *runState, runErr error) (Summary, error) {
	bg := context.WithoutCancel(ctx)
	logger := m.runLogger(ctx)
	summary := state.snapshot()
	summary.Duration = m.now().Sub(summary.StartedAt)
	if summary.Duration < 0 {
		summary.Duration = 0
	}
	summary.Pending = m.pendingIn(bg, summary.Batches)

	if m.quota != nil {
		usage, err := m.quota.Usage(bg)
		if err != nil {
			logging.WarnWithContext(logger, "quota usage unavailable", "quota_usage_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "run summary omits quota usage"),
			)
		} else {
			summary.QuotaUsed = usage.Used
			summary.QuotaLimit = usage.Limit
		}
		if summary.QuotaExhausted {
			summary.NextWindow = m.quota.NextWindow()
		}
	}

	result := runResult(summary, runErr)
	attrs := append(summaryAttrs(summary), logging.String("result", result))
	switch {
	case runErr != nil && !isCancellation(runErr):
		logging.ErrorWithContext(logger, "run failed", "run_failed",
			append(attrs, logging.Error(runErr), logging.String(logging.FieldErrorHint, "fix the reported error and rerun"))...)
	case runErr != nil:
		logger.Info("run cancelled", logging.Args(append(attrs, logging.String(logging.FieldEventType, "run_cancelled"))...)...)
	default:
		logger.Info("run finished", logging.Args(append(attrs, logging.String(logging.FieldEventType, "run_complete"))...)...)
	}

	m.metrics.SetQuota(summary.QuotaUsed, summary.QuotaLimit)
	m.metrics.RunFinished(result, summary.Pending, m.now())
	m.notifyRunFinished(bg, summary, runErr)

	m.mu.Lock()
	last := summary.clone()
	m.lastSummary = &last
	if runErr != nil {
		m.lastErr = runErr
	}
	m.mu.Unlock()
	return summary, runErr
}

func (m *Manager) pendingIn(ctx context.Context, batchIDs []int64) int {
	if len(batchIDs) == 0 {
		return 0
	}
	summaries, err := m.store.Batches(ctx)
	if err != nil {
		m.logger.Warn("batch counts unavailable", logging.Error(err))
		return 0
	}
	touched := make(map[int64]struct{}, len(batchIDs))
	for _, id := range batchIDs {
		touched[id] = struct{}{}
	}
	pending := 0
	for _, batch := range summaries {
		if _, ok := touched[batch.ID]; ok {
			pending += batch.Remaining()
		}
	}
	return pending
}

func runResult(summary Summary, runErr error) string {
	switch {
	case runErr != nil && isCancellation(runErr):
		return "cancelled"
	case runErr != nil:
		return "error"
	case summary.QuotaExhausted:
		return "quota_exhausted"
	default:
		return "ok"
	}
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (m *Manager) notifyRunFinished(ctx context.Context, summary Summary, runErr error) {
	if m.notifier == nil {
		return
	}
	if summary.QuotaExhausted {
		payload := notifications.Payload{
			"used":      summary.QuotaUsed,
			"limit":     summary.QuotaLimit,
			"remaining": summary.Pending,
		}
		if !summary.NextWindow.IsZero() {
			payload["next_window"] = summary.NextWindow.Format(time.RFC1123)
		}
		m.publish(ctx, notifications.EventQuotaExhausted, payload)
	}
	if summary.Processed > 0 {
		m.publish(ctx, notifications.EventRunCompleted, notifications.Payload{
			"resolved": summary.Resolved,
			"failed":   summary.Failed(),
			"pending":  summary.Pending,
			"duration": summary.Duration,
			"batches":  formatBatches(summary.Batches),
		})
	}
	if runErr != nil && !isCancellation(runErr) {
		m.publish(ctx, notifications.EventError, notifications.Payload{
			"error":   runErr,
			"context": "run " + shortRunID(summary.RunID),
		})
	}
}

func (m *Manager) publish(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if err := m.notifier.Publish(ctx, event, payload); err != nil {
		m.logger.Debug("notification failed",
			logging.String("event", string(event)),
			logging.Error(err),
		)
	}
}

func formatBatches(ids []int64) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("#%d", id))
	}
	return strings.Join(parts, ", ")
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
