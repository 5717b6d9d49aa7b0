package workflow

import (
	"context"
	"time"

	"plaques2gallery/internal/logging"
	"plaques2gallery/internal/records"
	"plaques2gallery/internal/stage"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running     bool
	LastError   string
	LastRun     *Summary
	RecordStats map[records.Status]int
	Quota       records.QuotaWindow
	NextWindow  time.Time
	StageHealth map[string]stage.Health
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	running := m.running
	lastErr := m.lastErr
	var lastRun *Summary
	if m.lastSummary != nil {
		copy := m.lastSummary.clone()
		lastRun = &copy
	}
	m.mu.RUnlock()

	summary := StatusSummary{Running: running, LastRun: lastRun}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read record stats", logging.Error(err))
	}
	summary.RecordStats = stats

	if m.quota != nil {
		usage, err := m.quota.Usage(ctx)
		if err != nil {
			m.logger.Warn("failed to read quota usage", logging.Error(err))
		}
		summary.Quota = usage
		summary.NextWindow = m.quota.NextWindow()
	}

	stages := m.stageList()
	summary.StageHealth = make(map[string]stage.Health, len(stages))
	for _, stg := range stages {
		summary.StageHealth[stg.name] = stg.handler.HealthCheck(ctx)
	}
	return summary
}
