package workflow

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"plaques2gallery/internal/config"
	"plaques2gallery/internal/logging"
	"plaques2gallery/internal/metrics"
	"plaques2gallery/internal/notifications"
	"plaques2gallery/internal/quota"
	"plaques2gallery/internal/records"
)

// ErrAlreadyRunning is returned when Run is called while a run is active.
var ErrAlreadyRunning = errors.New("workflow already running")

// Manager coordinates batch processing using registered stage handlers.
type Manager struct {
	cfg       *config.Config
	store     *records.Store
	quota     *quota.Counter
	logger    *slog.Logger
	notifier  notifications.Service
	metrics   *metrics.Metrics
	batchLogs *BatchLogger
	now       func() time.Time
	locks     *keyedMutex

	stages []pipelineStage

	mu          sync.RWMutex
	running     bool
	lastErr     error
	lastSummary *Summary
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithNotifier replaces the notifier built from configuration.
func WithNotifier(notifier notifications.Service) ManagerOption {
	return func(m *Manager) {
		if notifier != nil {
			m.notifier = notifier
		}
	}
}

// WithMetrics attaches a Prometheus exporter.
func WithMetrics(exporter *metrics.Metrics) ManagerOption {
	return func(m *Manager) {
		m.metrics = exporter
	}
}

// WithClock overrides the wall clock used for run timestamps.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithBatchLogger overrides the per-batch log writer. Nil disables batch logs.
func WithBatchLogger(batchLogs *BatchLogger) ManagerOption {
	return func(m *Manager) {
		m.batchLogs = batchLogs
	}
}

// NewManager constructs a workflow manager. Stages are registered separately
// with ConfigureStages.
func NewManager(cfg *config.Config, store *records.Store, counter *quota.Counter, logger *slog.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Manager{
		cfg:       cfg,
		store:     store,
		quota:     counter,
		logger:    logging.NewComponentLogger(logger, "workflow"),
		notifier:  notifications.NewService(cfg),
		batchLogs: NewBatchLogger(cfg),
		now:       time.Now,
		locks:     newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) workers() int {
	workers := 1
	if m.cfg != nil && m.cfg.Workflow.Workers > 0 {
		workers = m.cfg.Workflow.Workers
	}
	if workers > maxWorkers {
		workers = maxWorkers
	}
	return workers
}

func (m *Manager) drainBatches() bool {
	return m.cfg != nil && m.cfg.Workflow.DrainBatches
}
