// Package metrics exposes pipeline counters and gauges to Prometheus.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"plaques2gallery/internal/logging"
)

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	stageDuration  *prometheus.HistogramVec
	stageOutcomes  *prometheus.CounterVec
	recordOutcomes *prometheus.CounterVec
	quotaUsed      prometheus.Gauge
	quotaLimit     prometheus.Gauge
	pending        prometheus.Gauge
	runs           *prometheus.CounterVec
	lastRun        prometheus.Gauge
}

// New registers the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "plaques2gallery_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 40, 80},
			},
			[]string{"stage"},
		),
		stageOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plaques2gallery_stage_outcomes_total",
				Help: "Stage executions by stage and outcome (ok, failed, retry, quota, error).",
			},
			[]string{"stage", "outcome"},
		),
		recordOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plaques2gallery_records_terminal_total",
				Help: "Records reaching a terminal status, labeled by status and failure stage.",
			},
			[]string{"status", "failure_stage"},
		),
		quotaUsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "plaques2gallery_quota_used",
			Help: "Search quota units used in the current window.",
		}),
		quotaLimit: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "plaques2gallery_quota_limit",
			Help: "Search quota units available per window.",
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "plaques2gallery_records_pending",
			Help: "Non-terminal records left in the batches touched by the last run.",
		}),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plaques2gallery_runs_total",
				Help: "Completed runs labeled by how they ended.",
			},
			[]string{"result"},
		),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "plaques2gallery_last_run_timestamp_seconds",
			Help: "Unix time the last run finished.",
		}),
	}
	m.registry.MustRegister(
		m.stageDuration,
		m.stageOutcomes,
		m.recordOutcomes,
		m.quotaUsed,
		m.quotaLimit,
		m.pending,
		m.runs,
		m.lastRun,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveStage records one stage execution.
func (m *Metrics) ObserveStage(stage, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
	m.stageOutcomes.WithLabelValues(stage, outcome).Inc()
}

// RecordTerminal counts a record reaching resolved or failed.
func (m *Metrics) RecordTerminal(status, failureStage string) {
	if m == nil {
		return
	}
	m.recordOutcomes.WithLabelValues(status, failureStage).Inc()
}

// SetQuota publishes current window usage.
func (m *Metrics) SetQuota(used, limit int) {
	if m == nil {
		return
	}
	m.quotaUsed.Set(float64(used))
	m.quotaLimit.Set(float64(limit))
}

// RunFinished records the end of a run.
func (m *Metrics) RunFinished(result string, pending int, at time.Time) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(result).Inc()
	m.pending.Set(float64(pending))
	m.lastRun.Set(float64(at.Unix()))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled. The bound address
// is sent on ready when it is non-nil.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *slog.Logger, ready chan<- string) error {
	if logger == nil {
		logger = logging.NewNop()
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	logger.Info("exposing prometheus metrics", logging.String("address", listener.Addr().String()))
	if ready != nil {
		ready <- listener.Addr().String()
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.Serve(listener) }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
