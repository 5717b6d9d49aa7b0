package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"plaques2gallery/internal/config"
	"plaques2gallery/internal/ingest"
	"plaques2gallery/internal/logging"
	"plaques2gallery/internal/metrics"
	"plaques2gallery/internal/notifications"
	"plaques2gallery/internal/quota"
	"plaques2gallery/internal/records"
	"plaques2gallery/internal/workflow"
)

// ErrLocked is returned when another process holds the state directory lock.
var ErrLocked = errors.New("another plaques2gallery process is running")

// Daemon coordinates ingestion and batch runs and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *records.Store
	workflow *workflow.Manager
	ingester *ingest.Ingester
	quota    *quota.Counter
	metrics  *metrics.Metrics
	notifier notifications.Service
	now      func() time.Time

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	LockedByPeer bool
	Workflow     workflow.StatusSummary
	DatabasePath string
	LockFilePath string
}

// Option configures optional Daemon behavior.
type Option func(*Daemon)

// WithMetrics serves the exporter while watching when metrics are enabled.
func WithMetrics(exporter *metrics.Metrics) Option {
	return func(d *Daemon) {
		d.metrics = exporter
	}
}

// WithNotifier replaces the notifier built from configuration.
func WithNotifier(notifier notifications.Service) Option {
	return func(d *Daemon) {
		if notifier != nil {
			d.notifier = notifier
		}
	}
}

// WithClock overrides the wall clock used to schedule quota rechecks.
func WithClock(now func() time.Time) Option {
	return func(d *Daemon) {
		if now != nil {
			d.now = now
		}
	}
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *records.Store, counter *quota.Counter, wf *workflow.Manager, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || store == nil || counter == nil || wf == nil {
		return nil, errors.New("daemon requires config, store, quota counter, and workflow manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		workflow: wf,
		ingester: ingest.NewIngester(store, cfg.Workflow.BatchSize, logger),
		quota:    counter,
		notifier: notifications.NewService(cfg),
		now:      time.Now,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

func (d *Daemon) acquire() error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w (lock %s)", ErrLocked, d.lockPath)
	}
	d.running.Store(true)
	return nil
}

func (d *Daemon) release() {
	if !d.running.Load() {
		return
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
}

// Ingest scans the plaques directory and records every new plaque.
func (d *Daemon) Ingest(ctx context.Context) (ingest.Report, error) {
	return d.ingester.Directory(ctx, d.cfg.Paths.PlaquesDir)
}

// RunOnce processes pending work under the instance lock. When scan is set
// the plaques directory is ingested first.
func (d *Daemon) RunOnce(ctx context.Context, scan bool) (workflow.Summary, error) {
	if err := d.acquire(); err != nil {
		return workflow.Summary{}, err
	}
	defer d.release()

	if scan {
		if _, err := d.Ingest(ctx); err != nil {
			return workflow.Summary{}, fmt.Errorf("ingest plaques: %w", err)
		}
	}
	return d.workflow.Run(ctx)
}

// Watch ingests new plaques as they appear and keeps batches moving until
// ctx ends. When the quota is spent it sleeps until the next window opens.
func (d *Daemon) Watch(ctx context.Context) error {
	if err := d.acquire(); err != nil {
		return err
	}
	defer d.release()

	g, gctx := errgroup.WithContext(ctx)
	debounce := time.Duration(d.cfg.Workflow.WatchDebounceMillis) * time.Millisecond
	images, err := ingest.Watch(gctx, d.cfg.Paths.PlaquesDir, debounce, d.logger)
	if err != nil {
		return fmt.Errorf("watch plaques: %w", err)
	}

	if d.metrics != nil && d.cfg.Metrics.Enabled {
		g.Go(func() error {
			return d.metrics.Serve(gctx, d.cfg.Metrics.Listen, d.logger, nil)
		})
	}
	g.Go(func() error {
		return d.loop(gctx, images)
	})

	d.logger.Info("watching for plaques",
		logging.String(logging.FieldEventType, "watch_started"),
		logging.String("plaques_dir", d.cfg.Paths.PlaquesDir),
		logging.String("lock", d.lockPath),
	)
	err = g.Wait()
	d.logger.Info("watch stopped", logging.String(logging.FieldEventType, "watch_stopped"))
	if err != nil && ctx.Err() != nil && errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (d *Daemon) loop(ctx context.Context, images <-chan []ingest.PlaqueImage) error {
	if _, err := d.Ingest(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("initial ingest: %w", err)
	}

	for {
		summary, err := d.workflow.Run(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		wait := d.nextWake(ctx, summary)
		if wait > 0 {
			d.logger.Debug("waiting for work",
				logging.Duration("wait", wait),
				logging.Bool("quota_exhausted", summary.QuotaExhausted),
			)
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case batch, ok := <-images:
			timer.Stop()
			if !ok {
				return nil
			}
			report, err := d.ingester.Add(ctx, batch)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("ingest watched plaques: %w", err)
			}
			d.logger.Info("watched plaques ingested",
				logging.String(logging.FieldEventType, "watch_ingest"),
				logging.Int("discovered", report.Discovered),
				logging.Int("added", report.Added),
			)
		case <-timer.C:
		}
	}
}

// nextWake decides how long to idle after a run. A spent quota waits for
// the next window; progress with work left continues at once; anything else
// waits for the recheck interval or a watcher event.
func (d *Daemon) nextWake(ctx context.Context, summary workflow.Summary) time.Duration {
	recheck := time.Duration(d.cfg.Workflow.QuotaRecheckSeconds) * time.Second
	if summary.QuotaExhausted {
		next := summary.NextWindow
		if next.IsZero() {
			next = d.quota.NextWindow()
		}
		wait := next.Sub(d.now())
		if wait <= 0 {
			return time.Second
		}
		return wait + time.Second
	}

	progressed := summary.Resolved+summary.Failed() > 0
	if !progressed {
		return recheck
	}
	batches, err := d.store.BatchesWithWork(ctx)
	if err != nil {
		d.logger.Warn("failed to inspect remaining batches", logging.Error(err))
		return recheck
	}
	if len(batches) > 0 {
		return 0
	}
	return recheck
}

// RetryFailed returns failed plaques to pending. An empty stage matches
// every failure stage.
func (d *Daemon) RetryFailed(ctx context.Context, stage records.FailureStage, plaqueIDs ...string) (int, error) {
	count, err := d.store.RetryFailed(ctx, stage, plaqueIDs...)
	if err != nil {
		return 0, err
	}
	d.logger.Info("failed plaques reset",
		logging.String(logging.FieldEventType, "retry_failed"),
		logging.String("failure_stage", string(stage)),
		logging.Int("count", count),
	)
	return count, nil
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.Publish(ctx, notifications.EventTest, nil); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		Workflow:     d.workflow.Status(ctx),
		DatabasePath: d.cfg.DatabasePath(),
		LockFilePath: d.lockPath,
	}
	if !status.Running {
		status.LockedByPeer = d.lockedByPeer()
	}
	return status
}

func (d *Daemon) lockedByPeer() bool {
	other := flock.New(d.lockPath)
	ok, err := other.TryLock()
	if err != nil {
		return false
	}
	if !ok {
		return true
	}
	_ = other.Unlock()
	return false
}

// Close releases the lock and the record store.
func (d *Daemon) Close() error {
	d.release()
	return d.store.Close()
}
