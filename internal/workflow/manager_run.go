package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"plaques2gallery/internal/logging"
	"plaques2gallery/internal/records"
	"plaques2gallery/internal/services"
)

type runState struct {
	mu      sync.Mutex
	summary Summary
	stopped atomic.Bool
}

func (s *runState) addBatch(id int64) {
	s.mu.Lock()
	s.summary.Batches = append(s.summary.Batches, id)
	s.mu.Unlock()
}

func (s *runState) tally(outcome recordOutcome, record *records.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary.Processed++
	switch outcome {
	case outcomeTerminal:
		switch record.Status {
		case records.StatusResolved:
			s.summary.Resolved++
		case records.StatusFailed:
			s.summary.FailedByStage[record.FailureStage]++
		}
	case outcomeRetry:
		s.summary.Retried++
	case outcomeQuota:
		s.summary.QuotaExhausted = true
	}
}

func (s *runState) snapshot() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary.clone()
}

// Run processes the active batch, or every batch with work when
// workflow.drain_batches is set. It returns once the batch is finished, the
// search quota is exhausted or ctx is cancelled. Only store failures,
// configuration errors and cancellation are returned as errors.
func (m *Manager) Run(ctx context.Context) (Summary, error) {
	if len(m.stageList()) == 0 {
		return Summary{}, errors.New("workflow stages not configured")
	}
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return Summary{}, ErrAlreadyRunning
	}
	m.running = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
	}()

	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	state := &runState{summary: Summary{
		RunID:         runID,
		StartedAt:     m.now(),
		FailedByStage: make(map[records.FailureStage]int),
	}}
	logger := m.runLogger(ctx)

	batches, err := m.batchesToRun(ctx)
	if err != nil {
		return m.finish(ctx, state, services.Wrap(services.ErrStorage, "workflow", "load batches", "", err))
	}
	if len(batches) == 0 {
		logger.Info("no pending plaques", logging.String(logging.FieldEventType, "run_idle"))
		return m.finish(ctx, state, nil)
	}
	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.Int("batches", len(batches)),
		logging.Int("workers", m.workers()),
	)

	var runErr error
	for _, batch := range batches {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		if err := m.runBatch(ctx, batch, state); err != nil {
			runErr = err
			break
		}
		if state.stopped.Load() {
			break
		}
	}
	return m.finish(ctx, state, runErr)
}

func (m *Manager) batchesToRun(ctx context.Context) ([]records.Batch, error) {
	if m.drainBatches() {
		return m.store.BatchesWithWork(ctx)
	}
	batch, err := m.store.ActiveBatch(ctx)
	if err != nil || batch == nil {
		return nil, err
	}
	return []records.Batch{*batch}, nil
}

func (m *Manager) runBatch(ctx context.Context, batch records.Batch, state *runState) error {
	ctx = services.WithBatchID(ctx, batch.ID)
	base, closeLog := m.openBatchLog(batch.ID)
	defer closeLog()
	logger := logging.WithContext(ctx, base)

	pending, err := m.store.NonTerminal(ctx, batch.ID)
	if err != nil {
		return services.Wrap(services.ErrStorage, "workflow", "load batch", fmt.Sprintf("batch %d", batch.ID), err)
	}
	state.addBatch(batch.ID)
	if len(pending) == 0 {
		return nil
	}

	workers := m.workers()
	logger.Info("batch started",
		logging.String(logging.FieldEventType, "batch_start"),
		logging.Int("pending", len(pending)),
		logging.Int("size", batch.Size),
		logging.Int("workers", workers),
	)
	start := time.Now()
	sampler := logging.NewProgressSampler(progressBucketPc)
	var done, terminal atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, record := range pending {
		if state.stopped.Load() || gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if state.stopped.Load() {
				return nil
			}
			outcome, err := m.processRecord(gctx, base, record, &state.stopped)
			if err != nil {
				return err
			}
			if outcome == outcomeQuota {
				state.stopped.Store(true)
			}
			if record.Status.IsTerminal() {
				terminal.Add(1)
			}
			state.tally(outcome, record)
			if n := int(done.Add(1)); sampler.ShouldLog(n, len(pending)) {
				logger.Info("batch progress",
					logging.String(logging.FieldEventType, "batch_progress"),
					logging.Int("done", n),
					logging.Int("total", len(pending)),
				)
			}
			return nil
		})
	}
	err = g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	remaining := len(pending) - int(terminal.Load())
	attrs := []logging.Attr{
		logging.Int("processed", int(done.Load())),
		logging.Int("remaining", remaining),
		logging.Duration("batch_duration", time.Since(start)),
	}
	switch {
	case err != nil:
		logger.Debug("batch interrupted", logging.Args(append(attrs, logging.Error(err))...)...)
	case state.stopped.Load():
		logger.Info("batch stopped: search quota exhausted",
			logging.Args(append(attrs, logging.String(logging.FieldEventType, "batch_quota_stop"))...)...)
	default:
		logger.Info("batch finished",
			logging.Args(append(attrs, logging.String(logging.FieldEventType, "batch_complete"))...)...)
	}
	return err
}

// processRecord advances one record until it is terminal, left pending, or
// the batch stops. The record is owned by the calling goroutine.
func (m *Manager) processRecord(ctx context.Context, base *slog.Logger, record *records.Record, stopped *atomic.Bool) (recordOutcome, error) {
	unlock := m.locks.Lock(record.PlaqueID)
	defer unlock()
	ctx = services.WithPlaqueID(ctx, record.PlaqueID)
	if err := ctx.Err(); err != nil {
		return outcomeInterrupted, err
	}

	record.Attempts++
	if err := m.persist(ctx, record); err != nil {
		return outcomeInterrupted, err
	}

	for !record.Status.IsTerminal() {
		if err := ctx.Err(); err != nil {
			return outcomeInterrupted, err
		}
		if stopped.Load() {
			return outcomeInterrupted, nil
		}
		stg, ok := m.stageFor(record)
		if !ok {
			return outcomeInterrupted, services.Wrap(services.ErrConfiguration, "workflow", "route record",
				fmt.Sprintf("no stage configured for %s record %s", record.Status, record.PlaqueID), nil)
		}
		outcome, finished, err := m.executeStage(ctx, base, stg, record)
		if err != nil || finished {
			return outcome, err
		}
	}
	return outcomeTerminal, nil
}

// persist writes the record even when ctx is cancelled so a completed
// transition is never lost.
func (m *Manager) persist(ctx context.Context, record *records.Record) error {
	if err := m.store.Update(context.WithoutCancel(ctx), record); err != nil {
		return services.Wrap(services.ErrStorage, "workflow", "persist record", record.PlaqueID, err)
	}
	return nil
}
