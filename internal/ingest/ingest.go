package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"plaques2gallery/internal/logging"
	"plaques2gallery/internal/records"
)

// Report summarizes one ingest pass.
type Report struct {
	Discovered int
	Added      int
	Existing   int
	Skipped    int
	Batches    []int64
}

// Ingester records discovered plaques as pending and assigns their batches.
type Ingester struct {
	store     *records.Store
	batchSize int
	logger    *slog.Logger
}

// NewIngester constructs an Ingester that fills batches up to batchSize.
func NewIngester(store *records.Store, batchSize int, logger *slog.Logger) *Ingester {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Ingester{
		store:     store,
		batchSize: batchSize,
		logger:    logging.NewComponentLogger(logger, "ingest"),
	}
}

// Add records images in order. Already known plaques are left untouched.
func (i *Ingester) Add(ctx context.Context, images []PlaqueImage) (Report, error) {
	report := Report{Discovered: len(images)}
	seenBatch := make(map[int64]struct{})
	for _, image := range images {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		record, created, err := i.store.Ingest(ctx, image.ID, image.Path, i.batchSize)
		if err != nil {
			return report, fmt.Errorf("ingest %s: %w", image.ID, err)
		}
		if !created {
			report.Existing++
			continue
		}
		report.Added++
		if _, ok := seenBatch[record.BatchID]; !ok {
			seenBatch[record.BatchID] = struct{}{}
			report.Batches = append(report.Batches, record.BatchID)
		}
		i.logger.Debug("plaque ingested",
			logging.Plaque(image.ID),
			logging.Batch(record.BatchID),
			logging.Int("position", record.Position),
		)
	}
	return report, nil
}

// Directory scans root and records every new plaque.
func (i *Ingester) Directory(ctx context.Context, root string) (Report, error) {
	scan, err := Scan(root)
	if err != nil {
		return Report{}, err
	}
	for _, path := range scan.Skipped {
		i.logger.Warn("unsupported plaque image skipped",
			logging.String("path", path),
			logging.String(logging.FieldEventType, "plaque_skipped"),
			logging.String(logging.FieldErrorHint, "convert HEIC photos to JPEG before ingesting"),
		)
	}
	report, err := i.Add(ctx, scan.Images)
	report.Skipped = len(scan.Skipped)
	if err != nil {
		return report, err
	}
	i.logger.Info("ingest complete",
		logging.String(logging.FieldEventType, "ingest_complete"),
		logging.Int("discovered", report.Discovered),
		logging.Int("added", report.Added),
		logging.Int("existing", report.Existing),
		logging.Int("skipped", report.Skipped),
	)
	return report, nil
}
