package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const batchSelect = `SELECT b.id, b.capacity, b.created_at, COUNT(r.plaque_id)
    FROM batches b LEFT JOIN match_records r ON r.batch_id = b.id`

func scanBatch(scanner interface{ Scan(dest ...any) error }) (Batch, error) {
	var (
		batch      Batch
		createdRaw string
	)
	if err := scanner.Scan(&batch.ID, &batch.Capacity, &createdRaw, &batch.Size); err != nil {
		return Batch{}, err
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		batch.CreatedAt = created
	}
	return batch, nil
}

// ActiveBatch returns the lowest-ID batch that still holds a non-terminal
// record, or nil when every batch is finished.
func (s *Store) ActiveBatch(ctx context.Context) (*Batch, error) {
	batches, err := s.BatchesWithWork(ctx)
	if err != nil {
		return nil, err
	}
	if len(batches) == 0 {
		return nil, nil
	}
	return &batches[0], nil
}

// BatchesWithWork returns every batch holding a non-terminal record, in ID order.
func (s *Store) BatchesWithWork(ctx context.Context) ([]Batch, error) {
	rows, err := s.db.QueryContext(ctx, batchSelect+`
        WHERE b.id IN (SELECT DISTINCT batch_id FROM match_records WHERE status IN (?, ?))
        GROUP BY b.id ORDER BY b.id`,
		StatusPending, StatusSearched,
	)
	if err != nil {
		return nil, fmt.Errorf("list active batches: %w", err)
	}
	defer rows.Close()

	var out []Batch
	for rows.Next() {
		batch, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		out = append(out, batch)
	}
	return out, rows.Err()
}

// GetBatch returns a batch by ID, or nil when absent.
func (s *Store) GetBatch(ctx context.Context, id int64) (*Batch, error) {
	row := s.db.QueryRowContext(ctx, batchSelect+` WHERE b.id = ? GROUP BY b.id`, id)
	batch, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return &batch, nil
}

// Batches returns every batch with per-status counts, in ID order.
func (s *Store) Batches(ctx context.Context) ([]BatchSummary, error) {
	rows, err := s.db.QueryContext(ctx, batchSelect+` GROUP BY b.id ORDER BY b.id`)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	var summaries []BatchSummary
	index := make(map[int64]int)
	for rows.Next() {
		batch, err := scanBatch(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		index[batch.ID] = len(summaries)
		summaries = append(summaries, BatchSummary{Batch: batch, Counts: make(map[Status]int)})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	countRows, err := s.db.QueryContext(ctx,
		`SELECT batch_id, status, COUNT(1) FROM match_records GROUP BY batch_id, status`)
	if err != nil {
		return nil, fmt.Errorf("batch counts: %w", err)
	}
	defer countRows.Close()
	for countRows.Next() {
		var (
			batchID int64
			status  Status
			count   int
		)
		if err := countRows.Scan(&batchID, &status, &count); err != nil {
			return nil, fmt.Errorf("scan batch counts: %w", err)
		}
		if pos, ok := index[batchID]; ok {
			summaries[pos].Counts[status] = count
		}
	}
	return summaries, countRows.Err()
}
