package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ErrRecordNotFound is returned when an update targets an unknown plaque.
var ErrRecordNotFound = errors.New("record not found")

// Ingest records a newly discovered plaque as pending and assigns it to the
// newest batch with room, opening a new batch of the given capacity when the
// newest one is full. Re-ingesting a known plaque returns the existing record
// unchanged with created=false.
func (s *Store) Ingest(ctx context.Context, plaqueID, imagePath string, capacity int) (*Record, bool, error) {
	plaqueID = strings.TrimSpace(plaqueID)
	if plaqueID == "" {
		return nil, false, fmt.Errorf("%w: plaque_id is required", ErrInvalidRecord)
	}
	if capacity <= 0 {
		return nil, false, fmt.Errorf("ingest %s: batch capacity must be positive", plaqueID)
	}

	created := false
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		created = false
		var exists int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM match_records WHERE plaque_id = ?`, plaqueID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("check existing record: %w", err)
		}
		if exists > 0 {
			return nil
		}

		batchID, position, err := s.reserveSlot(ctx, tx, capacity)
		if err != nil {
			return err
		}
		now := s.timestamp()
		res, err := tx.ExecContext(ctx,
			`INSERT INTO match_records (
                plaque_id, image_path, batch_id, position, status, attempts, created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, 0, ?, ?)
            ON CONFLICT(plaque_id) DO NOTHING`,
			plaqueID, imagePath, batchID, position, StatusPending, now, now,
		)
		if err != nil {
			return fmt.Errorf("insert record: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("insert record: %w", err)
		}
		created = affected > 0
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("ingest %s: %w", plaqueID, err)
	}

	record, err := s.Get(ctx, plaqueID)
	if err != nil {
		return nil, false, err
	}
	return record, created, nil
}

// reserveSlot returns the batch and position for the next record.
func (s *Store) reserveSlot(ctx context.Context, tx *sql.Tx, capacity int) (int64, int, error) {
	var (
		batchID       int64
		batchCapacity int
		size          int
	)
	err := tx.QueryRowContext(ctx,
		`SELECT b.id, b.capacity, COUNT(r.plaque_id)
         FROM batches b LEFT JOIN match_records r ON r.batch_id = b.id
         GROUP BY b.id ORDER BY b.id DESC LIMIT 1`,
	).Scan(&batchID, &batchCapacity, &size)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return 0, 0, fmt.Errorf("load newest batch: %w", err)
	case size < batchCapacity:
		return batchID, size, nil
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO batches (capacity, created_at) VALUES (?, ?)`,
		capacity, s.timestamp(),
	)
	if err != nil {
		return 0, 0, fmt.Errorf("open batch: %w", err)
	}
	batchID, err = res.LastInsertId()
	if err != nil {
		return 0, 0, fmt.Errorf("open batch: %w", err)
	}
	return batchID, 0, nil
}

// Get fetches a record by plaque identifier. It returns nil, nil when absent.
func (s *Store) Get(ctx context.Context, plaqueID string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM match_records WHERE plaque_id = ?`, plaqueID)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return record, nil
}

// Update validates and persists a complete record in a single statement.
// Batch assignment and position are immutable and never written.
func (s *Store) Update(ctx context.Context, record *Record) error {
	if err := record.Validate(); err != nil {
		return err
	}
	candidates, err := encodeCandidates(record.Candidates)
	if err != nil {
		return fmt.Errorf("encode candidates: %w", err)
	}
	var title, artist any
	if record.Query != nil {
		title = record.Query.Title
		artist = nullableString(record.Query.Artist)
	}
	record.UpdatedAt = s.now().UTC()

	res, err := s.execWithRetry(ctx,
		`UPDATE match_records
         SET image_path = ?, status = ?, query_title = ?, query_artist = ?, candidates_json = ?,
             museum = ?, downloaded_image_path = ?, source_url = ?, image_url = ?,
             failure_stage = ?, failure_reason = ?, ocr_text = ?, ocr_confidence = ?,
             language = ?, attempts = ?, transient_failures = ?, updated_at = ?
         WHERE plaque_id = ?`,
		record.ImagePath,
		record.Status,
		title,
		artist,
		candidates,
		nullableString(record.Museum),
		nullableString(record.DownloadedImagePath),
		nullableString(record.SourceURL),
		nullableString(record.ImageURL),
		nullableString(string(record.FailureStage)),
		nullableString(record.FailureReason),
		nullableString(record.OCRText),
		record.OCRConfidence,
		nullableString(record.Language),
		record.Attempts,
		record.TransientFailures,
		formatTime(record.UpdatedAt),
		record.PlaqueID,
	)
	if err != nil {
		return fmt.Errorf("update record %s: %w", record.PlaqueID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update record %s: %w", record.PlaqueID, err)
	}
	if affected == 0 {
		return fmt.Errorf("update record %s: %w", record.PlaqueID, ErrRecordNotFound)
	}
	return nil
}

// List returns records matching filter in batch/position order.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]*Record, error) {
	var (
		clauses []string
		args    []any
	)
	if len(filter.Statuses) > 0 {
		clauses = append(clauses, "status IN ("+makePlaceholders(len(filter.Statuses))+")")
		for _, status := range filter.Statuses {
			args = append(args, status)
		}
	}
	if filter.FailureStage != "" {
		clauses = append(clauses, "failure_stage = ?")
		args = append(args, filter.FailureStage)
	}
	if filter.BatchID > 0 {
		clauses = append(clauses, "batch_id = ?")
		args = append(args, filter.BatchID)
	}
	query := `SELECT ` + recordColumns + ` FROM match_records`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY batch_id, position"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	return s.queryRecords(ctx, query, args...)
}

// NonTerminal returns the pending and searched records of a batch in position order.
func (s *Store) NonTerminal(ctx context.Context, batchID int64) ([]*Record, error) {
	return s.List(ctx, ListFilter{
		Statuses: []Status{StatusPending, StatusSearched},
		BatchID:  batchID,
	})
}

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, record)
	}
	return out, rows.Err()
}
