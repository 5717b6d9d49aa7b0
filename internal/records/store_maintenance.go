package records

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Stats returns record counts keyed by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM match_records GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int, len(allStatuses))
	for rows.Next() {
		var (
			status Status
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// FailureStats returns failed record counts keyed by failure stage. A
// positive batchID restricts the counts to that batch.
func (s *Store) FailureStats(ctx context.Context, batchID int64) (map[FailureStage]int, error) {
	query := `SELECT failure_stage, COUNT(1) FROM match_records WHERE status = ?`
	args := []any{StatusFailed}
	if batchID > 0 {
		query += ` AND batch_id = ?`
		args = append(args, batchID)
	}
	query += ` GROUP BY failure_stage`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failure stats: %w", err)
	}
	defer rows.Close()

	counts := make(map[FailureStage]int)
	for rows.Next() {
		var (
			stage FailureStage
			count int
		)
		if err := rows.Scan(&stage, &count); err != nil {
			return nil, fmt.Errorf("scan failure stats: %w", err)
		}
		counts[stage] = count
	}
	return counts, rows.Err()
}

// CheckHealth reports schema version, integrity and record count.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{DBPath: s.path}
	if _, err := os.Stat(s.path); err == nil {
		health.DatabaseExists = true
	} else if !errors.Is(err, os.ErrNotExist) {
		health.Error = err.Error()
		return health, nil
	}

	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&health.SchemaVersion); err != nil {
		health.Error = fmt.Sprintf("read schema version: %v", err)
		return health, nil
	}

	var integrity string
	if err := s.db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&integrity); err != nil {
		health.Error = fmt.Sprintf("integrity check: %v", err)
		return health, nil
	}
	health.IntegrityCheck = strings.EqualFold(integrity, "ok")
	if !health.IntegrityCheck {
		health.Error = integrity
	}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM match_records").Scan(&health.TotalRecords); err != nil {
		return health, fmt.Errorf("count records: %w", err)
	}
	return health, nil
}
