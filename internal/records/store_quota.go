package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// QuotaTryAcquire atomically claims one unit in the window starting at
// windowStart. It reports false without changing usage when the window
// already holds limit units.
func (s *Store) QuotaTryAcquire(ctx context.Context, windowStart time.Time, limit int) (bool, error) {
	key := formatTime(windowStart)
	now := s.timestamp()
	acquired := false
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		acquired = false
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO quota_windows (window_start, used, quota_limit, updated_at)
             VALUES (?, 0, ?, ?) ON CONFLICT(window_start) DO NOTHING`,
			key, limit, now,
		); err != nil {
			return fmt.Errorf("open quota window: %w", err)
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE quota_windows SET used = used + 1, quota_limit = ?, updated_at = ?
             WHERE window_start = ? AND used < ?`,
			limit, now, key, limit,
		)
		if err != nil {
			return fmt.Errorf("acquire quota: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("acquire quota: %w", err)
		}
		acquired = affected == 1
		return nil
	})
	if err != nil {
		return false, err
	}
	return acquired, nil
}

// QuotaRelease refunds one unit in the window, never going below zero.
func (s *Store) QuotaRelease(ctx context.Context, windowStart time.Time) error {
	if _, err := s.execWithRetry(ctx,
		`UPDATE quota_windows SET used = used - 1, updated_at = ? WHERE window_start = ? AND used > 0`,
		s.timestamp(), formatTime(windowStart),
	); err != nil {
		return fmt.Errorf("release quota: %w", err)
	}
	return nil
}

// QuotaExhaust pins usage in the window to limit.
func (s *Store) QuotaExhaust(ctx context.Context, windowStart time.Time, limit int) error {
	now := s.timestamp()
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO quota_windows (window_start, used, quota_limit, updated_at) VALUES (?, ?, ?, ?)
         ON CONFLICT(window_start) DO UPDATE SET used = MAX(used, excluded.used),
             quota_limit = excluded.quota_limit, updated_at = excluded.updated_at`,
		formatTime(windowStart), limit, limit, now,
	); err != nil {
		return fmt.Errorf("exhaust quota: %w", err)
	}
	return nil
}

// QuotaUsage returns usage for the window; an unknown window has zero usage.
func (s *Store) QuotaUsage(ctx context.Context, windowStart time.Time, limit int) (QuotaWindow, error) {
	usage := QuotaWindow{WindowStart: windowStart, Limit: limit}
	err := s.db.QueryRowContext(ctx,
		`SELECT used FROM quota_windows WHERE window_start = ?`, formatTime(windowStart),
	).Scan(&usage.Used)
	if errors.Is(err, sql.ErrNoRows) {
		return usage, nil
	}
	if err != nil {
		return usage, fmt.Errorf("quota usage: %w", err)
	}
	return usage, nil
}

// QuotaHistory returns the most recent windows, newest first.
func (s *Store) QuotaHistory(ctx context.Context, limit int) ([]QuotaWindow, error) {
	if limit <= 0 {
		limit = 7
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT window_start, used, quota_limit FROM quota_windows ORDER BY window_start DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("quota history: %w", err)
	}
	defer rows.Close()

	var out []QuotaWindow
	for rows.Next() {
		var (
			startRaw string
			window   QuotaWindow
		)
		if err := rows.Scan(&startRaw, &window.Used, &window.Limit); err != nil {
			return nil, fmt.Errorf("scan quota window: %w", err)
		}
		if start, err := parseTimeString(startRaw); err == nil {
			window.WindowStart = start
		}
		out = append(out, window)
	}
	return out, rows.Err()
}
