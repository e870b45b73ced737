package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/avanserv/deurapi/internal/db"
	"github.com/avanserv/deurapi/internal/deur/store"
)

// AttemptStore persists the append-only scan attempt log.
type AttemptStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewAttemptStore(db *sql.DB, writer *dbpkg.Worker) *AttemptStore {
	return &AttemptStore{db: db, writer: writer}
}

func (s *AttemptStore) RecordAttempt(ctx context.Context, rec store.ScanAttempt) error {
	if rec.ScannedAt.IsZero() {
		rec.ScannedAt = time.Now().UTC()
	}

	var granted int
	if rec.Granted {
		granted = 1
	}

	var username any
	if rec.Username != "" {
		username = rec.Username
	}
	var reason any
	if rec.Reason != "" {
		reason = rec.Reason
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO attempts(card_id, access_granted, username, reason, scanned_at_ms)
VALUES (?, ?, ?, ?, ?);`,
			rec.CardID, granted, username, reason, rec.ScannedAt.UTC().UnixMilli(),
		); err != nil {
			return fmt.Errorf("RecordAttempt insert: %w", err)
		}
		return nil
	})
}

func (s *AttemptStore) RecentDenied(ctx context.Context, n int) ([]store.ScanAttempt, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, card_id, username, reason, scanned_at_ms
FROM attempts
WHERE access_granted = 0
ORDER BY scanned_at_ms DESC, id DESC
LIMIT ?;`, n)
	if err != nil {
		return nil, fmt.Errorf("RecentDenied query: %w", err)
	}
	defer rows.Close()

	var out []store.ScanAttempt
	for rows.Next() {
		var rec store.ScanAttempt
		var username, reason sql.NullString
		var scannedMs int64
		if err := rows.Scan(&rec.ID, &rec.CardID, &username, &reason, &scannedMs); err != nil {
			return nil, fmt.Errorf("RecentDenied scan: %w", err)
		}
		rec.Username = username.String
		rec.Reason = reason.String
		rec.ScannedAt = time.UnixMilli(scannedMs).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *AttemptStore) LastGrantedPerUser(ctx context.Context) (map[string]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT username, MAX(scanned_at_ms)
FROM attempts
WHERE username IS NOT NULL AND access_granted = 1
GROUP BY username;`)
	if err != nil {
		return nil, fmt.Errorf("LastGrantedPerUser query: %w", err)
	}
	defer rows.Close()

	out := make(map[string]time.Time)
	for rows.Next() {
		var username string
		var lastMs int64
		if err := rows.Scan(&username, &lastMs); err != nil {
			return nil, fmt.Errorf("LastGrantedPerUser scan: %w", err)
		}
		out[username] = time.UnixMilli(lastMs).UTC()
	}
	return out, rows.Err()
}

func (s *AttemptStore) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM attempts WHERE scanned_at_ms < ?;`, cutoff.UTC().UnixMilli())
		if err != nil {
			return fmt.Errorf("PruneOlderThan delete: %w", err)
		}
		deleted, err = res.RowsAffected()
		if err != nil {
			return fmt.Errorf("PruneOlderThan rows affected: %w", err)
		}
		return nil
	})
	return deleted, err
}
