package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SeedDev inserts a couple of starter users so a dev instance has something
// to list and enroll against. Safe to run repeatedly.
func SeedDev(ctx context.Context, db *sql.DB) error {
	now := time.Now().UTC().UnixMilli()

	users := []struct {
		uid    string
		name   string
		access int
	}{
		{"jdoe", "Jane Doe", 1},
		{"bvisser", "Bram Visser", 0},
	}

	for _, u := range users {
		if _, err := db.ExecContext(ctx, `
INSERT INTO users(uid, name, access, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(uid) DO NOTHING;`,
			u.uid, u.name, u.access, now, now); err != nil {
			return fmt.Errorf("seed user %s: %w", u.uid, err)
		}
	}

	return nil
}
