package store

import (
	"context"
	"time"
)

// ScanAttempt is one hardware read event. Rows are append-only: they are
// never rewritten to reflect later decisions.
type ScanAttempt struct {
	ID        int64
	CardID    string
	Granted   bool
	Username  string // empty when the card resolved to no known user
	Reason    string
	ScannedAt time.Time
}

// AttemptStore persists the scan attempt log.
type AttemptStore interface {
	// RecordAttempt appends one row. Callers on the access path treat a
	// failure here as log-and-continue; the decision already made stands.
	RecordAttempt(ctx context.Context, rec ScanAttempt) error

	// RecentDenied returns up to n denied attempts, newest first. Ordering
	// is scan timestamp descending, insertion id descending on ties.
	RecentDenied(ctx context.Context, n int) ([]ScanAttempt, error)

	// LastGrantedPerUser returns, for every username that ever had a granted
	// attempt, the timestamp of the most recent one.
	LastGrantedPerUser(ctx context.Context) (map[string]time.Time, error)

	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
