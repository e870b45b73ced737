package service

import (
	"context"
	"fmt"
	"time"

	"github.com/avanserv/deurapi/internal/deur/store"
)

// Recency buckets for a user's last successful entry.
const (
	LastSeenWithinWeek  = "within_last_week"
	LastSeenWithinMonth = "within_last_month"
	LastSeenOlder       = "older_than_a_month"
	LastSeenNever       = "never"
)

// PresenceService summarizes when each user last opened the door. Bucket
// boundaries are wall-clock days in the door's own time zone, not elapsed
// durations.
type PresenceService struct {
	directory store.DirectoryStore
	attempts  store.AttemptStore
	loc       *time.Location
	now       func() time.Time
}

func NewPresenceService(directory store.DirectoryStore, attempts store.AttemptStore) (*PresenceService, error) {
	loc, err := time.LoadLocation("Europe/Amsterdam")
	if err != nil {
		return nil, fmt.Errorf("load presence time zone: %w", err)
	}
	return &PresenceService{directory: directory, attempts: attempts, loc: loc, now: time.Now}, nil
}

// NewPresenceServiceWithClock injects a clock for boundary tests.
func NewPresenceServiceWithClock(directory store.DirectoryStore, attempts store.AttemptStore, now func() time.Time) (*PresenceService, error) {
	s, err := NewPresenceService(directory, attempts)
	if err != nil {
		return nil, err
	}
	s.now = now
	return s, nil
}

// LastSeen maps every directory user to a recency bucket. Users with no
// granted attempt on record bucket as "never". Usernames that appear in the
// log but no longer in the directory are still reported.
func (s *PresenceService) LastSeen(ctx context.Context) (map[string]string, error) {
	users, err := s.directory.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	last, err := s.attempts.LastGrantedPerUser(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now().In(s.loc)
	weekAgo := now.AddDate(0, 0, -7)
	monthAgo := now.AddDate(0, 0, -30)

	out := make(map[string]string, len(users))
	for _, u := range users {
		out[u.UID] = LastSeenNever
	}
	for username, entry := range last {
		entry = entry.In(s.loc)
		switch {
		case entry.Before(monthAgo):
			out[username] = LastSeenOlder
		case entry.Before(weekAgo):
			out[username] = LastSeenWithinMonth
		default:
			out[username] = LastSeenWithinWeek
		}
	}
	return out, nil
}
