package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/avanserv/deurapi/internal/deur/store"
)

// AttemptStore is an in-memory append-only scan log for tests and dev.
type AttemptStore struct {
	mu       sync.Mutex
	nextID   int64
	attempts []store.ScanAttempt
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{nextID: 1}
}

func (s *AttemptStore) RecordAttempt(_ context.Context, rec store.ScanAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ScannedAt.IsZero() {
		rec.ScannedAt = time.Now().UTC()
	}
	rec.ID = s.nextID
	s.nextID++
	s.attempts = append(s.attempts, rec)
	return nil
}

func (s *AttemptStore) RecentDenied(_ context.Context, n int) ([]store.ScanAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var denied []store.ScanAttempt
	for _, a := range s.attempts {
		if !a.Granted {
			denied = append(denied, a)
		}
	}
	// Newest first; insertion id breaks timestamp ties.
	sort.Slice(denied, func(i, j int) bool {
		if !denied[i].ScannedAt.Equal(denied[j].ScannedAt) {
			return denied[i].ScannedAt.After(denied[j].ScannedAt)
		}
		return denied[i].ID > denied[j].ID
	})
	if len(denied) > n {
		denied = denied[:n]
	}
	return denied, nil
}

func (s *AttemptStore) LastGrantedPerUser(_ context.Context) (map[string]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]time.Time)
	for _, a := range s.attempts {
		if !a.Granted || a.Username == "" {
			continue
		}
		if last, ok := out[a.Username]; !ok || a.ScannedAt.After(last) {
			out[a.Username] = a.ScannedAt
		}
	}
	return out, nil
}

func (s *AttemptStore) PruneOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.attempts[:0]
	var deleted int64
	for _, a := range s.attempts {
		if a.ScannedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, a)
	}
	s.attempts = kept
	return deleted, nil
}

// Attempts returns a copy of all recorded attempts. Test-only helper.
func (s *AttemptStore) Attempts() []store.ScanAttempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.ScanAttempt, len(s.attempts))
	copy(out, s.attempts)
	return out
}
