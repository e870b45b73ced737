package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/avanserv/deurapi/internal/deur/store"
)

// DirectoryStore is an in-memory directory for tests and dev environments.
// A single mutex serializes every mutation, which gives AttachPass the same
// check-then-write atomicity the SQLite store gets from its writer.
type DirectoryStore struct {
	mu    sync.RWMutex
	users map[string]store.UserRecord
}

func NewDirectoryStore(users ...store.UserRecord) *DirectoryStore {
	m := make(map[string]store.UserRecord, len(users))
	for _, u := range users {
		m[u.UID] = u
	}
	return &DirectoryStore{users: m}
}

func (s *DirectoryStore) FindUser(_ context.Context, uid string) (store.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[strings.TrimSpace(uid)]
	if !ok {
		return store.UserRecord{}, store.ErrUserNotFound
	}
	return u, nil
}

func (s *DirectoryStore) FindUserByPass(_ context.Context, serial string) (store.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.PassSerial != "" && u.PassSerial == serial {
			return u, nil
		}
	}
	return store.UserRecord{}, store.ErrUserNotFound
}

func (s *DirectoryStore) ListUsers(_ context.Context) ([]store.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.UserRecord, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out, nil
}

func (s *DirectoryStore) AttachPass(_ context.Context, uid, serial string) error {
	uid = strings.TrimSpace(uid)
	serial = strings.TrimSpace(serial)

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[uid]
	if !ok {
		return store.ErrUserNotFound
	}
	if u.PassSerial != "" {
		return store.ErrUserAlreadyHasPass
	}
	for _, other := range s.users {
		if other.PassSerial == serial {
			return store.ErrPassExists
		}
	}

	u.PassSerial = serial
	s.users[uid] = u
	return nil
}

func (s *DirectoryStore) DetachPass(_ context.Context, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[strings.TrimSpace(uid)]
	if !ok || u.PassSerial == "" {
		return store.ErrNoPass
	}
	u.PassSerial = ""
	s.users[u.UID] = u
	return nil
}

func (s *DirectoryStore) GrantAccess(_ context.Context, uid string) error {
	return s.setAccess(uid, true)
}

func (s *DirectoryStore) DenyAccess(_ context.Context, uid string) error {
	return s.setAccess(uid, false)
}

func (s *DirectoryStore) setAccess(uid string, access bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[strings.TrimSpace(uid)]
	if !ok {
		return store.ErrUserNotFound
	}
	u.Access = access
	s.users[u.UID] = u
	return nil
}
