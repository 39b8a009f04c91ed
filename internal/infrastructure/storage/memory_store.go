package storage

import (
	"context"
	"sync"
	"time"

	"github.com/jbctechsolutions/tokencalc/internal/application/ports"
	"github.com/jbctechsolutions/tokencalc/internal/domain/session"
)

// Compile-time check that MemoryStore implements SessionStore.
var _ ports.SessionStore = (*MemoryStore)(nil)

type memoryEntry struct {
	state   *session.State
	updated time.Time
}

// MemoryStore keeps session state in process memory.
// States are copied on the way in and out so callers never share them.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]memoryEntry
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore creates an empty store. A ttl of zero disables expiry.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]memoryEntry),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Load returns a copy of the stored state. Expired sessions are removed.
func (s *MemoryStore) Load(_ context.Context, id string) (*session.State, error) {
	s.mu.RLock()
	entry, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok {
		return nil, notFound(id)
	}
	if !s.expired(entry.updated) {
		return entry.state.Clone(), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// A Save may have refreshed the session since the read lock was released.
	entry, ok = s.sessions[id]
	if ok && !s.expired(entry.updated) {
		return entry.state.Clone(), nil
	}
	delete(s.sessions, id)
	return nil, notFound(id)
}

// Save stores a copy of state under id.
func (s *MemoryStore) Save(_ context.Context, id string, state *session.State) error {
	s.mu.Lock()
	s.sessions[id] = memoryEntry{state: state.Clone(), updated: s.now()}
	s.mu.Unlock()
	return nil
}

// Delete removes a session. Unknown ids are ignored.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

// Cleanup removes all expired sessions and returns how many were removed.
func (s *MemoryStore) Cleanup(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, entry := range s.sessions {
		if s.expired(entry.updated) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// Count returns the current number of sessions in the store.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *MemoryStore) expired(updated time.Time) bool {
	return s.ttl > 0 && s.now().Sub(updated) > s.ttl
}
