package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process memory.
// It is used for local development (SESSION_STORE=memory) and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	now      func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]Session),
		now:      time.Now,
	}
}

// Create stores a copy of s.
func (m *MemoryStore) Create(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.TokenHash] = *s
	return nil
}

// Get returns a copy of the live session for tokenHash.
func (m *MemoryStore) Get(_ context.Context, tokenHash string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[tokenHash]
	m.mu.RUnlock()

	if !ok || s.IsExpiredAt(m.now()) {
		return nil, ErrNotFound
	}
	return &s, nil
}

// Delete removes the session for tokenHash.
func (m *MemoryStore) Delete(_ context.Context, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, tokenHash)
	return nil
}

// DeleteExpired removes every expired session.
func (m *MemoryStore) DeleteExpired(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var n int64
	for hash, s := range m.sessions {
		if s.IsExpiredAt(now) {
			delete(m.sessions, hash)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored records, expired or not.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

var _ Store = (*MemoryStore)(nil)
