package game

import (
	"context"
	"sync"
)

// MemoryStore is the in-memory SessionStore. Concurrency-safe via
// RWMutex; state is lost on process restart, which is fine for
// short-lived sessions.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	byOwner  map[string]string // identity → active session id
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		byOwner:  make(map[string]string),
	}
}

func (m *MemoryStore) Create(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.byOwner[s.Owner]; ok {
		return &ActiveSessionError{SessionID: existing}
	}
	m.sessions[s.ID] = s.Clone()
	m.byOwner[s.Owner] = s.ID
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

func (m *MemoryStore) Update(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[s.ID]; !ok {
		return ErrNotFound
	}
	m.sessions[s.ID] = s.Clone()
	return nil
}

func (m *MemoryStore) Remove(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil
	}
	delete(m.sessions, id)
	if m.byOwner[s.Owner] == id {
		delete(m.byOwner, s.Owner)
	}
	return nil
}

func (m *MemoryStore) ActiveSession(ctx context.Context, identity string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.byOwner[identity], nil
}
