package repository

import (
	"context"
	"sort"
	"sync"

	"telefunken-server/internal/model"
)

// MemorySessionStore keeps sessions in process. It follows the same
// version rules as SessionRepository and hands out deep copies only.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*model.GameSession
}

// NewMemorySessionStore creates an empty in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]*model.GameSession)}
}

// Load returns a copy of the stored session.
func (m *MemorySessionStore) Load(_ context.Context, sessionID string) (*model.GameSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s.Clone(), nil
}

// Store writes a copy of s.
func (m *MemorySessionStore) Store(_ context.Context, s *model.GameSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, exists := m.sessions[s.SessionID]
	switch {
	case s.Version <= 1 && exists:
		return ErrSessionExists
	case s.Version > 1 && !exists:
		return ErrSessionNotFound
	case s.Version > 1 && current.Version != s.Version-1:
		return ErrVersionConflict
	}
	m.sessions[s.SessionID] = s.Clone()
	return nil
}

// Patch applies patch to the stored session if it is still at version.
func (m *MemorySessionStore) Patch(_ context.Context, sessionID string, version int64, patch model.SessionPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	if s.Version != version {
		return ErrVersionConflict
	}
	next := s.Clone()
	patch.Apply(next)
	m.sessions[sessionID] = next
	return nil
}

// FindByCode returns the most recent session with the given join code.
func (m *MemorySessionStore) FindByCode(_ context.Context, code string) (*model.GameSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var found *model.GameSession
	for _, s := range m.sessions {
		if s.SessionCode != code {
			continue
		}
		if found == nil || s.CreatedAt.After(found.CreatedAt) {
			found = s
		}
	}
	if found == nil {
		return nil, ErrSessionNotFound
	}
	return found.Clone(), nil
}

// MemoryHistoryStore keeps player history in process.
type MemoryHistoryStore struct {
	mu      sync.RWMutex
	nextID  int64
	entries map[string][]model.PlayerHistory
}

// NewMemoryHistoryStore creates an empty in-memory history store.
func NewMemoryHistoryStore() *MemoryHistoryStore {
	return &MemoryHistoryStore{entries: make(map[string][]model.PlayerHistory)}
}

// Record appends the entries, skipping players already recorded for the
// same session.
func (m *MemoryHistoryStore) Record(_ context.Context, entries []model.PlayerHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range entries {
		if m.has(e.Username, e.SessionID) {
			continue
		}
		m.nextID++
		e.ID = m.nextID
		m.entries[e.Username] = append(m.entries[e.Username], e)
	}
	return nil
}

func (m *MemoryHistoryStore) has(username, sessionID string) bool {
	for _, e := range m.entries[username] {
		if e.SessionID == sessionID {
			return true
		}
	}
	return false
}

// ListByPlayer returns up to limit entries for username, newest first.
func (m *MemoryHistoryStore) ListByPlayer(_ context.Context, username string, limit int) ([]model.PlayerHistory, error) {
	m.mu.RLock()
	out := append([]model.PlayerHistory{}, m.entries[username]...)
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CompletedAt.Equal(out[j].CompletedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CompletedAt.After(out[j].CompletedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
