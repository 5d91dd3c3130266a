package quiz

import (
	"context"
	"sync"
	"time"

	"vocab-api/pkg/logging"
)

// MemoryStore keeps quiz sessions in process memory.
// A restart or a second instance starts every user's cycle over; the
// client-echoed attempt map carries rotation position across that.
type MemoryStore struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore creates an in-memory session store. Sessions idle for
// longer than ttl are removed by Cleanup.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Load returns a copy of the stored session
func (m *MemoryStore) Load(_ context.Context, key string) (*Session, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	session, ok := m.sessions[key]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session.Clone(), nil
}

// Save stores a copy of session
func (m *MemoryStore) Save(_ context.Context, key string, session *Session) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	stored := session.Clone()
	stored.UpdatedAt = m.now()
	m.sessions[key] = stored
	return nil
}

// Delete removes a session
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	delete(m.sessions, key)
	return nil
}

// Cleanup drops idle sessions and returns how many were removed
func (m *MemoryStore) Cleanup() int {
	if m.ttl <= 0 {
		return 0
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	now := m.now()
	initialCount := len(m.sessions)
	for key, session := range m.sessions {
		if now.Sub(session.UpdatedAt) > m.ttl {
			delete(m.sessions, key)
		}
	}

	cleaned := initialCount - len(m.sessions)
	if cleaned > 0 {
		logging.Infof("Quiz session cleanup: removed %d idle sessions, remaining: %d", cleaned, len(m.sessions))
	}
	return cleaned
}

// GetStats returns store statistics
func (m *MemoryStore) GetStats() map[string]interface{} {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return map[string]interface{}{
		"total_sessions": len(m.sessions),
		"session_ttl":    m.ttl.String(),
	}
}
