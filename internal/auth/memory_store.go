package auth

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
)

// MemorySessionStore keeps session records in process. Used when no
// Redis is configured; sessions do not survive a restart.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
	now      func() time.Time
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]domain.Session),
		now:      time.Now,
	}
}

func (m *MemorySessionStore) SaveSession(_ context.Context, s domain.Session, ttl time.Duration) error {
	if exp := m.now().Add(ttl); s.ExpiresAt.IsZero() || exp.Before(s.ExpiresAt) {
		s.ExpiresAt = exp
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *MemorySessionStore) GetSession(_ context.Context, id string) (domain.Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return domain.Session{}, false, nil
	}
	if s.Expired(m.now()) {
		delete(m.sessions, id)
		return domain.Session{}, false, nil
	}
	return s, true, nil
}

func (m *MemorySessionStore) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Len returns the number of stored records, expired ones included.
func (m *MemorySessionStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// PurgeExpired drops expired records and returns how many went away.
func (m *MemorySessionStore) PurgeExpired(_ context.Context) (int, error) {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if s.Expired(now) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}
