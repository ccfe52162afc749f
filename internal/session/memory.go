package session

import (
	"context"
	"sync"
	"time"

	"github.com/DukeRupert/plumbline/internal/domain"
)

// MemoryStore keeps sessions in a process-local map.
//
// Sessions do not survive a restart and are invisible to other instances.
// Users whose session is lost simply verify again. Run a single instance
// with this store, or use RedisStore.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.SchedulerSession
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]domain.SchedulerSession)}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*domain.SchedulerSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	s.AvailableCustomerIDs = append([]int64(nil), s.AvailableCustomerIDs...)
	return &s, nil
}

func (m *MemoryStore) Set(_ context.Context, s *domain.SchedulerSession) error {
	cp := *s
	cp.AvailableCustomerIDs = append([]int64(nil), s.AvailableCustomerIDs...)
	m.mu.Lock()
	m.sessions[s.ID] = cp
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) SweepExpired(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if s.ExpiresAt.Before(now) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored sessions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
