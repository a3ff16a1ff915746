package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/DoyleJ11/liftmeet-backend/internal/engine"
)

type stored struct {
	version int
	state   engine.State
}

// MemoryStore keeps states in process. Used when no database is configured and in tests.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]stored
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]stored)}
}

func (m *MemoryStore) SaveSession(_ context.Context, version int, s engine.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.sessions[s.SessionID]; ok && cur.version >= version && version > 0 {
		return nil
	}
	m.sessions[s.SessionID] = stored{version: version, state: s.Clone()}
	return nil
}

func (m *MemoryStore) LoadSession(_ context.Context, id string) (engine.State, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cur, ok := m.sessions[id]
	if !ok {
		return engine.State{}, 0, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return cur.state.Clone(), cur.version, nil
}

var _ Store = (*MemoryStore)(nil)
