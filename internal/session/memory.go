package session

import (
	"context"
	"maps"
	"sync"
	"time"
)

type memoryEntry struct {
	values    map[string]string
	expiresAt time.Time
}

// MemoryStore keeps sessions in process memory. Sessions are lost on
// restart and are not shared between instances.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]memoryEntry
	now      func() time.Time
}

// NewMemoryStore returns an empty store using the wall clock for expiry.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]memoryEntry), now: time.Now}
}

// Load returns a copy of the values for id. Expired entries are dropped
// on the way.
func (m *MemoryStore) Load(_ context.Context, id string) (map[string]string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[id]
	if !ok {
		return nil, false, nil
	}
	if !m.now().Before(e.expiresAt) {
		delete(m.sessions, id)
		return nil, false, nil
	}
	return maps.Clone(e.values), true, nil
}

// Save replaces the values for id; they expire ttl from now.
func (m *MemoryStore) Save(_ context.Context, id string, values map[string]string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[id] = memoryEntry{values: maps.Clone(values), expiresAt: m.now().Add(ttl)}
	return nil
}

// Delete removes id if present.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)
	return nil
}
