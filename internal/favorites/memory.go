package favorites

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps favorites and the migration flag in process memory. It
// backs deployments without a database and the tests.
type MemoryStore struct {
	mu       sync.RWMutex
	entries  map[string]int64
	migrated bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]int64)}
}

// All returns entries ordered by AddedAt, then ID.
func (m *MemoryStore) All(_ context.Context) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Entry, 0, len(m.entries))
	for id, at := range m.entries {
		out = append(out, Entry{ID: id, AddedAt: at})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AddedAt != out[j].AddedAt {
			return out[i].AddedAt < out[j].AddedAt
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryStore) Put(_ context.Context, id string, addedAt int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[id] = addedAt
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

func (m *MemoryStore) MigrationComplete(_ context.Context) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.migrated, nil
}

func (m *MemoryStore) SetMigrationComplete(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.migrated = true
	return nil
}
