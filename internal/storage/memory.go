// internal/storage/memory.go
package storage

import (
	"context"
	"sync"
)

// MemoryStore keeps items in process memory. Used by the memory driver and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	items  map[string]string
	writes map[string]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:  map[string]string{},
		writes: map[string]int{},
	}
}

func (m *MemoryStore) ReadItem(ctx context.Context, id string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.items[id]
	return data, ok, nil
}

func (m *MemoryStore) WriteItem(ctx context.Context, id, data string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[id] = data
	m.writes[id]++
	return nil
}

// Writes returns how many times id has been written.
func (m *MemoryStore) Writes(id string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes[id]
}

// TotalWrites returns the number of writes across all ids.
func (m *MemoryStore) TotalWrites() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0
	for _, n := range m.writes {
		total += n
	}
	return total
}
