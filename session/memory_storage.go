package session

import (
	"context"
	"sync"
)

// MemoryStorage is a Storage that lives only as long as the process. The zero
// value is ready to use.
type MemoryStorage struct {
	mu      sync.Mutex
	entries map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (m *MemoryStorage) Load(context.Context) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return SnapshotFromEntries(m.entries)
}

func (m *MemoryStorage) Save(_ context.Context, snap Snapshot) error {
	entries, err := snap.Entries()
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = entries
	return nil
}

func (m *MemoryStorage) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
	return nil
}

// Entries returns a copy of the raw keys currently stored.
func (m *MemoryStorage) Entries() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := make(map[string]string, len(m.entries))
	for k, v := range m.entries {
		entries[k] = v
	}
	return entries
}

// Put writes a single raw key. It exists so that storage can be seeded with
// arbitrary, possibly inconsistent, content.
func (m *MemoryStorage) Put(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = map[string]string{}
	}
	m.entries[key] = value
}
