// Package prefs persists the small set of dashboard preferences that must survive
// restarts: the last data endpoint that worked, the last known branch per source
// repository, and the generation timestamp of the last rendered snapshot.
package prefs

import (
	"context"
	"errors"
	"sync"
)

// ErrUnavailable indicates that a storage backend could not be reached.
var ErrUnavailable = errors.New("preference store unavailable")

// Store is a string key-value store. A missing key is reported with ok=false
// and a nil error.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// MemoryStore keeps preferences in process memory. Used when no durable backend
// is configured or reachable, and in tests.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}
