package session

import (
	"context"
	"sync"
)

// Keys of the two persisted entries.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// Persister is the durable key-value copy of the session.
//
// It is the source of truth across process restarts. SetAll must be atomic:
// after it returns, either every entry was written or none was. That is
// what keeps a crash from leaving a token persisted without its user.
type Persister interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	SetAll(ctx context.Context, entries map[string]string) error
	Delete(ctx context.Context, keys ...string) error
}

// MemoryPersister keeps entries in a map. It is what tests use, and what
// the CLI falls back to when no session database is configured.
type MemoryPersister struct {
	mu      sync.Mutex
	entries map[string]string
}

// NewMemoryPersister returns an empty MemoryPersister.
func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{entries: make(map[string]string)}
}

// compile-time check that *MemoryPersister implements Persister
var _ Persister = (*MemoryPersister)(nil)

func (m *MemoryPersister) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key]
	return v, ok, nil
}

func (m *MemoryPersister) SetAll(_ context.Context, entries map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range entries {
		m.entries[k] = v
	}
	return nil
}

func (m *MemoryPersister) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}
