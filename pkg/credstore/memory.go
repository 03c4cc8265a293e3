package credstore

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Store. Entries are dropped once unused for
// longer than the TTL.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

type memoryEntry struct {
	cred    Credential
	expires time.Time
}

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithMemoryTTL sets the idle TTL.
func WithMemoryTTL(ttl time.Duration) MemoryOption {
	return func(m *Memory) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMemory creates an empty in-memory store.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		entries: make(map[string]memoryEntry),
		ttl:     DefaultTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get implements Store.
func (m *Memory) Get(ctx context.Context, key string) (Credential, error) {
	if key == "" {
		return Credential{}, ErrEmptyKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return Credential{}, ErrNotFound
	}
	now := m.now()
	if !now.Before(e.expires) {
		delete(m.entries, key)
		return Credential{}, ErrNotFound
	}
	e.expires = now.Add(m.ttl)
	m.entries[key] = e
	return e.cred, nil
}

// Put implements Store.
func (m *Memory) Put(ctx context.Context, key string, cred Credential) error {
	if key == "" {
		return ErrEmptyKey
	}
	m.mu.Lock()
	m.entries[key] = memoryEntry{cred: cred, expires: m.now().Add(m.ttl)}
	m.mu.Unlock()
	return nil
}

// Delete implements Store.
func (m *Memory) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired or not.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Sweep removes expired entries and returns how many were removed.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	n := 0
	for k, e := range m.entries {
		if !now.Before(e.expires) {
			delete(m.entries, k)
			n++
		}
	}
	return n
}
