// File path: internal/cache/cache.go
package cache

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrMiss reports a key with no live entry. Backend failures return other
// errors; callers treat any error as a miss.
var ErrMiss = errors.New("cache: miss")

// Cache stores serialized suggestions by fingerprint. Values are opaque
// bytes so backends need no knowledge of what they hold.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// Memory is the in-process backend: a fixed-capacity map evicting the
// oldest quarter in one batch when full. Entries also expire by TTL.
type Memory struct {
	capacity int

	mu      sync.Mutex
	entries map[string]memoryEntry
	order   []string
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

const defaultCapacity = 1024

func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Memory{
		capacity: capacity,
		entries:  make(map[string]memoryEntry, capacity),
	}
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[key]
	if !ok {
		return nil, ErrMiss
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		delete(m.entries, key)
		return nil, ErrMiss
	}
	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, nil
}

func (m *Memory) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	stored := make([]byte, len(value))
	copy(stored, value)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.entries[key]; !exists {
		if len(m.entries) >= m.capacity {
			evict := m.capacity / 4
			if evict < 1 {
				evict = 1
			}
			for _, old := range m.order[:evict] {
				delete(m.entries, old)
			}
			m.order = append([]string(nil), m.order[evict:]...)
		}
		m.order = append(m.order, key)
	}
	m.entries[key] = memoryEntry{value: stored, expiresAt: expiresAt}
	return nil
}

// Len reports the number of live entries without purging expired ones.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Memory) Close() error {
	return nil
}

var _ Cache = (*Memory)(nil)
