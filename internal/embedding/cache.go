// File path: internal/embedding/cache.go
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/marginalia-dev/redline/internal/common/telemetry"
)

// CachingProvider memoizes vectors by provider name and content hash in
// front of another provider. Duplicate texts never re-embed. Keys carry the
// backend name so a runtime fallback to a different backend never serves a
// vector from the previous backend's space. The cache holds a fixed number
// of entries and evicts the oldest quarter in one batch when full.
type CachingProvider struct {
	inner    Provider
	capacity int

	mu      sync.Mutex
	entries map[string][]float32
	order   []string
}

// NewCachingProvider wraps the provider with a content-hash cache.
func NewCachingProvider(inner Provider, capacity int) *CachingProvider {
	if capacity <= 0 {
		capacity = DefaultConfig().CacheCapacity
	}
	return &CachingProvider{
		inner:    inner,
		capacity: capacity,
		entries:  make(map[string][]float32, capacity),
	}
}

func (c *CachingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *CachingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	seen := make(map[string]int)

	c.mu.Lock()
	for i, text := range texts {
		key := c.key(text)
		if cached, ok := c.entries[key]; ok {
			vectors[i] = cloneVector(cached)
			continue
		}
		// Deduplicate within the batch too.
		if _, dup := seen[key]; dup {
			missingIdx = append(missingIdx, i)
			continue
		}
		seen[key] = i
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	c.mu.Unlock()

	hits := len(texts) - len(missingIdx)
	telemetry.RecordEmbedding(len(texts), hits)
	if len(missingIdx) == 0 {
		return vectors, nil
	}

	fresh, err := c.inner.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	// The backend may have fallen over mid-call; key the fresh vectors by
	// the backend that actually produced them.
	byKey := make(map[string][]float32, len(fresh))
	for i, text := range missing {
		if i < len(fresh) {
			byKey[c.key(text)] = fresh[i]
		}
	}

	c.mu.Lock()
	for key, vector := range byKey {
		c.store(key, vector)
	}
	for _, i := range missingIdx {
		if vec, ok := byKey[c.key(texts[i])]; ok {
			vectors[i] = cloneVector(vec)
		}
	}
	c.mu.Unlock()

	for i := range vectors {
		if vectors[i] == nil {
			// Should not happen; guard against a backend returning short.
			return nil, ErrUnavailable
		}
	}
	return vectors, nil
}

// store assumes the caller holds the mutex.
func (c *CachingProvider) store(key string, vector []float32) {
	if _, exists := c.entries[key]; exists {
		return
	}
	if len(c.entries) >= c.capacity {
		evict := c.capacity / 4
		if evict < 1 {
			evict = 1
		}
		for _, old := range c.order[:evict] {
			delete(c.entries, old)
		}
		c.order = append([]string(nil), c.order[evict:]...)
	}
	c.entries[key] = cloneVector(vector)
	c.order = append(c.order, key)
}

// Len reports the number of cached vectors.
func (c *CachingProvider) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *CachingProvider) Dimension() int {
	return c.inner.Dimension()
}

func (c *CachingProvider) Name() string {
	return c.inner.Name()
}

func (c *CachingProvider) Ready(ctx context.Context) bool {
	return c.inner.Ready(ctx)
}

// key scopes the content hash to the backend currently serving embeds so
// vectors from different embedding spaces never share a cache slot.
func (c *CachingProvider) key(text string) string {
	return contentHash(c.inner.Name() + "\x00" + text)
}

func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func cloneVector(vector []float32) []float32 {
	out := make([]float32, len(vector))
	copy(out, vector)
	return out
}

var _ Provider = (*CachingProvider)(nil)
