// File path: internal/vector/memory.go
package vector

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/marginalia-dev/redline/internal/common/telemetry"
	"github.com/marginalia-dev/redline/internal/corpus"
)

// MemoryStore is an in-process Store for development and tests. Cosine
// similarity over brute-force scan; fine at corpus scale, not beyond.
type MemoryStore struct {
	mu         sync.RWMutex
	collection string
	dimension  int
	records    map[string]memoryRecord
}

type memoryRecord struct {
	vector  []float32
	payload map[string]interface{}
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore(collection string) *MemoryStore {
	if strings.TrimSpace(collection) == "" {
		collection = "redline_chunks"
	}
	return &MemoryStore{
		collection: collection,
		records:    make(map[string]memoryRecord),
	}
}

func (m *MemoryStore) Available() bool {
	return m != nil
}

func (m *MemoryStore) SetCollection(name string) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return
	}
	m.mu.Lock()
	if trimmed != m.collection {
		m.collection = trimmed
		m.records = make(map[string]memoryRecord)
		m.dimension = 0
	}
	m.mu.Unlock()
}

func (m *MemoryStore) Collection() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collection
}

func (m *MemoryStore) EnsureCollection(ctx context.Context, dim int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if dim <= 0 {
		return fmt.Errorf("invalid vector dimension %d", dim)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dimension != 0 && m.dimension != dim {
		return fmt.Errorf("%w: collection pinned to %d, got %d", ErrDimensionMismatch, m.dimension, dim)
	}
	m.dimension = dim
	return nil
}

func (m *MemoryStore) UpsertChunks(ctx context.Context, doc corpus.Document, chunks []corpus.Chunk, vectors [][]float32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	width, err := uniformWidth(vectors)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dimension != 0 && width != 0 && width != m.dimension {
		return fmt.Errorf("%w: collection pinned to %d, got %d", ErrDimensionMismatch, m.dimension, width)
	}
	for idx, chunk := range chunks {
		if idx >= len(vectors) || len(vectors[idx]) == 0 {
			continue
		}
		payload := metadataFromChunk(doc, chunk)
		payload["content"] = chunk.Text
		vec := make([]float32, len(vectors[idx]))
		copy(vec, vectors[idx])
		m.records[chunk.ID] = memoryRecord{vector: vec, payload: payload}
	}
	return nil
}

func (m *MemoryStore) Search(ctx context.Context, vector []float32, limit int, filter Filter) ([]SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 5
	}
	m.mu.RLock()
	if m.dimension != 0 && len(vector) != m.dimension {
		m.mu.RUnlock()
		return nil, fmt.Errorf("%w: collection pinned to %d, got %d", ErrDimensionMismatch, m.dimension, len(vector))
	}
	start := time.Now()
	results := make([]SearchResult, 0, len(m.records))
	for id, record := range m.records {
		if !matchesFilter(record.payload, filter) {
			continue
		}
		score := cosine(vector, record.vector)
		if score <= 0 {
			continue
		}
		payload := make(map[string]interface{}, len(record.payload))
		for k, v := range record.payload {
			payload[k] = v
		}
		results = append(results, SearchResult{ID: id, Score: score, Payload: payload})
	}
	m.mu.RUnlock()
	telemetry.RecordVectorSearch(time.Since(start))
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score == results[j].Score {
			return results[i].ID < results[j].ID
		}
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Len reports the number of stored vectors.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func (m *MemoryStore) Close() error {
	return nil
}

func matchesFilter(payload map[string]interface{}, filter Filter) bool {
	if filter.empty() {
		return true
	}
	if filter.Domain != "" && !payloadEquals(payload, "domain", filter.Domain) {
		return false
	}
	if filter.Version != "" && !payloadEquals(payload, "version", filter.Version) {
		return false
	}
	if filter.Structural != "" && !payloadEquals(payload, "structural_type", filter.Structural) {
		return false
	}
	return matchesRuleTag(payload, filter.RuleTag)
}

func payloadEquals(payload map[string]interface{}, key, want string) bool {
	value, ok := payload[key].(string)
	return ok && strings.EqualFold(value, want)
}

func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

var _ Store = (*MemoryStore)(nil)
