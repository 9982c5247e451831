// File path: internal/vector/store.go
package vector

import (
	"context"
	"errors"
	"fmt"

	"github.com/marginalia-dev/redline/internal/corpus"
)

// ErrDimensionMismatch reports an upsert or query whose vector width differs
// from the width the collection was pinned to.
var ErrDimensionMismatch = errors.New("vector: dimension mismatch")

// Store persists chunk vectors and serves nearest-neighbour queries. A store
// is pinned to one vector dimension at EnsureCollection time; vectors from
// different embedding backends are never mixed in one collection.
type Store interface {
	Available() bool
	SetCollection(name string)
	Collection() string
	EnsureCollection(ctx context.Context, dim int) error
	UpsertChunks(ctx context.Context, doc corpus.Document, chunks []corpus.Chunk, vectors [][]float32) error
	Search(ctx context.Context, vector []float32, limit int, filter Filter) ([]SearchResult, error)
	Close() error
}

// Filter narrows a search to chunks matching all present fields. Zero-value
// fields are ignored.
type Filter struct {
	Domain     string
	Version    string
	Structural string
	RuleTag    string
}

func (f Filter) empty() bool {
	return f.Domain == "" && f.Version == "" && f.Structural == "" && f.RuleTag == ""
}

// SearchResult is one scored neighbour. Score is a similarity in [0, 1]
// where higher is closer.
type SearchResult struct {
	ID      string
	Score   float32
	Payload map[string]interface{}
}

// Text returns the stored chunk text, if the payload carries it.
func (r SearchResult) Text() string {
	if r.Payload == nil {
		return ""
	}
	if text, ok := r.Payload["content"].(string); ok {
		return text
	}
	return ""
}

// NewStore builds the configured backend. Unknown backend names fall back
// to the in-memory store so a misconfigured deployment still serves.
func NewStore(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", "chromadb":
		return New(ctx, cfg)
	default:
		return NewMemoryStore(cfg.Collection), nil
	}
}

// VectorDimension reports the width of the first non-empty vector.
func VectorDimension(v [][]float32) int {
	for _, vec := range v {
		if len(vec) > 0 {
			return len(vec)
		}
	}
	return 0
}

// uniformWidth returns the shared width of the non-empty vectors in the
// batch. A batch mixing widths never reaches storage; a mismatched record
// would silently score zero on every search.
func uniformWidth(v [][]float32) (int, error) {
	width := 0
	for _, vec := range v {
		if len(vec) == 0 {
			continue
		}
		if width == 0 {
			width = len(vec)
			continue
		}
		if len(vec) != width {
			return 0, fmt.Errorf("%w: batch mixes widths %d and %d", ErrDimensionMismatch, width, len(vec))
		}
	}
	return width, nil
}
