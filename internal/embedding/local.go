// File path: internal/embedding/local.go
package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

func init() {
	Register("local", func(cfg Config) (Provider, error) {
		return NewLocalProvider(cfg.LocalDimension), nil
	})
}

// LocalProvider produces deterministic feature-hashed vectors with no
// external dependency. It backs offline operation and tests, and serves as
// the terminal fallback in the provider chain: texts sharing vocabulary map
// to nearby vectors.
type LocalProvider struct {
	dimension int
}

// NewLocalProvider constructs a local provider with the given vector width.
func NewLocalProvider(dimension int) *LocalProvider {
	if dimension <= 0 {
		dimension = 256
	}
	return &LocalProvider{dimension: dimension}
}

func (l *LocalProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.vectorize(text), nil
}

func (l *LocalProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vectors[i] = l.vectorize(text)
	}
	return vectors, nil
}

func (l *LocalProvider) Dimension() int {
	return l.dimension
}

func (l *LocalProvider) Name() string {
	return "local"
}

func (l *LocalProvider) Ready(context.Context) bool {
	return true
}

// vectorize folds token and token-bigram hashes into a fixed-width vector
// and L2-normalizes, so cosine similarity is a meaningful signal.
func (l *LocalProvider) vectorize(text string) []float32 {
	vector := make([]float32, l.dimension)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for i, token := range tokens {
		vector[l.slot(token)] += 1
		if i > 0 {
			vector[l.slot(tokens[i-1]+" "+token)] += 0.5
		}
	}
	var norm float64
	for _, value := range vector {
		norm += float64(value) * float64(value)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vector {
			vector[i] *= scale
		}
	}
	return vector
}

func (l *LocalProvider) slot(token string) int {
	h := fnv.New32a()
	h.Write([]byte(token))
	return int(h.Sum32() % uint32(l.dimension))
}

var _ Provider = (*LocalProvider)(nil)
