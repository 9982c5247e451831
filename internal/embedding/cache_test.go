// File path: internal/embedding/cache_test.go
package embedding

import (
	"context"
	"fmt"
	"testing"
)

type countingProvider struct {
	dim      int
	embedded int
}

func (c *countingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *countingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.embedded += len(texts)
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, c.dim)
		vec[0] = float32(len(text))
		vectors[i] = vec
	}
	return vectors, nil
}

func (c *countingProvider) Dimension() int             { return c.dim }
func (c *countingProvider) Name() string               { return "counting" }
func (c *countingProvider) Ready(context.Context) bool { return true }

func TestCachingProviderNoReEmbed(t *testing.T) {
	inner := &countingProvider{dim: 4}
	cache := NewCachingProvider(inner, 16)

	first, err := cache.Embed(context.Background(), "repeated text")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	second, err := cache.Embed(context.Background(), "repeated text")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if inner.embedded != 1 {
		t.Fatalf("inner embedded %d texts, want 1", inner.embedded)
	}
	if first[0] != second[0] {
		t.Fatalf("cached vector differs from original")
	}
}

func TestCachingProviderBatchDedup(t *testing.T) {
	inner := &countingProvider{dim: 4}
	cache := NewCachingProvider(inner, 16)

	vectors, err := cache.EmbedBatch(context.Background(), []string{"same", "same", "other"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if inner.embedded != 2 {
		t.Fatalf("inner embedded %d texts, want 2", inner.embedded)
	}
	if vectors[0][0] != vectors[1][0] {
		t.Fatalf("duplicate inputs produced different vectors")
	}
	if cache.Len() != 2 {
		t.Fatalf("cache holds %d entries, want 2", cache.Len())
	}
}

func TestCachingProviderEviction(t *testing.T) {
	inner := &countingProvider{dim: 2}
	cache := NewCachingProvider(inner, 8)

	for i := 0; i < 12; i++ {
		if _, err := cache.Embed(context.Background(), fmt.Sprintf("text-%d", i)); err != nil {
			t.Fatalf("Embed %d: %v", i, err)
		}
	}
	if cache.Len() > 8 {
		t.Fatalf("cache holds %d entries, capacity is 8", cache.Len())
	}
}

// switchingProvider imitates a fallback chain whose active backend, and
// with it the vector width, changes between calls.
type switchingProvider struct {
	name     string
	dim      int
	embedded int
}

func (s *switchingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (s *switchingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	s.embedded += len(texts)
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = make([]float32, s.dim)
	}
	return vectors, nil
}

func (s *switchingProvider) Dimension() int             { return s.dim }
func (s *switchingProvider) Name() string               { return s.name }
func (s *switchingProvider) Ready(context.Context) bool { return true }

func TestCachingProviderBackendChangeInvalidates(t *testing.T) {
	inner := &switchingProvider{name: "chain/openai", dim: 8}
	cache := NewCachingProvider(inner, 16)

	wide, err := cache.Embed(context.Background(), "shared text")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(wide) != 8 {
		t.Fatalf("vector width = %d, want 8", len(wide))
	}

	inner.name = "chain/local"
	inner.dim = 4
	narrow, err := cache.Embed(context.Background(), "shared text")
	if err != nil {
		t.Fatalf("Embed after fallback: %v", err)
	}
	if inner.embedded != 2 {
		t.Fatalf("inner embedded %d texts, want 2: stale vector served across backends", inner.embedded)
	}
	if len(narrow) != 4 {
		t.Fatalf("vector width = %d, want 4", len(narrow))
	}
}

func TestCachingProviderIsolatesCallers(t *testing.T) {
	inner := &countingProvider{dim: 2}
	cache := NewCachingProvider(inner, 8)

	vec, err := cache.Embed(context.Background(), "shared")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	vec[0] = 999

	again, err := cache.Embed(context.Background(), "shared")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if again[0] == 999 {
		t.Fatalf("caller mutation leaked into the cache")
	}
}
