// File path: internal/data/orchestrator/options.go
package orchestrator

import (
	"github.com/marginalia-dev/redline/internal/cache"
	"github.com/marginalia-dev/redline/internal/embedding"
	"github.com/marginalia-dev/redline/internal/feedback"
	"github.com/marginalia-dev/redline/internal/llm"
	"github.com/marginalia-dev/redline/internal/vector"
)

type Option func(*options)

type options struct {
	vector    vector.Store
	embedder  embedding.Provider
	generator llm.Provider
	cache     cache.Cache
	feedback  feedback.Store
}

// WithVectorStore injects a vector store implementation.
func WithVectorStore(store vector.Store) Option {
	return func(o *options) {
		o.vector = store
	}
}

// WithEmbedder injects an embedding provider, bypassing the fallback chain.
func WithEmbedder(provider embedding.Provider) Option {
	return func(o *options) {
		o.embedder = provider
	}
}

// WithGenerator injects the model backend for the retrieval-augmented tier.
func WithGenerator(provider llm.Provider) Option {
	return func(o *options) {
		o.generator = provider
	}
}

// WithCache injects the suggestion cache.
func WithCache(c cache.Cache) Option {
	return func(o *options) {
		o.cache = c
	}
}

// WithFeedbackStore injects the feedback store, bypassing the SQLite-backed
// default.
func WithFeedbackStore(store feedback.Store) Option {
	return func(o *options) {
		o.feedback = store
	}
}
