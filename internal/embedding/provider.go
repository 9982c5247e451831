// File path: internal/embedding/provider.go
package embedding

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/marginalia-dev/redline/internal/common"
)

// ErrUnavailable reports that no configured backend could embed the input.
var ErrUnavailable = errors.New("embedding: no backend available")

// Provider converts text to fixed-dimension vectors. Implementations must
// keep Dimension stable for the life of the provider; vectors from different
// providers are never mixed inside one vector store.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	Name() string
	// Ready reports whether the backend can currently serve requests.
	// Availability is a runtime health check, not an import-time branch.
	Ready(ctx context.Context) bool
}

// Factory builds a backend from configuration. Backends register themselves
// so availability becomes a configuration concern.
type Factory func(cfg Config) (Provider, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register installs a backend factory under a name. Later registrations for
// the same name replace earlier ones.
func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

// Registered lists the installed backend names, sorted.
func Registered() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookup(name string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	factory, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	return factory, ok
}

// Chain probes a priority-ordered list of backends and serves requests from
// the first ready one, falling through to the next backend when a call
// fails at runtime.
type Chain struct {
	providers []Provider

	mu     sync.RWMutex
	active int
}

// NewChain constructs the fallback chain from cfg.Backends. Construction
// succeeds as long as at least one backend can be built; readiness is
// re-checked per call so a backend that recovers is used again.
func NewChain(ctx context.Context, cfg Config) (*Chain, error) {
	cfg = cfg.withDefaults()
	logger := common.Logger()
	var providers []Provider
	for _, name := range cfg.Backends {
		factory, ok := lookup(name)
		if !ok {
			logger.Warn("embedding: unknown backend skipped", "backend", name)
			continue
		}
		provider, err := factory(cfg)
		if err != nil {
			logger.Warn("embedding: backend construction failed", "backend", name, "error", err)
			continue
		}
		providers = append(providers, provider)
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("%w: no backends could be constructed", ErrUnavailable)
	}
	chain := &Chain{providers: providers}
	for idx, provider := range providers {
		if provider.Ready(ctx) {
			chain.active = idx
			logger.Info("embedding: active backend selected", "backend", provider.Name(), "dimension", provider.Dimension())
			return chain, nil
		}
		logger.Warn("embedding: backend not ready at construction", "backend", provider.Name())
	}
	// None ready yet; keep the highest-priority backend as active and let
	// per-call fallback sort it out.
	chain.active = 0
	return chain, nil
}

// Active returns the currently selected backend.
func (c *Chain) Active() Provider {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.providers[c.active]
}

// Name identifies the chain by its active backend.
func (c *Chain) Name() string {
	return "chain/" + c.Active().Name()
}

// Dimension reports the active backend's vector width.
func (c *Chain) Dimension() int {
	return c.Active().Dimension()
}

// Ready reports whether any backend in the chain is ready.
func (c *Chain) Ready(ctx context.Context) bool {
	for _, provider := range c.providers {
		if provider.Ready(ctx) {
			return true
		}
	}
	return false
}

// Embed embeds one text via the chain.
func (c *Chain) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("%w: empty result", ErrUnavailable)
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts preserving input order. When the active backend
// fails, the next backend in priority order is tried before the whole
// operation fails as ErrUnavailable.
func (c *Chain) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	c.mu.RLock()
	start := c.active
	c.mu.RUnlock()
	logger := common.Logger()
	var lastErr error
	for offset := 0; offset < len(c.providers); offset++ {
		idx := (start + offset) % len(c.providers)
		provider := c.providers[idx]
		vectors, err := provider.EmbedBatch(ctx, texts)
		if err == nil {
			if idx != start {
				c.mu.Lock()
				c.active = idx
				c.mu.Unlock()
				logger.Warn("embedding: fell back to backend", "backend", provider.Name())
			}
			return vectors, nil
		}
		lastErr = err
		logger.Warn("embedding: backend call failed", "backend", provider.Name(), "error", err)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

var _ Provider = (*Chain)(nil)
