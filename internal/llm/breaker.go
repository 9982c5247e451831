// File path: internal/llm/breaker.go
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/marginalia-dev/redline/internal/common"
)

// ErrUnavailable reports a generator outage: transport failure, timeout, or
// an open circuit breaker. Callers treat it as a fall-through signal, never
// a fatal error.
var ErrUnavailable = errors.New("llm: generation unavailable")

// BreakerProvider wraps a Provider with a circuit breaker so a flapping
// backend stops eating the per-request generation budget.
type BreakerProvider struct {
	inner   Provider
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerProvider wraps the provider. The breaker opens after five
// consecutive failures and probes again after the cool-off.
func NewBreakerProvider(inner Provider) *BreakerProvider {
	logger := common.Logger()
	settings := gobreaker.Settings{
		Name:        "llm-" + inner.Name(),
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("llm: breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	}
	return &BreakerProvider{inner: inner, breaker: gobreaker.NewCircuitBreaker(settings)}
}

func (b *BreakerProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	if b == nil || b.inner == nil {
		return "", ErrUnavailable
	}
	result, err := b.breaker.Execute(func() (interface{}, error) {
		return b.inner.Chat(ctx, messages)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%w: breaker open for %s", ErrUnavailable, b.inner.Name())
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	text, ok := result.(string)
	if !ok {
		return "", fmt.Errorf("%w: unexpected result type", ErrUnavailable)
	}
	return text, nil
}

func (b *BreakerProvider) Name() string {
	if b == nil || b.inner == nil {
		return "breaker"
	}
	return b.inner.Name()
}

var _ Provider = (*BreakerProvider)(nil)
