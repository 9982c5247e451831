// File path: internal/llm/breaker_test.go
package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/marginalia-dev/redline/internal/llm/providers"
)

type failingProvider struct {
	calls int
}

func (f *failingProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	f.calls++
	return "", errors.New("backend down")
}

func (f *failingProvider) Name() string { return "failing" }

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	inner := &failingProvider{}
	provider := NewBreakerProvider(inner)
	messages := []Message{{Role: "user", Content: "fix this"}}

	for i := 0; i < 5; i++ {
		if _, err := provider.Chat(context.Background(), messages); !errors.Is(err, ErrUnavailable) {
			t.Fatalf("call %d: err = %v, want ErrUnavailable", i, err)
		}
	}
	callsBefore := inner.calls

	// Breaker is open now; the backend must not be touched.
	if _, err := provider.Chat(context.Background(), messages); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("open breaker: err = %v, want ErrUnavailable", err)
	}
	if inner.calls != callsBefore {
		t.Fatalf("open breaker still called backend (%d -> %d)", callsBefore, inner.calls)
	}
}

func TestBreakerPassesThroughSuccess(t *testing.T) {
	provider := NewBreakerProvider(providers.NewLocalProvider())
	text, err := provider.Chat(context.Background(), []Message{{Role: "user", Content: "anything"}})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if text != "NO_GUIDANCE" {
		t.Fatalf("local provider text = %q, want NO_GUIDANCE", text)
	}
}

func TestNormalizeMessages(t *testing.T) {
	messages, err := NormalizeMessages([]Message{{Role: "User", Content: "x"}, {Role: "SYSTEM", Content: "y"}})
	if err != nil {
		t.Fatalf("NormalizeMessages: %v", err)
	}
	if messages[0].Role != "user" || messages[1].Role != "system" {
		t.Fatalf("roles not normalized: %+v", messages)
	}
	if _, err := NormalizeMessages(nil); err == nil {
		t.Fatalf("empty message list should error")
	}
}
