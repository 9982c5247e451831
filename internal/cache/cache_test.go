// File path: internal/cache/cache_test.go
package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestMemoryPutGetRoundTrip(t *testing.T) {
	m := NewMemory(8)
	key := Fingerprint("passive_voice", "The file was created.", "")
	if err := m.Put(context.Background(), key, []byte("payload"), time.Minute); err != nil {
		t.Fatalf("Put: %v", err)
	}
	value, err := m.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(value) != "payload" {
		t.Fatalf("value = %q", value)
	}
}

func TestMemoryMissAndExpiry(t *testing.T) {
	m := NewMemory(8)
	if _, err := m.Get(context.Background(), "absent"); !errors.Is(err, ErrMiss) {
		t.Fatalf("err = %v, want ErrMiss", err)
	}
	if err := m.Put(context.Background(), "short", []byte("x"), time.Nanosecond); err != nil {
		t.Fatalf("Put: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := m.Get(context.Background(), "short"); !errors.Is(err, ErrMiss) {
		t.Fatalf("expired entry: err = %v, want ErrMiss", err)
	}
}

func TestMemoryBatchEviction(t *testing.T) {
	m := NewMemory(8)
	for i := 0; i < 12; i++ {
		if err := m.Put(context.Background(), fmt.Sprintf("key-%d", i), []byte("v"), 0); err != nil {
			t.Fatalf("Put %d: %v", i, err)
		}
	}
	if m.Len() > 8 {
		t.Fatalf("len = %d, capacity is 8", m.Len())
	}
	// The oldest entries go first.
	if _, err := m.Get(context.Background(), "key-0"); !errors.Is(err, ErrMiss) {
		t.Fatalf("oldest key should have been evicted")
	}
	if _, err := m.Get(context.Background(), "key-11"); err != nil {
		t.Fatalf("newest key evicted: %v", err)
	}
}

func TestFingerprintNormalization(t *testing.T) {
	a := Fingerprint("passive_voice", "The  file was created.", "ctx")
	b := Fingerprint("Passive_Voice", "the file WAS created.", "CTX")
	if a != b {
		t.Fatalf("normalized inputs should share a fingerprint: %s vs %s", a, b)
	}
	c := Fingerprint("passive_voice", "A different sentence.", "ctx")
	if a == c {
		t.Fatalf("different text should change the fingerprint")
	}
	d := Fingerprint("other_rule", "The file was created.", "ctx")
	if a == d {
		t.Fatalf("different rule should change the fingerprint")
	}
}

func TestMemoryValueIsolated(t *testing.T) {
	m := NewMemory(8)
	original := []byte("payload")
	if err := m.Put(context.Background(), "k", original, 0); err != nil {
		t.Fatalf("Put: %v", err)
	}
	original[0] = 'X'
	value, err := m.Get(context.Background(), "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(value) != "payload" {
		t.Fatalf("stored value mutated: %q", value)
	}
	value[0] = 'Y'
	again, _ := m.Get(context.Background(), "k")
	if string(again) != "payload" {
		t.Fatalf("returned slice aliased the stored value")
	}
}
