// File path: internal/vector/memory_test.go
package vector

import (
	"context"
	"errors"
	"testing"

	"github.com/marginalia-dev/redline/internal/corpus"
)

func seedMemoryStore(t *testing.T) *MemoryStore {
	t.Helper()
	store := NewMemoryStore("test_chunks")
	if err := store.EnsureCollection(context.Background(), 3); err != nil {
		t.Fatalf("EnsureCollection: %v", err)
	}
	doc := corpus.Document{ID: "style-guide", Domain: "api_reference", Version: "2.1"}
	chunks := []corpus.Chunk{
		{ID: "style-guide:0:aa", DocID: doc.ID, Text: "Use active voice.", Structural: corpus.StructuralParagraph, RuleTags: []string{"passive-voice"}},
		{ID: "style-guide:1:bb", DocID: doc.ID, Text: "Headings use sentence case.", Structural: corpus.StructuralHeading, RuleTags: []string{"heading-case"}},
	}
	vectors := [][]float32{{1, 0, 0}, {0, 1, 0}}
	if err := store.UpsertChunks(context.Background(), doc, chunks, vectors); err != nil {
		t.Fatalf("UpsertChunks: %v", err)
	}
	return store
}

func TestMemoryStoreSearchRanksByCosine(t *testing.T) {
	store := seedMemoryStore(t)
	results, err := store.Search(context.Background(), []float32{0.9, 0.1, 0}, 2, Filter{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].ID != "style-guide:0:aa" {
		t.Fatalf("top result = %s, want style-guide:0:aa", results[0].ID)
	}
	if results[0].Score <= results[1].Score {
		t.Fatalf("results not sorted by score: %v >= %v wanted", results[0].Score, results[1].Score)
	}
	if results[0].Text() != "Use active voice." {
		t.Fatalf("payload content missing, got %q", results[0].Text())
	}
}

func TestMemoryStoreFilter(t *testing.T) {
	store := seedMemoryStore(t)

	results, err := store.Search(context.Background(), []float32{1, 1, 0}, 5, Filter{Structural: "heading"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "style-guide:1:bb" {
		t.Fatalf("structural filter returned %v", results)
	}

	results, err = store.Search(context.Background(), []float32{1, 1, 0}, 5, Filter{RuleTag: "passive-voice"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "style-guide:0:aa" {
		t.Fatalf("rule tag filter returned %v", results)
	}

	results, err = store.Search(context.Background(), []float32{1, 1, 0}, 5, Filter{Domain: "user_guide"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("domain filter should exclude everything, got %v", results)
	}
}

func TestMemoryStoreDimensionPinned(t *testing.T) {
	store := seedMemoryStore(t)

	if err := store.EnsureCollection(context.Background(), 8); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("EnsureCollection with new width: err = %v, want ErrDimensionMismatch", err)
	}
	_, err := store.Search(context.Background(), []float32{1, 0}, 5, Filter{})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("Search with short vector: err = %v, want ErrDimensionMismatch", err)
	}
	err = store.UpsertChunks(context.Background(), corpus.Document{ID: "d"},
		[]corpus.Chunk{{ID: "d:0:cc", Text: "x"}}, [][]float32{{1, 2, 3, 4}})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("Upsert with wide vector: err = %v, want ErrDimensionMismatch", err)
	}
}

func TestMemoryStoreRejectsMixedWidthBatch(t *testing.T) {
	store := NewMemoryStore("mixed_widths")
	if err := store.EnsureCollection(context.Background(), 4); err != nil {
		t.Fatalf("EnsureCollection: %v", err)
	}
	doc := corpus.Document{ID: "d"}
	chunks := []corpus.Chunk{
		{ID: "d:0:aa", DocID: doc.ID, Text: "first"},
		{ID: "d:1:bb", DocID: doc.ID, Text: "second"},
	}
	// The first vector alone satisfies the pin; the second must still fail.
	err := store.UpsertChunks(context.Background(), doc, chunks, [][]float32{{1, 0, 0, 0}, {1, 0}})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("mixed-width batch: err = %v, want ErrDimensionMismatch", err)
	}
	if store.Len() != 0 {
		t.Fatalf("rejected batch left %d records behind", store.Len())
	}
}

func TestMemoryStoreUpsertReplaces(t *testing.T) {
	store := seedMemoryStore(t)
	doc := corpus.Document{ID: "style-guide", Domain: "api_reference"}
	updated := []corpus.Chunk{{ID: "style-guide:0:aa", DocID: doc.ID, Text: "Prefer the active voice."}}
	if err := store.UpsertChunks(context.Background(), doc, updated, [][]float32{{0, 0, 1}}); err != nil {
		t.Fatalf("UpsertChunks: %v", err)
	}
	if store.Len() != 2 {
		t.Fatalf("store holds %d records after upsert, want 2", store.Len())
	}
	results, err := store.Search(context.Background(), []float32{0, 0, 1}, 1, Filter{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Text() != "Prefer the active voice." {
		t.Fatalf("upsert did not replace: %v", results)
	}
}

func TestMemoryStoreSetCollectionResets(t *testing.T) {
	store := seedMemoryStore(t)
	store.SetCollection("other")
	if store.Len() != 0 {
		t.Fatalf("collection switch should clear records, have %d", store.Len())
	}
	if store.Collection() != "other" {
		t.Fatalf("collection = %s, want other", store.Collection())
	}
}
