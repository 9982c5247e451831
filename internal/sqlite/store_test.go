// File path: internal/sqlite/store_test.go
package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/marginalia-dev/redline/internal/corpus"
	"github.com/marginalia-dev/redline/internal/feedback"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenWithConfig(Config{Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("OpenWithConfig: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testDocument() (corpus.Document, []corpus.Chunk) {
	doc := corpus.Document{
		ID:      "style-guide",
		Title:   "Style Guide",
		Domain:  "api_reference",
		Version: "2.1",
	}
	chunks := []corpus.Chunk{
		{ID: "style-guide:0:aa", DocID: doc.ID, Index: 0, Text: "Use the active voice.", TokenCount: 4, Structural: corpus.StructuralParagraph, RuleTags: []string{"passive-voice"}},
		{ID: "style-guide:1:bb", DocID: doc.ID, Index: 1, Text: "Headings use sentence case.", TokenCount: 4, Structural: corpus.StructuralHeading, SectionTitle: "Headings", SectionLevel: 2},
	}
	return doc, chunks
}

func TestPersistAndReadDocument(t *testing.T) {
	store := openTestStore(t)
	doc, chunks := testDocument()
	if err := store.PersistDocument(context.Background(), doc, chunks); err != nil {
		t.Fatalf("PersistDocument: %v", err)
	}

	got, err := store.DocumentChunks(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("DocumentChunks: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("chunks = %d, want 2", len(got))
	}
	if got[0].ID != chunks[0].ID || got[0].Text != chunks[0].Text {
		t.Fatalf("chunk 0 = %+v", got[0])
	}
	if got[0].RuleTags[0] != "passive-voice" {
		t.Fatalf("rule tags = %v", got[0].RuleTags)
	}
	if got[1].SectionTitle != "Headings" || got[1].SectionLevel != 2 {
		t.Fatalf("chunk 1 section = %q/%d", got[1].SectionTitle, got[1].SectionLevel)
	}
}

func TestReingestSupersedesChunks(t *testing.T) {
	store := openTestStore(t)
	doc, chunks := testDocument()
	if err := store.PersistDocument(context.Background(), doc, chunks); err != nil {
		t.Fatalf("PersistDocument: %v", err)
	}

	replacement := []corpus.Chunk{
		{ID: "style-guide:0:cc", DocID: doc.ID, Index: 0, Text: "Rewritten guidance.", TokenCount: 2, Structural: corpus.StructuralParagraph},
	}
	if err := store.PersistDocument(context.Background(), doc, replacement); err != nil {
		t.Fatalf("PersistDocument replace: %v", err)
	}

	got, err := store.DocumentChunks(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("DocumentChunks: %v", err)
	}
	if len(got) != 1 || got[0].ID != "style-guide:0:cc" {
		t.Fatalf("chunks after re-ingest = %+v", got)
	}
}

func TestDocumentsListsChunkCounts(t *testing.T) {
	store := openTestStore(t)
	doc, chunks := testDocument()
	if err := store.PersistDocument(context.Background(), doc, chunks); err != nil {
		t.Fatalf("PersistDocument: %v", err)
	}

	docs, err := store.Documents(context.Background())
	if err != nil {
		t.Fatalf("Documents: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("documents = %d", len(docs))
	}
	if docs[0].ID != doc.ID || docs[0].Chunks != 2 || docs[0].Domain != "api_reference" {
		t.Fatalf("document info = %+v", docs[0])
	}
}

func TestDeleteDocumentCascades(t *testing.T) {
	store := openTestStore(t)
	doc, chunks := testDocument()
	if err := store.PersistDocument(context.Background(), doc, chunks); err != nil {
		t.Fatalf("PersistDocument: %v", err)
	}
	if err := store.DeleteDocument(context.Background(), doc.ID); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	got, err := store.DocumentChunks(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("DocumentChunks: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("chunks survived delete: %+v", got)
	}
}

func TestFeedbackRoundTrip(t *testing.T) {
	store := openTestStore(t)
	fb, err := NewFeedbackStore(store)
	if err != nil {
		t.Fatalf("NewFeedbackStore: %v", err)
	}

	verdicts := []feedback.Action{
		feedback.ActionAccepted, feedback.ActionAccepted, feedback.ActionAccepted,
		feedback.ActionRejected, feedback.ActionModified,
	}
	for i, action := range verdicts {
		record := feedback.Record{
			SuggestionID:     "sug-1",
			RuleID:           "passive_voice",
			OriginalText:     "The file was created by the system.",
			SuggestedText:    "The system created the file.",
			Method:           "deterministic",
			Action:           action,
			ConfidenceAtTime: 0.85,
		}
		if action == feedback.ActionModified {
			record.Modification = "The system creates the file."
		}
		if err := fb.Record(context.Background(), record); err != nil {
			t.Fatalf("Record %d: %v", i, err)
		}
	}

	eff, err := fb.RuleEffectiveness(context.Background(), "passive_voice", time.Hour)
	if err != nil {
		t.Fatalf("RuleEffectiveness: %v", err)
	}
	if eff.Total != 5 {
		t.Fatalf("total = %d", eff.Total)
	}
	want := (3 + 0.5*1) / 5.0
	if diff := eff.Score - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("score = %f, want %f", eff.Score, want)
	}

	recent, err := fb.Recent(context.Background(), time.Hour)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 5 {
		t.Fatalf("recent = %d", len(recent))
	}
	var modified int
	for _, record := range recent {
		if record.OriginalText != "The file was created by the system." ||
			record.SuggestedText != "The system created the file." {
			t.Fatalf("before/after text lost: %+v", record)
		}
		if record.ConfidenceAtTime != 0.85 {
			t.Fatalf("confidence_at_time = %f", record.ConfidenceAtTime)
		}
		if record.Action == feedback.ActionModified {
			modified++
			if record.Modification != "The system creates the file." {
				t.Fatalf("modification = %q", record.Modification)
			}
		} else if record.Modification != "" {
			t.Fatalf("unexpected modification on %s verdict", record.Action)
		}
	}
	if modified != 1 {
		t.Fatalf("modified verdicts = %d", modified)
	}
}

func TestFeedbackRejectsInvalidRecord(t *testing.T) {
	store := openTestStore(t)
	fb, err := NewFeedbackStore(store)
	if err != nil {
		t.Fatalf("NewFeedbackStore: %v", err)
	}
	err = fb.Record(context.Background(), feedback.Record{RuleID: "r", Action: "maybe"})
	if err == nil {
		t.Fatalf("invalid action accepted")
	}
}

func TestFeedbackWindowExcludesOldRecords(t *testing.T) {
	store := openTestStore(t)
	fb, err := NewFeedbackStore(store)
	if err != nil {
		t.Fatalf("NewFeedbackStore: %v", err)
	}
	old := feedback.Record{
		RuleID:    "heading_case",
		Method:    "deterministic",
		Action:    feedback.ActionAccepted,
		CreatedAt: time.Now().UTC().Add(-48 * time.Hour),
	}
	if err := fb.Record(context.Background(), old); err != nil {
		t.Fatalf("Record: %v", err)
	}
	eff, err := fb.RuleEffectiveness(context.Background(), "heading_case", time.Hour)
	if err != nil {
		t.Fatalf("RuleEffectiveness: %v", err)
	}
	if eff.Total != 0 {
		t.Fatalf("old record inside window: %+v", eff)
	}
}
