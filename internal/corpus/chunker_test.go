// File path: internal/corpus/chunker_test.go
package corpus

import (
	"errors"
	"strings"
	"testing"
)

func buildText(sentences int) string {
	var b strings.Builder
	for i := 0; i < sentences; i++ {
		b.WriteString("The style guide recommends concrete subjects and active verbs in every technical sentence you publish. ")
	}
	return b.String()
}

func TestChunkRejectsInvalidInput(t *testing.T) {
	chunker := NewChunker(DefaultChunkerConfig())
	if _, err := chunker.Chunk(Document{ID: "doc", Text: "   "}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank text, got %v", err)
	}
	if _, err := chunker.Chunk(Document{Text: "content"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing id, got %v", err)
	}
	if _, err := chunker.Chunk(Document{ID: "doc", Text: string([]byte{0xff, 0xfe, 0xfd})}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for invalid UTF-8, got %v", err)
	}
}

func TestChunkTokenBand(t *testing.T) {
	cfg := ChunkerConfig{TargetTokens: 60, MinTokens: 20, MaxTokens: 90, OverlapTokens: 10}
	chunker := NewChunker(cfg)
	chunks, err := chunker.Chunk(Document{ID: "guide", Text: buildText(40)})
	if err != nil {
		t.Fatalf("chunk failed: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if i == len(chunks)-1 {
			// Final chunk may sit under the floor.
			if chunk.TokenCount > cfg.MaxTokens {
				t.Fatalf("final chunk over max: %d", chunk.TokenCount)
			}
			continue
		}
		if chunk.TokenCount < cfg.MinTokens || chunk.TokenCount > cfg.MaxTokens {
			t.Fatalf("chunk %d outside [%d,%d]: %d", i, cfg.MinTokens, cfg.MaxTokens, chunk.TokenCount)
		}
	}
}

func TestChunkStructuralPartition(t *testing.T) {
	text := "# Voice\n\nPrefer active voice in procedures.\n\n- Use imperative mood\n- Name the actor\n\n```\nexample code block\n```\n"
	chunker := NewChunker(DefaultChunkerConfig())
	chunks, err := chunker.Chunk(Document{ID: "voice-guide", Text: text})
	if err != nil {
		t.Fatalf("chunk failed: %v", err)
	}
	kinds := make(map[StructuralType]int)
	for _, chunk := range chunks {
		kinds[chunk.Structural]++
		if chunk.SectionTitle != "Voice" {
			t.Fatalf("expected section title Voice, got %q", chunk.SectionTitle)
		}
		if chunk.SectionLevel != 1 {
			t.Fatalf("expected section level 1, got %d", chunk.SectionLevel)
		}
	}
	// Adjacent short list items coalesce into one chunk.
	if kinds[StructuralHeading] != 1 || kinds[StructuralParagraph] != 1 || kinds[StructuralListItem] != 1 || kinds[StructuralCodeBlock] != 1 {
		t.Fatalf("unexpected structural mix: %v", kinds)
	}
	for _, chunk := range chunks {
		if chunk.Structural != StructuralListItem {
			continue
		}
		if !strings.Contains(chunk.Text, "Use imperative mood") || !strings.Contains(chunk.Text, "Name the actor") {
			t.Fatalf("list chunk missing coalesced items: %q", chunk.Text)
		}
	}
}

func TestChunkCoalescesShortListItems(t *testing.T) {
	cfg := ChunkerConfig{TargetTokens: 30, MinTokens: 10, MaxTokens: 45, OverlapTokens: 0}
	chunker := NewChunker(cfg)
	var b strings.Builder
	b.WriteString("# Checklist\n\n")
	for i := 0; i < 8; i++ {
		b.WriteString("- Verify the rendered output against the published style guide\n")
	}
	chunks, err := chunker.Chunk(Document{ID: "checklist", Text: b.String()})
	if err != nil {
		t.Fatalf("chunk failed: %v", err)
	}
	items := 0
	for _, chunk := range chunks {
		if chunk.Structural != StructuralListItem {
			continue
		}
		items++
		if chunk.TokenCount > cfg.MaxTokens {
			t.Fatalf("list chunk over max: %d", chunk.TokenCount)
		}
	}
	// Eight 9-token items fit three per 30-token run, not one chunk each.
	if items >= 8 || items == 0 {
		t.Fatalf("expected coalesced list chunks, got %d", items)
	}
}

func TestEnforceBoundsMergesForward(t *testing.T) {
	cfg := ChunkerConfig{TargetTokens: 25, MinTokens: 20, MaxTokens: 30, OverlapTokens: 0}
	chunker := NewChunker(cfg)
	sentence := func(words int) string {
		return strings.TrimSpace(strings.Repeat("word ", words))
	}
	groups := [][]string{
		{sentence(28)},
		{sentence(5)},
		{sentence(22)},
	}
	out := chunker.enforceBounds(groups)
	if len(out) != 2 {
		t.Fatalf("groups = %d, want 2: %v", len(out), out)
	}
	// Backward merge would exceed the max, so the short group joins its
	// successor instead of surviving under the floor.
	if got := groupTokens(out[1]); got != 27 {
		t.Fatalf("forward-merged group tokens = %d, want 27", got)
	}
}

func TestChunkNoStructuralMarkersSingleSection(t *testing.T) {
	chunker := NewChunker(DefaultChunkerConfig())
	chunks, err := chunker.Chunk(Document{ID: "plain", Text: "Short guidance with no headings at all."})
	if err != nil {
		t.Fatalf("chunk failed: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected a single chunk, got %d", len(chunks))
	}
	if chunks[0].SectionTitle != "" || chunks[0].SectionLevel != 0 {
		t.Fatalf("expected default section, got %q level %d", chunks[0].SectionTitle, chunks[0].SectionLevel)
	}
}

func TestChunkOverlapFields(t *testing.T) {
	cfg := ChunkerConfig{TargetTokens: 40, MinTokens: 15, MaxTokens: 60, OverlapTokens: 6}
	chunker := NewChunker(cfg)
	chunks, err := chunker.Chunk(Document{ID: "overlap", Text: buildText(20)})
	if err != nil {
		t.Fatalf("chunk failed: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	if chunks[0].OverlapBefore != "" {
		t.Fatalf("first chunk should have no leading overlap")
	}
	if chunks[len(chunks)-1].OverlapAfter != "" {
		t.Fatalf("last chunk should have no trailing overlap")
	}
	second := chunks[1]
	if second.OverlapBefore == "" {
		t.Fatalf("expected overlap context on second chunk")
	}
	if got := len(strings.Fields(second.OverlapBefore)); got > cfg.OverlapTokens {
		t.Fatalf("overlap too wide: %d tokens", got)
	}
	if !strings.HasSuffix(chunks[0].Text, second.OverlapBefore) {
		t.Fatalf("overlap should be the tail of the preceding chunk")
	}
}

func TestChunkIDsStableAndUnique(t *testing.T) {
	chunker := NewChunker(DefaultChunkerConfig())
	doc := Document{ID: "stable", Text: buildText(30)}
	first, err := chunker.Chunk(doc)
	if err != nil {
		t.Fatalf("chunk failed: %v", err)
	}
	second, err := chunker.Chunk(doc)
	if err != nil {
		t.Fatalf("chunk failed: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	seen := make(map[string]struct{})
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("chunk id not stable at %d: %s vs %s", i, first[i].ID, second[i].ID)
		}
		if _, dup := seen[first[i].ID]; dup {
			t.Fatalf("duplicate chunk id %s", first[i].ID)
		}
		seen[first[i].ID] = struct{}{}
	}
}

func TestEnrichedTextPrefix(t *testing.T) {
	chunk := Chunk{
		Text:         "Use active voice.",
		SectionTitle: "Voice",
		Structural:   StructuralParagraph,
		RuleTags:     []string{"passive_voice", "clarity", "tone", "extra"},
	}
	enriched := chunk.EnrichedText("developer-docs", "v2")
	if !strings.HasPrefix(enriched, "[") {
		t.Fatalf("expected bracketed prefix, got %q", enriched)
	}
	if !strings.Contains(enriched, "developer-docs") || !strings.Contains(enriched, "Voice") {
		t.Fatalf("enrichment missing metadata: %q", enriched)
	}
	if strings.Contains(enriched, "extra") {
		t.Fatalf("rule tags should be capped at three: %q", enriched)
	}
	if !strings.HasSuffix(enriched, chunk.Text) {
		t.Fatalf("primary text must be preserved: %q", enriched)
	}
}
