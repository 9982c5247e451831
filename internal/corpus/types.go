// File path: internal/corpus/types.go
package corpus

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidInput marks document text that cannot be chunked. Callers treat
// it as a validation failure with no partial output.
var ErrInvalidInput = errors.New("corpus: invalid document input")

// StructuralType classifies the block of the source document a chunk was cut
// from.
type StructuralType string

const (
	StructuralHeading   StructuralType = "heading"
	StructuralParagraph StructuralType = "paragraph"
	StructuralListItem  StructuralType = "list_item"
	StructuralCodeBlock StructuralType = "code_block"
)

// Document is a reference-corpus entry prior to chunking. RuleTags carry the
// style-rule identifiers the document gives guidance for.
type Document struct {
	ID         string    `json:"id"`
	Title      string    `json:"title,omitempty"`
	Domain     string    `json:"domain,omitempty"`
	Version    string    `json:"version,omitempty"`
	Text       string    `json:"text"`
	RuleTags   []string  `json:"rule_tags,omitempty"`
	IngestedAt time.Time `json:"ingested_at,omitempty"`
}

// Chunk is the retrieval unit: a sized, metadata-tagged passage belonging to
// exactly one document. Chunks are immutable once stored; re-ingesting a
// document supersedes its chunks rather than mutating them.
type Chunk struct {
	ID           string         `json:"id"`
	DocID        string         `json:"doc_id"`
	Index        int            `json:"index"`
	Text         string         `json:"text"`
	TokenCount   int            `json:"token_count"`
	Structural   StructuralType `json:"structural_type"`
	SectionTitle string         `json:"section_title,omitempty"`
	SectionLevel int            `json:"section_level,omitempty"`
	RuleTags     []string       `json:"rule_tags,omitempty"`

	// Overlap fields hold trailing/leading context from the neighbouring
	// chunks. They are auxiliary: never part of the primary text.
	OverlapBefore string `json:"overlap_before,omitempty"`
	OverlapAfter  string `json:"overlap_after,omitempty"`
}

// BuildChunkID derives a stable chunk identifier from the owning document,
// the chunk position and a content digest, so identical content re-ingested
// at the same position keeps its id.
func BuildChunkID(docID string, index int, text string) string {
	trimmed := strings.TrimSpace(docID)
	if trimmed == "" {
		trimmed = "unknown"
	}
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%s:%d:%s", trimmed, index, hex.EncodeToString(sum[:4]))
}

// Metadata flattens the chunk's filterable fields into the payload shape the
// vector store persists alongside the embedding.
func (c Chunk) Metadata() map[string]interface{} {
	meta := map[string]interface{}{
		"doc_id":          c.DocID,
		"structural_type": string(c.Structural),
	}
	if c.SectionTitle != "" {
		meta["section_title"] = c.SectionTitle
	}
	if c.SectionLevel > 0 {
		meta["section_level"] = c.SectionLevel
	}
	if len(c.RuleTags) > 0 {
		meta["rule_tags"] = strings.Join(c.RuleTags, ",")
	}
	return meta
}

// EnrichedText prefixes the chunk text with a bracketed metadata tag so the
// embedded vector carries domain and rule context. The same enrichment shape
// is applied to queries to keep the two vector spaces comparable.
func (c Chunk) EnrichedText(domain, version string) string {
	var parts []string
	if strings.TrimSpace(domain) != "" {
		parts = append(parts, strings.TrimSpace(domain))
	}
	if strings.TrimSpace(version) != "" {
		parts = append(parts, strings.TrimSpace(version))
	}
	if c.SectionTitle != "" {
		parts = append(parts, c.SectionTitle)
	}
	if c.Structural != "" {
		parts = append(parts, string(c.Structural))
	}
	if len(c.RuleTags) > 0 {
		limit := len(c.RuleTags)
		if limit > 3 {
			limit = 3
		}
		parts = append(parts, strings.Join(c.RuleTags[:limit], " "))
	}
	if len(parts) == 0 {
		return c.Text
	}
	return "[" + strings.Join(parts, " | ") + "] " + c.Text
}
