// File path: internal/suggest/types.go
package suggest

import (
	"strings"
	"time"
	"unicode/utf8"
)

// CorrectionIssue is the input from an upstream issue detector.
type CorrectionIssue struct {
	RuleID           string `json:"rule_id"`
	FlaggedText      string `json:"flagged_text"`
	Context          string `json:"context,omitempty"`
	DocumentType     string `json:"document_type,omitempty"`
	FullDocumentText string `json:"full_document_text,omitempty"`
	Domain           string `json:"domain,omitempty"`
}

// Validate reports whether the issue can enter the pipeline at all.
func (i CorrectionIssue) Validate() error {
	if strings.TrimSpace(i.RuleID) == "" {
		return ErrValidation
	}
	if strings.TrimSpace(i.FlaggedText) == "" {
		return ErrValidation
	}
	if !utf8.ValidString(i.FlaggedText) || !utf8.ValidString(i.Context) {
		return ErrValidation
	}
	return nil
}

// Category derives the rule category from the rule id: the id up to the
// first dot, with underscores normalized to hyphens.
func (i CorrectionIssue) Category() string {
	rule := strings.TrimSpace(strings.ToLower(i.RuleID))
	if idx := strings.IndexByte(rule, '.'); idx > 0 {
		rule = rule[:idx]
	}
	return strings.ReplaceAll(rule, "_", "-")
}

// Resolution methods, one per tier.
const (
	MethodDeterministic      = "deterministic"
	MethodContextClassified  = "context_classified"
	MethodRetrievalAugmented = "retrieval_augmented"
	MethodGenericFallback    = "generic_fallback"
)

// Confidence categories.
const (
	ConfidenceHigh    = "high"
	ConfidenceMedium  = "medium"
	ConfidenceLow     = "low"
	ConfidenceVeryLow = "very_low"
)

// Suggestion is the pipeline's sole output. CorrectedText is never empty.
type Suggestion struct {
	ID            string    `json:"id"`
	CorrectedText string    `json:"corrected_text"`
	Confidence    string    `json:"confidence"`
	Score         float64   `json:"score"`
	Method        string    `json:"method"`
	Provenance    []string  `json:"provenance,omitempty"`
	Cached        bool      `json:"cached,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// State is one stop in the orchestrator state machine.
type State string

const (
	StateReceived               State = "RECEIVED"
	StateDeterministicAttempted State = "DETERMINISTIC_ATTEMPTED"
	StateContextAttempted       State = "CONTEXT_ATTEMPTED"
	StateRetrievalAttempted     State = "RETRIEVAL_ATTEMPTED"
	StateResolved               State = "RESOLVED"
	StateFailed                 State = "FAILED"
)

// materiallyDifferent reports whether a candidate rewrite changes anything
// beyond whitespace. Case changes count: capitalization fixes are real
// corrections.
func materiallyDifferent(original, candidate string) bool {
	normalize := func(s string) string {
		return strings.Join(strings.Fields(s), " ")
	}
	candidate = normalize(candidate)
	if candidate == "" {
		return false
	}
	return candidate != normalize(original)
}
