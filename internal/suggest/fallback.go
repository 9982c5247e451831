// File path: internal/suggest/fallback.go
package suggest

import (
	"regexp"
	"strings"
)

var (
	doubledSpace = regexp.MustCompile(`[ \t]{2,}`)
	spaceBefore  = regexp.MustCompile(`\s+([.,;:!?])`)
)

// Fallback is the tier of last resort. It must always return a suggestion
// that differs from the input so the caller never surfaces an empty or
// identical result.
type Fallback struct{}

func NewFallback() *Fallback { return &Fallback{} }

// Apply tries mechanical cleanups first; when they change nothing it falls
// back to an advisory rewrite prompt built from the rule category.
func (f *Fallback) Apply(issue CorrectionIssue) string {
	text := strings.TrimSpace(issue.FlaggedText)
	cleaned := doubledSpace.ReplaceAllString(text, " ")
	cleaned = spaceBefore.ReplaceAllString(cleaned, "$1")
	cleaned = dropDoubledWords(cleaned)
	if materiallyDifferent(text, cleaned) {
		return cleaned
	}
	category := strings.ReplaceAll(issue.Category(), "-", " ")
	if category == "" {
		category = "style"
	}
	return "Consider rewriting to address " + category + ": " + text
}

// dropDoubledWords collapses immediate word repetitions ("the the").
func dropDoubledWords(text string) string {
	words := strings.Fields(text)
	out := make([]string, 0, len(words))
	for _, word := range words {
		if len(out) > 0 && strings.EqualFold(word, out[len(out)-1]) {
			continue
		}
		out = append(out, word)
	}
	return strings.Join(out, " ")
}
