// File path: internal/prompt/prompt.go
package prompt

import (
	"fmt"
	"strings"

	"github.com/marginalia-dev/redline/internal/llm"
)

// NoGuidance is the reserved sentinel the generator returns instead of
// inventing a correction when the supplied context is insufficient.
const NoGuidance = "NO_GUIDANCE"

// Issue is the flagged problem a prompt is built for.
type Issue struct {
	RuleID   string
	Category string
	Flagged  string
	Context  string
	Domain   string
}

// maxContextChunks bounds prompt size; exemplars are bounded separately.
const maxContextChunks = 5

const systemInstructions = `You are a technical writing assistant. Rewrite the flagged text to fix the reported style issue.
Rules:
- Use ONLY the reference passages and style rules supplied in the request. Do not draw on outside knowledge.
- Preserve the meaning of the original text. Change only what the issue requires.
- Respond with one or more numbered options, each followed by a one-line reason, exactly in this form:
OPTION 1: <corrected text>
WHY: <reason>
- If the supplied context is insufficient to produce a grounded correction, respond with exactly ` + NoGuidance + ` and nothing else.`

// Build assembles the constrained request. Retrieved passages and style
// rules are inlined; exemplars are selected by the issue's rule category
// from the fixed pool.
func Build(issue Issue, passages []string, styleRules []string) ([]llm.Message, error) {
	if strings.TrimSpace(issue.Flagged) == "" {
		return nil, fmt.Errorf("prompt: empty flagged text")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Issue: %s", issue.RuleID)
	if issue.Category != "" {
		fmt.Fprintf(&b, " (category: %s)", issue.Category)
	}
	if issue.Domain != "" {
		fmt.Fprintf(&b, " in a %s document", issue.Domain)
	}
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "Flagged text:\n%s\n\n", strings.TrimSpace(issue.Flagged))
	if context := strings.TrimSpace(issue.Context); context != "" {
		fmt.Fprintf(&b, "Surrounding context:\n%s\n\n", context)
	}

	if len(styleRules) > 0 {
		b.WriteString("Style rules:\n")
		for _, rule := range styleRules {
			fmt.Fprintf(&b, "- %s\n", strings.TrimSpace(rule))
		}
		b.WriteString("\n")
	}

	count := 0
	for _, passage := range passages {
		trimmed := strings.TrimSpace(passage)
		if trimmed == "" {
			continue
		}
		if count == 0 {
			b.WriteString("Reference passages:\n")
		}
		count++
		fmt.Fprintf(&b, "[%d] %s\n", count, trimmed)
		if count >= maxContextChunks {
			break
		}
	}
	if count > 0 {
		b.WriteString("\n")
	}

	for i, exemplar := range SelectExemplars(issue.Category, 2) {
		if i == 0 {
			b.WriteString("Examples:\n")
		}
		fmt.Fprintf(&b, "Before: %s\nAfter: %s\n", exemplar.Before, exemplar.After)
	}

	return []llm.Message{
		{Role: "system", Content: systemInstructions},
		{Role: "user", Content: strings.TrimSpace(b.String())},
	}, nil
}
