// File path: internal/prompt/parse.go
package prompt

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrParse reports a generator response that does not satisfy the declared
// schema. It is never silently accepted.
var ErrParse = errors.New("prompt: response missing required fields")

// ErrNoGuidance reports the generator declined to answer with the reserved
// sentinel. Not a failure: the pipeline falls through.
var ErrNoGuidance = errors.New("prompt: generator returned no guidance")

// Candidate is one parsed correction option.
type Candidate struct {
	Index int
	Text  string
	Why   string
}

var optionPattern = regexp.MustCompile(`(?i)^OPTION\s+(\d+)\s*:\s*(.*)$`)
var whyPattern = regexp.MustCompile(`(?i)^WHY\s*:\s*(.*)$`)

// Parse extracts OPTION/WHY pairs from a raw generator response. Every
// option must carry non-empty text and a WHY line. A bare NO_GUIDANCE
// response returns ErrNoGuidance.
func Parse(raw string) ([]Candidate, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty response", ErrParse)
	}
	if strings.EqualFold(trimmed, NoGuidance) {
		return nil, ErrNoGuidance
	}

	var candidates []Candidate
	var current *Candidate
	for _, line := range strings.Split(trimmed, "\n") {
		line = strings.TrimSpace(line)
		if matches := optionPattern.FindStringSubmatch(line); matches != nil {
			if current != nil {
				candidates = append(candidates, *current)
			}
			index, _ := strconv.Atoi(matches[1])
			current = &Candidate{Index: index, Text: strings.TrimSpace(matches[2])}
			continue
		}
		if matches := whyPattern.FindStringSubmatch(line); matches != nil {
			if current == nil {
				return nil, fmt.Errorf("%w: WHY before any OPTION", ErrParse)
			}
			current.Why = strings.TrimSpace(matches[1])
			continue
		}
		// Continuation lines belong to the open option's text.
		if current != nil && current.Why == "" && line != "" {
			current.Text = strings.TrimSpace(current.Text + " " + line)
		}
	}
	if current != nil {
		candidates = append(candidates, *current)
	}

	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no OPTION lines", ErrParse)
	}
	for _, candidate := range candidates {
		if candidate.Text == "" {
			return nil, fmt.Errorf("%w: option %d has no text", ErrParse, candidate.Index)
		}
		if strings.EqualFold(candidate.Text, NoGuidance) {
			return nil, ErrNoGuidance
		}
		if candidate.Why == "" {
			return nil, fmt.Errorf("%w: option %d has no WHY", ErrParse, candidate.Index)
		}
	}
	return candidates, nil
}
