// File path: internal/prompt/prompt_test.go
package prompt

import (
	"errors"
	"strings"
	"testing"
)

func TestParseOptionWhy(t *testing.T) {
	raw := "OPTION 1: The system created the file.\nWHY: active voice"
	candidates, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(candidates))
	}
	if candidates[0].Text != "The system created the file." {
		t.Fatalf("text = %q", candidates[0].Text)
	}
	if candidates[0].Why != "active voice" {
		t.Fatalf("why = %q", candidates[0].Why)
	}
}

func TestParseMultipleOptions(t *testing.T) {
	raw := "OPTION 1: First fix.\nWHY: reason one\nOPTION 2: Second fix.\nWHY: reason two"
	candidates, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("got %d candidates, want 2", len(candidates))
	}
	if candidates[1].Index != 2 || candidates[1].Text != "Second fix." {
		t.Fatalf("second candidate = %+v", candidates[1])
	}
}

func TestParseNoGuidance(t *testing.T) {
	for _, raw := range []string{"NO_GUIDANCE", "  no_guidance  ", "OPTION 1: NO_GUIDANCE\nWHY: nothing to say"} {
		if _, err := Parse(raw); !errors.Is(err, ErrNoGuidance) {
			t.Fatalf("Parse(%q): err = %v, want ErrNoGuidance", raw, err)
		}
	}
}

func TestParseSchemaViolations(t *testing.T) {
	cases := map[string]string{
		"empty":          "",
		"prose":          "Here is a better sentence for you.",
		"missing why":    "OPTION 1: Fixed text.",
		"empty option":   "OPTION 1:\nWHY: because",
		"why before opt": "WHY: because\nOPTION 1: text",
	}
	for name, raw := range cases {
		if _, err := Parse(raw); !errors.Is(err, ErrParse) {
			t.Fatalf("%s: err = %v, want ErrParse", name, err)
		}
	}
}

func TestParseContinuationLines(t *testing.T) {
	raw := "OPTION 1: The system creates\nthe file on startup.\nWHY: active voice"
	candidates, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if candidates[0].Text != "The system creates the file on startup." {
		t.Fatalf("text = %q", candidates[0].Text)
	}
}

func TestBuildCarriesConstraints(t *testing.T) {
	issue := Issue{
		RuleID:   "passive-voice",
		Category: "passive-voice",
		Flagged:  "The file is created by the system.",
		Domain:   "api_reference",
	}
	messages, err := Build(issue, []string{"Prefer active voice in descriptions."}, []string{"Use active voice."})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(messages) != 2 || messages[0].Role != "system" || messages[1].Role != "user" {
		t.Fatalf("unexpected message shape: %+v", messages)
	}
	system := messages[0].Content
	if !strings.Contains(system, NoGuidance) {
		t.Fatalf("system prompt missing the %s instruction", NoGuidance)
	}
	if !strings.Contains(system, "ONLY the reference passages") {
		t.Fatalf("system prompt missing the context-only constraint")
	}
	user := messages[1].Content
	for _, want := range []string{"The file is created by the system.", "Prefer active voice", "Use active voice.", "Before:"} {
		if !strings.Contains(user, want) {
			t.Fatalf("user prompt missing %q:\n%s", want, user)
		}
	}
}

func TestBuildBoundsContext(t *testing.T) {
	passages := make([]string, 12)
	for i := range passages {
		passages[i] = strings.Repeat("p", 10)
	}
	messages, err := Build(Issue{RuleID: "r", Flagged: "text"}, passages, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if strings.Contains(messages[1].Content, "[6]") {
		t.Fatalf("prompt carried more than %d passages", maxContextChunks)
	}
}

func TestSelectExemplarsBounded(t *testing.T) {
	if got := SelectExemplars("passive-voice", 1); len(got) != 1 {
		t.Fatalf("got %d exemplars, want 1", len(got))
	}
	if got := SelectExemplars("unknown-category", 2); len(got) != 0 {
		t.Fatalf("unknown category should return none, got %d", len(got))
	}
	if got := SelectExemplars("Passive-Voice", 2); len(got) != 2 {
		t.Fatalf("category match should be case-insensitive, got %d", len(got))
	}
}

func TestBuildRejectsEmptyFlagged(t *testing.T) {
	if _, err := Build(Issue{RuleID: "r"}, nil, nil); err == nil {
		t.Fatalf("empty flagged text should error")
	}
}
