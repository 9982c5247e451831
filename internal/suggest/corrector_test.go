// File path: internal/suggest/corrector_test.go
package suggest

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCorrectorBuiltinReplacements(t *testing.T) {
	corrector, err := NewCorrector("")
	if err != nil {
		t.Fatalf("NewCorrector: %v", err)
	}
	defer corrector.Close()

	cases := []struct {
		rule string
		in   string
		want string
	}{
		{"wordiness.redundant", "You need to do this in order to proceed.", "You need to do this to proceed."},
		{"terminology.preferred", "Utilize the API to send an e-mail.", "Use the API to send an email."},
		{"heading_case", "Getting Started With The API", "Getting started with the API"},
		{"capitalization", "the response includes a token.", "The response includes a token."},
	}
	for _, tc := range cases {
		issue := CorrectionIssue{RuleID: tc.rule, FlaggedText: tc.in}
		got, ok := corrector.Apply(issue)
		if !ok {
			t.Fatalf("Apply(%q, %q): no correction", tc.rule, tc.in)
		}
		if got != tc.want {
			t.Fatalf("Apply(%q, %q) = %q, want %q", tc.rule, tc.in, got, tc.want)
		}
	}
}

func TestCorrectorIdempotent(t *testing.T) {
	corrector, err := NewCorrector("")
	if err != nil {
		t.Fatalf("NewCorrector: %v", err)
	}
	defer corrector.Close()

	issue := CorrectionIssue{RuleID: "terminology", FlaggedText: "Utilize the API."}
	first, ok := corrector.Apply(issue)
	if !ok {
		t.Fatalf("first Apply declined")
	}
	if _, ok := corrector.Apply(CorrectionIssue{RuleID: "terminology", FlaggedText: first}); ok {
		t.Fatalf("second Apply on corrected text produced another change")
	}
}

func TestCorrectorDeclinesUnmatchedCategory(t *testing.T) {
	corrector, err := NewCorrector("")
	if err != nil {
		t.Fatalf("NewCorrector: %v", err)
	}
	defer corrector.Close()

	if got, ok := corrector.Apply(CorrectionIssue{RuleID: "tone.formality", FlaggedText: "This sentence is fine."}); ok {
		t.Fatalf("expected decline, got %q", got)
	}
}

func TestCorrectorLoadsRuleTableFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.json")
	table := `[{"pattern": "(?i)\\bclick on\\b", "category": "terminology", "transform": "replace", "replacement": "click"}]`
	if err := os.WriteFile(path, []byte(table), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	corrector, err := NewCorrector(path)
	if err != nil {
		t.Fatalf("NewCorrector: %v", err)
	}
	defer corrector.Close()

	if corrector.RuleCount() != len(builtinRules)+1 {
		t.Fatalf("RuleCount = %d, want %d", corrector.RuleCount(), len(builtinRules)+1)
	}
	got, ok := corrector.Apply(CorrectionIssue{RuleID: "terminology", FlaggedText: "Click on the Save button."})
	if !ok || got != "Click the Save button." {
		t.Fatalf("Apply = %q, %v", got, ok)
	}
}

func TestCorrectorReloadKeepsTableOnBadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.json")
	if err := os.WriteFile(path, []byte(`[]`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	corrector, err := NewCorrector(path)
	if err != nil {
		t.Fatalf("NewCorrector: %v", err)
	}
	defer corrector.Close()
	before := corrector.RuleCount()

	if err := os.WriteFile(path, []byte(`{not json`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := corrector.reload(); err == nil {
		t.Fatalf("reload accepted malformed table")
	}
	if corrector.RuleCount() != before {
		t.Fatalf("RuleCount changed after failed reload: %d != %d", corrector.RuleCount(), before)
	}
}

func TestCorrectorRejectsBadPattern(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.json")
	if err := os.WriteFile(path, []byte(`[{"pattern": "([", "category": "*", "transform": "replace"}]`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := NewCorrector(path); err == nil {
		t.Fatalf("expected pattern compile error")
	}
}
