// File path: internal/suggest/classifier_test.go
package suggest

import (
	"strings"
	"testing"
)

func TestClassifierInvertsPassiveWithAgent(t *testing.T) {
	cl := NewClassifier()
	issue := CorrectionIssue{
		RuleID:      "passive_voice",
		FlaggedText: "The file was created by the system.",
	}
	got, ok := cl.Apply(issue)
	if !ok {
		t.Fatalf("Apply declined")
	}
	if got != "The system created the file." {
		t.Fatalf("Apply = %q, want %q", got, "The system created the file.")
	}
}

func TestClassifierInfersAgentFromDocumentType(t *testing.T) {
	cl := NewClassifier()
	cases := []struct {
		docType string
		want    string
	}{
		{DocTypeAPIReference, "The system"},
		{DocTypeUserGuide, "You"},
	}
	for _, tc := range cases {
		issue := CorrectionIssue{
			RuleID:       "passive_voice",
			FlaggedText:  "The report was generated.",
			DocumentType: tc.docType,
		}
		got, ok := cl.Apply(issue)
		if !ok {
			t.Fatalf("Apply declined for %s", tc.docType)
		}
		if !strings.HasPrefix(got, tc.want+" ") {
			t.Fatalf("Apply for %s = %q, want agent %q", tc.docType, got, tc.want)
		}
	}
}

func TestClassifierIdempotentOnActiveText(t *testing.T) {
	cl := NewClassifier()
	issue := CorrectionIssue{RuleID: "passive_voice", FlaggedText: "The system created the file."}
	if got, ok := cl.Apply(issue); ok {
		t.Fatalf("active sentence rewritten to %q", got)
	}
}

func TestClassifierClassifiesDocumentFromText(t *testing.T) {
	cl := NewClassifier()
	cases := []struct {
		text string
		want string
	}{
		{"Send a request to the endpoint. The response includes a status code and payload schema.", DocTypeAPIReference},
		{"Click Settings, then navigate to the dashboard and select an option.", DocTypeUserGuide},
		{"Step 1: first install the tool. Next, follow along. Finally, by the end you will have a working setup.", DocTypeTutorial},
		{"Nothing in particular.", DocTypeGeneric},
	}
	for _, tc := range cases {
		got := cl.ClassifyDocument(CorrectionIssue{FullDocumentText: tc.text})
		if got != tc.want {
			t.Fatalf("ClassifyDocument(%q) = %s, want %s", tc.text, got, tc.want)
		}
	}
}

func TestClassifierSecondPerson(t *testing.T) {
	cl := NewClassifier()
	issue := CorrectionIssue{
		RuleID:       "second_person",
		FlaggedText:  "The user can export the report.",
		DocumentType: DocTypeUserGuide,
	}
	got, ok := cl.Apply(issue)
	if !ok {
		t.Fatalf("Apply declined")
	}
	if got != "You can export the report." {
		t.Fatalf("Apply = %q", got)
	}
}

func TestFallbackAlwaysDiffers(t *testing.T) {
	fb := NewFallback()
	cases := []CorrectionIssue{
		{RuleID: "spacing", FlaggedText: "Too  many   spaces ."},
		{RuleID: "repetition", FlaggedText: "the the file"},
		{RuleID: "tone.formality", FlaggedText: "This sentence is already clean."},
	}
	for _, issue := range cases {
		got := fb.Apply(issue)
		if got == "" {
			t.Fatalf("empty fallback for %q", issue.FlaggedText)
		}
		if !materiallyDifferent(issue.FlaggedText, got) {
			t.Fatalf("fallback identical to input for %q", issue.FlaggedText)
		}
	}
}

func TestFallbackMechanicalCleanup(t *testing.T) {
	fb := NewFallback()
	got := fb.Apply(CorrectionIssue{RuleID: "spacing", FlaggedText: "Too  many   spaces ."})
	if got != "Too many spaces." {
		t.Fatalf("Apply = %q", got)
	}
}
