// File path: internal/api/types.go
package api

import (
	"github.com/marginalia-dev/redline/internal/suggest"
)

type suggestRequest struct {
	RuleID       string `json:"rule_id"`
	FlaggedText  string `json:"flagged_text"`
	Context      string `json:"context,omitempty"`
	DocumentType string `json:"document_type,omitempty"`
	DocumentText string `json:"document_text,omitempty"`
	Domain       string `json:"domain,omitempty"`
}

type suggestResponse struct {
	Suggestion suggest.Suggestion `json:"suggestion"`
	State      string             `json:"state"`
}

type feedbackRequest struct {
	SuggestionID     string  `json:"suggestion_id"`
	RuleID           string  `json:"rule_id"`
	OriginalText     string  `json:"original_text,omitempty"`
	SuggestedText    string  `json:"suggested_text,omitempty"`
	Method           string  `json:"method"`
	Action           string  `json:"action"`
	Modification     string  `json:"modification,omitempty"`
	ConfidenceAtTime float64 `json:"confidence_at_time,omitempty"`
}

type feedbackResponse struct {
	Recorded bool `json:"recorded"`
}

type ingestRequest struct {
	ID       string   `json:"id"`
	Title    string   `json:"title,omitempty"`
	Domain   string   `json:"domain,omitempty"`
	Version  string   `json:"version,omitempty"`
	Text     string   `json:"text"`
	RuleTags []string `json:"rule_tags,omitempty"`
}

type ingestResponse struct {
	ID     string `json:"id"`
	Chunks int    `json:"chunks"`
}
