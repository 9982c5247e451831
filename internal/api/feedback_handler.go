// File path: internal/api/feedback_handler.go
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/marginalia-dev/redline/internal/common"
	"github.com/marginalia-dev/redline/internal/feedback"
)

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("api: feedback decode failed", "error", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	record := feedback.Record{
		SuggestionID:     req.SuggestionID,
		RuleID:           req.RuleID,
		OriginalText:     req.OriginalText,
		SuggestedText:    req.SuggestedText,
		Method:           req.Method,
		Action:           feedback.Action(req.Action),
		Modification:     req.Modification,
		ConfidenceAtTime: req.ConfidenceAtTime,
	}
	if err := s.orchestrator.RecordFeedback(r.Context(), record); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, feedback.ErrInvalidRecord) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, feedbackResponse{Recorded: true})
}

func (s *Server) handleAdaptationReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.orchestrator.AdaptationReport(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
