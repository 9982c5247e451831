// File path: internal/api/suggest_handler.go
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/marginalia-dev/redline/internal/common"
	"github.com/marginalia-dev/redline/internal/suggest"
)

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	var req suggestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("api: suggest decode failed", "error", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	issue := suggest.CorrectionIssue{
		RuleID:           strings.TrimSpace(req.RuleID),
		FlaggedText:      req.FlaggedText,
		Context:          req.Context,
		DocumentType:     req.DocumentType,
		FullDocumentText: req.DocumentText,
		Domain:           req.Domain,
	}
	suggestion, state, err := s.orchestrator.Suggest(r.Context(), issue)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, suggest.ErrValidation) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, suggestResponse{Suggestion: suggestion, State: string(state)})
}
