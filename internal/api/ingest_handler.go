// File path: internal/api/ingest_handler.go
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	chi "github.com/go-chi/chi/v5"

	"github.com/marginalia-dev/redline/internal/common"
	"github.com/marginalia-dev/redline/internal/corpus"
)

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("api: ingest decode failed", "error", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, errors.New("id is required"))
		return
	}
	doc := corpus.Document{
		ID:       req.ID,
		Title:    req.Title,
		Domain:   req.Domain,
		Version:  req.Version,
		Text:     req.Text,
		RuleTags: req.RuleTags,
	}
	logger.Info("api: ingest requested", "doc", doc.ID, "domain", doc.Domain, "version", doc.Version)
	chunks, err := s.orchestrator.Ingest(r.Context(), doc)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, corpus.ErrInvalidInput) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, ingestResponse{ID: doc.ID, Chunks: chunks})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.orchestrator.Documents(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"documents": docs})
}

func (s *Server) handleDocumentChunks(w http.ResponseWriter, r *http.Request) {
	docID := strings.TrimSpace(chi.URLParam(r, "docID"))
	if docID == "" {
		writeError(w, http.StatusBadRequest, errors.New("document id required"))
		return
	}
	chunks, err := s.orchestrator.DocumentChunks(r.Context(), docID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if len(chunks) == 0 {
		writeError(w, http.StatusNotFound, errors.New("document not found"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"doc_id": docID, "chunks": chunks})
}
