// File path: internal/api/server.go
package api

import (
	"encoding/json"
	"expvar"
	"fmt"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"

	"github.com/marginalia-dev/redline/internal/common"
	"github.com/marginalia-dev/redline/internal/data/orchestrator"
)

// Server exposes the suggestion engine over HTTP.
type Server struct {
	router chi.Router

	orchestrator *orchestrator.Orchestrator
}

// NewServer builds the HTTP layer on top of a constructed orchestrator.
func NewServer(orch *orchestrator.Orchestrator) (*Server, error) {
	if orch == nil {
		return nil, fmt.Errorf("orchestrator required")
	}
	srv := &Server{
		router:       chi.NewRouter(),
		orchestrator: orch,
	}
	srv.routes()
	common.Logger().Info("api: server ready")
	return srv, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	logger := common.Logger()
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "dur", time.Since(start), "remote", r.RemoteAddr)
		})
	})

	s.router.Get("/healthz", s.handleHealth)
	s.router.Method(http.MethodGet, "/debug/vars", expvar.Handler())

	s.router.Post("/v1/suggest", s.handleSuggest)
	s.router.Post("/v1/feedback", s.handleFeedback)
	s.router.Get("/v1/adaptation/report", s.handleAdaptationReport)
	s.router.Post("/v1/ingest", s.handleIngest)
	s.router.Get("/v1/corpus/documents", s.handleListDocuments)
	s.router.Get("/v1/corpus/documents/{docID}/chunks", s.handleDocumentChunks)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := s.orchestrator.Health(r.Context())
	status := http.StatusOK
	if health["status"] == "down" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	logger := common.Logger()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
	} else {
		logger.Warn("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
