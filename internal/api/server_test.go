// File path: internal/api/server_test.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/marginalia-dev/redline/internal/cache"
	"github.com/marginalia-dev/redline/internal/data/orchestrator"
	"github.com/marginalia-dev/redline/internal/embedding"
	"github.com/marginalia-dev/redline/internal/feedback"
	"github.com/marginalia-dev/redline/internal/vector"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	cfg := orchestrator.Config{
		CorpusPath:  filepath.Join(dir, "corpus"),
		CatalogPath: filepath.Join(dir, "catalog.db"),
	}
	orch, err := orchestrator.New(context.Background(), cfg,
		orchestrator.WithVectorStore(vector.NewMemoryStore("api_test")),
		orchestrator.WithEmbedder(embedding.NewLocalProvider(64)),
		orchestrator.WithCache(cache.NewMemory(64)),
		orchestrator.WithFeedbackStore(feedback.NewMemoryStore()))
	if err != nil {
		t.Fatalf("orchestrator.New: %v", err)
	}
	t.Cleanup(func() { orch.Close() })

	srv, err := NewServer(orch)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return srv
}

func postJSON(t *testing.T, srv *Server, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestSuggestEndpoint(t *testing.T) {
	srv := newTestServer(t)
	rec := postJSON(t, srv, "/v1/suggest", suggestRequest{
		RuleID:      "passive_voice",
		FlaggedText: "The file was created by the system.",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp suggestResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Suggestion.CorrectedText != "The system created the file." {
		t.Fatalf("corrected = %q", resp.Suggestion.CorrectedText)
	}
	if resp.State != "RESOLVED" {
		t.Fatalf("state = %s", resp.State)
	}
	if resp.Suggestion.ID == "" || resp.Suggestion.Confidence == "" {
		t.Fatalf("incomplete suggestion: %+v", resp.Suggestion)
	}
}

func TestSuggestEndpointRejectsEmptyText(t *testing.T) {
	srv := newTestServer(t)
	rec := postJSON(t, srv, "/v1/suggest", suggestRequest{RuleID: "passive_voice"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestIngestAndCorpusEndpoints(t *testing.T) {
	srv := newTestServer(t)
	rec := postJSON(t, srv, "/v1/ingest", ingestRequest{
		ID:      "style-guide",
		Domain:  "api_reference",
		Version: "1.0",
		Text:    "# Voice\n\nPrefer the active voice. The subject performs the action.",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("ingest status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var ingest ingestResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &ingest); err != nil {
		t.Fatalf("decode ingest: %v", err)
	}
	if ingest.Chunks == 0 {
		t.Fatalf("no chunks ingested")
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/corpus/documents", nil)
	listRec := httptest.NewRecorder()
	srv.ServeHTTP(listRec, req)
	if listRec.Code != http.StatusOK {
		t.Fatalf("list status = %d", listRec.Code)
	}
	var list struct {
		Documents []struct {
			ID     string `json:"id"`
			Chunks int    `json:"chunks"`
		} `json:"documents"`
	}
	if err := json.Unmarshal(listRec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Documents) != 1 || list.Documents[0].ID != "style-guide" {
		t.Fatalf("documents = %+v", list.Documents)
	}

	chunkReq := httptest.NewRequest(http.MethodGet, "/v1/corpus/documents/style-guide/chunks", nil)
	chunkRec := httptest.NewRecorder()
	srv.ServeHTTP(chunkRec, chunkReq)
	if chunkRec.Code != http.StatusOK {
		t.Fatalf("chunks status = %d", chunkRec.Code)
	}
}

func TestIngestRejectsMissingID(t *testing.T) {
	srv := newTestServer(t)
	rec := postJSON(t, srv, "/v1/ingest", ingestRequest{Text: "Some text."})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestFeedbackEndpoint(t *testing.T) {
	srv := newTestServer(t)
	rec := postJSON(t, srv, "/v1/feedback", feedbackRequest{
		SuggestionID:     "sug-1",
		RuleID:           "passive_voice",
		OriginalText:     "The file was created by the system.",
		SuggestedText:    "The system created the file.",
		Method:           "deterministic",
		Action:           "accepted",
		ConfidenceAtTime: 0.85,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	bad := postJSON(t, srv, "/v1/feedback", feedbackRequest{
		RuleID: "passive_voice",
		Action: "maybe",
	})
	if bad.Code != http.StatusBadRequest {
		t.Fatalf("invalid action status = %d", bad.Code)
	}

	report := httptest.NewRequest(http.MethodGet, "/v1/adaptation/report", nil)
	reportRec := httptest.NewRecorder()
	srv.ServeHTTP(reportRec, report)
	if reportRec.Code != http.StatusOK {
		t.Fatalf("report status = %d", reportRec.Code)
	}
	var parsed feedback.Report
	if err := json.Unmarshal(reportRec.Body.Bytes(), &parsed); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if parsed.Total != 1 {
		t.Fatalf("report total = %d", parsed.Total)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var health map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health["status"] != "ok" {
		t.Fatalf("health = %+v", health)
	}
}
