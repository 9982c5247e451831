// File path: internal/vector/chromadb.go
package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/marginalia-dev/redline/internal/common"
	"github.com/marginalia-dev/redline/internal/common/telemetry"
	"github.com/marginalia-dev/redline/internal/corpus"
)

// Client talks to a ChromaDB server over its HTTP API. The zero value is not
// usable; construct with New.
type Client struct {
	httpClient *http.Client
	transport  *http.Transport

	baseURL      string
	collection   string
	collectionID string
	available    bool
	apiKey       string

	// dimension is pinned by the first EnsureCollection call.
	dimension int

	cfg Config

	mu sync.RWMutex
}

func NewFromEnv(ctx context.Context) (*Client, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	return New(ctx, cfg)
}

// New constructs a client using the provided configuration. Connection
// failures are logged, not fatal: the client reports !Available and the
// retriever degrades instead of the process refusing to start.
func New(ctx context.Context, cfg Config) (*Client, error) {
	baseURL := fmt.Sprintf("%s://%s:%s/api/v1", cfg.Scheme, cfg.Host, cfg.Port)
	logger := common.Logger()
	logger.Info(
		"vector: initializing chromadb client",
		"host", cfg.Host,
		"port", cfg.Port,
		"collection", cfg.Collection,
		"timeout", cfg.Timeout,
	)

	transport := &http.Transport{
		MaxIdleConns:        cfg.HTTPMaxIdleConns,
		MaxIdleConnsPerHost: cfg.HTTPMaxIdlePerHost,
		MaxConnsPerHost:     cfg.HTTPMaxConnsPerHost,
		IdleConnTimeout:     cfg.HTTPIdleConnTimeout,
	}

	client := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout, Transport: transport},
		transport:  transport,
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: cfg.Collection,
		apiKey:     cfg.APIKey,
		cfg:        cfg,
	}

	if err := client.ensureReady(ctx); err != nil {
		logger.Warn("vector: chromadb initialization failed", "collection", cfg.Collection, "error", err)
		return client, nil
	}
	logger.Info("vector: chromadb connection established")
	return client, nil
}

func (c *Client) Available() bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.available
}

func (c *Client) SetCollection(name string) {
	if c == nil {
		return
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return
	}
	c.mu.Lock()
	if trimmed != c.collection {
		c.collection = trimmed
		c.collectionID = ""
		c.dimension = 0
	}
	c.mu.Unlock()
}

func (c *Client) Collection() string {
	if c == nil {
		return ""
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.collection
}

func (c *Client) ensureReady(ctx context.Context) error {
	if c == nil {
		return errors.New("chromadb client not configured")
	}
	c.mu.RLock()
	available := c.available
	collectionID := c.collectionID
	c.mu.RUnlock()

	if available && collectionID != "" {
		return nil
	}
	const maxAttempts = 3
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err = c.health(ctx)
		if err == nil {
			break
		}
		select {
		case <-ctx.Done():
			c.setAvailable(false)
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 250 * time.Millisecond):
		}
	}
	if err != nil {
		c.setAvailable(false)
		return err
	}
	if err = c.ensureCollectionID(ctx); err != nil {
		c.setAvailable(false)
		return err
	}
	c.setAvailable(true)
	return nil
}

func (c *Client) setAvailable(value bool) {
	c.mu.Lock()
	c.available = value
	c.mu.Unlock()
}

// EnsureCollection readies the collection and pins its vector dimension.
// Later upserts and searches with a different width fail with
// ErrDimensionMismatch rather than corrupting the collection.
func (c *Client) EnsureCollection(ctx context.Context, dim int) error {
	if dim <= 0 {
		return errors.New("invalid vector dimension")
	}
	if err := c.ensureReady(ctx); err != nil {
		return err
	}
	if !c.Available() {
		return errors.New("chromadb unavailable")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dimension != 0 && c.dimension != dim {
		return fmt.Errorf("%w: collection pinned to %d, got %d", ErrDimensionMismatch, c.dimension, dim)
	}
	c.dimension = dim
	return nil
}

func (c *Client) checkDimension(width int) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.dimension != 0 && width != 0 && width != c.dimension {
		return fmt.Errorf("%w: collection pinned to %d, got %d", ErrDimensionMismatch, c.dimension, width)
	}
	return nil
}

func (c *Client) UpsertChunks(ctx context.Context, doc corpus.Document, chunks []corpus.Chunk, vectors [][]float32) error {
	if err := c.ensureReady(ctx); err != nil {
		return err
	}
	if !c.Available() {
		return errors.New("chromadb unavailable")
	}
	if len(chunks) == 0 {
		return nil
	}
	width, err := uniformWidth(vectors)
	if err != nil {
		return err
	}
	if err := c.checkDimension(width); err != nil {
		return err
	}
	ids := make([]string, 0, len(chunks))
	embeddings := make([][]float32, 0, len(chunks))
	documents := make([]string, 0, len(chunks))
	metadatas := make([]map[string]interface{}, 0, len(chunks))
	for idx, chunk := range chunks {
		ids = append(ids, chunk.ID)
		if idx < len(vectors) {
			embeddings = append(embeddings, vectors[idx])
		} else {
			embeddings = append(embeddings, nil)
		}
		documents = append(documents, chunk.Text)
		metadatas = append(metadatas, metadataFromChunk(doc, chunk))
	}
	payload := map[string]interface{}{
		"ids":        ids,
		"documents":  documents,
		"metadatas":  metadatas,
		"embeddings": embeddings,
	}
	endpoint := fmt.Sprintf("%s/collections/%s/upsert", c.baseURL, url.PathEscape(c.currentCollectionID()))
	if err := c.doRequest(ctx, http.MethodPost, endpoint, payload, nil); err != nil {
		if errors.Is(err, errNotFound) {
			fallback := fmt.Sprintf("%s/collections/%s/add", c.baseURL, url.PathEscape(c.currentCollectionID()))
			if fallbackErr := c.doRequest(ctx, http.MethodPost, fallback, payload, nil); fallbackErr != nil {
				return fallbackErr
			}
			return nil
		}
		return err
	}
	return nil
}

func metadataFromChunk(doc corpus.Document, chunk corpus.Chunk) map[string]interface{} {
	metadata := chunk.Metadata()
	if strings.TrimSpace(doc.Domain) != "" {
		metadata["domain"] = doc.Domain
	}
	if strings.TrimSpace(doc.Version) != "" {
		metadata["version"] = doc.Version
	}
	return metadata
}

// whereClause converts the filter to a chromadb where document. Rule tags
// are stored comma-joined, so tag matching happens client-side in Search.
func whereClause(filter Filter) map[string]interface{} {
	var clauses []map[string]interface{}
	if filter.Domain != "" {
		clauses = append(clauses, map[string]interface{}{"domain": map[string]interface{}{"$eq": filter.Domain}})
	}
	if filter.Version != "" {
		clauses = append(clauses, map[string]interface{}{"version": map[string]interface{}{"$eq": filter.Version}})
	}
	if filter.Structural != "" {
		clauses = append(clauses, map[string]interface{}{"structural_type": map[string]interface{}{"$eq": filter.Structural}})
	}
	switch len(clauses) {
	case 0:
		return nil
	case 1:
		return clauses[0]
	default:
		return map[string]interface{}{"$and": clauses}
	}
}

func matchesRuleTag(payload map[string]interface{}, tag string) bool {
	if tag == "" {
		return true
	}
	raw, ok := payload["rule_tags"].(string)
	if !ok {
		return false
	}
	for _, candidate := range strings.Split(raw, ",") {
		if strings.EqualFold(strings.TrimSpace(candidate), tag) {
			return true
		}
	}
	return false
}

func (c *Client) Search(ctx context.Context, vector []float32, limit int, filter Filter) ([]SearchResult, error) {
	if err := c.ensureReady(ctx); err != nil {
		return nil, err
	}
	if !c.Available() {
		return nil, errors.New("chromadb unavailable")
	}
	if limit <= 0 {
		limit = 5
	}
	if err := c.checkDimension(len(vector)); err != nil {
		return nil, err
	}
	fetch := limit
	if filter.RuleTag != "" {
		// Over-fetch so the client-side tag filter still fills the window.
		fetch = limit * 3
	}
	body := map[string]interface{}{
		"query_embeddings": [][]float32{vector},
		"n_results":        fetch,
	}
	if where := whereClause(filter); where != nil {
		body["where"] = where
	}
	endpoint := fmt.Sprintf("%s/collections/%s/query", c.baseURL, url.PathEscape(c.currentCollectionID()))
	var resp struct {
		IDs       [][]string                 `json:"ids"`
		Distances [][]float64                `json:"distances"`
		Metadatas [][]map[string]interface{} `json:"metadatas"`
		Documents [][]string                 `json:"documents"`
	}
	start := time.Now()
	err := c.doRequest(ctx, http.MethodPost, endpoint, body, &resp)
	telemetry.RecordVectorSearch(time.Since(start))
	if err != nil {
		return nil, err
	}
	if len(resp.IDs) == 0 {
		return nil, nil
	}
	results := make([]SearchResult, 0, len(resp.IDs[0]))
	for idx, id := range resp.IDs[0] {
		payload := map[string]interface{}{}
		if len(resp.Metadatas) > 0 && idx < len(resp.Metadatas[0]) {
			for k, v := range resp.Metadatas[0][idx] {
				payload[k] = v
			}
		}
		if len(resp.Documents) > 0 && idx < len(resp.Documents[0]) && resp.Documents[0][idx] != "" {
			payload["content"] = resp.Documents[0][idx]
		}
		if !matchesRuleTag(payload, filter.RuleTag) {
			continue
		}
		score := float32(0)
		if len(resp.Distances) > 0 && idx < len(resp.Distances[0]) {
			dist := resp.Distances[0][idx]
			score = float32(1.0 / (1.0 + dist))
		}
		results = append(results, SearchResult{ID: id, Score: score, Payload: payload})
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

var _ Store = (*Client)(nil)

func (c *Client) currentCollectionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.collectionID
}

func (c *Client) ensureCollectionID(ctx context.Context) error {
	c.mu.RLock()
	if c.collectionID != "" {
		c.mu.RUnlock()
		return nil
	}
	name := c.collection
	c.mu.RUnlock()
	id, err := c.findCollection(ctx, name)
	if err != nil {
		return err
	}
	if id != "" {
		c.mu.Lock()
		c.collectionID = id
		c.mu.Unlock()
		return nil
	}
	created, err := c.createCollection(ctx, name)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.collectionID = created
	c.mu.Unlock()
	return nil
}

func (c *Client) findCollection(ctx context.Context, name string) (string, error) {
	endpoint := fmt.Sprintf("%s/collections?name=%s", c.baseURL, url.QueryEscape(name))
	var resp struct {
		Collections []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"collections"`
	}
	if err := c.doRequest(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		if errors.Is(err, errNotFound) {
			return "", nil
		}
		// Fallback to enumerating collections when the name filter is unsupported.
		endpoint = fmt.Sprintf("%s/collections", c.baseURL)
		if err := c.doRequest(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
			return "", err
		}
	}
	for _, col := range resp.Collections {
		if strings.EqualFold(col.Name, name) {
			return col.ID, nil
		}
	}
	return "", nil
}

func (c *Client) createCollection(ctx context.Context, name string) (string, error) {
	payload := map[string]interface{}{"name": name}
	endpoint := fmt.Sprintf("%s/collections", c.baseURL)
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.doRequest(ctx, http.MethodPost, endpoint, payload, &resp); err != nil {
		if errors.Is(err, errConflict) {
			return c.findCollection(ctx, name)
		}
		return "", err
	}
	return resp.ID, nil
}

var (
	errNotFound = errors.New("resource not found")
	errConflict = errors.New("resource conflict")
)

func (c *Client) health(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/heartbeat", c.baseURL)
	return c.doRequest(ctx, http.MethodGet, endpoint, nil, nil)
}

func (c *Client) doRequest(ctx context.Context, method, endpoint string, body interface{}, out interface{}) error {
	if c == nil {
		return errors.New("chromadb client not configured")
	}
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode == http.StatusConflict {
		return errConflict
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("chromadb %s %s failed: %s", method, endpoint, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	return decoder.Decode(out)
}

// Close releases pooled resources associated with the client.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	if c.transport != nil {
		c.transport.CloseIdleConnections()
	}
	return nil
}
