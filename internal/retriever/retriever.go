// File path: internal/retriever/retriever.go
package retriever

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/marginalia-dev/redline/internal/common"
	"github.com/marginalia-dev/redline/internal/embedding"
	"github.com/marginalia-dev/redline/internal/vector"
)

// ErrUnavailable reports that the semantic side is down. Lexical-only
// operation is a deliberate configuration, never a silent degradation.
var ErrUnavailable = errors.New("retriever: vector store unavailable")

// QueryFilter excludes non-matching chunks before scoring.
type QueryFilter struct {
	Domain     string
	Version    string
	Structural string
	RuleTag    string
}

func (f QueryFilter) matches(entry Entry) bool {
	if f.Domain != "" && !strings.EqualFold(entry.Domain, f.Domain) {
		return false
	}
	if f.Version != "" && !strings.EqualFold(entry.Version, f.Version) {
		return false
	}
	if f.Structural != "" && !strings.EqualFold(string(entry.Chunk.Structural), f.Structural) {
		return false
	}
	if f.RuleTag != "" {
		for _, tag := range entry.Chunk.RuleTags {
			if strings.EqualFold(tag, f.RuleTag) {
				return true
			}
		}
		return false
	}
	return true
}

func (f QueryFilter) vectorFilter() vector.Filter {
	return vector.Filter{
		Domain:     f.Domain,
		Version:    f.Version,
		Structural: f.Structural,
		RuleTag:    f.RuleTag,
	}
}

// Result is one ranked retrieval candidate. Scores are per query and never
// persisted. HybridScore and FinalScore are in [0, 1].
type Result struct {
	ChunkID       string  `json:"chunk_id"`
	Text          string  `json:"text"`
	LexicalScore  float64 `json:"lexical_score"`
	SemanticScore float64 `json:"semantic_score"`
	RerankScore   float64 `json:"rerank_score"`
	HybridScore   float64 `json:"hybrid_score"`
	FinalScore    float64 `json:"final_score"`
	Source        string  `json:"source"`
}

// Retriever merges lexical and semantic candidates into one ranked window.
type Retriever struct {
	cfg      Config
	store    vector.Store
	embedder embedding.Provider
	lexical  *LexicalIndex
	reranker Reranker
}

type Option func(*Retriever)

// WithReranker installs a second-stage scorer blended in at RerankWeight.
func WithReranker(reranker Reranker) Option {
	return func(r *Retriever) {
		r.reranker = reranker
	}
}

// WithConfig overrides the default configuration.
func WithConfig(cfg Config) Option {
	return func(r *Retriever) {
		r.cfg = cfg.withDefaults()
	}
}

func New(store vector.Store, embedder embedding.Provider, lexical *LexicalIndex, opts ...Option) *Retriever {
	r := &Retriever{
		cfg:      DefaultConfig(),
		store:    store,
		embedder: embedder,
		lexical:  lexical,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Lexical exposes the index for explicit rebuilds after ingestion.
func (r *Retriever) Lexical() *LexicalIndex {
	return r.lexical
}

// Retrieve runs the hybrid pipeline: semantic top-k, filtered lexical
// ranking, per-side min-max normalization, weighted merge, optional
// re-ranking, then the dynamic window.
func (r *Retriever) Retrieve(ctx context.Context, query string, filter QueryFilter) ([]Result, error) {
	if r == nil {
		return nil, ErrUnavailable
	}
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, nil
	}
	logger := common.Logger()

	if r.store == nil || !r.store.Available() {
		return nil, ErrUnavailable
	}
	queryVector, err := r.embedder.Embed(ctx, enrichQuery(trimmed, filter))
	if err != nil {
		return nil, fmt.Errorf("retriever: embed query: %w", err)
	}
	semantic, err := r.store.Search(ctx, queryVector, r.cfg.SemanticTopK, filter.vectorFilter())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var lexicalHits []LexicalHit
	if r.lexical.Ready() {
		lexicalHits = r.lexical.Search(trimmed, r.cfg.SemanticTopK, filter)
	} else {
		logger.Debug("retriever: lexical index not built, semantic-only", "query_tokens", len(strings.Fields(trimmed)))
	}

	candidates := r.merge(semantic, lexicalHits)
	if len(candidates) == 0 {
		return nil, nil
	}

	if r.reranker != nil {
		scores, rerr := r.reranker.Rerank(ctx, trimmed, candidates)
		if rerr != nil {
			logger.Warn("retriever: rerank failed, keeping hybrid order", "reranker", r.reranker.Name(), "error", rerr)
		} else {
			for i := range candidates {
				score, ok := scores[candidates[i].ChunkID]
				if !ok {
					candidates[i].FinalScore = candidates[i].HybridScore
					continue
				}
				candidates[i].RerankScore = clamp01(score)
				candidates[i].FinalScore = (1-r.cfg.RerankWeight)*candidates[i].HybridScore + r.cfg.RerankWeight*candidates[i].RerankScore
			}
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].FinalScore == candidates[j].FinalScore {
			return candidates[i].ChunkID < candidates[j].ChunkID
		}
		return candidates[i].FinalScore > candidates[j].FinalScore
	})

	window := r.window(trimmed, candidates[0].FinalScore)
	if len(candidates) > window {
		candidates = candidates[:window]
	}
	return candidates, nil
}

// merge joins the two candidate sets by chunk id. A side a candidate is
// missing defaults to 0 before normalization.
func (r *Retriever) merge(semantic []vector.SearchResult, lexicalHits []LexicalHit) []Result {
	byID := make(map[string]*Result)
	for _, hit := range semantic {
		byID[hit.ID] = &Result{
			ChunkID:       hit.ID,
			Text:          hit.Text(),
			SemanticScore: float64(hit.Score),
			Source:        "semantic",
		}
	}
	for _, hit := range lexicalHits {
		id := hit.Entry.Chunk.ID
		if existing, ok := byID[id]; ok {
			existing.LexicalScore = hit.Score
			existing.Source = "hybrid"
			if existing.Text == "" {
				existing.Text = hit.Entry.Chunk.Text
			}
			continue
		}
		byID[id] = &Result{
			ChunkID:      id,
			Text:         hit.Entry.Chunk.Text,
			LexicalScore: hit.Score,
			Source:       "lexical",
		}
	}

	results := make([]Result, 0, len(byID))
	for _, candidate := range byID {
		results = append(results, *candidate)
	}
	normalizeSide(results, func(r *Result) *float64 { return &r.SemanticScore })
	normalizeSide(results, func(r *Result) *float64 { return &r.LexicalScore })
	w := r.cfg.SemanticWeight
	for i := range results {
		results[i].HybridScore = clamp01(w*results[i].SemanticScore + (1-w)*results[i].LexicalScore)
		results[i].FinalScore = results[i].HybridScore
	}
	return results
}

// normalizeSide min-max normalizes one score side across the candidate set.
// A flat side collapses to 1 when any score is positive, to 0 otherwise.
func normalizeSide(results []Result, side func(*Result) *float64) {
	if len(results) == 0 {
		return
	}
	min, max := *side(&results[0]), *side(&results[0])
	for i := range results {
		value := *side(&results[i])
		if value < min {
			min = value
		}
		if value > max {
			max = value
		}
	}
	for i := range results {
		slot := side(&results[i])
		switch {
		case max > min:
			*slot = (*slot - min) / (max - min)
		case max > 0:
			*slot = 1
		default:
			*slot = 0
		}
	}
}

// window sizes the returned slice: longer queries widen it, a very
// confident leading candidate narrows it, always inside the configured
// bounds.
func (r *Retriever) window(query string, leadingScore float64) int {
	tokens := len(strings.Fields(query))
	window := r.cfg.WindowLow + tokens/8
	if leadingScore >= 0.85 {
		window = r.cfg.WindowLow
	}
	if window < r.cfg.WindowLow {
		window = r.cfg.WindowLow
	}
	if window > r.cfg.WindowHigh {
		window = r.cfg.WindowHigh
	}
	return window
}

// enrichQuery mirrors the chunk-side metadata prefix so query and index
// vectors live in the same space.
func enrichQuery(query string, filter QueryFilter) string {
	var parts []string
	if filter.Domain != "" {
		parts = append(parts, filter.Domain)
	}
	if filter.Version != "" {
		parts = append(parts, filter.Version)
	}
	if filter.RuleTag != "" {
		parts = append(parts, filter.RuleTag)
	}
	if len(parts) == 0 {
		return query
	}
	return "[" + strings.Join(parts, " | ") + "] " + query
}

func clamp01(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
