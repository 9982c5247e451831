// File path: internal/retriever/rerank.go
package retriever

import (
	"context"
	"strings"
)

// Reranker scores (query, candidate) pairs. Scores are in [0, 1] keyed by
// chunk id; candidates absent from the map keep their hybrid score.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []Result) (map[string]float64, error)
	Name() string
}

// OverlapReranker is the in-process default: token-set overlap between query
// and candidate text. Deliberately cheap; a cross-encoder backend can plug
// in behind the same interface.
type OverlapReranker struct{}

func NewOverlapReranker() *OverlapReranker {
	return &OverlapReranker{}
}

func (o *OverlapReranker) Name() string { return "overlap" }

func (o *OverlapReranker) Rerank(ctx context.Context, query string, candidates []Result) (map[string]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	queryTerms := termSet(query)
	if len(queryTerms) == 0 {
		return nil, nil
	}
	scores := make(map[string]float64, len(candidates))
	for _, candidate := range candidates {
		candidateTerms := termSet(candidate.Text)
		if len(candidateTerms) == 0 {
			scores[candidate.ChunkID] = 0
			continue
		}
		var shared int
		for term := range queryTerms {
			if _, ok := candidateTerms[term]; ok {
				shared++
			}
		}
		union := len(queryTerms) + len(candidateTerms) - shared
		if union == 0 {
			scores[candidate.ChunkID] = 0
			continue
		}
		scores[candidate.ChunkID] = float64(shared) / float64(union)
	}
	return scores, nil
}

func termSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, term := range tokenize(text) {
		if len(term) < 2 {
			continue
		}
		set[strings.ToLower(term)] = struct{}{}
	}
	return set
}

var _ Reranker = (*OverlapReranker)(nil)
