// File path: internal/retriever/lexical.go
package retriever

import (
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/marginalia-dev/redline/internal/corpus"
)

// Entry is one indexable chunk with the document metadata needed for
// pre-filtering.
type Entry struct {
	Chunk   corpus.Chunk
	Domain  string
	Version string
}

// LexicalHit is a scored lexical match.
type LexicalHit struct {
	Entry Entry
	Score float64
}

// LexicalIndex ranks chunks by TF-IDF cosine similarity. The index is
// rebuilt explicitly when corpus content changes, never implicitly on
// write.
type LexicalIndex struct {
	mu      sync.RWMutex
	entries map[string]Entry
	vectors map[string]map[string]float64
	norms   map[string]float64
	df      map[string]int
	total   int
	built   bool
}

func NewLexicalIndex() *LexicalIndex {
	return &LexicalIndex{}
}

// Ready reports whether the index has been built at least once.
func (l *LexicalIndex) Ready() bool {
	if l == nil {
		return false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.built
}

// Len reports the number of indexed chunks.
func (l *LexicalIndex) Len() int {
	if l == nil {
		return 0
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Rebuild replaces the index contents with the given entries.
func (l *LexicalIndex) Rebuild(entries []Entry) {
	vectors := make(map[string]map[string]float64, len(entries))
	byID := make(map[string]Entry, len(entries))
	df := make(map[string]int)
	total := len(entries)
	for _, entry := range entries {
		terms := tokenize(entry.Chunk.Text + " " + entry.Chunk.SectionTitle + " " + strings.Join(entry.Chunk.RuleTags, " "))
		tf := make(map[string]float64)
		for _, term := range terms {
			tf[term]++
		}
		for term := range tf {
			df[term]++
		}
		vectors[entry.Chunk.ID] = tf
		byID[entry.Chunk.ID] = entry
	}
	norms := make(map[string]float64, len(vectors))
	for id, tf := range vectors {
		var norm float64
		for term, freq := range tf {
			weight := tfidfWeight(df, total, term, freq)
			tf[term] = weight
			norm += weight * weight
		}
		norms[id] = math.Sqrt(norm)
	}

	l.mu.Lock()
	l.entries = byID
	l.vectors = vectors
	l.norms = norms
	l.df = df
	l.total = total
	l.built = true
	l.mu.Unlock()
}

// Search scores the query against every indexed chunk passing the filter
// and returns the top hits by cosine similarity.
func (l *LexicalIndex) Search(query string, limit int, filter QueryFilter) []LexicalHit {
	if l == nil || !l.Ready() {
		return nil
	}
	if limit <= 0 {
		limit = 20
	}
	terms := tokenize(query)
	if len(terms) == 0 {
		return nil
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	qtf := make(map[string]float64)
	for _, term := range terms {
		qtf[term]++
	}
	var qnorm float64
	for term, freq := range qtf {
		weight := tfidfWeight(l.df, l.total, term, freq)
		qtf[term] = weight
		qnorm += weight * weight
	}
	qnorm = math.Sqrt(qnorm)
	if qnorm == 0 {
		return nil
	}

	hits := make([]LexicalHit, 0, len(l.entries))
	for id, entry := range l.entries {
		if !filter.matches(entry) {
			continue
		}
		dv := l.vectors[id]
		if len(dv) == 0 {
			continue
		}
		var dot float64
		for term, weight := range qtf {
			dot += weight * dv[term]
		}
		denom := qnorm * l.norms[id]
		if denom == 0 {
			continue
		}
		score := dot / denom
		if score <= 0 {
			continue
		}
		hits = append(hits, LexicalHit{Entry: entry, Score: score})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score == hits[j].Score {
			return hits[i].Entry.Chunk.ID < hits[j].Entry.Chunk.ID
		}
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

func tokenize(text string) []string {
	text = strings.ToLower(text)
	replacer := strings.NewReplacer(
		".", " ",
		",", " ",
		"\n", " ",
		"\t", " ",
		":", " ",
		";", " ",
		"-", " ",
		"_", " ",
		"(", " ",
		")", " ",
		"'", " ",
		"\"", " ",
	)
	cleaned := replacer.Replace(text)
	return strings.Fields(cleaned)
}

func tfidfWeight(df map[string]int, total int, term string, freq float64) float64 {
	count := float64(df[term])
	if count == 0 {
		return 0
	}
	idf := math.Log((float64(total)+1)/(count+1)) + 1
	return freq * idf
}
