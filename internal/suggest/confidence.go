// File path: internal/suggest/confidence.go
package suggest

import "github.com/marginalia-dev/redline/internal/retriever"

// Intrinsic per-tier confidence. Deterministic transforms are trusted most,
// the generic fallback least.
const (
	intrinsicDeterministic = 0.85
	intrinsicContext       = 0.65
	intrinsicRetrieval     = 0.70
	intrinsicFallback      = 0.20
)

// ClampScore bounds a confidence score to [0.1, 1.0].
func ClampScore(score float64) float64 {
	if score < 0.1 {
		return 0.1
	}
	if score > 1.0 {
		return 1.0
	}
	return score
}

// ScoreToConfidence is the single confidence mapping used on every code
// path. Thresholds are fixed: >=0.75 high, >=0.5 medium, >=0.25 low.
func ScoreToConfidence(score float64) string {
	score = ClampScore(score)
	switch {
	case score >= 0.75:
		return ConfidenceHigh
	case score >= 0.5:
		return ConfidenceMedium
	case score >= 0.25:
		return ConfidenceLow
	default:
		return ConfidenceVeryLow
	}
}

// retrievalQuality folds the retrieval signals into one [0,1] factor: the
// best hybrid score dominates, a near-exact lexical match and a full
// candidate set nudge it up.
func retrievalQuality(results []retriever.Result) float64 {
	if len(results) == 0 {
		return 0
	}
	best := results[0].HybridScore
	for _, result := range results {
		if result.HybridScore > best {
			best = result.HybridScore
		}
	}
	quality := 0.7 * best
	for _, result := range results {
		if result.LexicalScore >= 0.95 {
			quality += 0.15
			break
		}
	}
	if len(results) >= 3 {
		quality += 0.15
	}
	if quality > 1 {
		quality = 1
	}
	return quality
}

// combineConfidence blends a tier's intrinsic confidence with retrieval
// quality. Tiers without retrieval pass quality < 0 to use the intrinsic
// value alone.
func combineConfidence(intrinsic, quality float64) float64 {
	if quality < 0 {
		return ClampScore(intrinsic)
	}
	return ClampScore(0.6*intrinsic + 0.4*quality)
}
