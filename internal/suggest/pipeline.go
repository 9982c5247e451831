// File path: internal/suggest/pipeline.go
package suggest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/marginalia-dev/redline/internal/cache"
	"github.com/marginalia-dev/redline/internal/common"
	"github.com/marginalia-dev/redline/internal/common/telemetry"
	"github.com/marginalia-dev/redline/internal/embedding"
	"github.com/marginalia-dev/redline/internal/feedback"
	"github.com/marginalia-dev/redline/internal/llm"
	"github.com/marginalia-dev/redline/internal/prompt"
	"github.com/marginalia-dev/redline/internal/retriever"
)

// Pipeline escalates an issue through four tiers in cost order and stops
// at the first result whose adjusted confidence clears the floor. The
// fallback tier always produces something, so Suggest never returns an
// empty suggestion for a valid issue.
type Pipeline struct {
	cfg        Config
	corrector  *Corrector
	classifier *Classifier
	fallback   *Fallback
	retriever  *retriever.Retriever
	generator  llm.Provider
	cache      cache.Cache
	feedback   feedback.Store
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRetriever wires the retrieval-augmented tier. Without it that tier
// is skipped.
func WithRetriever(r *retriever.Retriever) Option {
	return func(p *Pipeline) { p.retriever = r }
}

// WithGenerator wires the model backend for the retrieval-augmented tier.
func WithGenerator(provider llm.Provider) Option {
	return func(p *Pipeline) { p.generator = provider }
}

// WithCache wires the suggestion cache.
func WithCache(c cache.Cache) Option {
	return func(p *Pipeline) { p.cache = c }
}

// WithFeedback wires the feedback store used for confidence adjustment.
func WithFeedback(store feedback.Store) Option {
	return func(p *Pipeline) { p.feedback = store }
}

// NewPipeline builds the orchestrator. The corrector owns the rule table
// and its hot reload; Close releases it.
func NewPipeline(cfg Config, opts ...Option) (*Pipeline, error) {
	cfg = cfg.withDefaults()
	corrector, err := NewCorrector(cfg.RuleTableFile)
	if err != nil {
		return nil, fmt.Errorf("suggest: corrector: %w", err)
	}
	p := &Pipeline{
		cfg:        cfg,
		corrector:  corrector,
		classifier: NewClassifier(),
		fallback:   NewFallback(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Close stops the rule table watcher.
func (p *Pipeline) Close() error {
	if p == nil {
		return nil
	}
	return p.corrector.Close()
}

type tierResult struct {
	text       string
	method     string
	score      float64
	provenance []string
}

// Suggest resolves one issue. The returned state is RESOLVED on success
// and FAILED only for invalid input.
func (p *Pipeline) Suggest(ctx context.Context, issue CorrectionIssue) (Suggestion, State, error) {
	start := time.Now()
	logger := common.Logger()
	state := StateReceived

	if err := issue.Validate(); err != nil {
		return Suggestion{}, StateFailed, err
	}

	key := cache.Fingerprint(issue.RuleID, issue.FlaggedText, issue.Context)
	if cached, ok := p.cacheLookup(ctx, key); ok {
		logger.Debug("suggest: cache hit", "rule", issue.RuleID, "method", cached.Method)
		return cached, StateResolved, nil
	}

	var best tierResult
	resolved := false

	state = StateDeterministicAttempted
	if text, ok := p.corrector.Apply(issue); ok {
		result := tierResult{
			text:       text,
			method:     MethodDeterministic,
			score:      combineConfidence(intrinsicDeterministic, -1),
			provenance: []string{"rule_table"},
		}
		if best, resolved = p.consider(ctx, issue, best, result); resolved {
			return p.finish(ctx, issue, best, key, state, start)
		}
	} else {
		telemetry.RecordTierFailure(MethodDeterministic)
	}

	state = StateContextAttempted
	if text, ok := p.classifier.Apply(issue); ok {
		result := tierResult{
			text:       text,
			method:     MethodContextClassified,
			score:      combineConfidence(intrinsicContext, -1),
			provenance: []string{"document_type:" + p.classifier.ClassifyDocument(issue)},
		}
		if best, resolved = p.consider(ctx, issue, best, result); resolved {
			return p.finish(ctx, issue, best, key, state, start)
		}
	} else {
		telemetry.RecordTierFailure(MethodContextClassified)
	}

	state = StateRetrievalAttempted
	if result, err := p.retrievalTier(ctx, issue); err != nil {
		telemetry.RecordTierFailure(MethodRetrievalAugmented)
		logger.Debug("suggest: retrieval tier declined", "rule", issue.RuleID, "error", err)
	} else {
		if best, resolved = p.consider(ctx, issue, best, result); resolved {
			return p.finish(ctx, issue, best, key, state, start)
		}
	}

	if best.text == "" {
		best = tierResult{
			text:       p.fallback.Apply(issue),
			method:     MethodGenericFallback,
			score:      combineConfidence(intrinsicFallback, -1),
			provenance: []string{"generic_cleanup"},
		}
		best.score = p.adjust(ctx, issue, best)
	}
	return p.finish(ctx, issue, best, key, state, start)
}

// consider adjusts the candidate's confidence against feedback history and
// reports whether the pipeline can stop escalating.
func (p *Pipeline) consider(ctx context.Context, issue CorrectionIssue, best, candidate tierResult) (tierResult, bool) {
	candidate.score = p.adjust(ctx, issue, candidate)
	if best.text == "" || candidate.score > best.score {
		best = candidate
	}
	return best, candidate.score >= p.cfg.ConfidenceFloor
}

func (p *Pipeline) adjust(ctx context.Context, issue CorrectionIssue, result tierResult) float64 {
	adjusted := feedback.AdjustConfidence(ctx, p.feedback, issue.RuleID, result.method, result.score, p.cfg.FeedbackWindow)
	return ClampScore(adjusted)
}

// retrievalTier runs retrieve, prompt build, generation and parse under a
// single deadline. Any failure, timeout or NO_GUIDANCE response declines
// the tier rather than aborting the pipeline.
func (p *Pipeline) retrievalTier(ctx context.Context, issue CorrectionIssue) (tierResult, error) {
	if p.retriever == nil || p.generator == nil {
		return tierResult{}, ErrRetrievalUnavailable
	}
	tierCtx, cancel := context.WithTimeout(ctx, p.cfg.RetrievalTimeout)
	defer cancel()

	filter := retriever.QueryFilter{Domain: issue.Domain, RuleTag: issue.Category()}
	results, err := p.retriever.Retrieve(tierCtx, issue.FlaggedText, filter)
	if err != nil {
		if errors.Is(err, retriever.ErrUnavailable) {
			return tierResult{}, fmt.Errorf("%w: %v", ErrRetrievalUnavailable, err)
		}
		if errors.Is(err, embedding.ErrUnavailable) {
			return tierResult{}, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err)
		}
		return tierResult{}, err
	}
	if len(results) == 0 {
		return tierResult{}, fmt.Errorf("%w: no passages", ErrRetrievalUnavailable)
	}
	if len(results) > p.cfg.RetrievalLimit {
		results = results[:p.cfg.RetrievalLimit]
	}

	passages := make([]string, 0, len(results))
	chunkIDs := make([]string, 0, len(results))
	for _, result := range results {
		passages = append(passages, result.Text)
		chunkIDs = append(chunkIDs, result.ChunkID)
	}
	messages, err := prompt.Build(prompt.Issue{
		RuleID:   issue.RuleID,
		Category: issue.Category(),
		Flagged:  issue.FlaggedText,
		Context:  issue.Context,
		Domain:   issue.Domain,
	}, passages, nil)
	if err != nil {
		return tierResult{}, err
	}

	raw, err := p.generator.Chat(tierCtx, messages)
	if err != nil {
		if errors.Is(err, llm.ErrUnavailable) || errors.Is(err, context.DeadlineExceeded) {
			return tierResult{}, fmt.Errorf("%w: %v", ErrGenerationUnavailable, err)
		}
		return tierResult{}, err
	}

	candidates, err := prompt.Parse(raw)
	if err != nil {
		if errors.Is(err, prompt.ErrNoGuidance) {
			return tierResult{}, err
		}
		return tierResult{}, fmt.Errorf("%w: %v", ErrParse, err)
	}
	for _, candidate := range candidates {
		if !materiallyDifferent(issue.FlaggedText, candidate.Text) {
			continue
		}
		provenance := append([]string{"why:" + candidate.Why}, chunkIDs...)
		return tierResult{
			text:       candidate.Text,
			method:     MethodRetrievalAugmented,
			score:      combineConfidence(intrinsicRetrieval, retrievalQuality(results)),
			provenance: provenance,
		}, nil
	}
	return tierResult{}, fmt.Errorf("%w: no material correction", prompt.ErrNoGuidance)
}

func (p *Pipeline) finish(ctx context.Context, issue CorrectionIssue, result tierResult, key string, state State, start time.Time) (Suggestion, State, error) {
	suggestion := Suggestion{
		ID:            uuid.NewString(),
		CorrectedText: result.text,
		Confidence:    ScoreToConfidence(result.score),
		Score:         result.score,
		Method:        result.method,
		Provenance:    result.provenance,
		CreatedAt:     time.Now().UTC(),
	}
	p.cacheStore(ctx, key, suggestion)
	telemetry.RecordSuggestion(suggestion.Method, time.Since(start))
	common.Logger().Info("suggest: resolved",
		"rule", issue.RuleID,
		"method", suggestion.Method,
		"confidence", suggestion.Confidence,
		"last_state", string(state),
		"duration", time.Since(start))
	return suggestion, StateResolved, nil
}

func (p *Pipeline) cacheLookup(ctx context.Context, key string) (Suggestion, bool) {
	if p.cache == nil {
		return Suggestion{}, false
	}
	data, err := p.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			common.Logger().Warn("suggest: cache lookup failed, treating as miss", "error", err)
		}
		telemetry.RecordCacheLookup(false)
		return Suggestion{}, false
	}
	var suggestion Suggestion
	if err := json.Unmarshal(data, &suggestion); err != nil {
		telemetry.RecordCacheLookup(false)
		return Suggestion{}, false
	}
	telemetry.RecordCacheLookup(true)
	suggestion.Cached = true
	return suggestion, true
}

func (p *Pipeline) cacheStore(ctx context.Context, key string, suggestion Suggestion) {
	if p.cache == nil {
		return
	}
	data, err := json.Marshal(suggestion)
	if err != nil {
		return
	}
	if err := p.cache.Put(ctx, key, data, p.cfg.CacheTTL); err != nil {
		common.Logger().Warn("suggest: cache store failed", "error", err)
	}
}
