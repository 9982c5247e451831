// File path: internal/data/orchestrator/orchestrator.go
package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/marginalia-dev/redline/internal/cache"
	"github.com/marginalia-dev/redline/internal/common"
	"github.com/marginalia-dev/redline/internal/common/telemetry"
	"github.com/marginalia-dev/redline/internal/corpus"
	"github.com/marginalia-dev/redline/internal/embedding"
	"github.com/marginalia-dev/redline/internal/feedback"
	"github.com/marginalia-dev/redline/internal/llm"
	"github.com/marginalia-dev/redline/internal/retriever"
	"github.com/marginalia-dev/redline/internal/sqlite"
	"github.com/marginalia-dev/redline/internal/suggest"
	"github.com/marginalia-dev/redline/internal/vector"
)

type closer interface {
	Close() error
}

// Orchestrator wires together the stores and pipelines that back the
// server and exposes convenience accessors for the API layer.
type Orchestrator struct {
	cfg Config

	corpusStore *corpus.Store
	catalog     *sqlite.Store
	feedback    feedback.Store
	vector      vector.Store
	embedder    embedding.Provider
	chunker     *corpus.Chunker
	lexical     *retriever.LexicalIndex
	retriever   *retriever.Retriever
	pipeline    *suggest.Pipeline
	cache       cache.Cache

	closers []closer
}

// New constructs an orchestrator from the provided configuration and
// optional overrides.
func New(ctx context.Context, cfg Config, opts ...Option) (*Orchestrator, error) {
	cfg = applyDefaults(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	settings := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&settings)
		}
	}
	logger := common.Logger()

	corpusStore, err := corpus.NewStore(cfg.CorpusPath)
	if err != nil {
		return nil, fmt.Errorf("init corpus store: %w", err)
	}
	catalog, err := sqlite.Open(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("init catalog: %w", err)
	}

	feedbackStore := settings.feedback
	if feedbackStore == nil {
		fb, err := sqlite.NewFeedbackStore(catalog)
		if err != nil {
			catalog.Close()
			return nil, fmt.Errorf("init feedback store: %w", err)
		}
		feedbackStore = fb
	}

	vec := settings.vector
	if vec == nil {
		vcfg, err := vector.LoadConfig()
		if err != nil {
			catalog.Close()
			return nil, fmt.Errorf("load vector config: %w", err)
		}
		vec, err = vector.NewStore(ctx, vcfg)
		if err != nil {
			catalog.Close()
			return nil, fmt.Errorf("init vector store: %w", err)
		}
	}

	embedder := settings.embedder
	if embedder == nil {
		ecfg, err := embedding.LoadConfig()
		if err != nil {
			catalog.Close()
			return nil, fmt.Errorf("load embedding config: %w", err)
		}
		chain, err := embedding.NewChain(ctx, ecfg)
		if err != nil {
			catalog.Close()
			return nil, fmt.Errorf("init embedding chain: %w", err)
		}
		embedder = embedding.NewCachingProvider(chain, ecfg.CacheCapacity)
	}

	generator := settings.generator
	if generator == nil {
		generator = llm.NewBreakerProvider(llm.NewProvider())
	}

	suggestionCache := settings.cache
	if suggestionCache == nil {
		ccfg, err := cache.LoadConfig()
		if err != nil {
			catalog.Close()
			return nil, fmt.Errorf("load cache config: %w", err)
		}
		suggestionCache = cache.NewFromConfig(ccfg)
	}

	rcfg, err := retriever.LoadConfig()
	if err != nil {
		catalog.Close()
		return nil, fmt.Errorf("load retriever config: %w", err)
	}
	lexical := retriever.NewLexicalIndex()
	ret := retriever.New(vec, embedder, lexical, retriever.WithConfig(rcfg))

	scfg, err := suggest.LoadConfig()
	if err != nil {
		catalog.Close()
		return nil, fmt.Errorf("load suggest config: %w", err)
	}
	pipeline, err := suggest.NewPipeline(scfg,
		suggest.WithRetriever(ret),
		suggest.WithGenerator(generator),
		suggest.WithCache(suggestionCache),
		suggest.WithFeedback(feedbackStore))
	if err != nil {
		catalog.Close()
		return nil, fmt.Errorf("init suggestion pipeline: %w", err)
	}

	orch := &Orchestrator{
		cfg:         cfg,
		corpusStore: corpusStore,
		catalog:     catalog,
		feedback:    feedbackStore,
		vector:      vec,
		embedder:    embedder,
		chunker:     corpus.NewChunker(corpus.DefaultChunkerConfig()),
		lexical:     lexical,
		retriever:   ret,
		pipeline:    pipeline,
		cache:       suggestionCache,
	}
	orch.closers = append(orch.closers, catalog, vec, suggestionCache, pipeline)

	if err := orch.rebuildLexical(ctx); err != nil {
		logger.Warn("orchestrator: lexical index rebuild failed, retrieval starts semantic-only", "error", err)
	}
	return orch, nil
}

// Ingest chunks the document, persists it in the corpus store and catalog,
// embeds the chunks into the vector store and refreshes the lexical index.
// It returns the number of chunks produced.
func (o *Orchestrator) Ingest(ctx context.Context, doc corpus.Document) (int, error) {
	if o == nil {
		return 0, errors.New("orchestrator not initialised")
	}
	chunks, err := o.chunker.Chunk(doc)
	if err != nil {
		return 0, err
	}
	if err := o.corpusStore.ReplaceChunks(ctx, doc.ID, chunks); err != nil {
		return 0, fmt.Errorf("persist corpus chunks: %w", err)
	}
	if err := o.catalog.PersistDocument(ctx, doc, chunks); err != nil {
		return 0, fmt.Errorf("catalog document: %w", err)
	}

	if o.vector != nil && o.vector.Available() {
		texts := make([]string, len(chunks))
		for i, chunk := range chunks {
			texts[i] = chunk.EnrichedText(doc.Domain, doc.Version)
		}
		vectors, err := o.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			common.Logger().Warn("orchestrator: embedding failed, document indexed lexically only",
				"doc", doc.ID, "error", err)
		} else {
			if err := o.vector.EnsureCollection(ctx, vector.VectorDimension(vectors)); err != nil {
				return 0, fmt.Errorf("ensure collection: %w", err)
			}
			if err := o.vector.UpsertChunks(ctx, doc, chunks, vectors); err != nil {
				return 0, fmt.Errorf("index chunks: %w", err)
			}
		}
	} else {
		common.Logger().Warn("orchestrator: vector store unavailable, document indexed lexically only", "doc", doc.ID)
	}

	if err := o.rebuildLexical(ctx); err != nil {
		return 0, fmt.Errorf("rebuild lexical index: %w", err)
	}
	telemetry.RecordIngest(len(chunks))
	common.Logger().Info("orchestrator: document ingested", "doc", doc.ID, "chunks", len(chunks))
	return len(chunks), nil
}

// rebuildLexical reloads the whole catalog into the in-memory TF-IDF index.
func (o *Orchestrator) rebuildLexical(ctx context.Context) error {
	docs, err := o.catalog.Documents(ctx)
	if err != nil {
		return err
	}
	var entries []retriever.Entry
	for _, info := range docs {
		chunks, err := o.catalog.DocumentChunks(ctx, info.ID)
		if err != nil {
			return err
		}
		for _, chunk := range chunks {
			entries = append(entries, retriever.Entry{Chunk: chunk, Domain: info.Domain, Version: info.Version})
		}
	}
	o.lexical.Rebuild(entries)
	return nil
}

// Suggest resolves one correction issue through the tiered pipeline.
func (o *Orchestrator) Suggest(ctx context.Context, issue suggest.CorrectionIssue) (suggest.Suggestion, suggest.State, error) {
	if o == nil || o.pipeline == nil {
		return suggest.Suggestion{}, suggest.StateFailed, errors.New("orchestrator not initialised")
	}
	return o.pipeline.Suggest(ctx, issue)
}

// RecordFeedback persists one user verdict.
func (o *Orchestrator) RecordFeedback(ctx context.Context, record feedback.Record) error {
	if o == nil || o.feedback == nil {
		return errors.New("orchestrator not initialised")
	}
	return o.feedback.Record(ctx, record)
}

// AdaptationReport analyzes recent feedback for rules that may need
// retirement or reprioritization.
func (o *Orchestrator) AdaptationReport(ctx context.Context) (feedback.Report, error) {
	if o == nil || o.feedback == nil {
		return feedback.Report{}, errors.New("orchestrator not initialised")
	}
	return feedback.Analyze(ctx, o.feedback, o.cfg.FeedbackWindow, o.cfg.MinFeedbackVolume)
}

// Documents lists the catalogued reference documents.
func (o *Orchestrator) Documents(ctx context.Context) ([]sqlite.DocumentInfo, error) {
	if o == nil {
		return nil, errors.New("orchestrator not initialised")
	}
	return o.catalog.Documents(ctx)
}

// DocumentChunks returns the stored chunks of one document.
func (o *Orchestrator) DocumentChunks(ctx context.Context, docID string) ([]corpus.Chunk, error) {
	if o == nil {
		return nil, errors.New("orchestrator not initialised")
	}
	return o.catalog.DocumentChunks(ctx, docID)
}

// Health reports a point-in-time snapshot of component availability.
func (o *Orchestrator) Health(ctx context.Context) map[string]interface{} {
	if o == nil {
		return map[string]interface{}{"status": "down"}
	}
	vectorUp := o.vector != nil && o.vector.Available()
	health := map[string]interface{}{
		"status":          "ok",
		"vector_store":    vectorUp,
		"embedder":        o.embedder != nil && o.embedder.Ready(ctx),
		"lexical_index":   o.lexical.Len(),
		"generator":       o.pipeline != nil,
		"feedback_window": o.cfg.FeedbackWindow.String(),
	}
	if !vectorUp {
		health["status"] = "degraded"
	}
	return health
}

// Retriever exposes the hybrid retriever for diagnostic callers.
func (o *Orchestrator) Retriever() *retriever.Retriever {
	if o == nil {
		return nil
	}
	return o.retriever
}

// Close releases resources in the reverse order of construction.
func (o *Orchestrator) Close() error {
	if o == nil {
		return nil
	}
	var err error
	for i := len(o.closers) - 1; i >= 0; i-- {
		closer := o.closers[i]
		if closer == nil {
			continue
		}
		if cerr := closer.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}
	return err
}
