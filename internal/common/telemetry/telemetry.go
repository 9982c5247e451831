// File path: internal/common/telemetry/telemetry.go
package telemetry

import (
	"context"
	"expvar"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/marginalia-dev/redline/internal/common"
)

type spanKey struct{}

type span struct {
	name  string
	start time.Time
}

// MemoryLimitError is returned when a component exceeds the configured
// process memory budget.
type MemoryLimitError struct {
	Component string
	Usage     uint64
	Limit     uint64
}

func (e MemoryLimitError) Error() string {
	return fmt.Sprintf("memory limit exceeded for %s: %d > %d", e.Component, e.Usage, e.Limit)
}

var (
	initOnce sync.Once

	suggestionTotal     *expvar.Map
	suggestionLatencyMS *expvar.Map
	tierFailures        *expvar.Map

	cacheHits   *expvar.Int
	cacheMisses *expvar.Int

	vectorSearchTotal     *expvar.Int
	vectorSearchLatencyMS *expvar.Int

	embedTotal     *expvar.Int
	embedCacheHits *expvar.Int

	feedbackTotal *expvar.Map

	ingestDocsTotal   *expvar.Int
	ingestChunksTotal *expvar.Int

	memoryLimitBytes uint64
	memoryLimitVar   *expvar.Int
	memoryUsageVar   *expvar.Int
)

func ensureInit() {
	initOnce.Do(func() {
		suggestionTotal = expvar.NewMap("redline_suggestions_total")
		suggestionLatencyMS = expvar.NewMap("redline_suggestion_latency_ms")
		tierFailures = expvar.NewMap("redline_tier_failures_total")

		cacheHits = expvar.NewInt("redline_suggestion_cache_hits")
		cacheMisses = expvar.NewInt("redline_suggestion_cache_misses")

		vectorSearchTotal = expvar.NewInt("redline_vector_search_total")
		vectorSearchLatencyMS = expvar.NewInt("redline_vector_search_latency_ms")

		embedTotal = expvar.NewInt("redline_embed_total")
		embedCacheHits = expvar.NewInt("redline_embed_cache_hits")

		feedbackTotal = expvar.NewMap("redline_feedback_total")

		ingestDocsTotal = expvar.NewInt("redline_ingest_docs_total")
		ingestChunksTotal = expvar.NewInt("redline_ingest_chunks_total")

		memoryLimitVar = expvar.NewInt("redline_memory_limit_bytes")
		memoryUsageVar = expvar.NewInt("redline_memory_usage_bytes")

		memoryLimitBytes = loadMemoryLimit()
		memoryLimitVar.Set(int64(memoryLimitBytes))
	})
}

func loadMemoryLimit() uint64 {
	if limit := strings.TrimSpace(os.Getenv("REDLINE_MEMORY_LIMIT_BYTES")); limit != "" {
		if value, err := strconv.ParseUint(limit, 10, 64); err == nil {
			return value
		}
	}
	if limitMB := strings.TrimSpace(os.Getenv("REDLINE_MEMORY_LIMIT_MB")); limitMB != "" {
		if value, err := strconv.ParseUint(limitMB, 10, 64); err == nil {
			return value * 1024 * 1024
		}
	}
	return 0
}

// StartSpan records a named timing span on the context and returns a closure
// that logs the elapsed duration when invoked.
func StartSpan(ctx context.Context, name string) (context.Context, func(attrs ...interface{})) {
	ensureInit()
	sp := &span{name: name, start: time.Now()}
	ctx = context.WithValue(ctx, spanKey{}, sp)
	logger := common.Logger()
	logger.Debug("trace: start", "span", name)
	return ctx, func(attrs ...interface{}) {
		duration := time.Since(sp.start)
		logger.Debug("trace: end", append([]interface{}{"span", name, "dur", duration}, attrs...)...)
	}
}

// RecordSuggestion counts a resolved suggestion by method tag.
func RecordSuggestion(method string, duration time.Duration) {
	ensureInit()
	key := normalizeKey(method, "unknown")
	suggestionTotal.Add(key, 1)
	if duration > 0 {
		suggestionLatencyMS.Add(key, duration.Milliseconds())
	}
}

// RecordTierFailure counts a tier that was attempted but could not produce a
// usable result.
func RecordTierFailure(tier string) {
	ensureInit()
	tierFailures.Add(normalizeKey(tier, "unknown"), 1)
}

// RecordCacheLookup counts a suggestion-cache hit or miss.
func RecordCacheLookup(hit bool) {
	ensureInit()
	if hit {
		cacheHits.Add(1)
		return
	}
	cacheMisses.Add(1)
}

// RecordVectorSearch counts a similarity search against the vector store.
func RecordVectorSearch(duration time.Duration) {
	ensureInit()
	vectorSearchTotal.Add(1)
	if duration > 0 {
		vectorSearchLatencyMS.Add(duration.Milliseconds())
	}
}

// RecordEmbedding counts embedding requests and how many were served from the
// content-hash cache.
func RecordEmbedding(requested, cached int) {
	ensureInit()
	if requested > 0 {
		embedTotal.Add(int64(requested))
	}
	if cached > 0 {
		embedCacheHits.Add(int64(cached))
	}
}

// RecordFeedback counts a recorded feedback action.
func RecordFeedback(action string) {
	ensureInit()
	feedbackTotal.Add(normalizeKey(action, "unknown"), 1)
}

// RecordIngest counts an ingested document and its chunk count.
func RecordIngest(chunks int) {
	ensureInit()
	ingestDocsTotal.Add(1)
	if chunks > 0 {
		ingestChunksTotal.Add(int64(chunks))
	}
}

// CheckMemoryBudget reports an error when the configured memory limit is
// exceeded. A zero limit disables the guard.
func CheckMemoryBudget(component string) error {
	ensureInit()
	usage := updateMemoryUsage()
	if memoryLimitBytes == 0 {
		return nil
	}
	if usage > memoryLimitBytes {
		err := MemoryLimitError{Component: component, Usage: usage, Limit: memoryLimitBytes}
		common.Logger().Warn("telemetry: memory guard tripped", "component", component, "usage", usage, "limit", memoryLimitBytes)
		return err
	}
	return nil
}

func updateMemoryUsage() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	memoryUsageVar.Set(int64(stats.Alloc))
	return stats.Alloc
}

// SpanDuration returns the elapsed time of the span carried on the context.
func SpanDuration(ctx context.Context) time.Duration {
	sp, _ := ctx.Value(spanKey{}).(*span)
	if sp == nil {
		return 0
	}
	return time.Since(sp.start)
}

func normalizeKey(value, fallback string) string {
	key := strings.TrimSpace(strings.ToLower(value))
	if key == "" {
		return fallback
	}
	return key
}
