// File path: internal/suggest/errors.go
package suggest

import "errors"

// Error taxonomy. Only ErrValidation is fatal for a call; every other
// sentinel marks a recoverable tier failure the pipeline absorbs.
var (
	// ErrValidation marks a malformed CorrectionIssue.
	ErrValidation = errors.New("suggest: invalid correction issue")
	// ErrEmbeddingUnavailable marks an embedding backend outage.
	ErrEmbeddingUnavailable = errors.New("suggest: embedding unavailable")
	// ErrGenerationUnavailable marks a generator outage or timeout.
	ErrGenerationUnavailable = errors.New("suggest: generation unavailable")
	// ErrRetrievalUnavailable marks a vector store outage.
	ErrRetrievalUnavailable = errors.New("suggest: retrieval unavailable")
	// ErrParse marks a generator response violating the schema.
	ErrParse = errors.New("suggest: response parse failed")
	// ErrCache marks a cache backend failure; callers treat it as a miss.
	ErrCache = errors.New("suggest: cache failure")
)
