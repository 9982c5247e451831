// File path: internal/feedback/store.go
package feedback

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/marginalia-dev/redline/internal/common/telemetry"
)

// ErrInvalidRecord marks a feedback record that cannot be stored.
var ErrInvalidRecord = errors.New("feedback: invalid record")

// Action is the user's verdict on a suggestion.
type Action string

const (
	ActionAccepted Action = "accepted"
	ActionRejected Action = "rejected"
	ActionModified Action = "modified"
)

func (a Action) valid() bool {
	switch a {
	case ActionAccepted, ActionRejected, ActionModified:
		return true
	}
	return false
}

// Record is one user verdict. The log is append-only; records are never
// updated or deleted. OriginalText and SuggestedText capture the before and
// after of the suggestion so later analysis does not depend on the
// suggestion cache. Modification holds the user's rewrite when the action is
// "modified". ConfidenceAtTime is the confidence the pipeline reported when
// the suggestion was served.
type Record struct {
	ID               string    `json:"id" db:"id"`
	SuggestionID     string    `json:"suggestion_id" db:"suggestion_id"`
	RuleID           string    `json:"rule_id" db:"rule_id"`
	OriginalText     string    `json:"original_text" db:"original_text"`
	SuggestedText    string    `json:"suggested_text" db:"suggested_text"`
	Method           string    `json:"method" db:"method"`
	Action           Action    `json:"action" db:"action"`
	Modification     string    `json:"modification,omitempty" db:"modification"`
	ConfidenceAtTime float64   `json:"confidence_at_time" db:"confidence_at_time"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// Effectiveness summarizes verdicts over a window.
// Score = (accepted + 0.5·modified) / total.
type Effectiveness struct {
	Total            int     `json:"total"`
	AcceptanceRate   float64 `json:"acceptance_rate"`
	RejectionRate    float64 `json:"rejection_rate"`
	ModificationRate float64 `json:"modification_rate"`
	Score            float64 `json:"effectiveness_score"`
}

// Store is the feedback contract: an append-only verdict log with windowed
// effectiveness aggregation. Implementations must be safe for concurrent
// use.
type Store interface {
	Record(ctx context.Context, record Record) error
	RuleEffectiveness(ctx context.Context, ruleID string, window time.Duration) (Effectiveness, error)
	MethodEffectiveness(ctx context.Context, method string, window time.Duration) (Effectiveness, error)
	Recent(ctx context.Context, window time.Duration) ([]Record, error)
}

// Normalize fills derived fields and validates the verdict.
func Normalize(record Record) (Record, error) {
	record.RuleID = strings.TrimSpace(record.RuleID)
	record.Method = strings.TrimSpace(record.Method)
	record.Action = Action(strings.ToLower(strings.TrimSpace(string(record.Action))))
	record.Modification = strings.TrimSpace(record.Modification)
	if record.RuleID == "" || !record.Action.valid() {
		return Record{}, ErrInvalidRecord
	}
	if record.ConfidenceAtTime < 0 || record.ConfidenceAtTime > 1 {
		return Record{}, ErrInvalidRecord
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	return record, nil
}

// Summarize computes windowed effectiveness from raw records.
func Summarize(records []Record) Effectiveness {
	eff := Effectiveness{Total: len(records)}
	if eff.Total == 0 {
		return eff
	}
	var accepted, rejected, modified int
	for _, record := range records {
		switch record.Action {
		case ActionAccepted:
			accepted++
		case ActionRejected:
			rejected++
		case ActionModified:
			modified++
		}
	}
	total := float64(eff.Total)
	eff.AcceptanceRate = float64(accepted) / total
	eff.RejectionRate = float64(rejected) / total
	eff.ModificationRate = float64(modified) / total
	eff.Score = (float64(accepted) + 0.5*float64(modified)) / total
	return eff
}

// AdjustConfidence scales a base confidence by historical effectiveness:
// base·(0.5 + 0.5·weighted) where weighted averages the rule and method
// scores, using whichever side has data. With no history the base passes
// through. The result is monotone non-decreasing in either score.
func AdjustConfidence(ctx context.Context, store Store, ruleID, method string, base float64, window time.Duration) float64 {
	if store == nil {
		return base
	}
	ruleEff, ruleErr := store.RuleEffectiveness(ctx, ruleID, window)
	methodEff, methodErr := store.MethodEffectiveness(ctx, method, window)

	var weighted float64
	switch {
	case ruleErr == nil && ruleEff.Total > 0 && methodErr == nil && methodEff.Total > 0:
		weighted = 0.5*ruleEff.Score + 0.5*methodEff.Score
	case ruleErr == nil && ruleEff.Total > 0:
		weighted = ruleEff.Score
	case methodErr == nil && methodEff.Total > 0:
		weighted = methodEff.Score
	default:
		return base
	}
	return base * (0.5 + 0.5*weighted)
}

// MemoryStore is the in-process Store used by tests and single-node runs.
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Record(ctx context.Context, record Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	normalized, err := Normalize(record)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.records = append(m.records, normalized)
	m.mu.Unlock()
	telemetry.RecordFeedback(string(normalized.Action))
	return nil
}

func (m *MemoryStore) RuleEffectiveness(ctx context.Context, ruleID string, window time.Duration) (Effectiveness, error) {
	return m.effectiveness(ctx, window, func(r Record) bool {
		return strings.EqualFold(r.RuleID, ruleID)
	})
}

func (m *MemoryStore) MethodEffectiveness(ctx context.Context, method string, window time.Duration) (Effectiveness, error) {
	return m.effectiveness(ctx, window, func(r Record) bool {
		return strings.EqualFold(r.Method, method)
	})
}

func (m *MemoryStore) effectiveness(ctx context.Context, window time.Duration, match func(Record) bool) (Effectiveness, error) {
	if err := ctx.Err(); err != nil {
		return Effectiveness{}, err
	}
	cutoff := windowCutoff(window)
	m.mu.RLock()
	defer m.mu.RUnlock()
	var matched []Record
	for _, record := range m.records {
		if record.CreatedAt.Before(cutoff) {
			continue
		}
		if match(record) {
			matched = append(matched, record)
		}
	}
	return Summarize(matched), nil
}

func (m *MemoryStore) Recent(ctx context.Context, window time.Duration) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cutoff := windowCutoff(window)
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Record
	for _, record := range m.records {
		if !record.CreatedAt.Before(cutoff) {
			out = append(out, record)
		}
	}
	return out, nil
}

func windowCutoff(window time.Duration) time.Time {
	if window <= 0 {
		return time.Time{}
	}
	return time.Now().UTC().Add(-window)
}

var _ Store = (*MemoryStore)(nil)
