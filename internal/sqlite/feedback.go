// File path: internal/sqlite/feedback.go
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/marginalia-dev/redline/internal/common/telemetry"
	"github.com/marginalia-dev/redline/internal/feedback"
)

// FeedbackStore adapts the SQLite feedback ledger to the feedback.Store
// interface.
type FeedbackStore struct {
	store *Store
}

var _ feedback.Store = (*FeedbackStore)(nil)

// NewFeedbackStore wraps an opened Store.
func NewFeedbackStore(store *Store) (*FeedbackStore, error) {
	if store == nil || store.db == nil {
		return nil, errors.New("sqlite store required")
	}
	return &FeedbackStore{store: store}, nil
}

// Record validates, normalizes and persists one feedback verdict.
func (f *FeedbackStore) Record(ctx context.Context, record feedback.Record) error {
	if f == nil || f.store == nil {
		return errors.New("feedback store not initialised")
	}
	normalized, err := feedback.Normalize(record)
	if err != nil {
		return err
	}
	if _, err := f.store.db.ExecContext(ctx,
		`INSERT INTO feedback(id, suggestion_id, rule_id, original_text, suggested_text,
                                      method, action, modification, confidence_at_time, created_at)
                 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		normalized.ID, normalized.SuggestionID, normalized.RuleID,
		nullIfEmpty(normalized.OriginalText), nullIfEmpty(normalized.SuggestedText),
		normalized.Method, string(normalized.Action), nullIfEmpty(normalized.Modification),
		normalized.ConfidenceAtTime, normalized.CreatedAt); err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	telemetry.RecordFeedback(string(normalized.Action))
	return nil
}

// RuleEffectiveness summarizes verdicts for one rule within the window.
func (f *FeedbackStore) RuleEffectiveness(ctx context.Context, ruleID string, window time.Duration) (feedback.Effectiveness, error) {
	return f.effectiveness(ctx, `rule_id`, ruleID, window)
}

// MethodEffectiveness summarizes verdicts for one resolution method within
// the window.
func (f *FeedbackStore) MethodEffectiveness(ctx context.Context, method string, window time.Duration) (feedback.Effectiveness, error) {
	return f.effectiveness(ctx, `method`, method, window)
}

func (f *FeedbackStore) effectiveness(ctx context.Context, column, value string, window time.Duration) (feedback.Effectiveness, error) {
	if f == nil || f.store == nil {
		return feedback.Effectiveness{}, errors.New("feedback store not initialised")
	}
	records, err := f.query(ctx,
		selectColumns+` FROM feedback WHERE `+column+` = ? AND created_at >= ?`,
		value, cutoff(window))
	if err != nil {
		return feedback.Effectiveness{}, err
	}
	return feedback.Summarize(records), nil
}

// Recent returns every verdict within the window, newest first.
func (f *FeedbackStore) Recent(ctx context.Context, window time.Duration) ([]feedback.Record, error) {
	if f == nil || f.store == nil {
		return nil, errors.New("feedback store not initialised")
	}
	return f.query(ctx,
		selectColumns+` FROM feedback WHERE created_at >= ? ORDER BY created_at DESC`,
		cutoff(window))
}

const selectColumns = `SELECT id, suggestion_id, rule_id,
                 COALESCE(original_text, ''), COALESCE(suggested_text, ''),
                 method, action, COALESCE(modification, ''), confidence_at_time, created_at`

func (f *FeedbackStore) query(ctx context.Context, stmt string, args ...interface{}) ([]feedback.Record, error) {
	rows, err := f.store.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query feedback: %w", err)
	}
	defer rows.Close()
	var records []feedback.Record
	for rows.Next() {
		var record feedback.Record
		var action string
		if err := rows.Scan(&record.ID, &record.SuggestionID, &record.RuleID,
			&record.OriginalText, &record.SuggestedText, &record.Method, &action,
			&record.Modification, &record.ConfidenceAtTime, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		record.Action = feedback.Action(action)
		records = append(records, record)
	}
	return records, rows.Err()
}

func cutoff(window time.Duration) time.Time {
	if window <= 0 {
		return time.Time{}
	}
	return time.Now().UTC().Add(-window)
}
