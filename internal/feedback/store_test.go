// File path: internal/feedback/store_test.go
package feedback

import (
	"context"
	"errors"
	"testing"
	"time"
)

func record(rule, method string, action Action) Record {
	return Record{RuleID: rule, Method: method, Action: action}
}

func seed(t *testing.T, store Store, records ...Record) {
	t.Helper()
	for i, r := range records {
		if err := store.Record(context.Background(), r); err != nil {
			t.Fatalf("Record %d: %v", i, err)
		}
	}
}

func TestEffectivenessFormula(t *testing.T) {
	store := NewMemoryStore()
	seed(t, store,
		record("passive_voice", "deterministic", ActionAccepted),
		record("passive_voice", "deterministic", ActionAccepted),
		record("passive_voice", "deterministic", ActionModified),
		record("passive_voice", "deterministic", ActionRejected),
	)
	eff, err := store.RuleEffectiveness(context.Background(), "passive_voice", time.Hour)
	if err != nil {
		t.Fatalf("RuleEffectiveness: %v", err)
	}
	if eff.Total != 4 {
		t.Fatalf("total = %d, want 4", eff.Total)
	}
	// (2 + 0.5·1) / 4 = 0.625
	if diff := eff.Score - 0.625; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("score = %f, want 0.625", eff.Score)
	}
	if eff.RejectionRate != 0.25 {
		t.Fatalf("rejection rate = %f, want 0.25", eff.RejectionRate)
	}
}

func TestAdjustConfidenceMonotone(t *testing.T) {
	base := 0.6
	previous := -1.0
	// Increasing acceptance share must never lower adjusted confidence.
	for accepted := 0; accepted <= 10; accepted++ {
		store := NewMemoryStore()
		for i := 0; i < accepted; i++ {
			seed(t, store, record("r", "m", ActionAccepted))
		}
		for i := accepted; i < 10; i++ {
			seed(t, store, record("r", "m", ActionRejected))
		}
		adjusted := AdjustConfidence(context.Background(), store, "r", "m", base, time.Hour)
		if adjusted < previous {
			t.Fatalf("adjust_confidence not monotone: %f after %f at accepted=%d", adjusted, previous, accepted)
		}
		previous = adjusted
	}
}

func TestAdjustConfidenceNoHistoryPassesThrough(t *testing.T) {
	store := NewMemoryStore()
	if got := AdjustConfidence(context.Background(), store, "unseen", "unseen", 0.7, time.Hour); got != 0.7 {
		t.Fatalf("no history: got %f, want base 0.7", got)
	}
	if got := AdjustConfidence(context.Background(), nil, "r", "m", 0.7, time.Hour); got != 0.7 {
		t.Fatalf("nil store: got %f, want base 0.7", got)
	}
}

func TestRecordValidation(t *testing.T) {
	store := NewMemoryStore()
	if err := store.Record(context.Background(), Record{RuleID: "", Action: ActionAccepted}); !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("missing rule: err = %v, want ErrInvalidRecord", err)
	}
	if err := store.Record(context.Background(), Record{RuleID: "r", Action: "shrugged"}); !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("bad action: err = %v, want ErrInvalidRecord", err)
	}
	if err := store.Record(context.Background(), Record{RuleID: "r", Method: "m", Action: "ACCEPTED"}); err != nil {
		t.Fatalf("case-insensitive action rejected: %v", err)
	}
	records, err := store.Recent(context.Background(), time.Hour)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("stored %d records, want 1", len(records))
	}
	if records[0].ID == "" || records[0].CreatedAt.IsZero() {
		t.Fatalf("normalization should fill id and timestamp: %+v", records[0])
	}
}

func TestAnalyzeFlagsAndEscalates(t *testing.T) {
	store := NewMemoryStore()
	// flagged: 2 of 5 rejected (0.4)
	seed(t, store,
		record("flagged", "m", ActionRejected),
		record("flagged", "m", ActionRejected),
		record("flagged", "m", ActionAccepted),
		record("flagged", "m", ActionAccepted),
		record("flagged", "m", ActionAccepted),
	)
	// escalated: 3 of 4 rejected (0.75)
	seed(t, store,
		record("escalated", "m", ActionRejected),
		record("escalated", "m", ActionRejected),
		record("escalated", "m", ActionRejected),
		record("escalated", "m", ActionAccepted),
	)
	// healthy: no rejections
	seed(t, store, record("healthy", "m", ActionAccepted))

	report, err := Analyze(context.Background(), store, time.Hour, 5)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !report.Triggered {
		t.Fatalf("volume %d above threshold should trigger", report.Total)
	}
	if len(report.Candidates) != 2 {
		t.Fatalf("got %d candidates, want 2: %+v", len(report.Candidates), report.Candidates)
	}
	if report.Candidates[0].RuleID != "escalated" || report.Candidates[0].Priority != PriorityEscalated {
		t.Fatalf("top candidate = %+v, want escalated rule first", report.Candidates[0])
	}
	if report.Candidates[1].RuleID != "flagged" || report.Candidates[1].Priority != PriorityNormal {
		t.Fatalf("second candidate = %+v", report.Candidates[1])
	}
}

func TestAnalyzeBelowVolumeIsAdvisoryOnly(t *testing.T) {
	store := NewMemoryStore()
	seed(t, store, record("r", "m", ActionRejected))
	report, err := Analyze(context.Background(), store, time.Hour, 10)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if report.Triggered || len(report.Candidates) != 0 {
		t.Fatalf("below-volume pass should not flag: %+v", report)
	}
	if report.Total != 1 {
		t.Fatalf("report should still count records, total = %d", report.Total)
	}
}
