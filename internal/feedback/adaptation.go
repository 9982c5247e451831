// File path: internal/feedback/adaptation.go
package feedback

import (
	"context"
	"sort"
	"time"

	"github.com/marginalia-dev/redline/internal/common"
)

// Priority of an improvement candidate.
const (
	PriorityNormal    = "normal"
	PriorityEscalated = "escalated"
)

// RuleFlag marks one rule as an improvement candidate.
type RuleFlag struct {
	RuleID        string  `json:"rule_id"`
	Total         int     `json:"total"`
	RejectionRate float64 `json:"rejection_rate"`
	Priority      string  `json:"priority"`
}

// Report is the advisory output of an adaptation pass. It never rewrites
// rule logic.
type Report struct {
	GeneratedAt time.Time     `json:"generated_at"`
	Window      time.Duration `json:"window"`
	Total       int           `json:"total_records"`
	Triggered   bool          `json:"triggered"`
	Candidates  []RuleFlag    `json:"candidates,omitempty"`
}

const (
	rejectionFlagThreshold     = 0.3
	rejectionEscalateThreshold = 0.5
)

// Analyze runs an adaptation pass over the rolling window. The pass only
// triggers once feedback volume reaches minVolume; below that the report
// carries totals but no candidates.
func Analyze(ctx context.Context, store Store, window time.Duration, minVolume int) (Report, error) {
	report := Report{GeneratedAt: time.Now().UTC(), Window: window}
	if store == nil {
		return report, nil
	}
	records, err := store.Recent(ctx, window)
	if err != nil {
		return Report{}, err
	}
	report.Total = len(records)
	if minVolume <= 0 {
		minVolume = 1
	}
	if report.Total < minVolume {
		return report, nil
	}
	report.Triggered = true

	byRule := make(map[string][]Record)
	for _, record := range records {
		byRule[record.RuleID] = append(byRule[record.RuleID], record)
	}
	for ruleID, ruleRecords := range byRule {
		eff := Summarize(ruleRecords)
		if eff.RejectionRate <= rejectionFlagThreshold {
			continue
		}
		priority := PriorityNormal
		if eff.RejectionRate > rejectionEscalateThreshold {
			priority = PriorityEscalated
		}
		report.Candidates = append(report.Candidates, RuleFlag{
			RuleID:        ruleID,
			Total:         eff.Total,
			RejectionRate: eff.RejectionRate,
			Priority:      priority,
		})
	}
	sort.Slice(report.Candidates, func(i, j int) bool {
		if report.Candidates[i].RejectionRate == report.Candidates[j].RejectionRate {
			return report.Candidates[i].RuleID < report.Candidates[j].RuleID
		}
		return report.Candidates[i].RejectionRate > report.Candidates[j].RejectionRate
	})
	if len(report.Candidates) > 0 {
		common.Logger().Info("feedback: adaptation pass flagged rules",
			"window", window, "total", report.Total, "candidates", len(report.Candidates))
	}
	return report, nil
}
