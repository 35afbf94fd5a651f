// Package risk turns a feature bundle into a bounded heuristic risk score.
package risk

import (
	"math"

	"rugguard/internal/features"
	"rugguard/internal/logging"
	"rugguard/internal/metrics"
)

// DegradedScore is returned when the bundle cannot be scored.
const DegradedScore = 50.0

// Rule weights.
const (
	weightNewAccount      = 25
	weightSuspiciousRatio = 20
	weightBioHigh         = 20
	weightBioMedium       = 10
	weightContent         = 15
	weightMinimalEngage   = 10
	weightHighEngage      = -5
	weightInconsistent    = 10
	weightVerified        = -15
)

// Result is a score in [0,100] with one decimal, plus the rules that fired.
type Result struct {
	Value    float64
	Signals  []string
	Degraded bool
}

// Score applies the additive rules. It never fails: malformed input yields
// DegradedScore with Degraded set.
func Score(b features.Bundle, verified bool) Result {
	sr := b.Content.SuspiciousRatio
	if math.IsNaN(sr) || sr < 0 || sr > 1 {
		logging.Warn("risk_degraded", map[string]any{"reason": "suspicious ratio out of range", "value": sr, "fallback": DegradedScore})
		metrics.DegradedStages.WithLabelValues("risk").Inc()
		return Result{Value: DegradedScore, Signals: []string{}, Degraded: true}
	}

	score := 0.0
	signals := make([]string, 0)

	if b.Age.IsNew {
		score += weightNewAccount
		signals = append(signals, "new_account")
	}
	if b.Ratio.Suspicious {
		score += weightSuspiciousRatio
		signals = append(signals, "suspicious_ratio")
	}
	switch b.Bio.Risk {
	case features.RiskHigh:
		score += weightBioHigh
		signals = append(signals, "bio_high_risk")
	case features.RiskMedium:
		score += weightBioMedium
		signals = append(signals, "bio_medium_risk")
	}
	if sr > 0 {
		score += weightContent * sr
		signals = append(signals, "suspicious_content")
	}
	switch b.Engagement.Pattern {
	case features.PatternMinimal:
		score += weightMinimalEngage
		signals = append(signals, "minimal_engagement")
	case features.PatternHigh:
		score += weightHighEngage
		signals = append(signals, "high_engagement")
	}
	if !b.Activity.Consistent {
		score += weightInconsistent
		signals = append(signals, "inconsistent_activity")
	}
	if verified {
		score += weightVerified
		signals = append(signals, "verified")
	}

	score = math.Max(0, math.Min(100, score))
	return Result{Value: math.Round(score*10) / 10, Signals: signals}
}
