// Package features turns an account snapshot and a sample of its recent tweets
// into a fixed-shape FeatureBundle. Extraction never fails: a stage that cannot
// compute a value substitutes a conservative default and says so in its Status.
package features

import (
	"math"
	"time"

	"rugguard/internal/logging"
	"rugguard/internal/metrics"
	"rugguard/internal/model"
)

// Status tells a computed value apart from a fallback.
type Status string

const (
	StatusComputed Status = "computed"
	StatusNoData   Status = "no_data"
	StatusDegraded Status = "degraded"
)

// Config holds the thresholds extraction consumes.
type Config struct {
	MinAccountAgeDays       int
	SuspiciousFollowerRatio float64
	MaxRecentTweets         int
}

// DefaultConfig returns the stock thresholds (30 days, ratio 10, 20 tweets).
func DefaultConfig() Config {
	return Config{MinAccountAgeDays: 30, SuspiciousFollowerRatio: 10.0, MaxRecentTweets: 20}
}

// Bundle is the derived, immutable view of one account.
type Bundle struct {
	Age        Age
	Ratio      Ratio
	Bio        Bio
	Engagement Engagement
	Content    Content
	Activity   Activity
}

// Degraded lists the stages that fell back to a default, in extraction order.
func (b Bundle) Degraded() []string {
	var out []string
	for _, s := range []struct {
		name   string
		status Status
	}{
		{"age", b.Age.Status},
		{"ratio", b.Ratio.Status},
		{"bio", b.Bio.Status},
		{"engagement", b.Engagement.Status},
		{"content", b.Content.Status},
		{"activity", b.Activity.Status},
	} {
		if s.status == StatusDegraded {
			out = append(out, s.name)
		}
	}
	return out
}

// Extractor computes bundles. Now is injected so repeated runs agree.
type Extractor struct {
	Config Config
	Now    func() time.Time
}

// NewExtractor returns an extractor using the wall clock.
func NewExtractor(cfg Config) *Extractor {
	return &Extractor{Config: cfg, Now: time.Now}
}

func (e *Extractor) now() time.Time {
	if e.Now == nil {
		return time.Now().UTC()
	}
	return e.Now().UTC()
}

// Extract derives every feature. Tweets are sorted newest first and cut to
// MaxRecentTweets before any timeline stage sees them.
func (e *Extractor) Extract(snap model.AccountSnapshot, tweets []model.TweetSample) Bundle {
	now := e.now()
	sorted := model.SortByRecency(tweets)
	if limit := e.Config.MaxRecentTweets; limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	b := Bundle{
		Age:        e.age(snap.CreatedAt, now),
		Ratio:      e.ratio(snap.FollowersCount, snap.FollowingCount),
		Bio:        analyzeBio(snap.Description),
		Engagement: analyzeEngagement(sorted),
		Content:    analyzeContent(sorted),
		Activity:   analyzeActivity(sorted, now),
	}
	for _, stage := range b.Degraded() {
		metrics.DegradedStages.WithLabelValues(stage).Inc()
	}
	return b
}

func degrade(stage, reason string, fallback any) {
	logging.Warn("feature_degraded", map[string]any{"stage": stage, "reason": reason, "fallback": fallback})
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
