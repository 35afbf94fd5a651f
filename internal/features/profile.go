package features

import (
	"time"
	"unicode/utf8"

	"rugguard/internal/util"
)

// SuspiciousKeywords are financial-hype terms.
var SuspiciousKeywords = []string{
	"pump", "moon", "lambo", "diamond hands", "hodl", "ape",
	"guaranteed", "returns", "investment opportunity", "exclusive",
	"limited time", "act now", "don't miss out", "financial advice",
}

// PositiveKeywords are community and education terms.
var PositiveKeywords = []string{
	"research", "analysis", "education", "community", "development",
	"building", "learning", "discussing", "sharing", "helping",
}

// Bio risk levels.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

const bioPreviewRunes = 100

// X launched in 2006; anything earlier is a bad timestamp.
var platformEpoch = time.Date(2006, time.March, 1, 0, 0, 0, 0, time.UTC)

type Age struct {
	Days      int
	Months    int
	Years     int
	IsNew     bool
	CreatedOn string
	Status    Status
}

func (e *Extractor) age(created, now time.Time) Age {
	created = created.UTC()
	if created.IsZero() || created.Before(platformEpoch) || created.After(now) {
		degrade("age", "implausible created_at", "is_new")
		return Age{IsNew: true, CreatedOn: "unknown", Status: StatusDegraded}
	}
	days := int(now.Sub(created).Hours() / 24)
	return Age{
		Days:      days,
		Months:    days / 30,
		Years:     days / 365,
		IsNew:     days < e.Config.MinAccountAgeDays,
		CreatedOn: created.Format("2006-01-02"),
		Status:    StatusComputed,
	}
}

type Ratio struct {
	Value          float64
	Followers      int
	Following      int
	Suspicious     bool
	Interpretation string
	Status         Status
}

func (e *Extractor) ratio(followers, following int) Ratio {
	if followers < 0 || following < 0 {
		degrade("ratio", "negative count", "suspicious")
		return Ratio{Suspicious: true, Interpretation: "Error calculating", Status: StatusDegraded}
	}
	r := float64(followers)
	if following > 0 {
		r = float64(followers) / float64(following)
	}
	return Ratio{
		Value:          round(r, 2),
		Followers:      followers,
		Following:      following,
		Suspicious:     r > e.Config.SuspiciousFollowerRatio || (followers > 1000 && following < 10),
		Interpretation: interpretRatio(r),
		Status:         StatusComputed,
	}
}

func interpretRatio(r float64) string {
	switch {
	case r > 100:
		return "Very high ratio - possible influencer or suspicious bot activity"
	case r > 10:
		return "High ratio - established account or selective following"
	case r > 1:
		return "Balanced ratio - normal engagement pattern"
	case r > 0.1:
		return "Low ratio - active in following others"
	default:
		return "Very low ratio - following much more than followers"
	}
}

type Bio struct {
	Length     int
	HasBio     bool
	Suspicious []string
	Positive   []string
	HasLinks   bool
	Risk       string
	Preview    string
	Status     Status
}

func analyzeBio(bio string) Bio {
	if bio == "" {
		return Bio{Suspicious: []string{}, Positive: []string{}, Risk: RiskMedium, Status: StatusNoData}
	}
	if !utf8.ValidString(bio) {
		degrade("bio", "invalid utf-8", RiskHigh)
		return Bio{Suspicious: []string{}, Positive: []string{}, Risk: RiskHigh, Status: StatusDegraded}
	}
	sus := util.MatchedKeywords(bio, SuspiciousKeywords)
	pos := util.MatchedKeywords(bio, PositiveKeywords)
	risk := RiskLow
	switch {
	case len(sus) > 2:
		risk = RiskHigh
	case len(sus) > 0:
		risk = RiskMedium
	}
	preview := bio
	if utf8.RuneCountInString(bio) > bioPreviewRunes {
		preview = string([]rune(bio)[:bioPreviewRunes]) + "..."
	}
	return Bio{
		Length:     utf8.RuneCountInString(bio),
		HasBio:     true,
		Suspicious: sus,
		Positive:   pos,
		HasLinks:   util.HasLink(bio),
		Risk:       risk,
		Preview:    preview,
		Status:     StatusComputed,
	}
}
