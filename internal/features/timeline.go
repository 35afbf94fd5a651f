package features

import (
	"strings"
	"time"

	"rugguard/internal/model"
	"rugguard/internal/sentiment"
	"rugguard/internal/util"
)

// Engagement patterns.
const (
	PatternHigh     = "high_engagement"
	PatternModerate = "moderate_engagement"
	PatternLow      = "low_engagement"
	PatternMinimal  = "minimal_engagement"
	PatternNoData   = "no_data"
)

// Posting frequencies.
const (
	FrequencyVeryHigh = "very_high"
	FrequencyHigh     = "high"
	FrequencyModerate = "moderate"
	FrequencyLow      = "low"
	FrequencyBurst    = "burst"
	FrequencyNoData   = "no_data"
)

// Topic tags, in detection order.
const (
	TopicCrypto  = "cryptocurrency"
	TopicFinance = "finance"
	TopicTech    = "technology"
)

var topicKeywords = []struct {
	topic    string
	keywords []string
}{
	{TopicCrypto, []string{"bitcoin", "ethereum", "crypto", "blockchain", "defi", "nft", "solana", "token"}},
	{TopicFinance, []string{"trading", "investment", "market", "price", "profit", "loss", "portfolio"}},
	{TopicTech, []string{"development", "coding", "programming", "software", "app", "web3"}},
}

const (
	recentWindow       = 7 * 24 * time.Hour
	minFrequencySample = 20
)

type Engagement struct {
	AvgLikes    float64
	AvgRetweets float64
	AvgReplies  float64
	// total interactions per analysed tweet
	Rate     float64
	Pattern  string
	Analyzed int
	Status   Status
}

func analyzeEngagement(tweets []model.TweetSample) Engagement {
	if len(tweets) == 0 {
		return Engagement{Pattern: PatternNoData, Status: StatusNoData}
	}
	var likes, retweets, replies int
	for _, t := range tweets {
		if t.LikeCount < 0 || t.RetweetCount < 0 || t.ReplyCount < 0 {
			degrade("engagement", "negative public metric", PatternMinimal)
			return Engagement{Pattern: PatternMinimal, Analyzed: len(tweets), Status: StatusDegraded}
		}
		likes += t.LikeCount
		retweets += t.RetweetCount
		replies += t.ReplyCount
	}
	n := float64(len(tweets))
	avgL, avgRT, avgR := float64(likes)/n, float64(retweets)/n, float64(replies)/n
	return Engagement{
		AvgLikes:    round(avgL, 1),
		AvgRetweets: round(avgRT, 1),
		AvgReplies:  round(avgR, 1),
		Rate:        round(float64(likes+retweets+replies)/n, 1),
		Pattern:     classifyEngagement(avgL, avgRT),
		Analyzed:    len(tweets),
		Status:      StatusComputed,
	}
}

func classifyEngagement(likes, retweets float64) string {
	switch {
	case likes > 100 && retweets > 20:
		return PatternHigh
	case likes > 10 && retweets > 2:
		return PatternModerate
	case likes > 1:
		return PatternLow
	default:
		return PatternMinimal
	}
}

type Content struct {
	Polarity        float64
	Label           string
	Topics          []string
	Languages       map[string]int
	SuspiciousCount int
	SuspiciousRatio float64
	Status          Status
}

func analyzeContent(tweets []model.TweetSample) Content {
	if len(tweets) == 0 {
		return Content{Label: sentiment.Neutral, Topics: []string{}, Languages: map[string]int{}, Status: StatusNoData}
	}
	texts := make([]string, 0, len(tweets))
	langs := make(map[string]int)
	suspicious := 0
	for _, t := range tweets {
		texts = append(texts, t.Text)
		lang := t.Language
		if lang == "" {
			lang = "unknown"
		}
		langs[lang]++
		if util.ContainsAnyCaseInsensitive(t.Text, SuspiciousKeywords) {
			suspicious++
		}
	}
	all := strings.Join(texts, " ")
	p := sentiment.Polarity(all)
	return Content{
		Polarity:        round(p, 3),
		Label:           sentiment.Label(p),
		Topics:          topics(all),
		Languages:       langs,
		SuspiciousCount: suspicious,
		SuspiciousRatio: round(float64(suspicious)/float64(len(tweets)), 2),
		Status:          StatusComputed,
	}
}

func topics(text string) []string {
	out := []string{}
	for _, tk := range topicKeywords {
		if util.ContainsAnyCaseInsensitive(text, tk.keywords) {
			out = append(out, tk.topic)
		}
	}
	return out
}

type Activity struct {
	Frequency   string
	Recent      bool
	RecentCount int
	// true for moderate and high posting frequency
	Consistent bool
	Status     Status
}

// analyzeActivity expects tweets sorted newest first.
func analyzeActivity(tweets []model.TweetSample, now time.Time) Activity {
	if len(tweets) == 0 {
		return Activity{Frequency: FrequencyNoData, Status: StatusNoData}
	}
	cutoff := now.Add(-recentWindow)
	recent := 0
	for _, t := range tweets {
		if t.CreatedAt.IsZero() {
			degrade("activity", "tweet without timestamp", FrequencyLow)
			return Activity{Frequency: FrequencyLow, Status: StatusDegraded}
		}
		if t.CreatedAt.After(cutoff) {
			recent++
		}
	}
	freq := FrequencyLow
	if len(tweets) >= minFrequencySample {
		oldest := tweets[len(tweets)-1].CreatedAt
		span := int(now.Sub(oldest).Hours() / 24)
		if span > 0 {
			perDay := float64(len(tweets)) / float64(span)
			switch {
			case perDay > 5:
				freq = FrequencyVeryHigh
			case perDay > 2:
				freq = FrequencyHigh
			case perDay > 0.5:
				freq = FrequencyModerate
			}
		} else {
			freq = FrequencyBurst
		}
	}
	return Activity{
		Frequency:   freq,
		Recent:      recent > 0,
		RecentCount: recent,
		Consistent:  freq == FrequencyModerate || freq == FrequencyHigh,
		Status:      StatusComputed,
	}
}
