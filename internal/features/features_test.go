package features

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rugguard/internal/model"
)

var testNow = time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

func newTestExtractor() *Extractor {
	return &Extractor{Config: DefaultConfig(), Now: func() time.Time { return testNow }}
}

// dailyTweets returns n tweets one day apart, the newest an hour old.
func dailyTweets(n int, likes, retweets int) []model.TweetSample {
	out := make([]model.TweetSample, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, model.TweetSample{
			ID:           fmt.Sprint(i),
			Text:         "shipping updates",
			CreatedAt:    testNow.Add(-time.Hour - time.Duration(i)*24*time.Hour),
			Language:     "en",
			LikeCount:    likes,
			RetweetCount: retweets,
		})
	}
	return out
}

func TestAge(t *testing.T) {
	e := newTestExtractor()
	young := e.age(testNow.Add(-10*24*time.Hour), testNow)
	assert.Equal(t, 10, young.Days)
	assert.True(t, young.IsNew)
	assert.Equal(t, StatusComputed, young.Status)

	old := e.age(testNow.Add(-400*24*time.Hour), testNow)
	assert.Equal(t, 1, old.Years)
	assert.Equal(t, 13, old.Months)
	assert.False(t, old.IsNew)

	for _, bad := range []time.Time{{}, time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC), testNow.Add(time.Hour)} {
		a := e.age(bad, testNow)
		assert.Equal(t, StatusDegraded, a.Status)
		assert.True(t, a.IsNew)
		assert.Equal(t, "unknown", a.CreatedOn)
	}
}

func TestAgeNormalizesZone(t *testing.T) {
	e := newTestExtractor()
	zone := time.FixedZone("UTC+5", 5*3600)
	a := e.age(testNow.Add(-48*time.Hour).In(zone), testNow)
	assert.Equal(t, 2, a.Days)
}

func TestRatio(t *testing.T) {
	e := newTestExtractor()
	fixtures := []struct {
		followers, following int
		value                float64
		suspicious           bool
		interpretation       string
	}{
		{5000, 0, 5000, true, "Very high ratio - possible influencer or suspicious bot activity"},
		{500, 100, 5, false, "Balanced ratio - normal engagement pattern"},
		{2000, 5, 400, true, "Very high ratio - possible influencer or suspicious bot activity"},
		{1500, 9, 166.67, true, "Very high ratio - possible influencer or suspicious bot activity"},
		{10, 50, 0.2, false, "Low ratio - active in following others"},
		{0, 0, 0, false, "Very low ratio - following much more than followers"},
	}
	for _, fix := range fixtures {
		r := e.ratio(fix.followers, fix.following)
		assert.Equal(t, fix.value, r.Value, "%d/%d", fix.followers, fix.following)
		assert.Equal(t, fix.suspicious, r.Suspicious, "%d/%d", fix.followers, fix.following)
		assert.Equal(t, fix.interpretation, r.Interpretation)
	}

	bad := e.ratio(-1, 10)
	assert.Equal(t, StatusDegraded, bad.Status)
	assert.True(t, bad.Suspicious)
}

func TestBio(t *testing.T) {
	hype := analyzeBio("Pump to the MOON! Guaranteed returns")
	assert.Equal(t, RiskHigh, hype.Risk)
	assert.Equal(t, []string{"pump", "moon", "guaranteed", "returns"}, hype.Suspicious)
	assert.Empty(t, hype.Positive)

	one := analyzeBio("hodl forever")
	assert.Equal(t, RiskMedium, one.Risk)

	good := analyzeBio("Research and community building")
	assert.Equal(t, RiskLow, good.Risk)
	assert.Equal(t, []string{"research", "community", "building"}, good.Positive)
	assert.False(t, good.HasLinks)

	empty := analyzeBio("")
	assert.Equal(t, RiskMedium, empty.Risk)
	assert.False(t, empty.HasBio)
	assert.Equal(t, StatusNoData, empty.Status)

	link := analyzeBio("more at example.com")
	assert.True(t, link.HasLinks)

	long := analyzeBio(strings.Repeat("é", 150))
	assert.Equal(t, 150, long.Length)
	assert.Equal(t, strings.Repeat("é", 100)+"...", long.Preview)
}

func TestEngagement(t *testing.T) {
	assert.Equal(t, PatternHigh, analyzeEngagement(dailyTweets(3, 200, 30)).Pattern)
	assert.Equal(t, PatternModerate, analyzeEngagement(dailyTweets(3, 20, 3)).Pattern)
	assert.Equal(t, PatternLow, analyzeEngagement(dailyTweets(3, 2, 0)).Pattern)
	assert.Equal(t, PatternMinimal, analyzeEngagement(dailyTweets(3, 1, 0)).Pattern)

	none := analyzeEngagement(nil)
	assert.Equal(t, PatternNoData, none.Pattern)
	assert.Equal(t, StatusNoData, none.Status)

	mixed := []model.TweetSample{{LikeCount: 1, RetweetCount: 1, ReplyCount: 1}, {LikeCount: 2}}
	e := analyzeEngagement(mixed)
	assert.Equal(t, 1.5, e.AvgLikes)
	assert.Equal(t, 0.5, e.AvgRetweets)
	assert.Equal(t, 2.5, e.Rate)
}

func TestContent(t *testing.T) {
	tweets := []model.TweetSample{
		{Text: "Bitcoin pump incoming", Language: "en"},
		{Text: "Great market analysis today", Language: "en"},
		{Text: "hola", Language: ""},
	}
	c := analyzeContent(tweets)
	assert.Equal(t, []string{TopicCrypto, TopicFinance}, c.Topics)
	assert.Equal(t, 1, c.SuspiciousCount)
	assert.Equal(t, 0.33, c.SuspiciousRatio)
	assert.Equal(t, map[string]int{"en": 2, "unknown": 1}, c.Languages)
	assert.Equal(t, "positive", c.Label)

	none := analyzeContent(nil)
	assert.Equal(t, StatusNoData, none.Status)
	assert.Equal(t, "neutral", none.Label)
	assert.Zero(t, none.SuspiciousRatio)
}

func TestActivity(t *testing.T) {
	daily := analyzeActivity(dailyTweets(20, 0, 0), testNow)
	assert.Equal(t, FrequencyModerate, daily.Frequency)
	assert.True(t, daily.Consistent)
	assert.True(t, daily.Recent)
	assert.Equal(t, 7, daily.RecentCount)

	burst := make([]model.TweetSample, 20)
	for i := range burst {
		burst[i].CreatedAt = testNow.Add(-time.Duration(i) * time.Minute)
	}
	assert.Equal(t, FrequencyBurst, analyzeActivity(burst, testNow).Frequency)

	few := analyzeActivity(dailyTweets(5, 0, 0), testNow)
	assert.Equal(t, FrequencyLow, few.Frequency)
	assert.False(t, few.Consistent)

	stale := dailyTweets(3, 0, 0)
	for i := range stale {
		stale[i].CreatedAt = stale[i].CreatedAt.Add(-30 * 24 * time.Hour)
	}
	assert.False(t, analyzeActivity(stale, testNow).Recent)

	none := analyzeActivity(nil, testNow)
	assert.Equal(t, FrequencyNoData, none.Frequency)
	assert.False(t, none.Recent)
}

func TestExtractCutsToNewest(t *testing.T) {
	e := newTestExtractor()
	tweets := dailyTweets(25, 5, 0)
	// shuffle order; extraction must sort first
	tweets[0], tweets[24] = tweets[24], tweets[0]
	b := e.Extract(model.AccountSnapshot{CreatedAt: testNow.AddDate(-2, 0, 0), FollowersCount: 10, FollowingCount: 10}, tweets)
	assert.Equal(t, 20, b.Engagement.Analyzed)
	assert.Equal(t, FrequencyModerate, b.Activity.Frequency)
	assert.Empty(t, b.Degraded())
}

func TestExtractNoTweets(t *testing.T) {
	e := newTestExtractor()
	b := e.Extract(model.AccountSnapshot{}, nil)
	assert.Equal(t, PatternNoData, b.Engagement.Pattern)
	assert.Equal(t, FrequencyNoData, b.Activity.Frequency)
	assert.Equal(t, []string{"age"}, b.Degraded())
}

func TestExtractIdempotent(t *testing.T) {
	e := newTestExtractor()
	snap := model.AccountSnapshot{CreatedAt: testNow.AddDate(-1, 0, 0), Description: "building web3 tools", FollowersCount: 120, FollowingCount: 80}
	tweets := dailyTweets(12, 4, 1)
	first := e.Extract(snap, tweets)
	second := e.Extract(snap, tweets)
	require.Equal(t, first, second)
}
