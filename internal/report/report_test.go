package report

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rugguard/internal/features"
	"rugguard/internal/risk"
	"rugguard/internal/trust"
)

func quietBundle() features.Bundle {
	return features.Bundle{
		Age:   features.Age{Days: 5},
		Ratio: features.Ratio{Followers: 10},
		Bio:   features.Bio{Risk: features.RiskMedium},
	}
}

func busyBundle() features.Bundle {
	return features.Bundle{
		Age:        features.Age{Days: 800},
		Ratio:      features.Ratio{Followers: 12_500},
		Bio:        features.Bio{HasBio: true, Risk: features.RiskHigh},
		Engagement: features.Engagement{AvgLikes: 42},
		Content:    features.Content{SuspiciousRatio: 0.5},
	}
}

func TestComposeFull(t *testing.T) {
	c := NewComposer(3)
	res := c.Compose(Identity{Username: "bob"}, risk.Result{Value: 5}, trust.UnknownDecision(), quietBundle())
	require.Equal(t, TierFull, res.Tier)
	assert.Equal(t, strings.Join([]string{
		"🔍 RUGGUARD TRUST REPORT for @bob",
		"",
		"❓ UNKNOWN: Unable to verify trust status",
		"🟢 LOW RISK (Score: 5.0/100)",
		"📅 5d old | 👥 10 followers | 📊 Low engagement",
		"⚠️ No bio | ⚠️ Inactive recently | ✅ Clean content",
		"",
		"⚠️ This is an automated analysis. DYOR!",
		"#RUGGUARD #TrustScore",
	}, "\n"), res.Text)
}

func TestComposeFallsBackToEssential(t *testing.T) {
	c := NewComposer(3)
	d := trust.Decision{Level: trust.DirectlyTrusted, Trusted: true}
	res := c.Compose(Identity{Username: "@alice", Verified: true}, risk.Result{Value: 35}, d, busyBundle())
	require.Equal(t, TierEssential, res.Tier)
	assert.Equal(t, strings.Join([]string{
		"🔍 RUGGUARD TRUST REPORT for @alice",
		"✅ VERIFIED TRUSTED ACCOUNT",
		"• Account is on Project RUGGUARD's trusted list",
		"• Automatically vouched by the system",
		"🟡 MODERATE RISK (Score: 35.0/100)",
		"📅 2y old | 👥 12K followers | 📊 Moderate engagement",
		"⚠️ DYOR! #RUGGUARD",
	}, "\n"), res.Text)
	assert.LessOrEqual(t, utf8.RuneCountInString(res.Text), MaxLength)
}

func TestComposeCompact(t *testing.T) {
	c := NewComposer(3)
	handle := strings.Repeat("x", 50)
	d := trust.Decision{Level: trust.NotVouched}
	res := c.Compose(Identity{Username: handle}, risk.Result{Value: 85}, d, quietBundle())
	require.Equal(t, TierCompact, res.Tier)
	assert.Equal(t, "🔍 @"+handle+"\n❌ UNVERIFIED ACCOUNT\n🔴 VERY HIGH RISK\n⚠️ DYOR! #RUGGUARD", res.Text)
}

func TestComposeHardTruncate(t *testing.T) {
	c := NewComposer(3)
	res := c.Compose(Identity{Username: strings.Repeat("y", 400)}, risk.Result{Value: 50}, trust.UnknownDecision(), quietBundle())
	assert.Equal(t, TierHardTruncate, res.Tier)
	assert.Equal(t, MaxLength, utf8.RuneCountInString(res.Text))
}

func TestComposeWithoutIdentity(t *testing.T) {
	res := NewComposer(3).Compose(Identity{}, risk.Result{}, trust.Decision{}, features.Bundle{})
	assert.Equal(t, TierError, res.Tier)
	assert.Equal(t, "🔍 RUGGUARD: Error analyzing @unknown. Please try again. #RUGGUARD", res.Text)
}

func TestComposeAlwaysWithinLimit(t *testing.T) {
	c := NewComposer(3)
	decisions := []trust.Decision{
		{Level: trust.DirectlyTrusted, Trusted: true},
		{Level: trust.NetworkBacked, Trusted: true, Vouchers: []string{"a", "b", "c", "d"}},
		{Level: trust.PartiallyVouched, Vouchers: []string{"a"}},
		{Level: trust.NotVouched},
		trust.UnknownDecision(),
	}
	for _, n := range []int{1, 15, 40, 120, 300} {
		for _, d := range decisions {
			for _, score := range []float64{0, 19.9, 20, 39.9, 40, 69.9, 70, 100} {
				for _, b := range []features.Bundle{quietBundle(), busyBundle()} {
					res := c.Compose(Identity{Username: strings.Repeat("🦊", n), Verified: true}, risk.Result{Value: score}, d, b)
					assert.NotEmpty(t, res.Text)
					assert.LessOrEqual(t, utf8.RuneCountInString(res.Text), MaxLength)
				}
			}
		}
	}
}

func TestTrustStatusWording(t *testing.T) {
	c := NewComposer(3)
	s := c.trustStatus(trust.Decision{Level: trust.NetworkBacked, Vouchers: []string{"a", "b", "c", "d"}})
	assert.Equal(t, "🤝 NETWORK BACKED ACCOUNT\n• Followed by 4 trusted accounts from our list\n• Meets minimum threshold of 3 trusted followers", s)
	s = c.trustStatus(trust.Decision{Level: trust.PartiallyVouched, Vouchers: []string{"a", "b"}})
	assert.Equal(t, "⚠️ PARTIALLY BACKED\n• Followed by 2 trusted account(s)\n• Needs 3+ for full verification", s)
}

func TestBucket(t *testing.T) {
	for _, fix := range []struct {
		score float64
		label string
	}{{0, "LOW RISK"}, {19.9, "LOW RISK"}, {20, "MODERATE RISK"}, {39.9, "MODERATE RISK"}, {40, "HIGH RISK"}, {69.9, "HIGH RISK"}, {70, "VERY HIGH RISK"}, {100, "VERY HIGH RISK"}} {
		_, label := Bucket(fix.score)
		assert.Equal(t, fix.label, label, fix.score)
	}
}

func TestKeyMetrics(t *testing.T) {
	assert.Equal(t, "1000", abbreviate(1000))
	assert.Equal(t, "1K", abbreviate(1001))
	assert.Equal(t, "1000K", abbreviate(1_000_000))
	assert.Equal(t, "2M", abbreviate(2_500_000))

	b := features.Bundle{Age: features.Age{Days: 45}, Engagement: features.Engagement{AvgLikes: 150}}
	assert.Equal(t, "📅 1m old | 👥 0 followers | 📊 High engagement", keyMetrics(b))
}

func TestTruncateKeepsGraphemes(t *testing.T) {
	assert.Equal(t, "ab", Truncate("ab⚠️", 3))
	assert.Equal(t, "ab⚠️", Truncate("ab⚠️", 4))
	assert.Equal(t, "🇺🇸", Truncate("🇺🇸🇺🇸", 3))
	assert.Equal(t, "short", Truncate("short", 280))
}

func TestErrorReports(t *testing.T) {
	assert.Equal(t, "🔍 RUGGUARD: User @ghost not found or protected. #RUGGUARD", ErrorReport("ghost", KindUserNotFound))
	assert.Equal(t, "🔍 RUGGUARD: API error analyzing @ghost. Try again later. #RUGGUARD", ErrorReport("ghost", KindAPIError))
	assert.Equal(t, "🔍 RUGGUARD: Analysis failed for @ghost. #RUGGUARD", ErrorReport("ghost", KindAnalysisFailed))
	assert.Equal(t, "🔍 RUGGUARD: Error analyzing @ghost. Please try again. #RUGGUARD", ErrorReport("ghost", Kind("bogus")))
	assert.Equal(t, "🔍 RUGGUARD: Account not found or protected. #RUGGUARD", ErrorReport("", KindUserNotFound))
	assert.Equal(t, "🔍 RUGGUARD: API error analyzing this account. Try again later. #RUGGUARD", ErrorReport("", KindAPIError))
	assert.Equal(t, "🔍 RUGGUARD: Rate limit reached. Please try again in 15 minutes. #RUGGUARD", RateLimitReport())
}
