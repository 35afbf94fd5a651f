// Package report renders an analysis as a reply that fits in one post.
package report

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rivo/uniseg"

	"rugguard/internal/features"
	"rugguard/internal/logging"
	"rugguard/internal/metrics"
	"rugguard/internal/risk"
	"rugguard/internal/trust"
)

// MaxLength is the post limit in code points.
const MaxLength = 280

// Tier records how far the report had to be cut down.
type Tier string

const (
	TierFull         Tier = "full"
	TierEssential    Tier = "essential"
	TierCompact      Tier = "compact"
	TierHardTruncate Tier = "hard_truncate"
	TierError        Tier = "error"
)

const (
	fullFooter  = "⚠️ This is an automated analysis. DYOR!"
	hashtags    = "#RUGGUARD #TrustScore"
	shortFooter = "⚠️ DYOR! #RUGGUARD"
)

// Identity is who the report is about.
type Identity struct {
	Username string
	Verified bool
}

type Result struct {
	Text string
	Tier Tier
}

type Composer struct {
	// Shown in the network_backed and partially_vouched wording.
	MinTrustedFollowers int
}

func NewComposer(minTrustedFollowers int) *Composer {
	if minTrustedFollowers <= 0 {
		minTrustedFollowers = 3
	}
	return &Composer{MinTrustedFollowers: minTrustedFollowers}
}

// Compose never fails; if it cannot build a report it returns the generic
// error report for the handle.
func (c *Composer) Compose(id Identity, score risk.Result, decision trust.Decision, b features.Bundle) (res Result) {
	handle := strings.TrimPrefix(strings.TrimSpace(id.Username), "@")
	defer func() {
		if r := recover(); r != nil {
			logging.Error("report_compose_failed", map[string]any{"username": handle, "panic": fmt.Sprint(r)})
			res = Result{Text: ErrorReport(handle, KindGeneral), Tier: TierError}
		}
		metrics.ReportTiers.WithLabelValues(string(res.Tier)).Inc()
	}()
	if handle == "" {
		return Result{Text: ErrorReport("unknown", KindGeneral), Tier: TierError}
	}

	header := fmt.Sprintf("🔍 RUGGUARD TRUST REPORT for @%s", handle)
	trustLine := c.trustStatus(decision)
	riskLine := riskAssessment(score.Value)
	metricsLine := keyMetrics(b)

	full := strings.Join([]string{
		header,
		"",
		trustLine,
		riskLine,
		metricsLine,
		detailedAnalysis(b, id.Verified),
		"",
		fullFooter,
		hashtags,
	}, "\n")
	if length(full) <= MaxLength {
		return Result{Text: full, Tier: TierFull}
	}

	essential := strings.Join([]string{header, trustLine, riskLine, metricsLine, shortFooter}, "\n")
	if length(essential) <= MaxLength {
		return Result{Text: essential, Tier: TierEssential}
	}

	compact := strings.Join([]string{
		"🔍 @" + handle,
		trustKeyword(trustLine),
		riskLabel(riskLine),
		shortFooter,
	}, "\n")
	if length(compact) <= MaxLength {
		return Result{Text: compact, Tier: TierCompact}
	}
	return Result{Text: Truncate(compact, MaxLength), Tier: TierHardTruncate}
}

func (c *Composer) trustStatus(d trust.Decision) string {
	switch d.Level {
	case trust.DirectlyTrusted:
		return "✅ VERIFIED TRUSTED ACCOUNT\n• Account is on Project RUGGUARD's trusted list\n• Automatically vouched by the system"
	case trust.NetworkBacked:
		return fmt.Sprintf("🤝 NETWORK BACKED ACCOUNT\n• Followed by %d trusted accounts from our list\n• Meets minimum threshold of %d trusted followers",
			len(d.Vouchers), c.MinTrustedFollowers)
	case trust.PartiallyVouched:
		return fmt.Sprintf("⚠️ PARTIALLY BACKED\n• Followed by %d trusted account(s)\n• Needs %d+ for full verification",
			len(d.Vouchers), c.MinTrustedFollowers)
	case trust.NotVouched:
		return "❌ UNVERIFIED ACCOUNT\n• Not on trusted list\n• No trusted accounts following\n• Requires manual verification"
	default:
		return "❓ UNKNOWN: Unable to verify trust status"
	}
}

// Bucket returns the emoji and label for a risk score.
func Bucket(score float64) (emoji, label string) {
	switch {
	case score < 20:
		return "🟢", "LOW RISK"
	case score < 40:
		return "🟡", "MODERATE RISK"
	case score < 70:
		return "🟠", "HIGH RISK"
	default:
		return "🔴", "VERY HIGH RISK"
	}
}

func riskAssessment(score float64) string {
	emoji, label := Bucket(score)
	return fmt.Sprintf("%s %s (Score: %s/100)", emoji, label, strconv.FormatFloat(score, 'f', 1, 64))
}

func keyMetrics(b features.Bundle) string {
	parts := make([]string, 0, 3)
	switch days := b.Age.Days; {
	case days > 365:
		parts = append(parts, fmt.Sprintf("📅 %dy old", days/365))
	case days > 30:
		parts = append(parts, fmt.Sprintf("📅 %dm old", days/30))
	default:
		parts = append(parts, fmt.Sprintf("📅 %dd old", days))
	}
	parts = append(parts, "👥 "+abbreviate(b.Ratio.Followers)+" followers")
	switch likes := b.Engagement.AvgLikes; {
	case likes > 100:
		parts = append(parts, "📊 High engagement")
	case likes > 10:
		parts = append(parts, "📊 Moderate engagement")
	default:
		parts = append(parts, "📊 Low engagement")
	}
	return strings.Join(parts, " | ")
}

func abbreviate(n int) string {
	switch {
	case n > 1_000_000:
		return strconv.Itoa(n/1_000_000) + "M"
	case n > 1000:
		return strconv.Itoa(n/1000) + "K"
	default:
		return strconv.Itoa(n)
	}
}

func detailedAnalysis(b features.Bundle, verified bool) string {
	var parts []string
	if b.Bio.HasBio {
		switch b.Bio.Risk {
		case features.RiskHigh:
			parts = append(parts, "⚠️ Suspicious bio content")
		case features.RiskLow:
			parts = append(parts, "✅ Clean bio content")
		}
	} else {
		parts = append(parts, "⚠️ No bio")
	}
	if b.Activity.Recent {
		parts = append(parts, "✅ Recently active")
	} else {
		parts = append(parts, "⚠️ Inactive recently")
	}
	switch r := b.Content.SuspiciousRatio; {
	case r > 0.3:
		parts = append(parts, "🚨 High suspicious content")
	case r > 0.1:
		parts = append(parts, "⚠️ Some suspicious content")
	default:
		parts = append(parts, "✅ Clean content")
	}
	if verified {
		parts = append(parts, "✅ Verified account")
	}
	return strings.Join(parts, " | ")
}

// trustKeyword is the first line of the trust status, cut at the first colon.
func trustKeyword(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if i := strings.IndexByte(s, ':'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func riskLabel(s string) string {
	if i := strings.IndexByte(s, '('); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func length(s string) int { return utf8.RuneCountInString(s) }

// Truncate cuts s to at most limit code points without splitting a grapheme cluster.
func Truncate(s string, limit int) string {
	if length(s) <= limit {
		return s
	}
	var b strings.Builder
	n := 0
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		runes := g.Runes()
		if n+len(runes) > limit {
			break
		}
		b.WriteString(g.Str())
		n += len(runes)
	}
	return b.String()
}
