// Package analyzer runs the full pipeline for one account: fetch, extract,
// score, classify, compose, then persist and cache.
package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"rugguard/internal/cachestore"
	"rugguard/internal/features"
	"rugguard/internal/logging"
	"rugguard/internal/metrics"
	"rugguard/internal/model"
	"rugguard/internal/report"
	"rugguard/internal/risk"
	"rugguard/internal/store"
	"rugguard/internal/trust"
	"rugguard/internal/util"
	"rugguard/internal/xclient"
)

// Accounts is the read side of the X API the analyzer uses.
type Accounts interface {
	GetUserByUsername(ctx context.Context, username string) (model.AccountSnapshot, error)
	GetUserByID(ctx context.Context, id string) (model.AccountSnapshot, error)
	GetUserTweets(ctx context.Context, userID string, limit int) ([]model.TweetSample, error)
}

// History stores past analyses; *store.DB implements it.
type History interface {
	SaveAnalysis(ctx context.Context, a store.Analysis) error
	LatestAnalysis(ctx context.Context, userID string, maxAge time.Duration) (store.Analysis, error)
}

// Analysis is the complete result for one account.
type Analysis struct {
	ID        string
	Account   model.AccountSnapshot
	Features  features.Bundle
	Risk      risk.Result
	Trust     trust.Decision
	Report    report.Result
	CreatedAt time.Time
	// set when served from the cache or history
	Cached bool `json:"-"`
}

type Options struct {
	MaxRecentTweets int
	// Reuse a stored analysis of the same account younger than this.
	ReuseWindow time.Duration
	Now         func() time.Time
}

type Analyzer struct {
	accounts  Accounts
	extractor *features.Extractor
	ledger    *trust.Ledger
	graph     trust.VouchGraph
	composer  *report.Composer
	history   History
	cache     cachestore.CacheStore
	opts      Options
}

// New wires an analyzer. graph, history and cache may be nil.
func New(accounts Accounts, extractor *features.Extractor, ledger *trust.Ledger, graph trust.VouchGraph,
	composer *report.Composer, history History, cache cachestore.CacheStore, opts Options) *Analyzer {
	if graph == nil {
		graph = trust.NoGraph{}
	}
	if opts.MaxRecentTweets <= 0 {
		opts.MaxRecentTweets = 20
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Analyzer{
		accounts:  accounts,
		extractor: extractor,
		ledger:    ledger,
		graph:     graph,
		composer:  composer,
		history:   history,
		cache:     cache,
		opts:      opts,
	}
}

// AnalyzeUsername analyzes the account with the given handle.
func (a *Analyzer) AnalyzeUsername(ctx context.Context, username string) (Analysis, error) {
	handle := util.SanitizeUsername(username)
	if handle == "" {
		return Analysis{}, fmt.Errorf("invalid username %q", username)
	}
	if cached, ok := a.fromCache(ctx, handle); ok {
		return cached, nil
	}
	snap, err := a.accounts.GetUserByUsername(ctx, handle)
	if err != nil {
		metrics.Analyses.WithLabelValues("fetch_error").Inc()
		return Analysis{}, fmt.Errorf("fetch @%s: %w", handle, err)
	}
	return a.analyze(ctx, snap)
}

// AnalyzeID analyzes the account with the given user id, reusing a recent
// stored analysis when there is one.
func (a *Analyzer) AnalyzeID(ctx context.Context, userID string) (Analysis, error) {
	if a.history != nil && a.opts.ReuseWindow > 0 {
		rec, err := a.history.LatestAnalysis(ctx, userID, a.opts.ReuseWindow)
		if err == nil {
			var prev Analysis
			if jerr := json.Unmarshal([]byte(rec.Payload), &prev); jerr == nil {
				prev.Cached = true
				metrics.Analyses.WithLabelValues("reused").Inc()
				return prev, nil
			}
		} else if !errors.Is(err, store.ErrNotFound) {
			logging.Warn("history_lookup_failed", map[string]any{"user_id": userID, "error": err.Error()})
		}
	}
	snap, err := a.accounts.GetUserByID(ctx, userID)
	if err != nil {
		metrics.Analyses.WithLabelValues("fetch_error").Inc()
		return Analysis{}, fmt.Errorf("fetch user %s: %w", userID, err)
	}
	return a.analyze(ctx, snap)
}

func (a *Analyzer) analyze(ctx context.Context, snap model.AccountSnapshot) (Analysis, error) {
	start := time.Now()
	defer metrics.ObserveAnalysisDuration(start)

	tweets, err := a.accounts.GetUserTweets(ctx, snap.ID, a.opts.MaxRecentTweets)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Analysis{}, ctxErr
		}
		// analysis continues on profile data alone
		logging.Warn("tweets_unavailable", map[string]any{"username": snap.Username, "error": err.Error()})
		tweets = nil
	}

	bundle := a.extractor.Extract(snap, tweets)
	score := risk.Score(bundle, snap.Verified)
	decision := a.classify(ctx, snap)
	rep := a.composer.Compose(report.Identity{Username: snap.Username, Verified: snap.Verified}, score, decision, bundle)

	out := Analysis{
		ID:        uuid.NewString(),
		Account:   snap,
		Features:  bundle,
		Risk:      score,
		Trust:     decision,
		Report:    rep,
		CreatedAt: a.opts.Now().UTC(),
	}
	metrics.Analyses.WithLabelValues("ok").Inc()
	metrics.TrustDecisions.WithLabelValues(string(decision.Level)).Inc()
	metrics.RiskScores.Observe(score.Value)
	logging.Info("analysis_complete", map[string]any{
		"analysis_id": out.ID,
		"username":    snap.Username,
		"risk":        score.Value,
		"signals":     score.Signals,
		"trust":       decision.Level,
		"tier":        rep.Tier,
		"degraded":    bundle.Degraded(),
	})
	a.persist(ctx, out)
	return out, nil
}

func (a *Analyzer) classify(ctx context.Context, snap model.AccountSnapshot) trust.Decision {
	if a.ledger == nil {
		return trust.UnknownDecision()
	}
	if a.ledger.Contains(snap.Username) {
		return a.ledger.Classify(snap.Username, nil)
	}
	vouchers, err := a.graph.TrustedFollowers(ctx, snap.ID, a.ledger.Usernames())
	if err != nil {
		logging.Warn("vouch_lookup_failed", map[string]any{"username": snap.Username, "error": err.Error()})
		return trust.UnknownDecision()
	}
	return a.ledger.Classify(snap.Username, vouchers)
}

func (a *Analyzer) fromCache(ctx context.Context, handle string) (Analysis, bool) {
	if a.cache == nil {
		return Analysis{}, false
	}
	raw, err := a.cache.Get(ctx, cachestore.Analyses, handle)
	if err != nil {
		logging.Warn("cache_get_failed", map[string]any{"username": handle, "error": err.Error()})
		return Analysis{}, false
	}
	if raw == "" {
		return Analysis{}, false
	}
	var out Analysis
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return Analysis{}, false
	}
	out.Cached = true
	metrics.Analyses.WithLabelValues("cached").Inc()
	return out, true
}

func (a *Analyzer) persist(ctx context.Context, out Analysis) {
	payload, err := json.Marshal(out)
	if err != nil {
		logging.Error("analysis_marshal_failed", map[string]any{"error": err.Error()})
		return
	}
	if a.cache != nil {
		if err := a.cache.Set(ctx, cachestore.Analyses, strings.ToLower(out.Account.Username), string(payload)); err != nil {
			logging.Warn("cache_set_failed", map[string]any{"error": err.Error()})
		}
	}
	if a.history != nil {
		err := a.history.SaveAnalysis(ctx, store.Analysis{
			ID:         out.ID,
			UserID:     out.Account.ID,
			Username:   out.Account.Username,
			RiskScore:  out.Risk.Value,
			TrustLevel: string(out.Trust.Level),
			Report:     out.Report.Text,
			Payload:    string(payload),
			CreatedAt:  out.CreatedAt,
		})
		if err != nil {
			logging.Error("analysis_save_failed", map[string]any{"analysis_id": out.ID, "error": err.Error()})
		}
	}
}

// FailureReport is the reply text for an analysis that returned err. handle
// may be empty when only the account id is known.
func FailureReport(handle string, err error) string {
	switch {
	case errors.Is(err, xclient.ErrRateLimited):
		return report.RateLimitReport()
	case errors.Is(err, xclient.ErrNotFound):
		return report.ErrorReport(handle, report.KindUserNotFound)
	case errors.Is(err, xclient.ErrUnauthorized):
		return report.ErrorReport(handle, report.KindAPIError)
	}
	var se *xclient.StatusError
	if errors.As(err, &se) {
		return report.ErrorReport(handle, report.KindAPIError)
	}
	return report.ErrorReport(handle, report.KindAnalysisFailed)
}
