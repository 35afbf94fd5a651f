package analyzer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rugguard/internal/cachestore"
	"rugguard/internal/features"
	"rugguard/internal/model"
	"rugguard/internal/report"
	"rugguard/internal/store"
	"rugguard/internal/trust"
	"rugguard/internal/xclient"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeAccounts struct {
	users     map[string]model.AccountSnapshot
	tweets    map[string][]model.TweetSample
	tweetsErr error
	calls     int
}

func (f *fakeAccounts) GetUserByUsername(ctx context.Context, username string) (model.AccountSnapshot, error) {
	f.calls++
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return model.AccountSnapshot{}, xclient.ErrNotFound
}

func (f *fakeAccounts) GetUserByID(ctx context.Context, id string) (model.AccountSnapshot, error) {
	f.calls++
	u, ok := f.users[id]
	if !ok {
		return model.AccountSnapshot{}, xclient.ErrNotFound
	}
	return u, nil
}

func (f *fakeAccounts) GetUserTweets(ctx context.Context, userID string, limit int) ([]model.TweetSample, error) {
	if f.tweetsErr != nil {
		return nil, f.tweetsErr
	}
	return f.tweets[userID], nil
}

type listSource []string

func (s listSource) Fetch(ctx context.Context) ([]string, error) { return s, nil }

type fixedGraph []string

func (g fixedGraph) TrustedFollowers(ctx context.Context, accountID string, trusted []string) ([]string, error) {
	return g, nil
}

type fixture struct {
	accounts *fakeAccounts
	db       *store.DB
	an       *Analyzer
}

func newFixture(t *testing.T, graph trust.VouchGraph) fixture {
	t.Helper()
	accounts := &fakeAccounts{
		users: map[string]model.AccountSnapshot{
			"42": {ID: "42", Username: "alice", CreatedAt: now.AddDate(-3, 0, 0), Description: "research and community", FollowersCount: 800, FollowingCount: 400},
			"43": {ID: "43", Username: "mallory", CreatedAt: now.AddDate(0, 0, -3), Description: "guaranteed returns, act now, pump", FollowersCount: 5000},
		},
		tweets: map[string][]model.TweetSample{
			"42": {{ID: "1", Text: "great community call today", CreatedAt: now.Add(-time.Hour), LikeCount: 20, RetweetCount: 3}},
		},
	}
	db, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	db.SetClock(func() time.Time { return now })

	ledger := trust.NewLedger(listSource{"alice", "bob", "carol", "dave"}, nil, trust.Options{})
	require.NoError(t, ledger.ForceRefresh(context.Background()))

	ex := &features.Extractor{Config: features.DefaultConfig(), Now: func() time.Time { return now }}
	an := New(accounts, ex, ledger, graph, report.NewComposer(3), db, cachestore.NewMemCacheStore(100, time.Minute),
		Options{ReuseWindow: 24 * time.Hour, Now: func() time.Time { return now }})
	return fixture{accounts: accounts, db: db, an: an}
}

func TestAnalyzeTrustedAccount(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	a, err := f.an.AnalyzeUsername(ctx, "@Alice")
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, trust.DirectlyTrusted, a.Trust.Level)
	assert.False(t, a.Features.Age.IsNew)
	assert.Equal(t, features.PatternModerate, a.Features.Engagement.Pattern)
	assert.Contains(t, a.Report.Text, "@alice")
	assert.LessOrEqual(t, len([]rune(a.Report.Text)), report.MaxLength)
	assert.False(t, a.Cached)

	again, err := f.an.AnalyzeUsername(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Equal(t, a.ID, again.ID)
	assert.Equal(t, a.Report, again.Report)
	assert.Equal(t, 1, f.accounts.calls)

	stored, err := f.db.LatestAnalysis(ctx, "42", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, a.ID, stored.ID)
	assert.Equal(t, "directly_trusted", stored.TrustLevel)
}

func TestAnalyzeRiskyAccount(t *testing.T) {
	f := newFixture(t, fixedGraph{"bob", "carol", "dave", "eve"})
	a, err := f.an.AnalyzeID(context.Background(), "43")
	require.NoError(t, err)
	assert.Equal(t, trust.NetworkBacked, a.Trust.Level)
	assert.Equal(t, []string{"bob", "carol", "dave"}, a.Trust.Vouchers)
	assert.True(t, a.Features.Age.IsNew)
	assert.True(t, a.Features.Ratio.Suspicious)
	assert.Equal(t, features.RiskHigh, a.Features.Bio.Risk)
	// new 25 + ratio 20 + bio 20 + inconsistent 10
	assert.Equal(t, 75.0, a.Risk.Value)
	assert.Equal(t, features.PatternNoData, a.Features.Engagement.Pattern)
}

func TestAnalyzeIDReusesHistory(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	first, err := f.an.AnalyzeID(ctx, "42")
	require.NoError(t, err)
	second, err := f.an.AnalyzeID(ctx, "42")
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, f.accounts.calls)
}

func TestAnalyzeSurvivesMissingTweets(t *testing.T) {
	f := newFixture(t, nil)
	f.accounts.tweetsErr = errors.New("timeline unavailable")
	a, err := f.an.AnalyzeID(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, features.StatusNoData, a.Features.Activity.Status)
	assert.NotEmpty(t, a.Report.Text)
}

func TestAnalyzeUnknownUser(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.an.AnalyzeUsername(context.Background(), "ghost")
	require.ErrorIs(t, err, xclient.ErrNotFound)
	assert.Equal(t, "🔍 RUGGUARD: User @ghost not found or protected. #RUGGUARD", FailureReport("ghost", err))

	_, err = f.an.AnalyzeUsername(context.Background(), "@@@")
	assert.Error(t, err)
}

func TestFailureReport(t *testing.T) {
	assert.Equal(t, report.RateLimitReport(), FailureReport("x", xclient.ErrRateLimited))
	assert.Contains(t, FailureReport("x", &xclient.StatusError{Status: 500}), "API error")
	assert.Contains(t, FailureReport("x", errors.New("boom")), "Analysis failed for @x")
	assert.Equal(t, "🔍 RUGGUARD: Analysis failed for this account. #RUGGUARD", FailureReport("", errors.New("boom")))
	assert.Equal(t, "🔍 RUGGUARD: Account not found or protected. #RUGGUARD", FailureReport("", xclient.ErrNotFound))
}
