package main

import (
	"context"
	"io"
	"time"

	"rugguard/internal/analyzer"
	"rugguard/internal/cachestore"
	"rugguard/internal/config"
	"rugguard/internal/features"
	"rugguard/internal/jobs"
	"rugguard/internal/logging"
	"rugguard/internal/monitor"
	"rugguard/internal/report"
	"rugguard/internal/store"
	"rugguard/internal/trust"
	"rugguard/internal/xclient"
)

// bot holds the wired components shared by the commands.
type bot struct {
	cfg      config.Config
	db       *store.DB
	client   *xclient.HTTPClient
	ledger   *trust.Ledger
	cache    cachestore.CacheStore
	analyzer *analyzer.Analyzer
}

// openStore falls back to an in-memory database when no path is configured.
func openStore(cfg config.Config) (*store.DB, error) {
	if cfg.Storage.DBPath == "" {
		return store.Open(":memory:")
	}
	return store.Open(cfg.Storage.DBPath)
}

// buildTrustOnly wires the store and ledger without an API client.
func buildTrustOnly(ctx context.Context, cfg config.Config) (*bot, error) {
	db, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	b := &bot{cfg: cfg, db: db}
	var cache trust.Cache = db
	if cfg.Storage.DBPath == "" {
		cache = trust.FileCache{Path: cfg.Trust.CacheFile}
	}
	var src trust.Source = trust.NewHTTPSource(cfg.Trust.ListURL)
	if cfg.Trust.ListFile != "" {
		src = trust.FileSource{Path: cfg.Trust.ListFile}
	}
	b.ledger = trust.NewLedger(src, cache, trust.Options{
		Interval:            cfg.TrustUpdateInterval(),
		MinTrustedFollowers: cfg.Trust.MinTrustedFollowers,
	})
	n, err := b.ledger.Load(ctx)
	if err != nil {
		logging.Warn("trusted_load_failed", map[string]any{"error": err.Error()})
	}
	logging.Info("trusted_loaded", map[string]any{"count": n})
	return b, nil
}

// refreshTrusted loads the list from its source when the cached copy is
// stale or missing. A failure keeps whatever the cache held.
func (b *bot) refreshTrusted(ctx context.Context) {
	if _, err := b.ledger.Refresh(ctx); err != nil {
		logging.Warn("trusted_refresh_failed", map[string]any{"error": err.Error(), "kept": b.ledger.Size()})
	}
}

// build wires every component. Analysis works with an empty trusted set when
// the list cannot be loaded.
func build(ctx context.Context, cfg config.Config) (*bot, error) {
	b, err := buildTrustOnly(ctx, cfg)
	if err != nil {
		return nil, err
	}
	b.client = xclient.NewHTTPClient(cfg.Credentials.BearerToken)
	if c := cfg.Credentials; c.ConsumerKey != "" && c.AccessToken != "" {
		b.client.WithOAuth1(xclient.NewSigner(c.ConsumerKey, c.ConsumerSecret, c.AccessToken, c.AccessSecret))
	}
	b.cache, err = cachestore.New(cfg.Cache.RedisURL, cfg.Cache.Capacity, cfg.CacheTTL())
	if err != nil {
		b.Close()
		return nil, err
	}

	var graph trust.VouchGraph = trust.NoGraph{}
	if cfg.Trust.FollowGraph {
		graph = trust.NewFollowingGraph(b.client, cfg.Trust.FollowGraphSample, cfg.TrustUpdateInterval())
	}
	extractor := features.NewExtractor(features.Config{
		MinAccountAgeDays:       cfg.Analysis.MinAccountAgeDays,
		SuspiciousFollowerRatio: cfg.Analysis.SuspiciousFollowerRatio,
		MaxRecentTweets:         cfg.Analysis.MaxRecentTweets,
	})
	b.analyzer = analyzer.New(b.client, extractor, b.ledger, graph,
		report.NewComposer(cfg.Trust.MinTrustedFollowers), b.db, b.cache,
		analyzer.Options{MaxRecentTweets: cfg.Analysis.MaxRecentTweets, ReuseWindow: cfg.CacheTTL()})
	return b, nil
}

// detector resolves the bot's own id so its replies never count as triggers.
func (b *bot) detector(ctx context.Context) *monitor.Detector {
	opts := monitor.Options{
		Phrase:           b.cfg.Trigger.Phrase,
		MonitoredAccount: b.cfg.Trigger.MonitoredAccount,
		MaxAge:           time.Duration(b.cfg.Trigger.MaxAgeMinutes) * time.Minute,
	}
	if b.cfg.Account.Username != "" {
		me, err := b.client.GetUserByUsername(ctx, b.cfg.Account.Username)
		if err != nil {
			logging.Warn("bot_account_lookup_failed", map[string]any{"username": b.cfg.Account.Username, "error": err.Error()})
		} else {
			opts.IgnoreAuthorID = me.ID
		}
	}
	return monitor.NewDetector(b.client, b.db, opts)
}

func (b *bot) processor() *jobs.Processor {
	return &jobs.Processor{
		Analyzer:  b.analyzer,
		Poster:    b.client,
		Processed: b.db,
		Actions:   b.db,
		Replies:   b.cfg.Replies,
	}
}

func (b *bot) Close() {
	if c, ok := b.cache.(io.Closer); ok {
		_ = c.Close()
	}
	if b.ledger != nil {
		_ = b.ledger.Close()
	}
	if b.db != nil {
		_ = b.db.Close()
	}
}
