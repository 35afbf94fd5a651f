// Package jobs runs the bot's background work: answering triggers,
// refreshing the trusted list, and pruning old data.
package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"rugguard/internal/analyzer"
	"rugguard/internal/config"
	"rugguard/internal/engage"
	"rugguard/internal/logging"
	"rugguard/internal/metrics"
	"rugguard/internal/model"
	"rugguard/internal/xclient"
)

// AccountAnalyzer is implemented by *analyzer.Analyzer.
type AccountAnalyzer interface {
	AnalyzeID(ctx context.Context, userID string) (analyzer.Analysis, error)
}

// ProcessedLog de-duplicates triggers across restarts; *store.DB implements it.
type ProcessedLog interface {
	IsProcessed(ctx context.Context, tweetID string) (bool, error)
	MarkProcessed(ctx context.Context, tweetID, userID string, at time.Time) (bool, error)
}

// Processor answers trigger events.
type Processor struct {
	Analyzer  AccountAnalyzer
	Poster    xclient.Poster
	Processed ProcessedLog
	Actions   engage.ActionLog
	Replies   config.RepliesConfig
	Now       func() time.Time

	// held from the budget check until the reply is recorded
	replyMu sync.Mutex
}

func (p *Processor) now() time.Time {
	if p.Now == nil {
		return time.Now().UTC()
	}
	return p.Now().UTC()
}

// ProcessTrigger analyzes the trigger's original author and replies with the
// report. A trigger is handled at most once.
func (p *Processor) ProcessTrigger(ctx context.Context, ev model.TriggerEvent) error {
	done, err := p.Processed.IsProcessed(ctx, ev.TriggerTweetID)
	if err != nil {
		return err
	}
	if done {
		logging.Debug("trigger_already_processed", map[string]any{"tweet_id": ev.TriggerTweetID})
		return nil
	}

	text := ""
	a, err := p.Analyzer.AnalyzeID(ctx, ev.OriginalAuthorID)
	switch {
	case err == nil:
		text = a.Report.Text
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		logging.Error("trigger_analysis_failed", map[string]any{"tweet_id": ev.TriggerTweetID, "user_id": ev.OriginalAuthorID, "error": err.Error()})
		// only the author id is known here
		text = analyzer.FailureReport("", err)
	}

	if err := p.reply(ctx, ev, text, a.ID); err != nil {
		return err
	}
	_, err = p.Processed.MarkProcessed(ctx, ev.TriggerTweetID, ev.OriginalAuthorID, p.now())
	return err
}

// reply posts text unless the budget is spent or replies are dry-run.
func (p *Processor) reply(ctx context.Context, ev model.TriggerEvent, text, analysisID string) error {
	p.replyMu.Lock()
	defer p.replyMu.Unlock()

	now := p.now()
	allowed, err := engage.ShouldAllowReply(ctx, p.Actions, p.Replies, now)
	if err != nil {
		return err
	}
	switch {
	case !allowed:
		metrics.RepliesPosted.WithLabelValues("budget").Inc()
		logging.Warn("reply_budget_exhausted", map[string]any{"tweet_id": ev.TriggerTweetID})
	case p.Replies.DryRun || p.Poster == nil:
		metrics.RepliesPosted.WithLabelValues("dry_run").Inc()
		logging.Info("reply_dry_run", map[string]any{"tweet_id": ev.TriggerTweetID, "text": text})
	default:
		id, err := p.Poster.PostReply(ctx, ev.TriggerTweetID, text)
		if err != nil {
			metrics.RepliesPosted.WithLabelValues("error").Inc()
			return err
		}
		metrics.RepliesPosted.WithLabelValues("posted").Inc()
		logging.Info("reply_posted", map[string]any{"tweet_id": ev.TriggerTweetID, "reply_id": id, "analysis_id": analysisID})
		if err := engage.RecordReply(ctx, p.Actions, now); err != nil {
			logging.Warn("reply_record_failed", map[string]any{"error": err.Error()})
		}
	}
	return nil
}
