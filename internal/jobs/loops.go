package jobs

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"rugguard/internal/logging"
	"rugguard/internal/model"
	"rugguard/internal/trust"
)

// TriggerSource is implemented by *monitor.Detector.
type TriggerSource interface {
	Poll(ctx context.Context) ([]model.TriggerEvent, error)
	// Retry returns a trigger to later polls after it failed.
	Retry(ctx context.Context, ev model.TriggerEvent)
}

// Cleaner is implemented by *store.DB.
type Cleaner interface {
	Cleanup(ctx context.Context, before time.Time) (int64, error)
}

// maxConcurrentTriggers bounds analyses run in parallel within one poll.
const maxConcurrentTriggers = 4

// RunPollOnce polls for triggers and processes them. Failed triggers are
// logged and handed back to src for a later poll; only a failed poll is returned.
func RunPollOnce(ctx context.Context, src TriggerSource, p *Processor) (int, error) {
	events, err := src.Poll(ctx)
	if err != nil {
		return 0, err
	}
	var g errgroup.Group
	g.SetLimit(maxConcurrentTriggers)
	for _, ev := range events {
		ev := ev
		g.Go(func() error {
			if err := p.ProcessTrigger(ctx, ev); err != nil {
				logging.Error("trigger_failed", map[string]any{"tweet_id": ev.TriggerTweetID, "error": err.Error()})
				src.Retry(ctx, ev)
			}
			return nil
		})
	}
	_ = g.Wait()
	if len(events) > 0 {
		logging.Info("poll_once", map[string]any{"triggers": len(events)})
	}
	return len(events), nil
}

// RunPollLoop runs RunPollOnce on a ticker until ctx is cancelled.
func RunPollLoop(ctx context.Context, src TriggerSource, p *Processor, interval time.Duration) error {
	return every(ctx, "poll", interval, func(ctx context.Context) error {
		_, err := RunPollOnce(ctx, src, p)
		return err
	})
}

// RunTrustedRefreshLoop asks the ledger to refresh every interval; the ledger
// skips refreshes that come too soon.
func RunTrustedRefreshLoop(ctx context.Context, l *trust.Ledger, interval time.Duration) error {
	return every(ctx, "trusted_refresh", interval, func(ctx context.Context) error {
		_, err := l.Refresh(ctx)
		return err
	})
}

// RunCleanupLoop deletes data older than retention once per interval.
func RunCleanupLoop(ctx context.Context, c Cleaner, retention, interval time.Duration) error {
	return every(ctx, "cleanup", interval, func(ctx context.Context) error {
		n, err := c.Cleanup(ctx, time.Now().UTC().Add(-retention))
		if err == nil && n > 0 {
			logging.Info("cleanup_done", map[string]any{"removed": n})
		}
		return err
	})
}

// every runs fn immediately and then on each tick, logging its errors.
func every(ctx context.Context, name string, interval time.Duration, fn func(context.Context) error) error {
	if interval <= 0 {
		return fmt.Errorf("%s: interval must be positive, got %s", name, interval)
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	run := func() {
		if err := fn(ctx); err != nil && ctx.Err() == nil {
			logging.Error(name+"_error", map[string]any{"error": err.Error()})
		}
	}
	run()
	for {
		select {
		case <-ctx.Done():
			logging.Info(name+"_loop_stop", nil)
			return ctx.Err()
		case <-t.C:
			run()
		}
	}
}
