// Package engage enforces how many replies the bot may post.
package engage

import (
	"context"
	"time"

	"rugguard/internal/config"
)

// ActionReply is the action type recorded for each posted reply.
const ActionReply = "reply"

// ActionLog counts and records actions; *store.DB implements it.
type ActionLog interface {
	CountActionsWithin(ctx context.Context, start, end time.Time, typ string) (int, error)
	PutAction(ctx context.Context, ts time.Time, typ string) error
}

// ShouldAllowReply checks the hourly and daily budgets for the UTC hour and
// day containing now. A zero limit means unlimited.
func ShouldAllowReply(ctx context.Context, log ActionLog, cfg config.RepliesConfig, now time.Time) (bool, error) {
	return allow(ctx, log, ActionReply, cfg.MaxPerHour, cfg.MaxPerDay, now)
}

// RecordReply logs a posted reply.
func RecordReply(ctx context.Context, log ActionLog, now time.Time) error {
	return log.PutAction(ctx, now.UTC(), ActionReply)
}

func allow(ctx context.Context, log ActionLog, typ string, perHour, perDay int, now time.Time) (bool, error) {
	now = now.UTC()
	startHour := now.Truncate(time.Hour)
	startDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if perHour > 0 {
		n, err := log.CountActionsWithin(ctx, startHour, startHour.Add(time.Hour), typ)
		if err != nil {
			return false, err
		}
		if n >= perHour {
			return false, nil
		}
	}
	if perDay > 0 {
		n, err := log.CountActionsWithin(ctx, startDay, startDay.Add(24*time.Hour), typ)
		if err != nil {
			return false, err
		}
		if n >= perDay {
			return false, nil
		}
	}
	return true, nil
}
