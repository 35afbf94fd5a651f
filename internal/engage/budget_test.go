package engage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rugguard/internal/config"
	"rugguard/internal/store"
)

func TestShouldAllowReplyRespectsBudgets(t *testing.T) {
	db, err := store.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	cfg := config.RepliesConfig{MaxPerHour: 2, MaxPerDay: 3}

	ok, err := ShouldAllowReply(ctx, db, cfg, now)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, RecordReply(ctx, db, now))
	require.NoError(t, RecordReply(ctx, db, now.Add(5*time.Minute)))
	ok, err = ShouldAllowReply(ctx, db, cfg, now.Add(10*time.Minute))
	require.NoError(t, err)
	assert.False(t, ok, "hourly budget")

	require.NoError(t, RecordReply(ctx, db, now.Add(65*time.Minute)))
	ok, err = ShouldAllowReply(ctx, db, cfg, now.Add(70*time.Minute))
	require.NoError(t, err)
	assert.False(t, ok, "daily budget")

	ok, err = ShouldAllowReply(ctx, db, cfg, now.Add(24*time.Hour))
	require.NoError(t, err)
	assert.True(t, ok, "next day")
}

func TestUnlimited(t *testing.T) {
	db, err := store.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()
	now := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, RecordReply(ctx, db, now))
	}
	ok, err := ShouldAllowReply(ctx, db, config.RepliesConfig{}, now)
	require.NoError(t, err)
	assert.True(t, ok)
}
