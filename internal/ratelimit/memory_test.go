package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBucketSlidingWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	b := NewMemoryBucket()
	b.now = func() time.Time { return now }

	for i := range 3 {
		res, err := b.Allow(ctx, "k", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 2-i, res.Remaining)
		now = now.Add(10 * time.Second)
	}

	res, err := b.Allow(ctx, "k", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 30, res.RetryAfter, "first stamp leaves the window 30s from now")

	other, err := b.Allow(ctx, "other", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, other.Allowed, "keys are independent")

	now = now.Add(31 * time.Second)
	res, err = b.Allow(ctx, "k", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed, "oldest request slid out of the window")
	assert.Equal(t, 0, res.Remaining)
}

func TestRetryAfterRoundsUp(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 2, retryAfter(now.Add(1500*time.Millisecond), now))
	assert.Equal(t, 1, retryAfter(now, now))
}
