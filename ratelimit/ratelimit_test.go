package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlidingWindowLimiterAllowsUpToMax(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	limiter := newSlidingWindowLimiterWithClock(5, time.Minute, func() time.Time { return now })

	ctx := context.Background()

	for i := 0; i < 5; i++ {
		allowed, err := limiter.Allow(ctx, "203.0.113.7")
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should be allowed", i+1)
	}

	allowed, err := limiter.Allow(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.False(t, allowed, "6th request within the window should be rejected")
}

func TestSlidingWindowLimiterWindowSlides(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	limiter := newSlidingWindowLimiterWithClock(5, time.Minute, func() time.Time { return now })

	ctx := context.Background()

	for i := 0; i < 5; i++ {
		allowed, err := limiter.Allow(ctx, "key")
		require.NoError(t, err)
		require.True(t, allowed)
		now = now.Add(time.Second)
	}

	allowed, err := limiter.Allow(ctx, "key")
	require.NoError(t, err)
	assert.False(t, allowed)

	// The first request ages out of the trailing window, freeing one slot
	now = now.Add(56 * time.Second)
	allowed, err = limiter.Allow(ctx, "key")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "key")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestSlidingWindowLimiterRejectionsNotRecorded(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	limiter := newSlidingWindowLimiterWithClock(5, time.Minute, func() time.Time { return now })

	ctx := context.Background()

	// Hammer the key well past the budget
	for i := 0; i < 50; i++ {
		_, err := limiter.Allow(ctx, "hammer")
		require.NoError(t, err)
	}

	// Only the 5 allowed requests count against the window, so the client is
	// unblocked as soon as those age out
	now = now.Add(time.Minute + time.Second)
	allowed, err := limiter.Allow(ctx, "hammer")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestSlidingWindowLimiterKeysIsolated(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	limiter := newSlidingWindowLimiterWithClock(5, time.Minute, func() time.Time { return now })

	ctx := context.Background()

	for i := 0; i < 5; i++ {
		allowed, err := limiter.Allow(ctx, "192.0.2.1")
		require.NoError(t, err)
		require.True(t, allowed)
	}

	blocked, err := limiter.Allow(ctx, "192.0.2.1")
	require.NoError(t, err)
	assert.False(t, blocked)

	// A different client is unaffected, and so is the shared fallback bucket
	allowed, err := limiter.Allow(ctx, "192.0.2.2")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "unknown")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestPruneBefore(t *testing.T) {
	base := time.Unix(1700000000, 0).UTC()
	ts := []time.Time{base, base.Add(time.Second), base.Add(2 * time.Second)}

	pruned := pruneBefore(ts, base.Add(time.Second))
	require.Len(t, pruned, 1)
	assert.Equal(t, base.Add(2*time.Second), pruned[0])

	// Cutoff before everything keeps the slice untouched
	same := pruneBefore(ts, base.Add(-time.Second))
	assert.Len(t, same, 3)

	empty := pruneBefore(ts, base.Add(time.Minute))
	assert.Empty(t, empty)
}
