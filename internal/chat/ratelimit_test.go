package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter_FixedWindow(t *testing.T) {
	l := NewMemoryLimiter(3, time.Minute)
	now := time.Unix(1700000000, 0)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := l.Allow(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok, "fourth message in the window is rejected")

	// window deadline passes: counter restarts at 1, not 4
	now = now.Add(time.Minute + time.Second)
	ok, err = l.Allow(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = l.Allow(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryLimiter_PerUserBudgets(t *testing.T) {
	l := NewMemoryLimiter(1, time.Minute)
	ctx := context.Background()

	ok, err := l.Allow(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Allow(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = l.Allow(ctx, "u2")
	require.NoError(t, err)
	assert.True(t, ok, "one user's quota does not leak into another's")
}

func TestMemoryLimiter_RefundReturnsWindowSlot(t *testing.T) {
	l := NewMemoryLimiter(2, time.Minute)
	now := time.Unix(1700000000, 0)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	ok, err := l.Allow(ctx, "u1")
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = l.Allow(ctx, "u1")
	require.NoError(t, err)
	require.True(t, ok)

	// exhausted without the refund
	ok, err = l.Allow(ctx, "u1")
	require.NoError(t, err)
	require.False(t, ok)

	l.Refund(ctx, "u1")
	ok, err = l.Allow(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok, "refunded slot is usable again in the same window")

	// refund after the window lapsed does not seed a negative count
	now = now.Add(2 * time.Minute)
	l.Refund(ctx, "u1")
	ok, err = l.Allow(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = l.Allow(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = l.Allow(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok, "stale refund must not widen the new window")
}

func TestMemoryLimiter_RefundUnknownUserIsNoop(t *testing.T) {
	l := NewMemoryLimiter(1, time.Minute)
	l.Refund(context.Background(), "nobody")

	ok, err := l.Allow(context.Background(), "nobody")
	require.NoError(t, err)
	assert.True(t, ok)
}
