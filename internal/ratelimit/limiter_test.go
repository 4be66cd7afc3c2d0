package ratelimit

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/bell24h/bell24h/internal/config"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestLimiter(t *testing.T, rate float64, burst int) (*PermissionQueryLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limiter := NewPermissionQueryLimiter(client, config.Config{
		PermissionQueryRate:  rate,
		PermissionQueryBurst: burst,
	}, zap.NewNop())
	require.NotNil(t, limiter)
	return limiter, mr
}

func TestPermissionQueryLimiterExhaustsBurst(t *testing.T) {
	ctx := context.Background()
	limiter, _ := newTestLimiter(t, 0.01, 2)

	assert.True(t, limiter.Allow(ctx, "7").Allowed)
	assert.True(t, limiter.Allow(ctx, "7").Allowed)

	res := limiter.Allow(ctx, "7")
	assert.False(t, res.Allowed)
	assert.Equal(t, 2, res.Limit)
	assert.Positive(t, res.RetryAfter)

	assert.True(t, limiter.Allow(ctx, "8").Allowed, "buckets are per user")
}

func TestPermissionQueryLimiterFailsOpen(t *testing.T) {
	limiter, mr := newTestLimiter(t, 1, 1)
	mr.Close()

	res := limiter.Allow(context.Background(), "7")
	assert.True(t, res.Allowed)
	assert.Zero(t, res.Limit)
	assert.Zero(t, res.Remaining)
}

func TestPermissionQueryLimiterDisabled(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	assert.Nil(t, NewPermissionQueryLimiter(nil, config.Config{PermissionQueryRate: 1, PermissionQueryBurst: 1}, zap.NewNop()))
	assert.Nil(t, NewPermissionQueryLimiter(client, config.Config{}, zap.NewNop()))

	var limiter *PermissionQueryLimiter
	assert.True(t, limiter.Allow(context.Background(), "7").Allowed)
}

func TestTokenBucketRejectsBadInput(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	bucket := NewTokenBucket(client)

	_, err := bucket.Allow(context.Background(), "", 1, 1)
	assert.ErrorIs(t, err, ErrInvalidKey)
	_, err = bucket.Allow(context.Background(), "k", 0, 1)
	assert.ErrorIs(t, err, ErrInvalidLimit)

	var nilBucket *TokenBucket
	_, err = nilBucket.Allow(context.Background(), "k", 1, 1)
	assert.ErrorIs(t, err, ErrNotConfigured)
}
