package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/hotscore/pkg/config"
)

func TestNewClient_Disabled(t *testing.T) {
	cfg := &config.Config{
		Redis: config.RedisConfig{
			Enabled: false,
		},
	}

	client, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.False(t, client.Enabled())
	assert.NoError(t, client.Ping(context.Background()))
	assert.NoError(t, client.Close())
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(Disabled(), "test")
	cfg := RecomputeRateLimit(5)

	// When Redis is disabled, all requests should be allowed
	for i := 0; i < 10; i++ {
		allowed, remaining, err := limiter.Allow(context.Background(), cfg, "127.0.0.1")
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, cfg.Limit, remaining)
	}
}

func TestRecomputeRateLimit(t *testing.T) {
	cfg := RecomputeRateLimit(30)
	assert.Equal(t, "recompute", cfg.Key)
	assert.Equal(t, 30, cfg.Limit)
	assert.Equal(t, time.Minute, cfg.Window)
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache(Disabled(), "test")
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, RankingCache, RankingField(10), []string{"a"}, time.Minute))

	var result []string
	found, err := cache.Get(ctx, RankingCache, RankingField(10), &result)
	require.NoError(t, err)
	assert.False(t, found, "expected cache miss when Redis disabled")

	assert.NoError(t, cache.Invalidate(ctx, RankingCache))
}

func TestLease_Disabled(t *testing.T) {
	lease := NewLease(Disabled(), "test")
	ctx := context.Background()

	_, ok, err := lease.Acquire(ctx, RecomputeLease, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	// a second holder is also admitted: serialization needs redis
	token, ok, err := lease.Acquire(ctx, RecomputeLease, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, lease.Release(ctx, RecomputeLease, token))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "top:25", RankingField(25))
	assert.Equal(t, "hotscore:cache:ranking", NewCache(Disabled(), "hotscore").key(RankingCache))
	assert.Equal(t, "hotscore:lease:recompute", NewLease(Disabled(), "hotscore").key(RecomputeLease))
}
