package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bell24h/bell24h/internal/config"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func enabledAccess() *config.AccessConfigHolder {
	return config.NewStaticAccessConfigHolder(config.AccessConfig{
		Cache: config.DecisionCacheConfig{Enabled: true, TTL: time.Minute},
	})
}

func TestPermissionCacheMemory(t *testing.T) {
	ctx := context.Background()
	c := NewPermissionCache(NewMemoryStore(), enabledAccess(), zap.NewNop(), nil)
	key := DecisionKey{UserID: "5", ResourceType: "rfq"}

	_, gen, ok := c.Lookup(ctx, key)
	assert.False(t, ok)

	c.Store(ctx, gen, key, "update")
	v, _, ok := c.Lookup(ctx, key)
	require.True(t, ok)
	assert.Equal(t, "update", v)

	other := DecisionKey{UserID: "5", ResourceType: "rfq", ResourceID: "42"}
	_, _, ok = c.Lookup(ctx, other)
	assert.False(t, ok)

	upper := DecisionKey{UserID: "5", ResourceType: "RFQ"}
	_, _, ok = c.Lookup(ctx, upper)
	assert.False(t, ok)

	c.Invalidate(ctx)
	_, _, ok = c.Lookup(ctx, key)
	assert.False(t, ok)
}

func TestPermissionCacheDisabled(t *testing.T) {
	ctx := context.Background()
	c := NewPermissionCache(NewMemoryStore(), config.NewStaticAccessConfigHolder(config.DefaultAccessConfig()), zap.NewNop(), nil)
	key := DecisionKey{UserID: "5", ResourceType: "rfq"}

	_, gen, ok := c.Lookup(ctx, key)
	assert.False(t, ok)
	c.Store(ctx, gen, key, "full")
	_, _, ok = c.Lookup(ctx, key)
	assert.False(t, ok)

	var nilCache *PermissionCache
	_, gen, ok = nilCache.Lookup(ctx, key)
	assert.False(t, ok)
	nilCache.Store(ctx, gen, key, "full")
	nilCache.Invalidate(ctx)
}

func TestPermissionCacheRedis(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c := NewPermissionCache(NewRedisStore(client), enabledAccess(), zap.NewNop(), nil)
	key := DecisionKey{UserID: "7", ResourceType: "rfq", ResourceID: "42"}

	_, gen, _ := c.Lookup(ctx, key)
	c.Store(ctx, gen, key, "full")
	v, _, ok := c.Lookup(ctx, key)
	require.True(t, ok)
	assert.Equal(t, "full", v)
	assert.True(t, mr.Exists(defaultKeyPrefix+"0|7|42|rfq"))

	// A second replica sharing the server observes the bump.
	replica := NewPermissionCache(NewRedisStore(client), enabledAccess(), zap.NewNop(), nil)
	replica.Invalidate(ctx)

	_, gen, ok = c.Lookup(ctx, key)
	assert.False(t, ok)

	mr.FastForward(2 * time.Minute)
	c.Store(ctx, gen, key, "read")
	mr.FastForward(2 * time.Minute)
	_, _, ok = c.Lookup(ctx, key)
	assert.False(t, ok)
}

func TestPermissionCacheRedisUnavailable(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	c := NewPermissionCache(NewRedisStore(client), enabledAccess(), zap.NewNop(), nil)
	mr.Close()

	key := DecisionKey{UserID: "1", ResourceType: "rfq"}
	_, gen, ok := c.Lookup(ctx, key)
	assert.False(t, ok)
	c.Store(ctx, gen, key, "full")
	c.Invalidate(ctx)
}

func TestPermissionCacheStoreUsesObservedGeneration(t *testing.T) {
	ctx := context.Background()
	c := NewPermissionCache(NewMemoryStore(), enabledAccess(), zap.NewNop(), nil)
	key := DecisionKey{UserID: "5", ResourceType: "rfq"}

	_, gen, ok := c.Lookup(ctx, key)
	require.False(t, ok)

	// A write lands between the lookup and the store of the decision computed
	// before it.
	c.Invalidate(ctx)
	c.Store(ctx, gen, key, "full")

	_, _, ok = c.Lookup(ctx, key)
	assert.False(t, ok)
}

func TestDecisionKeyPreservesCase(t *testing.T) {
	lower := DecisionKey{UserID: "5", ResourceType: "rfq"}
	upper := DecisionKey{UserID: "5", ResourceType: "RFQ"}
	assert.NotEqual(t, lower.String(0), upper.String(0))
	assert.Equal(t, "3|5|*|rfq", lower.String(3))
	assert.Equal(t, "3|5|42|a|b", DecisionKey{UserID: "5", ResourceType: "a|b", ResourceID: "42"}.String(3))
}
