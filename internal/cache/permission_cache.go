package cache

import (
	"context"

	"github.com/bell24h/bell24h/internal/config"
	"github.com/bell24h/bell24h/internal/observability/metrics"
	"go.uber.org/zap"
)

// PermissionCache fronts a Store with the hot-reloadable access settings.
// A nil *PermissionCache is valid and never caches.
type PermissionCache struct {
	store   Store
	access  *config.AccessConfigHolder
	log     *zap.Logger
	metrics *metrics.Metrics
}

// Generation is the cache generation a lookup observed. Only a decision
// computed after that lookup may be stored under it.
type Generation struct {
	value int64
	valid bool
}

func NewPermissionCache(store Store, access *config.AccessConfigHolder, log *zap.Logger, m *metrics.Metrics) *PermissionCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &PermissionCache{
		store:   store,
		access:  access,
		log:     log.Named("cache.permission"),
		metrics: m,
	}
}

func (c *PermissionCache) enabled() bool {
	return c != nil && c.store != nil && c.access.Get().Cache.Enabled
}

// Lookup returns a cached decision together with the generation it was read
// under. Backend errors count as a miss and yield a generation Store ignores.
func (c *PermissionCache) Lookup(ctx context.Context, key DecisionKey) (string, Generation, bool) {
	if !c.enabled() {
		return "", Generation{}, false
	}
	generation, err := c.store.Generation(ctx)
	if err != nil {
		c.log.Warn("read cache generation", zap.Error(err))
		return "", Generation{}, false
	}
	observed := Generation{value: generation, valid: true}
	value, ok, err := c.store.Get(ctx, key.String(generation))
	if err != nil {
		c.log.Warn("read cached decision", zap.Error(err))
		return "", observed, false
	}
	c.metrics.RecordCacheLookup(ctx, ok)
	return value, observed, ok
}

// Store writes a decision under the generation its lookup observed. A
// mutation committed in between has already bumped past that generation, so
// the entry is never read.
func (c *PermissionCache) Store(ctx context.Context, generation Generation, key DecisionKey, value string) {
	if !generation.valid || !c.enabled() {
		return
	}
	if err := c.store.Set(ctx, key.String(generation.value), value, c.access.Get().Cache.TTL); err != nil {
		c.log.Warn("write cached decision", zap.Error(err))
	}
}

// Invalidate drops every cached decision. It runs even while caching is
// disabled so that re-enabling never serves decisions older than the switch.
func (c *PermissionCache) Invalidate(ctx context.Context) {
	if c == nil || c.store == nil {
		return
	}
	if err := c.store.Bump(ctx); err != nil {
		c.log.Warn("invalidate decision cache", zap.Error(err))
	}
}
