package ratelimit

import (
	"context"
	"fmt"

	"github.com/bell24h/bell24h/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPermissionQuery = "bell24h:ratelimit:permissions:%s"

// PermissionQueryLimiter caps how often one user may query the resolver.
// A nil limiter allows everything.
type PermissionQueryLimiter struct {
	bucket *TokenBucket
	log    *zap.Logger
	rate   float64
	burst  int
}

// NewPermissionQueryLimiter returns nil when Redis or the limit is not configured.
func NewPermissionQueryLimiter(client *redis.Client, cfg config.Config, log *zap.Logger) *PermissionQueryLimiter {
	if client == nil || cfg.PermissionQueryRate <= 0 || cfg.PermissionQueryBurst <= 0 {
		return nil
	}
	return &PermissionQueryLimiter{
		bucket: NewTokenBucket(client),
		log:    log.Named("ratelimit.permissions"),
		rate:   cfg.PermissionQueryRate,
		burst:  cfg.PermissionQueryBurst,
	}
}

// Allow fails open when Redis is unreachable. A fail-open result carries no
// limit, so no quota is advertised for it.
func (l *PermissionQueryLimiter) Allow(ctx context.Context, userID string) Result {
	if l == nil {
		return Result{Allowed: true}
	}
	res, err := l.bucket.Allow(ctx, fmt.Sprintf(keyPermissionQuery, userID), l.rate, l.burst)
	if err != nil {
		l.log.Warn("rate limit check failed", zap.String("user_id", userID), zap.Error(err))
		return Result{Allowed: true}
	}
	return res
}
