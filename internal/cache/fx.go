package cache

import (
	"context"

	"github.com/bell24h/bell24h/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("cache",
	fx.Provide(NewRedisClient),
	fx.Provide(NewStore),
	fx.Provide(NewPermissionCache),
)

// NewRedisClient returns nil when REDIS_ADDR is unset.
func NewRedisClient(lc fx.Lifecycle, cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client
}

func NewStore(client *redis.Client, log *zap.Logger) Store {
	if client == nil {
		log.Info("decision cache backend", zap.String("backend", "memory"))
		return NewMemoryStore()
	}
	log.Info("decision cache backend", zap.String("backend", "redis"))
	return NewRedisStore(client)
}
