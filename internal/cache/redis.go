package cache

import (
	"context"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefix = "bell24h:acl:decision:"
	generationKey    = "generation"
)

type redisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore shares decisions and the generation counter across replicas.
func NewRedisStore(client *redis.Client) Store {
	return &redisStore{client: client, prefix: defaultKeyPrefix}
}

func (s *redisStore) Generation(ctx context.Context) (int64, error) {
	v, err := s.client.Get(ctx, s.prefix+generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

func (s *redisStore) Bump(ctx context.Context) error {
	return s.client.Incr(ctx, s.prefix+generationKey).Err()
}

func (s *redisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *redisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefix+key, value, ttl).Err()
}
