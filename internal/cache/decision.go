package cache

import (
	"context"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// DecisionKey identifies one resolved permission.
type DecisionKey struct {
	UserID       string
	ResourceType string
	ResourceID   string
}

// String renders the key under generation. Parts are kept verbatim because
// resource types match case-sensitively in the store. The resource type goes
// last so a separator inside it cannot collide with another key.
func (k DecisionKey) String(generation int64) string {
	return strings.Join([]string{
		strconv.FormatInt(generation, 10),
		k.UserID,
		orWildcard(k.ResourceID),
		k.ResourceType,
	}, "|")
}

// Store is a decision cache backend. Bumping the generation makes every
// previously written entry unreachable.
type Store interface {
	Generation(ctx context.Context) (int64, error)
	Bump(ctx context.Context) error
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

type memoryStore struct {
	generation atomic.Int64
	entries    Cache[string, string]
}

// NewMemoryStore keeps decisions in process memory.
func NewMemoryStore() Store {
	return &memoryStore{entries: NewTTLCache[string, string]()}
}

func (s *memoryStore) Generation(context.Context) (int64, error) {
	return s.generation.Load(), nil
}

func (s *memoryStore) Bump(context.Context) error {
	s.generation.Add(1)
	// Old generations can never be read again.
	s.entries.Purge()
	return nil
}

func (s *memoryStore) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := s.entries.Get(key)
	return v, ok, nil
}

func (s *memoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.entries.Set(key, value, ttl)
	return nil
}

func orWildcard(v string) string {
	if v == "" {
		return "*"
	}
	return v
}
