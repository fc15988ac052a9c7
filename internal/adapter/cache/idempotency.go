package cache

import (
	"context"
	"time"

	"github.com/MikeRez0/artisanmart/internal/core/port"
	"github.com/redis/go-redis/v9"
)

const webhookKeyPrefix = "idemp:webhook:"

// RedisIdempotencyStore keeps claimed webhook event ids for ttl.
type RedisIdempotencyStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisIdempotencyStore(rdb *redis.Client, ttl time.Duration) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{rdb: rdb, ttl: ttl}
}

func (s *RedisIdempotencyStore) Claim(ctx context.Context, eventID string) (bool, error) {
	return s.rdb.SetNX(ctx, webhookKeyPrefix+eventID, "1", s.ttl).Result()
}

func (s *RedisIdempotencyStore) Release(ctx context.Context, eventID string) error {
	return s.rdb.Del(ctx, webhookKeyPrefix+eventID).Err()
}

// NoopIdempotencyStore claims every id; the order state guard alone keeps
// webhooks idempotent.
type NoopIdempotencyStore struct{}

func (NoopIdempotencyStore) Claim(context.Context, string) (bool, error) { return true, nil }

func (NoopIdempotencyStore) Release(context.Context, string) error { return nil }

var (
	_ port.IdempotencyStore = (*RedisIdempotencyStore)(nil)
	_ port.IdempotencyStore = NoopIdempotencyStore{}
)
