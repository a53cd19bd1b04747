package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const idempotencyPrefix = "idem:checkout:"

// IdempotencyStore remembers which order a checkout Idempotency-Key produced.
type IdempotencyStore struct {
	redis redis.Cmdable
	ttl   time.Duration
}

func NewIdempotencyStore(client redis.Cmdable, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{redis: client, ttl: ttl}
}

func (s *IdempotencyStore) Lookup(ctx context.Context, userID uuid.UUID, key string) (uuid.UUID, bool, error) {
	val, err := s.redis.Get(ctx, idempotencyKey(userID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	id, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("corrupt idempotency entry: %w", err)
	}
	return id, true, nil
}

func (s *IdempotencyStore) Remember(ctx context.Context, userID uuid.UUID, key string, orderID uuid.UUID) error {
	return s.redis.Set(ctx, idempotencyKey(userID, key), orderID.String(), s.ttl).Err()
}

func idempotencyKey(userID uuid.UUID, key string) string {
	return idempotencyPrefix + userID.String() + ":" + key
}
