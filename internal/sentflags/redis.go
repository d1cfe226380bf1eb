package sentflags

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps flags as plain keys, e.g. trf_email_sent:<user>:<schedule>.
// A zero TTL keeps them forever.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) IsSent(ctx context.Context, kind Kind, key string) (bool, error) {
	n, err := s.client.Exists(ctx, flagKey(kind, key)).Result()
	if err != nil {
		return false, errors.Wrap(err, "redis exists")
	}
	return n > 0, nil
}

func (s *RedisStore) MarkSent(ctx context.Context, kind Kind, key string) error {
	value := time.Now().UTC().Format(time.RFC3339)
	return errors.Wrap(s.client.Set(ctx, flagKey(kind, key), value, s.ttl).Err(), "redis set")
}

func (s *RedisStore) Clear(ctx context.Context, kind Kind, key string) error {
	return errors.Wrap(s.client.Del(ctx, flagKey(kind, key)).Err(), "redis del")
}
