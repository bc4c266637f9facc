package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis stores session values as plain keys with a TTL; expiry is left to Redis.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

var _ Store = (*Redis)(nil)

func NewRedis(client *redis.Client, ttl time.Duration, prefix string) *Redis {
	if prefix == "" {
		prefix = "quiz"
	}
	return &Redis{client: client, ttl: ttlOrDefault(ttl), prefix: prefix}
}

func (r *Redis) key(sessionID, key string) string {
	return strings.Join([]string{r.prefix, sessionID, key}, ":")
}

func (r *Redis) Get(ctx context.Context, sessionID, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.key(sessionID, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Set writes the value and refreshes the TTL of the session's other keys so
// a session expires as a whole.
func (r *Redis) Set(ctx context.Context, sessionID, key string, value []byte) error {
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.key(sessionID, key), value, r.ttl)
	for _, other := range sessionKeys {
		if other != key {
			pipe.Expire(ctx, r.key(sessionID, other), r.ttl)
		}
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *Redis) Delete(ctx context.Context, sessionID, key string) error {
	return r.client.Del(ctx, r.key(sessionID, key)).Err()
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
