package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each session as a Redis hash with a TTL, so expiry is
// enforced by Redis itself.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewRedisStore stores sessions under "<prefix>:<id>". An empty prefix
// means "session".
func NewRedisStore(rdb redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "session"
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (r *RedisStore) key(id string) string {
	return r.prefix + ":" + id
}

// Load reads the session hash. A missing or expired key is not an error.
func (r *RedisStore) Load(ctx context.Context, id string) (map[string]string, bool, error) {
	values, err := r.rdb.HGetAll(ctx, r.key(id)).Result()
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	// HGETALL on a missing key is an empty reply.
	if len(values) == 0 {
		return nil, false, nil
	}
	return values, true, nil
}

// Save replaces the hash and its TTL in one MULTI/EXEC, so readers never
// see a half-written session.
func (r *RedisStore) Save(ctx context.Context, id string, values map[string]string, ttl time.Duration) error {
	key := r.key(id)
	fields := make(map[string]any, len(values))
	for k, v := range values {
		fields[k] = v
	}

	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(fields) > 0 {
			pipe.HSet(ctx, key, fields)
			pipe.Expire(ctx, key, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// Delete removes the session key.
func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.rdb.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return nil
}
