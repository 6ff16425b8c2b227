package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis is the shared remote cache backend. Entries survive process restarts
// and are visible to every instance; Redis applies expiry natively, matching
// the memory backend's lazy-expiry semantics.
type Redis struct {
	client redis.Cmdable
	log    *zap.Logger
}

// NewRedis creates a Redis-backed cache.
func NewRedis(client redis.Cmdable, log *zap.Logger) *Redis {
	return &Redis{client: client, log: log}
}

func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	value, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrMiss
		}
		r.log.Error("failed to get key from cache", zap.Error(err), zap.String("key", key))
		return "", err
	}
	return value, nil
}

func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		r.log.Error("failed to set key in cache", zap.Error(err), zap.String("key", key))
		return err
	}
	return nil
}

func (r *Redis) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		r.log.Error("failed to delete keys from cache", zap.Error(err), zap.Strings("keys", keys))
		return err
	}
	return nil
}

func (r *Redis) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		r.log.Error("failed to check key existence", zap.Error(err), zap.String("key", key))
		return false, err
	}
	return n > 0, nil
}

func (r *Redis) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := r.client.Expire(ctx, key, ttl).Result()
	if err != nil {
		r.log.Error("failed to set key expiry", zap.Error(err), zap.String("key", key))
		return false, err
	}
	return ok, nil
}

func (r *Redis) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := r.client.TTL(ctx, key).Result()
	if err != nil {
		r.log.Error("failed to get key ttl", zap.Error(err), zap.String("key", key))
		return 0, err
	}
	switch {
	case d == -2*time.Second || d == -2*time.Nanosecond:
		return 0, ErrMiss
	case d < 0:
		return NoExpiry, nil
	default:
		return d, nil
	}
}

func (r *Redis) MGet(ctx context.Context, keys ...string) ([]*string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	raw, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		r.log.Error("failed to mget keys from cache", zap.Error(err), zap.Strings("keys", keys))
		return nil, err
	}
	values := make([]*string, len(keys))
	for i, item := range raw {
		if s, ok := item.(string); ok {
			v := s
			values[i] = &v
		}
	}
	return values, nil
}

func (r *Redis) MSet(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	pairs := make([]interface{}, 0, len(values)*2)
	for key, value := range values {
		pairs = append(pairs, key, value)
	}
	if err := r.client.MSet(ctx, pairs...).Err(); err != nil {
		r.log.Error("failed to mset keys in cache", zap.Error(err))
		return err
	}
	return nil
}

func (r *Redis) FlushAll(ctx context.Context) error {
	if err := r.client.FlushAll(ctx).Err(); err != nil {
		r.log.Error("failed to flush cache", zap.Error(err))
		return err
	}
	return nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
