// Package cache provides the key-value cache used by the wallet core's
// cache-aside reads, with interchangeable in-process and Redis backends.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss indicates a cache miss. A miss must always fall back to the store
// of record; the cache is never authoritative.
var ErrMiss = errors.New("cache miss")

// NoExpiry marks an entry that never expires.
const NoExpiry time.Duration = -1

// Cache is the uniform interface over both backends. Both apply lazy expiry
// at read time in addition to any eager cleanup.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	TTL(ctx context.Context, key string) (time.Duration, error)
	MGet(ctx context.Context, keys ...string) ([]*string, error)
	MSet(ctx context.Context, values map[string]string) error
	FlushAll(ctx context.Context) error
	Ping(ctx context.Context) error
}
