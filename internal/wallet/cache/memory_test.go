package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/blocpay/walletcore/internal/wallet/cache"
)

func newMemory(t *testing.T) *cache.Memory {
	m := cache.NewMemory(time.Minute, zap.NewNop())
	t.Cleanup(m.Stop)
	return m
}

func TestMemorySetGet(t *testing.T) {
	m := newMemory(t)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", "v", 0))
	value, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", value)

	_, err = m.Get(ctx, "absent")
	assert.ErrorIs(t, err, cache.ErrMiss)
}

func TestMemoryLazyExpiry(t *testing.T) {
	m := newMemory(t)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", "v", 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	// the sweep has not run yet; the read itself must apply expiry
	_, err := m.Get(ctx, "k")
	assert.ErrorIs(t, err, cache.ErrMiss)

	exists, err := m.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMemoryExpireAndTTL(t *testing.T) {
	m := newMemory(t)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", "v", 0))

	ttl, err := m.TTL(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, cache.NoExpiry, ttl)

	ok, err := m.Expire(ctx, "k", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ttl, err = m.TTL(ctx, "k")
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)

	ok, err = m.Expire(ctx, "absent", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = m.TTL(ctx, "absent")
	assert.ErrorIs(t, err, cache.ErrMiss)
}

func TestMemoryMGetMSet(t *testing.T) {
	m := newMemory(t)
	ctx := context.Background()

	require.NoError(t, m.MSet(ctx, map[string]string{"a": "1", "b": "2"}))

	values, err := m.MGet(ctx, "a", "absent", "b")
	require.NoError(t, err)
	require.Len(t, values, 3)
	require.NotNil(t, values[0])
	assert.Equal(t, "1", *values[0])
	assert.Nil(t, values[1])
	require.NotNil(t, values[2])
	assert.Equal(t, "2", *values[2])
}

func TestMemoryDelAndFlush(t *testing.T) {
	m := newMemory(t)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "a", "1", 0))
	require.NoError(t, m.Set(ctx, "b", "2", 0))

	require.NoError(t, m.Del(ctx, "a"))
	_, err := m.Get(ctx, "a")
	assert.ErrorIs(t, err, cache.ErrMiss)

	require.NoError(t, m.FlushAll(ctx))
	_, err = m.Get(ctx, "b")
	assert.ErrorIs(t, err, cache.ErrMiss)
}

func TestMemorySweep(t *testing.T) {
	m := cache.NewMemory(10*time.Millisecond, zap.NewNop())
	defer m.Stop()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", "v", 5*time.Millisecond))
	time.Sleep(50 * time.Millisecond)

	_, err := m.Get(ctx, "k")
	assert.ErrorIs(t, err, cache.ErrMiss)
}

func TestMemoryPing(t *testing.T) {
	m := newMemory(t)
	assert.NoError(t, m.Ping(context.Background()))
}
