package kardex

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*BalanceCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewBalanceCache(client, time.Minute), mr
}

func TestBalanceCacheRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, 1)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, cache.Set(ctx, 1, dec("12.5")))

	got, ok, err := cache.Get(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, got.Equal(dec("12.5")))

	require.NoError(t, cache.Invalidate(ctx, 1))
	_, ok, err = cache.Get(ctx, 1)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestBalanceCacheDropsCorruptEntry(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	mr.Set("kardex:balance:1", "not-a-number")

	_, ok, err := cache.Get(ctx, 1)
	require.NoError(t, err)
	require.False(t, ok)
	require.False(t, mr.Exists("kardex:balance:1"))
}

func TestBalanceCacheNilClientIsMiss(t *testing.T) {
	var cache *BalanceCache
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, 1)
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, cache.Set(ctx, 1, dec("3")))
	require.NoError(t, cache.Invalidate(ctx, 1))
}
