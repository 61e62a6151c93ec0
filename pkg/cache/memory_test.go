package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct {
	Day   int     `json:"day"`
	Value float64 `json:"value"`
}

func TestMemoryCacheRoundTripsTypedValues(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "p", point{Day: 5000, Value: 1.5}, time.Minute))

	var got point
	require.NoError(t, mc.Get(ctx, "p", &got))
	assert.Equal(t, point{Day: 5000, Value: 1.5}, got)

	var miss point
	assert.ErrorIs(t, mc.Get(ctx, "absent", &miss), ErrCacheMiss)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mc.now = func() time.Time { return now }

	require.NoError(t, mc.Set(ctx, "k", "v", time.Minute))
	ok, err := mc.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	var s string
	assert.ErrorIs(t, mc.Get(ctx, "k", &s), ErrCacheMiss)
	assert.Equal(t, 0, mc.Len())
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mc.now = func() time.Time { now = now.Add(time.Second); return now }

	require.NoError(t, mc.Set(ctx, "a", 1, 0))
	require.NoError(t, mc.Set(ctx, "b", 2, 0))
	var v int
	require.NoError(t, mc.Get(ctx, "a", &v))
	require.NoError(t, mc.Set(ctx, "c", 3, 0))

	assert.ErrorIs(t, mc.Get(ctx, "b", &v), ErrCacheMiss)
	require.NoError(t, mc.Get(ctx, "a", &v))
	assert.Equal(t, 1, v)
}

func TestMemoryCacheDeleteByPattern(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "chart:1", 1, 0))
	require.NoError(t, mc.Set(ctx, "chart:2", 2, 0))
	require.NoError(t, mc.Set(ctx, "obs:last", 3, 0))
	require.NoError(t, mc.DeleteByPattern(ctx, "chart:*"))
	assert.Equal(t, 1, mc.Len())
}

func TestMemoryCacheTryLock(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	ok, err := mc.TryLock(ctx, "lock", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = mc.TryLock(ctx, "lock", time.Minute)
	assert.False(t, ok)
	require.NoError(t, mc.Unlock(ctx, "lock"))
	ok, _ = mc.TryLock(ctx, "lock", time.Minute)
	assert.True(t, ok)
}

func TestLayeredCacheFillsL1FromShared(t *testing.T) {
	ctx := context.Background()
	shared := NewMemoryCache()
	lc := NewLayeredCache(shared)
	defer lc.Close()

	require.NoError(t, shared.Set(ctx, "p", point{Day: 7}, time.Hour))

	var got point
	require.NoError(t, lc.Get(ctx, "p", &got))
	assert.Equal(t, 7, got.Day)
	assert.Equal(t, 1, lc.memCache.Len())

	require.NoError(t, lc.Delete(ctx, "p"))
	assert.ErrorIs(t, lc.Get(ctx, "p", &got), ErrCacheMiss)
}

func TestGetOrLoad(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	calls := 0
	load := func(context.Context) ([]int, error) {
		calls++
		return []int{1, 2, 3}, nil
	}

	v, hit, err := GetOrLoad(ctx, mc, Key("chart", 1, 7), time.Minute, load)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []int{1, 2, 3}, v)

	v, hit, err = GetOrLoad(ctx, mc, "chart:1:7", time.Minute, load)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []int{1, 2, 3}, v)
	assert.Equal(t, 1, calls)
}
