package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func withMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	prev := GetClient()
	SetClient(rdb)
	t.Cleanup(func() {
		SetClient(prev)
		_ = rdb.Close()
	})
	return mr
}

func TestAsideLoadsAndStores(t *testing.T) {
	mr := withMiniredis(t)
	ctx := context.Background()

	loads := 0
	load := func(dest *payload) func() error {
		return func() error {
			loads++
			dest.Name = "loaded"
			dest.Count = 42
			return nil
		}
	}

	var first payload
	require.NoError(t, Aside(ctx, "k1", &first, time.Minute, load(&first)))
	assert.Equal(t, 1, loads)
	assert.Equal(t, "loaded", first.Name)
	assert.True(t, mr.Exists("k1"))

	// Second read is served from the cache.
	var second payload
	require.NoError(t, Aside(ctx, "k1", &second, time.Minute, load(&second)))
	assert.Equal(t, 1, loads)
	assert.Equal(t, 42, second.Count)
}

func TestAsideDropsCorruptEntries(t *testing.T) {
	mr := withMiniredis(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("k2", "{not json"))

	var out payload
	err := Aside(ctx, "k2", &out, time.Minute, func() error {
		out.Name = "fresh"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", out.Name)
}

func TestAsideWorksWithoutRedis(t *testing.T) {
	prev := GetClient()
	SetClient(nil)
	t.Cleanup(func() { SetClient(prev) })

	var out payload
	err := Aside(context.Background(), "k3", &out, time.Minute, func() error {
		out.Count = 7
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, out.Count)
}

func TestAsidePropagatesLoaderError(t *testing.T) {
	withMiniredis(t)

	var out payload
	err := Aside(context.Background(), "k4", &out, time.Minute, func() error {
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestInvalidateHelpers(t *testing.T) {
	mr := withMiniredis(t)
	ctx := context.Background()

	require.NoError(t, mr.Set(ResourceKey(5), "x"))
	require.NoError(t, mr.Set(UserKey(9), "x"))
	require.NoError(t, mr.Set(PackageKey("river"), "x"))

	InvalidateResource(ctx, 5)
	InvalidateUser(ctx, 9)
	InvalidatePackage(ctx, "river")

	assert.False(t, mr.Exists(ResourceKey(5)))
	assert.False(t, mr.Exists(UserKey(9)))
	assert.False(t, mr.Exists(PackageKey("river")))
}
