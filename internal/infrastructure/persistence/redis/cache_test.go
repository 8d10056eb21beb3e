package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrLoadSafeCachesLoaderResult(t *testing.T) {
	ctx := context.Background()
	client, mr := newTestClient(t)
	cache := NewCache(client, "branding")

	var calls int32
	loader := func() (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return map[string]string{"name": "Acme"}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, err := cache.GetOrLoadSafe(ctx, "acme.com", time.Hour, loader)
			assert.NoError(t, err)
			var got map[string]string
			assert.NoError(t, json.Unmarshal(b, &got))
			assert.Equal(t, "Acme", got["name"])
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(10))
	assert.True(t, mr.Exists("cache:branding:acme.com"))

	before := atomic.LoadInt32(&calls)
	_, err := cache.GetOrLoadSafe(ctx, "acme.com", time.Hour, loader)
	require.NoError(t, err)
	assert.Equal(t, before, atomic.LoadInt32(&calls), "a cached value skips the loader")
}

func TestGetOrLoadSafeDoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	client, mr := newTestClient(t)
	cache := NewCache(client, "branding")

	_, err := cache.GetOrLoadSafe(ctx, "bad", time.Hour, func() (interface{}, error) {
		return nil, errors.New("boom")
	})
	assert.EqualError(t, err, "boom")
	assert.False(t, mr.Exists("cache:branding:bad"))
}

func TestCacheGetMissAndDelete(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)
	cache := NewCache(client, "c")

	_, err := cache.Get(ctx, "nope")
	assert.True(t, IsNil(err))

	require.NoError(t, cache.Set(ctx, "k", "v", time.Minute))
	b, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `"v"`, string(b))

	require.NoError(t, cache.Delete(ctx, "k"))
	_, err = cache.Get(ctx, "k")
	assert.True(t, IsNil(err))
}
