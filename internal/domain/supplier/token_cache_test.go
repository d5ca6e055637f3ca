package supplier

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToken_Usable(t *testing.T) {
	now := time.Now()

	var missing *Token
	assert.False(t, missing.Usable(now, time.Minute))
	assert.False(t, (&Token{}).Usable(now, time.Minute))
	assert.True(t, (&Token{Value: "t", ExpiresAt: now.Add(time.Hour)}).Usable(now, time.Minute))
	assert.False(t, (&Token{Value: "t", ExpiresAt: now.Add(30 * time.Second)}).Usable(now, time.Minute))
}

func TestMemoryTokenCache(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryTokenCache()

	token, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, token)

	require.NoError(t, cache.Set(ctx, Token{Value: "abc", ExpiresAt: time.Now().Add(time.Hour)}))
	token, err = cache.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", token.Value)

	require.NoError(t, cache.Invalidate(ctx, "older"))
	token, err = cache.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, token)
	assert.Equal(t, "abc", token.Value)

	require.NoError(t, cache.Invalidate(ctx, "abc"))
	token, err = cache.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, token)
}

func TestRedisTokenCache(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	cache := NewRedisTokenCache(client)

	token, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, token)

	expires := time.Now().Add(time.Hour).Truncate(time.Second)
	require.NoError(t, cache.Set(ctx, Token{Value: "abc", ExpiresAt: expires}))

	token, err = cache.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, token)
	assert.Equal(t, "abc", token.Value)
	assert.True(t, expires.Equal(token.ExpiresAt))
	assert.True(t, mr.TTL(redisTokenKey) > 50*time.Minute)

	mr.FastForward(2 * time.Hour)
	token, err = cache.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, token)
}

func TestRedisTokenCache_SkipsExpiredAndCorrupt(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	cache := NewRedisTokenCache(client)

	require.NoError(t, cache.Set(ctx, Token{Value: "old", ExpiresAt: time.Now().Add(-time.Minute)}))
	assert.False(t, mr.Exists(redisTokenKey))

	require.NoError(t, mr.Set(redisTokenKey, "not json"))
	token, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, token)

	require.NoError(t, cache.Invalidate(ctx, "anything"))
	assert.False(t, mr.Exists(redisTokenKey))
}

func TestRedisTokenCache_InvalidateKeepsReplacement(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	cache := NewRedisTokenCache(client)
	require.NoError(t, cache.Set(ctx, Token{Value: "fresh", ExpiresAt: time.Now().Add(time.Hour)}))

	require.NoError(t, cache.Invalidate(ctx, "stale"))
	token, err := cache.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, token)
	assert.Equal(t, "fresh", token.Value)

	require.NoError(t, cache.Invalidate(ctx, "fresh"))
	assert.False(t, mr.Exists(redisTokenKey))

	// Nothing cached is not an error
	require.NoError(t, cache.Invalidate(ctx, "fresh"))
}
