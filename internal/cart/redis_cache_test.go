package cart

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis server and returns a RedisCache instance
func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })

	return NewRedisCache(client), mr
}

func TestRedisCache_Get_Success(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()

	lines := []Line{
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 3},
	}
	payload, _ := json.Marshal(lines)
	mr.Set(cacheKey("session-1"), string(payload))

	result, err := cache.Get(ctx, "session-1")
	require.NoError(t, err)
	assert.Len(t, result, 2)
	assert.Equal(t, int64(1), result[0].ProductID)
	assert.Equal(t, 3, result[1].Quantity)
}

func TestRedisCache_Get_CacheMiss(t *testing.T) {
	cache, _ := setupTestRedis(t)

	result, err := cache.Get(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, result)
}

func TestRedisCache_Get_InvalidJSON(t *testing.T) {
	cache, mr := setupTestRedis(t)

	mr.Set(cacheKey("session-1"), "not json")

	_, err := cache.Get(context.Background(), "session-1")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_Set_Then_Get(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()

	lines := []Line{{ProductID: 10, Quantity: 5}}
	require.NoError(t, cache.Set(ctx, "session-1", lines))

	// TTL was applied.
	assert.Greater(t, mr.TTL(cacheKey("session-1")).Seconds(), 0.0)

	result, err := cache.Get(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, lines, result)
}

func TestRedisCache_Delete(t *testing.T) {
	cache, _ := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "session-1", []Line{{ProductID: 1, Quantity: 1}}))
	require.NoError(t, cache.Delete(ctx, "session-1"))

	_, err := cache.Get(ctx, "session-1")
	assert.ErrorIs(t, err, ErrCacheMiss)

	// Deleting a missing key is not an error.
	require.NoError(t, cache.Delete(ctx, "never-set"))
}
