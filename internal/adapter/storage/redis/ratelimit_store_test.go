package redis_test

import (
	"context"
	"testing"
	"time"

	"cutcoin-wallet/internal/adapter/storage/redis"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitStore_Allow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := redis.NewRateLimitStore(client)
	ctx := context.Background()

	t.Run("allows attempts within limit", func(t *testing.T) {
		for i := int64(1); i <= 3; i++ {
			result, err := store.Allow(ctx, "otp:student1", 3, time.Minute)
			require.NoError(t, err)
			assert.True(t, result.Allowed, "attempt %d should be allowed", i)
			assert.Equal(t, int64(3), result.Limit)
			assert.Equal(t, 3-i, result.Remaining)
		}
	})

	t.Run("blocks attempts over limit", func(t *testing.T) {
		result, err := store.Allow(ctx, "otp:student1", 3, time.Minute)
		require.NoError(t, err)
		assert.False(t, result.Allowed)
		assert.Equal(t, int64(0), result.Remaining)
	})

	t.Run("different keys are independent", func(t *testing.T) {
		result, err := store.Allow(ctx, "otp:student2", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, int64(4), result.Remaining)
	})

	t.Run("reset after window expires", func(t *testing.T) {
		key := "api:10.0.0.1"
		_, err := store.Allow(ctx, key, 1, time.Minute)
		require.NoError(t, err)

		result, err := store.Allow(ctx, key, 1, time.Minute)
		require.NoError(t, err)
		assert.False(t, result.Allowed)

		mr.FastForward(61 * time.Second)

		result, err = store.Allow(ctx, key, 1, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	})

	t.Run("sets correct ResetAt", func(t *testing.T) {
		result, err := store.Allow(ctx, "api:10.0.0.2", 10, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Greater(t, result.ResetAt, time.Now().Unix()-1)
	})

	t.Run("rejects sub-second window", func(t *testing.T) {
		_, err := store.Allow(ctx, "api:10.0.0.3", 1, time.Millisecond)
		assert.Error(t, err)
	})
}

func TestRateLimitStore_Count(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := redis.NewRateLimitStore(client)
	ctx := context.Background()

	count, err := store.Count(ctx, "otp:student:transfer", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	for i := 0; i < 2; i++ {
		_, err := store.Allow(ctx, "otp:student:transfer", 5, time.Minute)
		require.NoError(t, err)
	}
	count, err = store.Count(ctx, "otp:student:transfer", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// Reading does not add hits.
	count, err = store.Count(ctx, "otp:student:transfer", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	_, err = store.Count(ctx, "otp:student:transfer", time.Millisecond)
	assert.Error(t, err)

	mr.Close()
	_, err = store.Count(ctx, "otp:student:transfer", time.Minute)
	assert.Error(t, err)
}
