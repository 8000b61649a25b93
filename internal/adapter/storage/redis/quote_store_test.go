package redis_test

import (
	"context"
	"testing"
	"time"

	"cutcoin-wallet/internal/adapter/storage/redis"
	"cutcoin-wallet/internal/core/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := redis.NewQuoteStore(client)
	ctx := context.Background()

	q := &domain.Quote{
		Reference:         "TRF-20260301120000-0123456789AB",
		Kind:              domain.QuoteTransfer,
		OwnerID:           uuid.New(),
		SenderWalletID:    uuid.New(),
		RecipientWalletID: uuid.New(),
		RecipientAddress:  "CUT0000000002",
		Amount:            150000,
		Fee:               750,
		ExpiresAt:         time.Now().Add(5 * time.Minute).UTC().Truncate(time.Second),
	}

	t.Run("miss returns nil", func(t *testing.T) {
		got, err := store.Get(ctx, "TRF-unknown")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("save then get", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, q, 5*time.Minute))
		assert.True(t, mr.Exists("quote:"+q.Reference))

		got, err := store.Get(ctx, q.Reference)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, q.OwnerID, got.OwnerID)
		assert.Equal(t, q.Total(), got.Total())
		assert.True(t, q.ExpiresAt.Equal(got.ExpiresAt))
	})

	t.Run("expires with ttl", func(t *testing.T) {
		mr.FastForward(5*time.Minute + time.Second)
		got, err := store.Get(ctx, q.Reference)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, q, time.Minute))
		require.NoError(t, store.Delete(ctx, q.Reference))
		got, err := store.Get(ctx, q.Reference)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("corrupt value is an error", func(t *testing.T) {
		require.NoError(t, mr.Set("quote:TRF-bad", "{not json"))
		_, err := store.Get(ctx, "TRF-bad")
		assert.Error(t, err)
	})
}
