package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, client
}

func TestIdempotencyStore_ReserveOnce(t *testing.T) {
	_, client := setupTestRedis(t)
	store := NewIdempotencyStore(client, "test")
	ctx := context.Background()

	ok, err := store.Reserve(ctx, "order:1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Reserve(ctx, "order:1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// A reservation without a result reads as nothing recorded.
	val, err := store.Get(ctx, "order:1")
	require.NoError(t, err)
	assert.Nil(t, val)
}

func TestIdempotencyStore_PutGetRelease(t *testing.T) {
	_, client := setupTestRedis(t)
	store := NewIdempotencyStore(client, "")
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "order:2", []byte(`{"status":"completed"}`), time.Minute))
	val, err := store.Get(ctx, "order:2")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"completed"}`, string(val))

	require.NoError(t, store.Release(ctx, "order:2"))
	val, err = store.Get(ctx, "order:2")
	require.NoError(t, err)
	assert.Nil(t, val)
}

func TestIdempotencyStore_Expires(t *testing.T) {
	mr, client := setupTestRedis(t)
	store := NewIdempotencyStore(client, "test")
	ctx := context.Background()

	ok, err := store.Reserve(ctx, "order:3", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	ok, err = store.Reserve(ctx, "order:3", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}
