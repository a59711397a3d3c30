package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupRedisStore creates a test Redis store backed by miniredis.
func setupRedisStore(t *testing.T, opts ...RedisOption) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	store := NewRedisStore(client, opts...)
	return store, mr
}

func TestRedisStore_GetNotFound(t *testing.T) {
	store, _ := setupRedisStore(t)
	ctx := context.Background()

	_, err := store.Get(ctx, "nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_InvalidKey(t *testing.T) {
	store, _ := setupRedisStore(t)
	ctx := context.Background()

	_, err := store.Get(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidKey)

	err = store.Set(ctx, "", []byte("x"))
	assert.ErrorIs(t, err, ErrInvalidKey)

	err = store.Delete(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestRedisStore_SetAndGet(t *testing.T) {
	store, _ := setupRedisStore(t)
	ctx := context.Background()

	err := store.Set(ctx, "feed:session-1", []byte(`{"state":"complete"}`))
	require.NoError(t, err)

	got, err := store.Get(ctx, "feed:session-1")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"state":"complete"}`), got)
}

func TestRedisStore_KeyNamespacing(t *testing.T) {
	store, mr := setupRedisStore(t, WithPrefix("myapp"))
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "session-1", []byte("v")))

	// The raw Redis key carries the prefix and slot namespace.
	assert.True(t, mr.Exists("myapp:slot:session-1"))
}

func TestRedisStore_Delete(t *testing.T) {
	store, _ := setupRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v")))
	require.NoError(t, store.Delete(ctx, "k"))

	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_DeleteMissingIsNoop(t *testing.T) {
	store, _ := setupRedisStore(t)

	err := store.Delete(context.Background(), "never-stored")
	assert.NoError(t, err)
}

func TestRedisStore_KeysByPrefix(t *testing.T) {
	store, _ := setupRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "feed:a", []byte("1")))
	require.NoError(t, store.Set(ctx, "feed:b", []byte("2")))
	require.NoError(t, store.Set(ctx, "other:c", []byte("3")))

	keys, err := store.Keys(ctx, "feed:")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"feed:a", "feed:b"}, keys)
}

func TestRedisStore_TTLExpiry(t *testing.T) {
	store, mr := setupRedisStore(t, WithTTL(100*time.Millisecond))
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v")))

	_, err := store.Get(ctx, "k")
	require.NoError(t, err)

	mr.FastForward(200 * time.Millisecond)

	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_NoTTL(t *testing.T) {
	store, mr := setupRedisStore(t, WithTTL(0))
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v")))

	mr.FastForward(48 * time.Hour)

	_, err := store.Get(ctx, "k")
	assert.NoError(t, err)
}

func TestRedisStore_PrefixIsolation(t *testing.T) {
	mr := miniredis.RunT(t)
	clientA := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	clientB := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	storeA := NewRedisStore(clientA, WithPrefix("app-a"))
	storeB := NewRedisStore(clientB, WithPrefix("app-b"))
	ctx := context.Background()

	require.NoError(t, storeA.Set(ctx, "shared-key", []byte("from-a")))

	_, err := storeB.Get(ctx, "shared-key")
	assert.ErrorIs(t, err, ErrNotFound)

	keysB, err := storeB.Keys(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, keysB)
}
