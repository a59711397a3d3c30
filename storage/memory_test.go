package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_GetNotFound(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_InvalidKey(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	_, err := store.Get(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidKey)

	err = store.Set(ctx, "", []byte("x"))
	assert.ErrorIs(t, err, ErrInvalidKey)

	err = store.Delete(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestMemoryStore_SetAndGet(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	err := store.Set(ctx, "feed:session-1", []byte(`{"state":"idle"}`))
	require.NoError(t, err)

	got, err := store.Get(ctx, "feed:session-1")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"state":"idle"}`), got)
}

func TestMemoryStore_SetReplacesValue(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("first")))
	require.NoError(t, store.Set(ctx, "k", []byte("second")))

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got)
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	original := []byte("immutable")
	require.NoError(t, store.Set(ctx, "k", original))

	// Mutating the caller's slice must not change the stored value.
	original[0] = 'X'
	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("immutable"), got)

	// Mutating the returned slice must not change the stored value either.
	got[0] = 'Y'
	again, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("immutable"), again)
}

func TestMemoryStore_DeleteMissingIsNoop(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	err := store.Delete(context.Background(), "never-stored")
	assert.NoError(t, err)
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v")))
	require.NoError(t, store.Delete(ctx, "k"))

	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_KeysByPrefix(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "feed:a", []byte("1")))
	require.NoError(t, store.Set(ctx, "feed:b", []byte("2")))
	require.NoError(t, store.Set(ctx, "other:c", []byte("3")))

	keys, err := store.Keys(ctx, "feed:")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"feed:a", "feed:b"}, keys)

	all, err := store.Keys(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestMemoryStore_TTLExpiry(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }

	store := NewMemoryStore(
		WithMemoryTTL(time.Minute),
		WithMemoryClock(clock),
	)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v")))

	// Still alive just before the deadline.
	now = now.Add(59 * time.Second)
	_, err := store.Get(ctx, "k")
	assert.NoError(t, err)

	// Gone after the deadline.
	now = now.Add(2 * time.Second)
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_KeysSkipExpired(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }

	store := NewMemoryStore(
		WithMemoryTTL(time.Minute),
		WithMemoryClock(clock),
	)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "old", []byte("1")))
	now = now.Add(30 * time.Second)
	require.NoError(t, store.Set(ctx, "fresh", []byte("2")))
	now = now.Add(45 * time.Second)

	keys, err := store.Keys(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh"}, keys)
}

func TestMemoryStore_MaxEntriesEvictsOldest(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }

	store := NewMemoryStore(
		WithMemoryMaxEntries(3),
		WithMemoryClock(clock),
	)
	defer store.Close()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		key := fmt.Sprintf("k%d", i)
		require.NoError(t, store.Set(ctx, key, []byte("v")))
		now = now.Add(time.Second)
	}

	assert.Equal(t, 3, store.Len())

	// k0 was written first and should be the one evicted.
	_, err := store.Get(ctx, "k0")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Get(ctx, "k3")
	assert.NoError(t, err)
}

func TestMemoryStore_CloseIsIdempotent(t *testing.T) {
	store := NewMemoryStore(WithMemoryTTL(time.Minute))

	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}

func TestMemoryStore_OperationsAfterClose(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v")))
	require.NoError(t, store.Close())

	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrClosed)

	err = store.Set(ctx, "k", []byte("v"))
	assert.ErrorIs(t, err, ErrClosed)

	err = store.Delete(ctx, "k")
	assert.ErrorIs(t, err, ErrClosed)

	_, err = store.Keys(ctx, "")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func(n int) {
			defer func() { done <- struct{}{} }()
			key := fmt.Sprintf("worker-%d", n)
			for j := 0; j < 50; j++ {
				_ = store.Set(ctx, key, []byte("v"))
				_, _ = store.Get(ctx, key)
				_, _ = store.Keys(ctx, "worker-")
			}
		}(i)
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	assert.Equal(t, 8, store.Len())
}
