// Package storage provides the persistence substrate for FeedKit snapshots.
//
// Stores hold opaque byte values under string keys. The load state machine
// and the filter synchronizer use a Store to survive page reloads; both treat
// every storage failure as non-fatal and keep operating in memory, so
// implementations should fail fast rather than retry.
package storage

import (
	"context"
	"errors"
)

// Common storage errors.
var (
	// ErrNotFound is returned when a key has no stored value.
	ErrNotFound = errors.New("key not found")
	// ErrInvalidKey is returned when a key is empty.
	ErrInvalidKey = errors.New("invalid key")
	// ErrClosed is returned when operating on a closed store.
	ErrClosed = errors.New("store is closed")
)

// Store is the snapshot persistence port.
//
// Implementations must be safe for concurrent use. Values are owned by the
// store once written; callers must not retain or mutate the slices they pass
// in or get back without copying.
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any existing value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes the value under key. Deleting an absent key is a no-op.
	Delete(ctx context.Context, key string) error

	// Keys returns all keys that start with prefix, in unspecified order.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Close releases any resources held by the store.
	Close() error
}
