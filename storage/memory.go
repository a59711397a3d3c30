package storage

import (
	"context"
	"strings"
	"sync"
	"time"
)

// memoryEntry is a stored value plus its bookkeeping.
type memoryEntry struct {
	value     []byte
	storedAt  time.Time
	expiresAt time.Time // zero means no expiry
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryStore is an in-memory Store for tests and single-process use.
//
// Entries can be given a TTL and are then removed lazily on read and by a
// background sweep. When a maximum entry count is configured, the oldest
// entries are evicted first.
type MemoryStore struct {
	mu         sync.RWMutex
	entries    map[string]memoryEntry
	ttl        time.Duration
	maxEntries int
	nowFunc    func() time.Time

	sweepInterval time.Duration
	stopSweep     chan struct{}
	closeOnce     sync.Once
	closed        bool
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithMemoryTTL sets the lifetime applied to every entry. Zero disables
// expiry.
func WithMemoryTTL(ttl time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		s.ttl = ttl
	}
}

// WithMemoryMaxEntries bounds the store to n entries, evicting the oldest
// first. Zero means unbounded.
func WithMemoryMaxEntries(n int) MemoryOption {
	return func(s *MemoryStore) {
		s.maxEntries = n
	}
}

// WithMemoryEvictionInterval sets how often the background sweep removes
// expired entries. The sweep only runs when a TTL is configured.
func WithMemoryEvictionInterval(interval time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		s.sweepInterval = interval
	}
}

// WithMemoryClock overrides the time source used for expiry. Tests use this
// to expire entries without sleeping.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.nowFunc = now
	}
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		entries:       make(map[string]memoryEntry),
		nowFunc:       time.Now,
		sweepInterval: time.Minute,
		stopSweep:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.ttl > 0 {
		go s.sweepLoop()
	}
	return s
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, ErrClosed
	}
	entry, ok := s.entries[key]
	now := s.nowFunc()
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	if entry.expired(now) {
		s.mu.Lock()
		// Re-check under the write lock; another goroutine may have
		// replaced the entry since we read it.
		if cur, still := s.entries[key]; still && cur.expired(s.nowFunc()) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return nil, ErrNotFound
	}

	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, nil
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	if key == "" {
		return ErrInvalidKey
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	now := s.nowFunc()
	entry := memoryEntry{value: stored, storedAt: now}
	if s.ttl > 0 {
		entry.expiresAt = now.Add(s.ttl)
	}
	s.entries[key] = entry

	if s.maxEntries > 0 && len(s.entries) > s.maxEntries {
		s.evictOldestLocked(len(s.entries) - s.maxEntries)
	}
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	if key == "" {
		return ErrInvalidKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	delete(s.entries, key)
	return nil
}

// Keys implements Store.
func (s *MemoryStore) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	now := s.nowFunc()
	keys := make([]string, 0, len(s.entries))
	for key, entry := range s.entries {
		if entry.expired(now) {
			continue
		}
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Close stops the background sweep and rejects further operations. It is
// safe to call more than once.
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopSweep)
		s.mu.Lock()
		s.closed = true
		s.entries = make(map[string]memoryEntry)
		s.mu.Unlock()
	})
	return nil
}

// Len returns the number of live entries. Exposed for eviction tests.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// evictOldestLocked removes the n entries with the oldest write time.
// Callers must hold the write lock.
func (s *MemoryStore) evictOldestLocked(n int) {
	for i := 0; i < n; i++ {
		var oldestKey string
		var oldestAt time.Time
		for key, entry := range s.entries {
			if oldestKey == "" || entry.storedAt.Before(oldestAt) {
				oldestKey = key
				oldestAt = entry.storedAt
			}
		}
		if oldestKey == "" {
			return
		}
		delete(s.entries, oldestKey)
	}
}

func (s *MemoryStore) sweepLoop() {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopSweep:
			return
		case <-ticker.C:
			s.removeExpired()
		}
	}
}

func (s *MemoryStore) removeExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	now := s.nowFunc()
	for key, entry := range s.entries {
		if entry.expired(now) {
			delete(s.entries, key)
		}
	}
}
