// Package pagination optimizes page fetches for an infinite-scroll feed:
// a TTL response cache in front of single-flight request de-duplication,
// keep-most-recent-tail record eviction, adaptive batch sizing, prefetch
// heuristics, and aggregated performance metrics.
//
// An Optimizer is generic over the record type. Each instance owns its
// cache, in-flight bookkeeping, and metrics; nothing is shared between
// instances. Close releases the background cache sweep.
package pagination

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/CrescendoLabs/FeedKit/events"
	"github.com/CrescendoLabs/FeedKit/hooks"
	"github.com/CrescendoLabs/FeedKit/logger"
	"github.com/CrescendoLabs/FeedKit/ringbuf"
)

var (
	// ErrRequestTimeout is returned when a fetch does not settle within the
	// request timeout. The underlying fetch is not aborted; see Request.
	ErrRequestTimeout = errors.New("request timeout")
	// ErrClosed is returned by Request after Close.
	ErrClosed = errors.New("optimizer is closed")
)

const (
	defaultMaxRecords       = 100
	defaultCacheTTL         = 30 * time.Second
	defaultRequestTimeout   = 10 * time.Second
	defaultSweepInterval    = time.Minute
	defaultBaseBatchSize    = 20
	defaultPrefetchDistance = 3
	defaultFastScroll       = 1000.0 // px/s
	defaultLongDwell        = 30 * time.Second
	defaultSampleWindow     = 256
)

// FetchFunc loads one page of records. The context passed in is detached
// from the requesting caller so the fetch can outlive a caller timeout.
type FetchFunc[T any] func(ctx context.Context) ([]T, error)

// cacheEntry holds one cached page.
type cacheEntry[T any] struct {
	page     []T
	storedAt time.Time
	ttl      time.Duration
}

func (e cacheEntry[T]) expired(now time.Time) bool {
	return e.ttl > 0 && now.Sub(e.storedAt) >= e.ttl
}

// settings holds construction-time configuration. Immutable once New
// returns, so reads need no locking.
type settings struct {
	maxRecords       int
	cacheTTL         time.Duration
	requestTimeout   time.Duration
	sweepInterval    time.Duration
	baseBatchSize    int
	prefetchDistance int
	fastScroll       float64
	longDwell        time.Duration
	sampleWindow     int
	limiter          *rate.Limiter
	hookReg          *hooks.Registry
	emitter          *events.Emitter
	sessionID        string
	timeFunc         func() time.Time
}

// Option configures an Optimizer at construction.
type Option func(*settings)

// WithMaxRecords sets the in-memory record ceiling for OptimizeMemoryUsage.
// Values <= 0 are ignored.
func WithMaxRecords(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxRecords = n
		}
	}
}

// WithCacheTTL sets the default time-to-live for cached pages. Values <= 0
// are ignored.
func WithCacheTTL(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.cacheTTL = d
		}
	}
}

// WithRequestTimeout sets the default fetch timeout. Values <= 0 are
// ignored.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.requestTimeout = d
		}
	}
}

// WithSweepInterval sets how often expired cache entries are swept in the
// background. Zero disables the sweeper. Negative values are ignored.
func WithSweepInterval(d time.Duration) Option {
	return func(s *settings) {
		if d >= 0 {
			s.sweepInterval = d
		}
	}
}

// WithBaseBatchSize sets the BatchSize base. Values <= 0 are ignored.
func WithBaseBatchSize(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.baseBatchSize = n
		}
	}
}

// WithPrefetchDistance sets how close to the end of loaded content a user
// must be before ShouldPrefetch triggers. Values <= 0 are ignored.
func WithPrefetchDistance(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.prefetchDistance = n
		}
	}
}

// WithFastScrollVelocity sets the px/s threshold treated as fast scrolling.
func WithFastScrollVelocity(v float64) Option {
	return func(s *settings) {
		if v > 0 {
			s.fastScroll = v
		}
	}
}

// WithLongDwell sets the time-on-page threshold treated as a long dwell.
func WithLongDwell(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.longDwell = d
		}
	}
}

// WithRateLimit paces actual fetches at r per second with the given burst.
// Cache hits and de-duplicated joins are not charged.
func WithRateLimit(r float64, burst int) Option {
	return func(s *settings) {
		if r > 0 && burst > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(r), burst)
		}
	}
}

// WithHooks attaches a hook registry consulted around fetches, prefetch
// decisions, and eviction.
func WithHooks(reg *hooks.Registry) Option {
	return func(s *settings) {
		s.hookReg = reg
	}
}

// WithEmitter attaches an event emitter.
func WithEmitter(emitter *events.Emitter) Option {
	return func(s *settings) {
		s.emitter = emitter
	}
}

// WithSessionID tags hook requests with the owning session.
func WithSessionID(id string) Option {
	return func(s *settings) {
		if id != "" {
			s.sessionID = id
		}
	}
}

// WithTimeFunc injects the clock.
func WithTimeFunc(fn func() time.Time) Option {
	return func(s *settings) {
		if fn != nil {
			s.timeFunc = fn
		}
	}
}

// WithSampleWindow bounds the fetch-duration sample log backing the
// metrics aggregates. Values <= 0 are ignored.
func WithSampleWindow(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.sampleWindow = n
		}
	}
}

// Optimizer coordinates page fetches for one feed instance. All methods
// are safe for concurrent use.
type Optimizer[T any] struct {
	settings

	mu       sync.Mutex
	cache    map[string]cacheEntry[T]
	inflight map[string]int // waiters per key
	group    singleflight.Group
	metrics  metricsState
	closed   bool

	sweepStop chan struct{}
	closeOnce sync.Once
}

// New builds an Optimizer for one feed instance and starts its background
// cache sweeper unless the sweep interval is zero.
func New[T any](opts ...Option) *Optimizer[T] {
	s := settings{
		maxRecords:       defaultMaxRecords,
		cacheTTL:         defaultCacheTTL,
		requestTimeout:   defaultRequestTimeout,
		sweepInterval:    defaultSweepInterval,
		baseBatchSize:    defaultBaseBatchSize,
		prefetchDistance: defaultPrefetchDistance,
		fastScroll:       defaultFastScroll,
		longDwell:        defaultLongDwell,
		sampleWindow:     defaultSampleWindow,
		timeFunc:         time.Now,
	}
	for _, opt := range opts {
		opt(&s)
	}

	o := &Optimizer[T]{
		settings: s,
		cache:    make(map[string]cacheEntry[T]),
		inflight: make(map[string]int),
	}
	o.metrics.samples = ringbuf.New[time.Duration](s.sampleWindow)

	if s.sweepInterval > 0 {
		o.sweepStop = make(chan struct{})
		go o.sweepLoop()
	}
	return o
}

// requestConfig carries per-call overrides.
type requestConfig struct {
	ttl     time.Duration
	timeout time.Duration
	offset  int
	limit   int
	filters map[string]string
}

// RequestOption overrides Request behavior for a single call.
type RequestOption func(*requestConfig)

// WithTTL overrides the cache time-to-live for this call's result.
func WithTTL(d time.Duration) RequestOption {
	return func(c *requestConfig) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// WithTimeout overrides the fetch timeout for this call.
func WithTimeout(d time.Duration) RequestOption {
	return func(c *requestConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithPage annotates the call with its offset and limit for fetch hooks.
func WithPage(offset, limit int) RequestOption {
	return func(c *requestConfig) {
		c.offset = offset
		c.limit = limit
	}
}

// WithFilters annotates the call with its active filters for fetch hooks.
func WithFilters(filters map[string]string) RequestOption {
	return func(c *requestConfig) {
		c.filters = filters
	}
}

// Request returns the page for key, serving from cache when a fresh entry
// exists and otherwise sharing exactly one underlying fetch among all
// concurrent callers of the same key.
//
// The fetch is raced against the request timeout. On timeout the caller
// receives ErrRequestTimeout but the fetch itself is not aborted: if it
// later succeeds its result still populates the cache for subsequent
// callers.
func (o *Optimizer[T]) Request(ctx context.Context, key string, fetch FetchFunc[T], opts ...RequestOption) ([]T, error) {
	cfg := requestConfig{ttl: o.cacheTTL, timeout: o.requestTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil, ErrClosed
	}
	o.metrics.requests++

	now := o.timeFunc()
	var expiredAge time.Duration
	expired := false
	if entry, ok := o.cache[key]; ok {
		if !entry.expired(now) {
			o.metrics.hits++
			age := now.Sub(entry.storedAt)
			page := clonePage(entry.page)
			entries := len(o.cache)
			o.mu.Unlock()

			logger.CacheEvent("hit", key, "age", age)
			o.emitter.CacheHit(key, age, entries)
			return page, nil
		}
		delete(o.cache, key)
		expired = true
		expiredAge = now.Sub(entry.storedAt)
	}
	o.metrics.misses++
	joined := o.inflight[key] > 0
	if joined {
		o.metrics.dedups++
	}
	o.inflight[key]++
	waiters := o.inflight[key]
	entries := len(o.cache)
	o.mu.Unlock()

	if expired {
		o.emitter.CacheExpired(key, expiredAge, entries)
	}
	logger.CacheEvent("miss", key)
	o.emitter.CacheMiss(key, entries)
	if joined {
		logger.CacheEvent("dedup", key, "waiters", waiters)
		o.emitter.RequestDeduplicated(key, waiters)
	}

	req := &hooks.FetchRequest{
		Key:     key,
		Offset:  cfg.offset,
		Limit:   cfg.limit,
		Filters: cfg.filters,
		Metadata: map[string]any{
			"session_id": o.sessionID,
		},
	}
	if decision := o.hookReg.RunBeforeFetch(ctx, req); !decision.Allow {
		o.leave(key)
		o.recordError()
		return nil, denied("fetch_before", decision)
	}

	ch := o.group.DoChan(key, func() (any, error) {
		return o.executeFetch(ctx, key, req, fetch, cfg)
	})

	timer := time.NewTimer(cfg.timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		o.leave(key)
		if res.Err != nil {
			o.recordError()
			return nil, res.Err
		}
		page := res.Val.([]T)
		return clonePage(page), nil
	case <-timer.C:
		o.leave(key)
		o.recordTimeout()
		logger.FetchFailed(key, ErrRequestTimeout, "timeout", cfg.timeout)
		return nil, fmt.Errorf("fetch %q: %w", key, ErrRequestTimeout)
	case <-ctx.Done():
		o.leave(key)
		o.recordError()
		return nil, ctx.Err()
	}
}

// executeFetch runs inside the single-flight group, once per key no matter
// how many callers are waiting.
func (o *Optimizer[T]) executeFetch(
	ctx context.Context,
	key string,
	req *hooks.FetchRequest,
	fetch FetchFunc[T],
	cfg requestConfig,
) ([]T, error) {
	// Detached so a slow fetch can settle, and populate the cache, after
	// every caller has timed out.
	fctx := context.WithoutCancel(ctx)

	if o.limiter != nil {
		if err := o.limiter.Wait(fctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	o.emitter.FetchStarted(key)
	start := o.timeFunc()

	page, err := fetch(fctx)
	duration := o.timeFunc().Sub(start)
	if err != nil {
		logger.FetchFailed(key, err)
		o.emitter.FetchFailed(key, err, duration)
		return nil, err
	}

	resp := &hooks.FetchResponse{Key: key, Records: len(page), LatencyMs: duration.Milliseconds()}
	if decision := o.hookReg.RunAfterFetch(fctx, req, resp); !decision.Allow {
		err := denied("fetch_after", decision)
		logger.FetchFailed(key, err)
		o.emitter.FetchFailed(key, err, duration)
		return nil, err
	}

	o.mu.Lock()
	if !o.closed {
		o.cache[key] = cacheEntry[T]{page: clonePage(page), storedAt: o.timeFunc(), ttl: cfg.ttl}
	}
	o.metrics.samples.Push(duration)
	o.mu.Unlock()

	o.emitter.FetchCompleted(key, duration, len(page))
	return page, nil
}

// InvalidateCache drops the given keys from the cache. Filter changes that
// invalidate cached pages route here.
func (o *Optimizer[T]) InvalidateCache(keys ...string) {
	removed := make([]string, 0, len(keys))
	o.mu.Lock()
	for _, key := range keys {
		if _, ok := o.cache[key]; ok {
			delete(o.cache, key)
			removed = append(removed, key)
		}
	}
	entries := len(o.cache)
	o.mu.Unlock()

	for _, key := range removed {
		logger.CacheEvent("invalidate", key)
		o.emitter.CacheInvalidated(key, entries)
	}
}

// InvalidateAll clears the whole cache.
func (o *Optimizer[T]) InvalidateAll() {
	o.mu.Lock()
	n := len(o.cache)
	o.cache = make(map[string]cacheEntry[T])
	o.mu.Unlock()

	if n > 0 {
		logger.CacheEvent("invalidate_all", "", "entries", n)
		o.emitter.CacheInvalidated("", 0)
	}
}

// Close stops the background sweeper and rejects further requests. It is
// idempotent. In-flight fetches settle but their results are not cached.
func (o *Optimizer[T]) Close() error {
	o.closeOnce.Do(func() {
		o.mu.Lock()
		o.closed = true
		o.mu.Unlock()
		if o.sweepStop != nil {
			close(o.sweepStop)
		}
	})
	return nil
}

// leave removes one waiter for key.
func (o *Optimizer[T]) leave(key string) {
	o.mu.Lock()
	if o.inflight[key] > 0 {
		o.inflight[key]--
		if o.inflight[key] == 0 {
			delete(o.inflight, key)
		}
	}
	o.mu.Unlock()
}

func (o *Optimizer[T]) recordError() {
	o.mu.Lock()
	o.metrics.errors++
	o.mu.Unlock()
}

func (o *Optimizer[T]) recordTimeout() {
	o.mu.Lock()
	o.metrics.errors++
	o.metrics.timeouts++
	o.mu.Unlock()
}

// sweepLoop periodically drops expired cache entries so unused keys do not
// linger until their next read.
func (o *Optimizer[T]) sweepLoop() {
	ticker := time.NewTicker(o.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			o.sweep()
		case <-o.sweepStop:
			return
		}
	}
}

func (o *Optimizer[T]) sweep() {
	now := o.timeFunc()
	o.mu.Lock()
	removed := 0
	for key, entry := range o.cache {
		if entry.expired(now) {
			delete(o.cache, key)
			removed++
		}
	}
	o.mu.Unlock()

	if removed > 0 {
		logger.Debug("cache sweep", "removed", removed)
	}
}

func clonePage[T any](page []T) []T {
	if page == nil {
		return nil
	}
	out := make([]T, len(page))
	copy(out, page)
	return out
}

// denied converts a hook decision into the error surfaced to callers.
func denied(hookType string, decision hooks.Decision) error {
	name, _ := decision.Metadata["guard_type"].(string)
	return &hooks.HookDeniedError{
		HookName: name,
		HookType: hookType,
		Reason:   decision.Reason,
		Metadata: decision.Metadata,
	}
}
