package pagination

import (
	"fmt"
	"strings"
	"time"

	"github.com/CrescendoLabs/FeedKit/ringbuf"
)

// metricsState holds the raw counters behind MetricsSnapshot. Guarded by
// the optimizer mutex.
type metricsState struct {
	requests    int64
	hits        int64
	misses      int64
	dedups      int64
	errors      int64
	timeouts    int64
	evicted     int64
	memoryUsage int
	samples     *ringbuf.Buffer[time.Duration]
}

// MetricsSnapshot is a point-in-time aggregate of optimizer activity.
// Rates are fractions of RequestCount; AvgFetchTime averages the bounded
// fetch-duration sample log.
type MetricsSnapshot struct {
	RequestCount   int64
	CacheHitRate   float64
	DedupRate      float64
	ErrorRate      float64
	TimeoutCount   int64
	AvgFetchTime   time.Duration
	MemoryUsage    int
	EvictedRecords int64
	CacheSize      int
	InFlight       int
}

// Metrics returns a snapshot of the optimizer's counters and derived rates.
func (o *Optimizer[T]) Metrics() MetricsSnapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	snap := MetricsSnapshot{
		RequestCount:   o.metrics.requests,
		TimeoutCount:   o.metrics.timeouts,
		MemoryUsage:    o.metrics.memoryUsage,
		EvictedRecords: o.metrics.evicted,
		CacheSize:      len(o.cache),
	}
	for _, waiters := range o.inflight {
		snap.InFlight += waiters
	}
	if o.metrics.requests > 0 {
		snap.CacheHitRate = float64(o.metrics.hits) / float64(o.metrics.requests)
		snap.DedupRate = float64(o.metrics.dedups) / float64(o.metrics.requests)
		snap.ErrorRate = float64(o.metrics.errors) / float64(o.metrics.requests)
	}
	samples := o.metrics.samples.Snapshot()
	if len(samples) > 0 {
		var sum time.Duration
		for _, d := range samples {
			sum += d
		}
		snap.AvgFetchTime = sum / time.Duration(len(samples))
	}
	return snap
}

// ResetMetrics zeroes all counters and the fetch-duration sample log. The
// cache and in-flight bookkeeping are untouched.
func (o *Optimizer[T]) ResetMetrics() {
	o.mu.Lock()
	defer o.mu.Unlock()

	samples := o.metrics.samples
	o.metrics = metricsState{samples: samples}
	samples.Clear()
}

// PerformanceReport renders a human-readable multi-section summary of the
// optimizer's activity. The wording is informational, not a stable
// interface.
func (o *Optimizer[T]) PerformanceReport() string {
	snap := o.Metrics()

	var b strings.Builder
	b.WriteString("=== Pagination Performance Report ===\n\n")

	b.WriteString("Response Times\n")
	fmt.Fprintf(&b, "  average fetch:   %s\n", snap.AvgFetchTime.Round(time.Millisecond))
	fmt.Fprintf(&b, "  timeouts:        %d\n", snap.TimeoutCount)

	b.WriteString("\nMemory & Caching\n")
	fmt.Fprintf(&b, "  records held:    %d\n", snap.MemoryUsage)
	fmt.Fprintf(&b, "  records evicted: %d\n", snap.EvictedRecords)
	fmt.Fprintf(&b, "  cache entries:   %d\n", snap.CacheSize)
	fmt.Fprintf(&b, "  cache hit rate:  %.1f%%\n", snap.CacheHitRate*100)

	b.WriteString("\nNetwork\n")
	fmt.Fprintf(&b, "  requests:        %d\n", snap.RequestCount)
	fmt.Fprintf(&b, "  deduplicated:    %.1f%%\n", snap.DedupRate*100)
	fmt.Fprintf(&b, "  error rate:      %.1f%%\n", snap.ErrorRate*100)
	fmt.Fprintf(&b, "  in flight:       %d\n", snap.InFlight)

	b.WriteString("\nOptimization Status\n")
	fmt.Fprintf(&b, "  %s\n", optimizationStatus(snap))
	return b.String()
}

// optimizationStatus condenses a snapshot into one health line.
func optimizationStatus(snap MetricsSnapshot) string {
	switch {
	case snap.RequestCount == 0:
		return "idle: no requests observed"
	case snap.ErrorRate > 0.25:
		return "degraded: error rate above 25%"
	case snap.CacheHitRate >= 0.5:
		return "healthy: cache absorbing most requests"
	default:
		return "warming: cache hit rate below 50%"
	}
}
