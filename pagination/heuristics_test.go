package pagination

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CrescendoLabs/FeedKit/hooks"
	"github.com/CrescendoLabs/FeedKit/hooks/guards"
)

func TestOptimizeMemoryUsage_KeepsTail(t *testing.T) {
	o := newTestOptimizer(t)

	records := make([]string, 150)
	for i := range records {
		records[i] = fmt.Sprintf("post-%d", i)
	}

	kept := o.OptimizeMemoryUsage(records)
	require.Len(t, kept, 100)
	assert.Equal(t, "post-50", kept[0])
	assert.Equal(t, "post-149", kept[99])

	snap := o.Metrics()
	assert.EqualValues(t, 50, snap.EvictedRecords)
	assert.Equal(t, 100, snap.MemoryUsage)
}

func TestOptimizeMemoryUsage_FreshSlice(t *testing.T) {
	o := newTestOptimizer(t, WithMaxRecords(2))

	records := []string{"a", "b", "c"}
	kept := o.OptimizeMemoryUsage(records)
	require.Equal(t, []string{"b", "c"}, kept)

	kept[0] = "mutated"
	assert.Equal(t, "b", records[1], "eviction must not alias the input")
}

func TestOptimizeMemoryUsage_NoOpUnderThreshold(t *testing.T) {
	o := newTestOptimizer(t, WithMaxRecords(10))

	records := []string{"a", "b", "c"}
	kept := o.OptimizeMemoryUsage(records)
	assert.Equal(t, records, kept)
	assert.Zero(t, o.Metrics().EvictedRecords)
	assert.Equal(t, 3, o.Metrics().MemoryUsage)

	exactly := make([]string, 10)
	assert.Equal(t, exactly, o.OptimizeMemoryUsage(exactly), "at the cap nothing is evicted")
}

// pinRecordsHook vetoes evictions while pinned.
type pinRecordsHook struct{ pinned bool }

func (h *pinRecordsHook) Name() string { return "pin-records" }

func (h *pinRecordsHook) BeforeEviction(_ context.Context, _ hooks.EvictionRequest) hooks.Decision {
	if h.pinned {
		return hooks.Deny("records pinned")
	}
	return hooks.Allow
}

func TestOptimizeMemoryUsage_EvictionVeto(t *testing.T) {
	hook := &pinRecordsHook{pinned: true}
	reg := hooks.NewRegistry(hooks.WithEvictionHook(hook))
	o := newTestOptimizer(t, WithMaxRecords(5), WithHooks(reg))

	records := []string{"a", "b", "c", "d", "e", "f"}
	kept := o.OptimizeMemoryUsage(records)
	assert.Equal(t, records, kept, "a vetoed eviction must keep everything")
	assert.Zero(t, o.Metrics().EvictedRecords)

	hook.pinned = false
	kept = o.OptimizeMemoryUsage(records)
	assert.Equal(t, []string{"b", "c", "d", "e", "f"}, kept)
	assert.EqualValues(t, 1, o.Metrics().EvictedRecords)
}

func TestBatchSize(t *testing.T) {
	o := newTestOptimizer(t)

	tests := []struct {
		name     string
		consumed int
		total    int
		cond     NetworkCondition
		want     int
	}{
		{"normal", 0, 100, NetworkNormal, 20},
		{"slow halves", 0, 100, NetworkSlow, 10},
		{"fast doubles", 0, 100, NetworkFast, 40},
		{"clamped to remaining", 95, 100, NetworkFast, 5},
		{"unknown condition treated as normal", 0, 100, NetworkCondition("flaky"), 20},
		{"nothing remaining", 100, 100, NetworkNormal, 0},
		{"over-consumed", 120, 100, NetworkFast, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, o.BatchSize(tt.consumed, tt.total, tt.cond))
		})
	}
}

func TestBatchSize_FloorOfOne(t *testing.T) {
	o := newTestOptimizer(t, WithBaseBatchSize(1))
	assert.Equal(t, 1, o.BatchSize(0, 100, NetworkSlow))
}

func TestShouldPrefetch(t *testing.T) {
	o := newTestOptimizer(t)

	tests := []struct {
		name     string
		index    int
		total    int
		velocity float64
		dwell    time.Duration
		want     bool
	}{
		{"near end of content", 8, 10, 500, 10 * time.Second, true},
		{"no trigger", 2, 10, 500, 10 * time.Second, false},
		{"fast scroll far from end", 2, 10, 1500, time.Second, true},
		{"long dwell far from end", 2, 10, 100, 45 * time.Second, true},
		{"at the very end", 9, 10, 5000, time.Hour, false},
		{"past the end", 12, 10, 5000, time.Hour, false},
		{"no content", 0, 0, 5000, time.Hour, false},
		{"thresholds are exclusive", 2, 10, 1000, 30 * time.Second, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := o.ShouldPrefetch(tt.index, tt.total, tt.velocity, tt.dwell)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestShouldPrefetch_CustomThresholds(t *testing.T) {
	o := newTestOptimizer(t,
		WithPrefetchDistance(1),
		WithFastScrollVelocity(200),
		WithLongDwell(5*time.Second),
	)

	assert.False(t, o.ShouldPrefetch(7, 10, 100, time.Second), "distance 2 with threshold 1")
	assert.True(t, o.ShouldPrefetch(8, 10, 100, time.Second), "distance 1 with threshold 1")
	assert.True(t, o.ShouldPrefetch(2, 10, 250, time.Second))
	assert.True(t, o.ShouldPrefetch(2, 10, 100, 6*time.Second))
}

func TestShouldPrefetch_AdvisorVeto(t *testing.T) {
	reg := hooks.NewRegistry(hooks.WithFetchHook(guards.NewRateWindowHook(2, time.Minute)))
	o := newTestOptimizer(t, WithHooks(reg))

	require.True(t, o.ShouldPrefetch(8, 10, 500, time.Second), "empty window allows prefetch")

	f := &countingFetcher{page: []string{"x"}}
	_, err := o.Request(context.Background(), "k", f.fetch)
	require.NoError(t, err)

	assert.False(t, o.ShouldPrefetch(8, 10, 500, time.Second),
		"a nearly full fetch window vetoes prefetch")
}
