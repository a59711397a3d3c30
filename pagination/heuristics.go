package pagination

import (
	"context"
	"time"

	"github.com/CrescendoLabs/FeedKit/hooks"
	"github.com/CrescendoLabs/FeedKit/logger"
)

// NetworkCondition classifies the observed connection quality for batch
// sizing.
type NetworkCondition string

const (
	NetworkSlow   NetworkCondition = "slow"
	NetworkNormal NetworkCondition = "normal"
	NetworkFast   NetworkCondition = "fast"
)

// BatchSize returns how many records the next page should request: the
// configured base scaled down on slow connections and up on fast ones,
// clamped so it never exceeds the records remaining. Zero when nothing
// remains.
func (o *Optimizer[T]) BatchSize(consumed, total int, cond NetworkCondition) int {
	remaining := total - consumed
	if remaining <= 0 {
		return 0
	}

	size := o.baseBatchSize
	switch cond {
	case NetworkSlow:
		size /= 2
	case NetworkFast:
		size *= 2
	}
	if size < 1 {
		size = 1
	}
	if size > remaining {
		size = remaining
	}
	return size
}

// ShouldPrefetch reports whether the next page should be requested before
// the user reaches the end of loaded content. It fires when the user is
// scrolling fast, has dwelled long on the current page, or is close to the
// end; it is always false at the very end of loaded content. Registered
// prefetch advisors can veto a positive decision.
func (o *Optimizer[T]) ShouldPrefetch(currentIndex, total int, velocity float64, dwell time.Duration) bool {
	if total <= 0 || currentIndex >= total-1 {
		return false
	}

	var trigger string
	switch {
	case velocity > o.fastScroll:
		trigger = "velocity"
	case dwell > o.longDwell:
		trigger = "dwell"
	case total-1-currentIndex <= o.prefetchDistance:
		trigger = "proximity"
	default:
		return false
	}

	if o.hookReg.HasPrefetchAdvisors() {
		signal := &hooks.PrefetchSignal{
			ScrollVelocity: velocity,
			DwellTime:      dwell,
			CurrentIndex:   currentIndex,
			Total:          total,
		}
		if decision := o.hookReg.RunOnPrefetch(context.Background(), signal); !decision.Allow {
			logger.Debug("prefetch vetoed", "trigger", trigger, "reason", decision.Reason)
			return false
		}
	}

	o.emitter.PrefetchTriggered(trigger, currentIndex, total)
	return true
}

// OptimizeMemoryUsage bounds an in-memory record window to the configured
// maximum by keeping the most recent tail. Records are assumed ordered
// oldest to newest. At or under the threshold the input is returned
// unchanged; over it, a fresh slice of the last maxRecords elements is
// returned and the dropped count is recorded.
func (o *Optimizer[T]) OptimizeMemoryUsage(records []T) []T {
	total := len(records)
	if total <= o.maxRecords {
		o.setMemoryUsage(total)
		return records
	}

	evicting := total - o.maxRecords
	req := hooks.EvictionRequest{
		SessionID:  o.sessionID,
		Total:      total,
		KeepWindow: o.maxRecords,
		Evicting:   evicting,
	}
	if decision := o.hookReg.RunBeforeEviction(context.Background(), req); !decision.Allow {
		logger.Debug("eviction vetoed", "reason", decision.Reason, "total", total)
		o.setMemoryUsage(total)
		return records
	}

	kept := make([]T, o.maxRecords)
	copy(kept, records[evicting:])

	o.mu.Lock()
	o.metrics.evicted += int64(evicting)
	o.metrics.memoryUsage = len(kept)
	o.mu.Unlock()

	logger.Debug("evicted old records", "evicted", evicting, "kept", len(kept))
	o.emitter.RecordsEvicted(evicting, len(kept), evicting)
	return kept
}

func (o *Optimizer[T]) setMemoryUsage(n int) {
	o.mu.Lock()
	o.metrics.memoryUsage = n
	o.mu.Unlock()
}
