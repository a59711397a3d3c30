package guards

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/CrescendoLabs/FeedKit/hooks"
)

// RateWindowHook denies fetches once a rolling time window fills up. It
// also implements PrefetchAdvisor so speculative prefetches never consume
// the last slots of the window.
type RateWindowHook struct {
	maxFetches int
	window     time.Duration

	mu      sync.Mutex
	stamps  []time.Time
	nowFunc func() time.Time
}

// prefetchHeadroom is how many window slots are reserved for explicit
// loads; prefetches are denied once fewer slots remain.
const prefetchHeadroom = 2

// Compile-time interface checks.
var (
	_ hooks.FetchHook       = (*RateWindowHook)(nil)
	_ hooks.PrefetchAdvisor = (*RateWindowHook)(nil)
)

// NewRateWindowHook creates a guard allowing at most maxFetches fetches
// per rolling window.
func NewRateWindowHook(maxFetches int, window time.Duration) *RateWindowHook {
	return &RateWindowHook{
		maxFetches: maxFetches,
		window:     window,
		nowFunc:    time.Now,
	}
}

// Name returns the guard type identifier.
func (h *RateWindowHook) Name() string { return nameRateWindow }

// BeforeFetch records the fetch against the window, denying when full.
func (h *RateWindowHook) BeforeFetch(
	_ context.Context, _ *hooks.FetchRequest,
) hooks.Decision {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.nowFunc()
	h.pruneLocked(now)

	if len(h.stamps) >= h.maxFetches {
		return hooks.DenyWithMetadata(
			fmt.Sprintf("exceeded %d fetches per %s", h.maxFetches, h.window),
			map[string]any{
				"guard_type":  nameRateWindow,
				"max_fetches": h.maxFetches,
				"window":      h.window.String(),
			},
		)
	}

	h.stamps = append(h.stamps, now)
	return hooks.Allow
}

// AfterFetch is a no-op; the window is charged before the fetch.
func (h *RateWindowHook) AfterFetch(
	_ context.Context, _ *hooks.FetchRequest, _ *hooks.FetchResponse,
) hooks.Decision {
	return hooks.Allow
}

// OnPrefetch denies speculative prefetches when the window is nearly full.
// Advising does not charge the window; an allowed prefetch is charged by
// its own BeforeFetch.
func (h *RateWindowHook) OnPrefetch(
	_ context.Context, _ *hooks.PrefetchSignal,
) hooks.Decision {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.pruneLocked(h.nowFunc())

	if len(h.stamps) > h.maxFetches-prefetchHeadroom {
		return hooks.Deny("fetch window nearly exhausted")
	}
	return hooks.Allow
}

// pruneLocked drops timestamps older than the window. Callers must hold mu.
func (h *RateWindowHook) pruneLocked(now time.Time) {
	cutoff := now.Add(-h.window)
	kept := h.stamps[:0]
	for _, ts := range h.stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	h.stamps = kept
}
