package hooks

import "context"

// FetchHook intercepts page fetches.
type FetchHook interface {
	Name() string
	BeforeFetch(ctx context.Context, req *FetchRequest) Decision
	AfterFetch(ctx context.Context, req *FetchRequest, resp *FetchResponse) Decision
}

// PrefetchAdvisor is an opt-in extension for FetchHook. FetchHooks that also
// implement PrefetchAdvisor are consulted before speculative prefetches,
// letting applications veto background work.
type PrefetchAdvisor interface {
	OnPrefetch(ctx context.Context, signal *PrefetchSignal) Decision
}

// TransitionHook observes load state transitions.
type TransitionHook interface {
	Name() string
	OnTransition(ctx context.Context, event TransitionEvent) error
}

// EvictionHook intercepts record eviction during memory optimization.
type EvictionHook interface {
	Name() string
	BeforeEviction(ctx context.Context, req EvictionRequest) Decision
}
