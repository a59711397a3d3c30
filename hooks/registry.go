package hooks

import "context"

// Registry holds registered hooks and provides chain-execution methods.
// A nil *Registry is safe to use; all Run* methods return Allow or nil.
type Registry struct {
	fetchHooks       []FetchHook
	transitionHooks  []TransitionHook
	evictionHooks    []EvictionHook
	prefetchAdvisors []PrefetchAdvisor // cached from fetchHooks that implement PrefetchAdvisor
}

// Option configures a Registry during construction.
type Option func(*Registry)

// WithFetchHook registers a fetch hook.
func WithFetchHook(h FetchHook) Option {
	return func(r *Registry) {
		r.fetchHooks = append(r.fetchHooks, h)
		if pa, ok := h.(PrefetchAdvisor); ok {
			r.prefetchAdvisors = append(r.prefetchAdvisors, pa)
		}
	}
}

// WithTransitionHook registers a transition hook.
func WithTransitionHook(h TransitionHook) Option {
	return func(r *Registry) {
		r.transitionHooks = append(r.transitionHooks, h)
	}
}

// WithEvictionHook registers an eviction hook.
func WithEvictionHook(h EvictionHook) Option {
	return func(r *Registry) {
		r.evictionHooks = append(r.evictionHooks, h)
	}
}

// NewRegistry creates a Registry with the given options.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// IsEmpty returns true if no hooks are registered.
func (r *Registry) IsEmpty() bool {
	if r == nil {
		return true
	}
	return len(r.fetchHooks) == 0 && len(r.transitionHooks) == 0 && len(r.evictionHooks) == 0
}

// --- Fetch hooks ---

// RunBeforeFetch executes all fetch hooks' BeforeFetch in order.
// First deny wins and short-circuits.
func (r *Registry) RunBeforeFetch(ctx context.Context, req *FetchRequest) Decision {
	if r == nil {
		return Allow
	}
	for _, h := range r.fetchHooks {
		if d := h.BeforeFetch(ctx, req); !d.Allow {
			return d
		}
	}
	return Allow
}

// RunAfterFetch executes all fetch hooks' AfterFetch in order.
// First deny wins and short-circuits.
func (r *Registry) RunAfterFetch(ctx context.Context, req *FetchRequest, resp *FetchResponse) Decision {
	if r == nil {
		return Allow
	}
	for _, h := range r.fetchHooks {
		if d := h.AfterFetch(ctx, req, resp); !d.Allow {
			return d
		}
	}
	return Allow
}

// HasPrefetchAdvisors returns true if any registered fetch hook implements PrefetchAdvisor.
func (r *Registry) HasPrefetchAdvisors() bool {
	if r == nil {
		return false
	}
	return len(r.prefetchAdvisors) > 0
}

// RunOnPrefetch executes all prefetch advisors in order.
// First deny wins and short-circuits.
func (r *Registry) RunOnPrefetch(ctx context.Context, signal *PrefetchSignal) Decision {
	if r == nil {
		return Allow
	}
	for _, pa := range r.prefetchAdvisors {
		if d := pa.OnPrefetch(ctx, signal); !d.Allow {
			return d
		}
	}
	return Allow
}

// --- Transition hooks ---

// RunOnTransition executes all transition hooks' OnTransition in order.
// First error short-circuits.
func (r *Registry) RunOnTransition(ctx context.Context, event TransitionEvent) error {
	if r == nil {
		return nil
	}
	for _, h := range r.transitionHooks {
		if err := h.OnTransition(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// --- Eviction hooks ---

// RunBeforeEviction executes all eviction hooks' BeforeEviction in order.
// First deny wins and short-circuits.
func (r *Registry) RunBeforeEviction(ctx context.Context, req EvictionRequest) Decision {
	if r == nil {
		return Allow
	}
	for _, h := range r.evictionHooks {
		if d := h.BeforeEviction(ctx, req); !d.Allow {
			return d
		}
	}
	return Allow
}
