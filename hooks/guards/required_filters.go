package guards

import (
	"context"
	"fmt"

	"github.com/CrescendoLabs/FeedKit/hooks"
)

// RequiredFiltersHook denies fetches whose filter set is missing required
// keys. Feeds scoped by tenant or locale use this to catch unscoped
// requests before they hit the backend.
type RequiredFiltersHook struct {
	required []string
}

// Compile-time interface check.
var _ hooks.FetchHook = (*RequiredFiltersHook)(nil)

// NewRequiredFiltersHook creates a guard requiring the given filter keys
// to be present and non-empty on every fetch.
func NewRequiredFiltersHook(required []string) *RequiredFiltersHook {
	return &RequiredFiltersHook{required: required}
}

// Name returns the guard type identifier.
func (h *RequiredFiltersHook) Name() string { return nameRequiredFilters }

// BeforeFetch checks the request's filters for required keys.
func (h *RequiredFiltersHook) BeforeFetch(
	_ context.Context, req *hooks.FetchRequest,
) hooks.Decision {
	for _, key := range h.required {
		if req.Filters[key] == "" {
			return hooks.DenyWithMetadata(
				fmt.Sprintf("missing required filter %q", key),
				map[string]any{
					"guard_type":     nameRequiredFilters,
					"missing_filter": key,
				},
			)
		}
	}
	return hooks.Allow
}

// AfterFetch is a no-op; filters are checked before the fetch.
func (h *RequiredFiltersHook) AfterFetch(
	_ context.Context, _ *hooks.FetchRequest, _ *hooks.FetchResponse,
) hooks.Decision {
	return hooks.Allow
}
