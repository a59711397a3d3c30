package guards

import (
	"context"
	"fmt"

	"github.com/CrescendoLabs/FeedKit/hooks"
)

// PageSizeHook denies fetches that request or return oversized pages.
type PageSizeHook struct {
	maxLimit   int // 0 means no limit
	maxRecords int // 0 means no limit
}

// Compile-time interface check.
var _ hooks.FetchHook = (*PageSizeHook)(nil)

// NewPageSizeHook creates a guard that rejects fetch requests asking for
// more than maxLimit records and fetch responses carrying more than
// maxRecords. Pass 0 to disable a limit.
func NewPageSizeHook(maxLimit, maxRecords int) *PageSizeHook {
	return &PageSizeHook{maxLimit: maxLimit, maxRecords: maxRecords}
}

// Name returns the guard type identifier.
func (h *PageSizeHook) Name() string { return namePageSize }

// BeforeFetch checks the requested page size.
func (h *PageSizeHook) BeforeFetch(
	_ context.Context, req *hooks.FetchRequest,
) hooks.Decision {
	if h.maxLimit > 0 && req.Limit > h.maxLimit {
		return hooks.DenyWithMetadata(
			fmt.Sprintf("exceeded max_limit (%d > %d)", req.Limit, h.maxLimit),
			map[string]any{
				"guard_type":      namePageSize,
				"requested_limit": req.Limit,
				"max_limit":       h.maxLimit,
			},
		)
	}
	return hooks.Allow
}

// AfterFetch checks the returned record count.
func (h *PageSizeHook) AfterFetch(
	_ context.Context, _ *hooks.FetchRequest, resp *hooks.FetchResponse,
) hooks.Decision {
	if h.maxRecords > 0 && resp.Records > h.maxRecords {
		return hooks.DenyWithMetadata(
			fmt.Sprintf("exceeded max_records (%d > %d)", resp.Records, h.maxRecords),
			map[string]any{
				"guard_type":   namePageSize,
				"record_count": resp.Records,
				"max_records":  h.maxRecords,
			},
		)
	}
	return hooks.Allow
}
