// Package hooks provides synchronous interception points for page fetches,
// load state transitions, and record eviction in the FeedKit runtime.
package hooks

import "fmt"

// HookDeniedError is returned when a hook denies an operation.
type HookDeniedError struct {
	HookName string
	HookType string // "fetch_before", "fetch_after", "prefetch", "eviction"
	Reason   string
	Metadata map[string]any
}

func (e *HookDeniedError) Error() string {
	return fmt.Sprintf("hook %q (%s) denied: %s", e.HookName, e.HookType, e.Reason)
}
