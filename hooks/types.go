package hooks

import "time"

// Decision is the result of a hook evaluation.
type Decision struct {
	Allow    bool
	Reason   string
	Metadata map[string]any
}

// Allow is the zero-cost approval decision.
var Allow = Decision{Allow: true} //nolint:gochecknoglobals // convenience sentinel

// Deny creates a denial decision with a reason.
func Deny(reason string) Decision {
	return Decision{Allow: false, Reason: reason}
}

// DenyWithMetadata creates a denial decision with a reason and metadata.
func DenyWithMetadata(reason string, metadata map[string]any) Decision {
	return Decision{Allow: false, Reason: reason, Metadata: metadata}
}

// FetchRequest describes a page fetch about to be made.
type FetchRequest struct {
	Key      string // cache key identifying the page
	Offset   int
	Limit    int
	Filters  map[string]string
	Metadata map[string]any
}

// FetchResponse describes a completed page fetch.
type FetchResponse struct {
	Key       string
	Records   int
	LatencyMs int64
	Error     string // non-empty when the fetch failed
}

// PrefetchSignal describes the scroll context behind a speculative prefetch.
type PrefetchSignal struct {
	ScrollVelocity float64 // pixels per second
	DwellTime      time.Duration
	CurrentIndex   int
	Total          int
}

// TransitionEvent carries context for load state transition hooks.
type TransitionEvent struct {
	SessionID string
	From      string
	To        string
	Reason    string
	Sequence  int
	Metadata  map[string]any
}

// EvictionRequest describes a memory optimization about to run.
type EvictionRequest struct {
	SessionID  string
	Total      int // records currently held
	KeepWindow int // records that would remain
	Evicting   int // records that would be dropped
}
