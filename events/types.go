package events

import "time"

// EventType identifies the type of event emitted by the runtime.
type EventType string

const (
	// EventLoadTransitioned marks an accepted load state transition.
	EventLoadTransitioned EventType = "load.transitioned"
	// EventLoadRejected marks a rejected load state transition.
	EventLoadRejected EventType = "load.rejected"
	// EventLoadRecovered marks a recovery out of the error state.
	EventLoadRecovered EventType = "load.recovered"
	// EventLoadReset marks a reset of the load state machine.
	EventLoadReset EventType = "load.reset"
	// EventLoadBudgetExhausted marks the error budget tripping.
	EventLoadBudgetExhausted EventType = "load.budget_exhausted"

	// EventFiltersChanged marks an applied filter update.
	EventFiltersChanged EventType = "filters.changed"
	// EventFiltersConflict marks a resolved filter conflict.
	EventFiltersConflict EventType = "filters.conflict"
	// EventFiltersReset marks a filter reset to defaults.
	EventFiltersReset EventType = "filters.reset"
	// EventFiltersRestored marks a restore from filter history.
	EventFiltersRestored EventType = "filters.restored"

	// EventFetchStarted marks fetch start.
	EventFetchStarted EventType = "fetch.started"
	// EventFetchCompleted marks fetch completion.
	EventFetchCompleted EventType = "fetch.completed"
	// EventFetchFailed marks fetch failure.
	EventFetchFailed EventType = "fetch.failed"

	// EventCacheHit marks a fresh cache entry serving a request.
	EventCacheHit EventType = "cache.hit"
	// EventCacheMiss marks a request that found no cache entry.
	EventCacheMiss EventType = "cache.miss"
	// EventCacheExpired marks a cache entry discarded past its TTL.
	EventCacheExpired EventType = "cache.expired"
	// EventCacheInvalidated marks explicit cache invalidation.
	EventCacheInvalidated EventType = "cache.invalidated"

	// EventRequestDeduplicated marks a request joining an in-flight fetch.
	EventRequestDeduplicated EventType = "request.deduplicated"

	// EventPrefetchTriggered marks a prefetch heuristic firing.
	EventPrefetchTriggered EventType = "prefetch.triggered"

	// EventRecordsEvicted marks records dropped by memory optimization.
	EventRecordsEvicted EventType = "records.evicted"

	// EventStateLoaded marks a snapshot load from storage.
	EventStateLoaded EventType = "state.loaded"
	// EventStateSaved marks a snapshot save to storage.
	EventStateSaved EventType = "state.saved"
)

// EventData is a marker interface for event payloads.
type EventData interface {
	eventData()
}

// Event represents a runtime event delivered to listeners.
type Event struct {
	Type      EventType
	Timestamp time.Time
	SessionID string
	FeedID    string
	Data      EventData
}

// baseEventData provides a shared marker implementation for all event payloads.
type baseEventData struct{}

func (baseEventData) eventData() {}

// --- Load state events ---

// LoadTransitionedData contains data for accepted transition events.
type LoadTransitionedData struct {
	baseEventData
	From     string
	To       string
	Reason   string
	Sequence int
}

// LoadRejectedData contains data for rejected transition events.
type LoadRejectedData struct {
	baseEventData
	From  string
	To    string
	Cause string // "invalid-transition" or "budget-exhausted"
}

// LoadRecoveredData contains data for recovery events.
type LoadRecoveredData struct {
	baseEventData
	Kind string // "forced" or "last-valid"
	From string
	To   string
}

// LoadResetData contains data for reset events.
type LoadResetData struct {
	baseEventData
	From string
}

// BudgetExhaustedData contains data for error budget exhaustion events.
type BudgetExhaustedData struct {
	baseEventData
	Errors   int
	Cooldown time.Duration
}

// --- Filter events ---

// FiltersChangedData contains data for applied filter updates.
type FiltersChangedData struct {
	baseEventData
	Source           string
	ChangedFields    []string
	ConflictCount    int
	PaginationReset  bool
	CacheInvalidated bool
}

// FiltersConflictData contains data for resolved filter conflicts.
type FiltersConflictData struct {
	baseEventData
	Field          string
	Strategy       string
	SearchValue    string
	DashboardValue string
	Resolved       string
}

// FiltersResetData contains data for filter reset events.
type FiltersResetData struct {
	baseEventData
	Source string
}

// FiltersRestoredData contains data for history restore events.
type FiltersRestoredData struct {
	baseEventData
	Index         int
	ChangedFields []string
}

// --- Fetch events (consolidated) ---

// FetchEventData is the unified payload for all fetch lifecycle events
// (started, completed, failed). Fields like Duration, Records, Error are
// zero-valued when not applicable to the current phase.
type FetchEventData struct {
	baseEventData
	Key      string
	Duration time.Duration // Set on completed/failed
	Records  int           // Set on completed
	Error    error         // Set on failed
}

type (
	// FetchStartedData is an alias for FetchEventData.
	FetchStartedData = FetchEventData
	// FetchCompletedData is an alias for FetchEventData.
	FetchCompletedData = FetchEventData
	// FetchFailedData is an alias for FetchEventData.
	FetchFailedData = FetchEventData
)

// --- Cache events (consolidated) ---

// CacheEventData is the unified payload for all cache lifecycle events
// (hit, miss, expired, invalidated). Age is only set on hits and expiries;
// Entries reports the cache size after the operation.
type CacheEventData struct {
	baseEventData
	Key     string
	Age     time.Duration
	Entries int
}

type (
	// CacheHitData is an alias for CacheEventData.
	CacheHitData = CacheEventData
	// CacheMissData is an alias for CacheEventData.
	CacheMissData = CacheEventData
	// CacheExpiredData is an alias for CacheEventData.
	CacheExpiredData = CacheEventData
	// CacheInvalidatedData is an alias for CacheEventData.
	CacheInvalidatedData = CacheEventData
)

// RequestDeduplicatedData contains data for deduplicated request events.
type RequestDeduplicatedData struct {
	baseEventData
	Key     string
	Waiters int
}

// PrefetchTriggeredData contains data for prefetch heuristic events.
type PrefetchTriggeredData struct {
	baseEventData
	Trigger      string // "velocity", "dwell", or "proximity"
	CurrentIndex int
	TotalLoaded  int
}

// RecordsEvictedData contains data for memory optimization events.
type RecordsEvictedData struct {
	baseEventData
	Evicted     int
	Kept        int
	WindowStart int
}

// --- Persistence events ---

// StateEventData is the unified payload for snapshot load/save events.
type StateEventData struct {
	baseEventData
	Component string
	Key       string
}

type (
	// StateLoadedData is an alias for StateEventData.
	StateLoadedData = StateEventData
	// StateSavedData is an alias for StateEventData.
	StateSavedData = StateEventData
)
