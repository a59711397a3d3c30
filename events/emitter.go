package events

import (
	"time"

	"github.com/google/uuid"
)

// Emitter provides helpers for publishing runtime events with shared metadata.
type Emitter struct {
	bus       *EventBus
	sessionID string
	feedID    string
}

// NewEmitter creates a new event emitter. An empty sessionID is replaced
// with a generated UUID so every event stream is traceable to a session.
func NewEmitter(bus *EventBus, sessionID, feedID string) *Emitter {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	return &Emitter{
		bus:       bus,
		sessionID: sessionID,
		feedID:    feedID,
	}
}

// SessionID returns the session identifier stamped on emitted events.
func (e *Emitter) SessionID() string {
	if e == nil {
		return ""
	}
	return e.sessionID
}

// FeedID returns the feed identifier stamped on emitted events.
func (e *Emitter) FeedID() string {
	if e == nil {
		return ""
	}
	return e.feedID
}

// emit publishes an event with shared context fields.
func (e *Emitter) emit(eventType EventType, data EventData) {
	if e == nil || e.bus == nil {
		return
	}

	event := &Event{
		Type:      eventType,
		Timestamp: time.Now(),
		SessionID: e.sessionID,
		FeedID:    e.feedID,
		Data:      data,
	}

	e.bus.Publish(event)
}

// LoadTransitioned emits the load.transitioned event.
func (e *Emitter) LoadTransitioned(from, to, reason string, sequence int) {
	e.emit(EventLoadTransitioned, LoadTransitionedData{
		From:     from,
		To:       to,
		Reason:   reason,
		Sequence: sequence,
	})
}

// LoadRejected emits the load.rejected event.
func (e *Emitter) LoadRejected(from, to, cause string) {
	e.emit(EventLoadRejected, LoadRejectedData{
		From:  from,
		To:    to,
		Cause: cause,
	})
}

// LoadRecovered emits the load.recovered event.
func (e *Emitter) LoadRecovered(kind, from, to string) {
	e.emit(EventLoadRecovered, LoadRecoveredData{
		Kind: kind,
		From: from,
		To:   to,
	})
}

// LoadReset emits the load.reset event.
func (e *Emitter) LoadReset(from string) {
	e.emit(EventLoadReset, LoadResetData{
		From: from,
	})
}

// BudgetExhausted emits the load.budget_exhausted event.
func (e *Emitter) BudgetExhausted(errors int, cooldown time.Duration) {
	e.emit(EventLoadBudgetExhausted, BudgetExhaustedData{
		Errors:   errors,
		Cooldown: cooldown,
	})
}

// FiltersChanged emits the filters.changed event.
func (e *Emitter) FiltersChanged(
	source string,
	changedFields []string,
	conflictCount int,
	paginationReset, cacheInvalidated bool,
) {
	e.emit(EventFiltersChanged, FiltersChangedData{
		Source:           source,
		ChangedFields:    changedFields,
		ConflictCount:    conflictCount,
		PaginationReset:  paginationReset,
		CacheInvalidated: cacheInvalidated,
	})
}

// FiltersConflict emits the filters.conflict event.
func (e *Emitter) FiltersConflict(field, strategy, searchValue, dashboardValue, resolved string) {
	e.emit(EventFiltersConflict, FiltersConflictData{
		Field:          field,
		Strategy:       strategy,
		SearchValue:    searchValue,
		DashboardValue: dashboardValue,
		Resolved:       resolved,
	})
}

// FiltersReset emits the filters.reset event.
func (e *Emitter) FiltersReset(source string) {
	e.emit(EventFiltersReset, FiltersResetData{
		Source: source,
	})
}

// FiltersRestored emits the filters.restored event.
func (e *Emitter) FiltersRestored(index int, changedFields []string) {
	e.emit(EventFiltersRestored, FiltersRestoredData{
		Index:         index,
		ChangedFields: changedFields,
	})
}

// FetchStarted emits the fetch.started event.
func (e *Emitter) FetchStarted(key string) {
	e.emit(EventFetchStarted, FetchStartedData{
		Key: key,
	})
}

// FetchCompleted emits the fetch.completed event.
func (e *Emitter) FetchCompleted(key string, duration time.Duration, records int) {
	e.emit(EventFetchCompleted, FetchCompletedData{
		Key:      key,
		Duration: duration,
		Records:  records,
	})
}

// FetchFailed emits the fetch.failed event.
func (e *Emitter) FetchFailed(key string, err error, duration time.Duration) {
	e.emit(EventFetchFailed, FetchFailedData{
		Key:      key,
		Error:    err,
		Duration: duration,
	})
}

// CacheHit emits the cache.hit event.
func (e *Emitter) CacheHit(key string, age time.Duration, entries int) {
	e.emit(EventCacheHit, CacheHitData{
		Key:     key,
		Age:     age,
		Entries: entries,
	})
}

// CacheMiss emits the cache.miss event.
func (e *Emitter) CacheMiss(key string, entries int) {
	e.emit(EventCacheMiss, CacheMissData{
		Key:     key,
		Entries: entries,
	})
}

// CacheExpired emits the cache.expired event.
func (e *Emitter) CacheExpired(key string, age time.Duration, entries int) {
	e.emit(EventCacheExpired, CacheExpiredData{
		Key:     key,
		Age:     age,
		Entries: entries,
	})
}

// CacheInvalidated emits the cache.invalidated event.
func (e *Emitter) CacheInvalidated(key string, entries int) {
	e.emit(EventCacheInvalidated, CacheInvalidatedData{
		Key:     key,
		Entries: entries,
	})
}

// RequestDeduplicated emits the request.deduplicated event.
func (e *Emitter) RequestDeduplicated(key string, waiters int) {
	e.emit(EventRequestDeduplicated, RequestDeduplicatedData{
		Key:     key,
		Waiters: waiters,
	})
}

// PrefetchTriggered emits the prefetch.triggered event.
func (e *Emitter) PrefetchTriggered(trigger string, currentIndex, totalLoaded int) {
	e.emit(EventPrefetchTriggered, PrefetchTriggeredData{
		Trigger:      trigger,
		CurrentIndex: currentIndex,
		TotalLoaded:  totalLoaded,
	})
}

// RecordsEvicted emits the records.evicted event.
func (e *Emitter) RecordsEvicted(evicted, kept, windowStart int) {
	e.emit(EventRecordsEvicted, RecordsEvictedData{
		Evicted:     evicted,
		Kept:        kept,
		WindowStart: windowStart,
	})
}

// StateLoaded emits the state.loaded event.
func (e *Emitter) StateLoaded(component, key string) {
	e.emit(EventStateLoaded, StateLoadedData{
		Component: component,
		Key:       key,
	})
}

// StateSaved emits the state.saved event.
func (e *Emitter) StateSaved(component, key string) {
	e.emit(EventStateSaved, StateSavedData{
		Component: component,
		Key:       key,
	})
}
