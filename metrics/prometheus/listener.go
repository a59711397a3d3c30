// Package prometheus exposes FeedKit runtime activity as Prometheus metrics.
package prometheus

import (
	"github.com/CrescendoLabs/FeedKit/events"
)

// Status constants for metric labels.
const (
	statusSuccess = "success"
	statusError   = "error"
)

// Cache event kinds for metric labels.
const (
	kindHit          = "hit"
	kindMiss         = "miss"
	kindExpired      = "expired"
	kindInvalidated  = "invalidated"
	kindDeduplicated = "deduplicated"
)

// MetricsListener records runtime events as Prometheus metrics.
// It implements the events.Listener signature and should be registered
// with an EventBus using SubscribeAll.
type MetricsListener struct{}

// NewMetricsListener creates a new MetricsListener.
func NewMetricsListener() *MetricsListener {
	return &MetricsListener{}
}

// Handle processes an event and records relevant metrics.
// This method is designed to be used with EventBus.SubscribeAll.
func (l *MetricsListener) Handle(event *events.Event) {
	switch event.Type {
	case events.EventLoadTransitioned:
		l.handleLoadTransitioned(event)
	case events.EventLoadRejected:
		l.handleLoadRejected(event)
	case events.EventLoadRecovered:
		l.handleLoadRecovered(event)
	case events.EventLoadReset:
		RecordLoadReset()
	case events.EventLoadBudgetExhausted:
		RecordBudgetExhaustion()
	case events.EventFiltersChanged:
		l.handleFiltersChanged(event)
	case events.EventFiltersConflict:
		l.handleFiltersConflict(event)
	case events.EventFiltersReset:
		l.handleFiltersReset(event)
	case events.EventFiltersRestored:
		RecordFilterChange("restore")
	case events.EventFetchStarted:
		RecordFetchStart()
	case events.EventFetchCompleted:
		l.handleFetchSettled(event, statusSuccess)
	case events.EventFetchFailed:
		l.handleFetchSettled(event, statusError)
	case events.EventCacheHit:
		l.handleCacheEvent(event, kindHit)
	case events.EventCacheMiss:
		l.handleCacheEvent(event, kindMiss)
	case events.EventCacheExpired:
		l.handleCacheEvent(event, kindExpired)
	case events.EventCacheInvalidated:
		l.handleCacheEvent(event, kindInvalidated)
	case events.EventRequestDeduplicated:
		RecordCacheEvent(kindDeduplicated, -1)
	case events.EventPrefetchTriggered:
		l.handlePrefetchTriggered(event)
	case events.EventRecordsEvicted:
		l.handleRecordsEvicted(event)
	case events.EventStateLoaded:
		l.handlePersistence(event, "load")
	case events.EventStateSaved:
		l.handlePersistence(event, "save")
	default:
		// Ignore events that don't have metrics
	}
}

func (l *MetricsListener) handleLoadTransitioned(event *events.Event) {
	if data, ok := event.Data.(events.LoadTransitionedData); ok {
		RecordLoadTransition(data.From, data.To)
	}
}

func (l *MetricsListener) handleLoadRejected(event *events.Event) {
	if data, ok := event.Data.(events.LoadRejectedData); ok {
		RecordLoadRejection(data.Cause)
	}
}

func (l *MetricsListener) handleLoadRecovered(event *events.Event) {
	if data, ok := event.Data.(events.LoadRecoveredData); ok {
		RecordLoadRecovery(data.Kind)
	}
}

func (l *MetricsListener) handleFiltersChanged(event *events.Event) {
	if data, ok := event.Data.(events.FiltersChangedData); ok {
		RecordFilterChange(data.Source)
	}
}

func (l *MetricsListener) handleFiltersConflict(event *events.Event) {
	if data, ok := event.Data.(events.FiltersConflictData); ok {
		RecordFilterConflict(data.Field, data.Strategy)
	}
}

func (l *MetricsListener) handleFiltersReset(event *events.Event) {
	if data, ok := event.Data.(events.FiltersResetData); ok {
		RecordFilterChange(data.Source)
	}
}

func (l *MetricsListener) handleFetchSettled(event *events.Event, status string) {
	if data, ok := event.Data.(events.FetchEventData); ok {
		RecordFetchEnd(status, data.Duration.Seconds())
	}
}

func (l *MetricsListener) handleCacheEvent(event *events.Event, kind string) {
	if data, ok := event.Data.(events.CacheEventData); ok {
		RecordCacheEvent(kind, data.Entries)
	}
}

func (l *MetricsListener) handlePrefetchTriggered(event *events.Event) {
	if data, ok := event.Data.(events.PrefetchTriggeredData); ok {
		RecordPrefetch(data.Trigger)
	}
}

func (l *MetricsListener) handleRecordsEvicted(event *events.Event) {
	if data, ok := event.Data.(events.RecordsEvictedData); ok {
		RecordEviction(data.Evicted)
	}
}

func (l *MetricsListener) handlePersistence(event *events.Event, op string) {
	if data, ok := event.Data.(events.StateEventData); ok {
		RecordPersistence(data.Component, op)
	}
}

// Listener returns an events.Listener function that can be registered with an EventBus.
func (l *MetricsListener) Listener() events.Listener {
	return l.Handle
}
