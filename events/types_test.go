package events

import (
	"testing"
	"time"
)

func TestBaseEventData_EventData(t *testing.T) {
	// Test that baseEventData satisfies EventData interface
	var _ EventData = baseEventData{}

	// Test that it has the marker method
	bed := baseEventData{}
	bed.eventData() // Should not panic
}

func TestEventDataStructs(t *testing.T) {
	// Test that all event data structs satisfy EventData interface
	var _ EventData = &LoadTransitionedData{}
	var _ EventData = &LoadRejectedData{}
	var _ EventData = &LoadRecoveredData{}
	var _ EventData = &LoadResetData{}
	var _ EventData = &BudgetExhaustedData{}
	var _ EventData = &FiltersChangedData{}
	var _ EventData = &FiltersConflictData{}
	var _ EventData = &FiltersResetData{}
	var _ EventData = &FiltersRestoredData{}
	var _ EventData = &FetchStartedData{}
	var _ EventData = &FetchCompletedData{}
	var _ EventData = &FetchFailedData{}
	var _ EventData = &CacheHitData{}
	var _ EventData = &CacheMissData{}
	var _ EventData = &CacheExpiredData{}
	var _ EventData = &CacheInvalidatedData{}
	var _ EventData = &RequestDeduplicatedData{}
	var _ EventData = &RecordsEvictedData{}
	var _ EventData = &StateLoadedData{}
	var _ EventData = &StateSavedData{}
}

func TestEvent_Creation(t *testing.T) {
	now := time.Now()
	event := &Event{
		Type:      EventLoadTransitioned,
		Timestamp: now,
		SessionID: "test-session",
		FeedID:    "test-feed",
		Data: &LoadTransitionedData{
			From:     "idle",
			To:       "auto-fetching",
			Reason:   "scroll-velocity",
			Sequence: 3,
		},
	}

	if event.Type != EventLoadTransitioned {
		t.Errorf("Event.Type = %v, want %v", event.Type, EventLoadTransitioned)
	}
	if event.Timestamp != now {
		t.Errorf("Event.Timestamp = %v, want %v", event.Timestamp, now)
	}
	if event.SessionID != "test-session" {
		t.Errorf("Event.SessionID = %v, want test-session", event.SessionID)
	}

	data, ok := event.Data.(*LoadTransitionedData)
	if !ok {
		t.Fatalf("Event.Data type assertion failed")
	}
	if data.To != "auto-fetching" {
		t.Errorf("LoadTransitionedData.To = %v, want auto-fetching", data.To)
	}
}

func TestEventTypes_Constants(t *testing.T) {
	// Test that event type constants have expected values
	tests := []struct {
		eventType EventType
		expected  string
	}{
		{EventLoadTransitioned, "load.transitioned"},
		{EventLoadRejected, "load.rejected"},
		{EventLoadRecovered, "load.recovered"},
		{EventLoadReset, "load.reset"},
		{EventLoadBudgetExhausted, "load.budget_exhausted"},
		{EventFiltersChanged, "filters.changed"},
		{EventFiltersConflict, "filters.conflict"},
		{EventFiltersReset, "filters.reset"},
		{EventFiltersRestored, "filters.restored"},
		{EventFetchStarted, "fetch.started"},
		{EventFetchCompleted, "fetch.completed"},
		{EventFetchFailed, "fetch.failed"},
		{EventCacheHit, "cache.hit"},
		{EventCacheMiss, "cache.miss"},
		{EventCacheExpired, "cache.expired"},
		{EventCacheInvalidated, "cache.invalidated"},
		{EventRequestDeduplicated, "request.deduplicated"},
		{EventRecordsEvicted, "records.evicted"},
		{EventStateLoaded, "state.loaded"},
		{EventStateSaved, "state.saved"},
	}

	for _, tt := range tests {
		t.Run(string(tt.eventType), func(t *testing.T) {
			if string(tt.eventType) != tt.expected {
				t.Errorf("EventType = %v, want %v", tt.eventType, tt.expected)
			}
		})
	}
}
