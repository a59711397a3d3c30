package events

import (
	"sync"
	"time"

	"github.com/CrescendoLabs/FeedKit/ringbuf"
)

// defaultLogCapacity bounds the in-memory event log.
const defaultLogCapacity = 256

// Log retains the most recent events published on a bus. It backs debugging
// views and session diagnostics without unbounded growth; once capacity is
// reached the oldest events are overwritten.
type Log struct {
	mu    sync.Mutex
	buf   *ringbuf.Buffer[*Event]
	unsub func()
}

// EventFilter specifies criteria for querying the log.
type EventFilter struct {
	SessionID string
	FeedID    string
	Types     []EventType
	Since     time.Time
	Limit     int
}

// NewLog creates a log retaining the last capacity events from bus.
// A capacity below 1 falls back to the default.
func NewLog(bus *EventBus, capacity int) *Log {
	if capacity < 1 {
		capacity = defaultLogCapacity
	}

	l := &Log{
		buf: ringbuf.New[*Event](capacity),
	}
	l.unsub = bus.SubscribeAll(l.record)
	return l
}

func (l *Log) record(event *Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf.Push(event)
}

// Query returns retained events matching the filter, oldest first. A nil
// filter returns everything.
func (l *Log) Query(filter *EventFilter) []*Event {
	l.mu.Lock()
	retained := l.buf.Snapshot()
	l.mu.Unlock()

	if filter == nil {
		return retained
	}

	matched := make([]*Event, 0, len(retained))
	for _, event := range retained {
		if !matches(event, filter) {
			continue
		}
		matched = append(matched, event)
		if filter.Limit > 0 && len(matched) >= filter.Limit {
			break
		}
	}
	return matched
}

// Snapshot returns all retained events, oldest first.
func (l *Log) Snapshot() []*Event {
	return l.Query(nil)
}

// Len returns the number of retained events.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.Len()
}

// Close detaches the log from its bus. Retained events stay queryable.
func (l *Log) Close() {
	if l.unsub != nil {
		l.unsub()
		l.unsub = nil
	}
}

func matches(event *Event, filter *EventFilter) bool {
	if filter.SessionID != "" && event.SessionID != filter.SessionID {
		return false
	}
	if filter.FeedID != "" && event.FeedID != filter.FeedID {
		return false
	}
	if !filter.Since.IsZero() && event.Timestamp.Before(filter.Since) {
		return false
	}
	if len(filter.Types) > 0 {
		found := false
		for _, t := range filter.Types {
			if event.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
