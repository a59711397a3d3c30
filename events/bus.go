// Package events provides a lightweight pub/sub event bus for runtime observability.
package events

import "sync"

// Listener is a function that handles events.
type Listener func(*Event)

// Worker pool defaults. Publishing never blocks the caller; events queue in
// a buffered channel and a small pool of workers drains it.
const (
	defaultWorkerPoolSize  = 4
	defaultEventBufferSize = 256
)

// BusOption configures an EventBus.
type BusOption func(*busConfig)

type busConfig struct {
	workers int
	buffer  int
}

// WithWorkerPoolSize sets the number of dispatch workers. Values below 1
// are ignored.
func WithWorkerPoolSize(n int) BusOption {
	return func(cfg *busConfig) {
		if n > 0 {
			cfg.workers = n
		}
	}
}

// WithEventBufferSize sets the publish queue capacity. Values below 1 are
// ignored.
func WithEventBufferSize(n int) BusOption {
	return func(cfg *busConfig) {
		if n > 0 {
			cfg.buffer = n
		}
	}
}

// EventBus manages event distribution to listeners.
type EventBus struct {
	mu              sync.RWMutex
	listeners       map[EventType]map[int]Listener
	globalListeners map[int]Listener
	nextID          int
	closed          bool

	events    chan *Event
	workers   sync.WaitGroup
	closeOnce sync.Once
}

// NewEventBus creates a new event bus and starts its dispatch workers.
func NewEventBus(opts ...BusOption) *EventBus {
	cfg := busConfig{
		workers: defaultWorkerPoolSize,
		buffer:  defaultEventBufferSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	eb := &EventBus{
		listeners:       make(map[EventType]map[int]Listener),
		globalListeners: make(map[int]Listener),
		events:          make(chan *Event, cfg.buffer),
	}

	eb.workers.Add(cfg.workers)
	for i := 0; i < cfg.workers; i++ {
		go eb.worker()
	}

	return eb
}

// Subscribe registers a listener for a specific event type. The returned
// function removes the listener again.
func (eb *EventBus) Subscribe(eventType EventType, listener Listener) func() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	id := eb.nextID
	eb.nextID++
	if eb.listeners[eventType] == nil {
		eb.listeners[eventType] = make(map[int]Listener)
	}
	eb.listeners[eventType][id] = listener

	return func() {
		eb.mu.Lock()
		defer eb.mu.Unlock()
		delete(eb.listeners[eventType], id)
	}
}

// SubscribeAll registers a listener for all event types. The returned
// function removes the listener again.
func (eb *EventBus) SubscribeAll(listener Listener) func() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	id := eb.nextID
	eb.nextID++
	eb.globalListeners[id] = listener

	return func() {
		eb.mu.Lock()
		defer eb.mu.Unlock()
		delete(eb.globalListeners, id)
	}
}

// Publish queues an event for delivery to all registered listeners. It
// reports false when the bus is closed or the queue is full; events are
// dropped rather than blocking the caller.
func (eb *EventBus) Publish(event *Event) bool {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.closed {
		return false
	}

	select {
	case eb.events <- event:
		return true
	default:
		return false
	}
}

// Clear removes all listeners (primarily for tests).
func (eb *EventBus) Clear() {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.listeners = make(map[EventType]map[int]Listener)
	eb.globalListeners = make(map[int]Listener)
}

// Close stops accepting events and waits until every queued event has been
// dispatched. It is safe to call more than once.
func (eb *EventBus) Close() {
	eb.closeOnce.Do(func() {
		eb.mu.Lock()
		eb.closed = true
		eb.mu.Unlock()

		close(eb.events)
		eb.workers.Wait()
	})
}

func (eb *EventBus) worker() {
	defer eb.workers.Done()
	for event := range eb.events {
		eb.dispatch(event)
	}
}

func (eb *EventBus) dispatch(event *Event) {
	eb.mu.RLock()
	specific := make([]Listener, 0, len(eb.listeners[event.Type]))
	for _, listener := range eb.listeners[event.Type] {
		specific = append(specific, listener)
	}
	global := make([]Listener, 0, len(eb.globalListeners))
	for _, listener := range eb.globalListeners {
		global = append(global, listener)
	}
	eb.mu.RUnlock()

	// Global listeners run before type-specific ones.
	for _, listener := range global {
		safeInvoke(listener, event)
	}
	for _, listener := range specific {
		safeInvoke(listener, event)
	}
}

func safeInvoke(listener Listener, event *Event) {
	defer func() { _ = recover() }()
	listener(event)
}
