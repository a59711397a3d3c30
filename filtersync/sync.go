// Package filtersync reconciles the two filter sources of the feed UI: the
// sparse filters coming out of the search bar and the complete filter set
// owned by the dashboard controls. It detects changes, resolves per-field
// conflicts under a configurable priority strategy, keeps a bounded snapshot
// history, persists the latest snapshot through a storage port, and notifies
// subscribers through a debounced single-slot timer.
//
// Any accepted filter change restarts pagination from the first page, so
// every delivered detection carries RequiresPaginationReset=true. Query text
// changes additionally invalidate cached pages.
package filtersync

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/CrescendoLabs/FeedKit/events"
	"github.com/CrescendoLabs/FeedKit/logger"
	"github.com/CrescendoLabs/FeedKit/ringbuf"
	"github.com/CrescendoLabs/FeedKit/storage"
)

const (
	defaultDebounce    = 300 * time.Millisecond
	defaultHistoryCap  = 10
	defaultStaleWindow = time.Hour
)

// Synchronizer reconciles search and dashboard filters. All methods are
// safe for concurrent use.
type Synchronizer struct {
	mu        sync.RWMutex
	strategy  Strategy
	search    SearchFilters
	dashboard DashboardFilters

	subscribers map[int]func(ChangeDetection)
	nextSubID   int

	history *ringbuf.Buffer[Snapshot]

	debounce     time.Duration
	pendingTimer *time.Timer
	pending      ChangeDetection

	store       storage.Store
	storageKey  string
	staleWindow time.Duration

	sessionID string
	emitter   *events.Emitter
	timeFunc  func() time.Time
	afterFunc func(time.Duration, func()) *time.Timer
	closed    bool
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithStrategy selects the conflict resolution strategy. NewSynchronizer
// rejects strategies other than search-priority and dashboard-priority.
func WithStrategy(strategy Strategy) Option {
	return func(s *Synchronizer) {
		s.strategy = strategy
	}
}

// WithDebounce sets the notification debounce window. Values <= 0 are
// ignored.
func WithDebounce(d time.Duration) Option {
	return func(s *Synchronizer) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// WithHistoryCap bounds the in-memory snapshot history. Values <= 0 are
// ignored.
func WithHistoryCap(n int) Option {
	return func(s *Synchronizer) {
		if n > 0 {
			s.history = ringbuf.New[Snapshot](n)
		}
	}
}

// WithStaleWindow sets the maximum age a snapshot may have to be restored,
// at construction or through RestoreFromHistory. Values <= 0 are ignored.
func WithStaleWindow(d time.Duration) Option {
	return func(s *Synchronizer) {
		if d > 0 {
			s.staleWindow = d
		}
	}
}

// WithStore enables persistence of the latest snapshot under key.
func WithStore(store storage.Store, key string) Option {
	return func(s *Synchronizer) {
		s.store = store
		s.storageKey = key
	}
}

// WithSessionID tags snapshots with the owning session. A random UUID is
// used when unset.
func WithSessionID(id string) Option {
	return func(s *Synchronizer) {
		if id != "" {
			s.sessionID = id
		}
	}
}

// WithEmitter attaches an event emitter.
func WithEmitter(emitter *events.Emitter) Option {
	return func(s *Synchronizer) {
		s.emitter = emitter
	}
}

// WithTimeFunc injects the clock.
func WithTimeFunc(fn func() time.Time) Option {
	return func(s *Synchronizer) {
		if fn != nil {
			s.timeFunc = fn
		}
	}
}

// NewSynchronizer builds a Synchronizer with dashboard defaults and an
// empty search side, then restores a persisted snapshot when a store is
// configured and the snapshot is fresh enough.
func NewSynchronizer(opts ...Option) (*Synchronizer, error) {
	s := &Synchronizer{
		strategy:    StrategySearchPriority,
		dashboard:   DefaultDashboardFilters(),
		subscribers: make(map[int]func(ChangeDetection)),
		history:     ringbuf.New[Snapshot](defaultHistoryCap),
		debounce:    defaultDebounce,
		staleWindow: defaultStaleWindow,
		timeFunc:    time.Now,
		afterFunc:   time.AfterFunc,
	}
	for _, opt := range opts {
		opt(s)
	}

	switch s.strategy {
	case StrategySearchPriority, StrategyDashboardPriority:
	default:
		return nil, fmt.Errorf("conflict strategy %q: %w", s.strategy, ErrUnsupportedStrategy)
	}

	if s.sessionID == "" {
		s.sessionID = uuid.NewString()
	}
	if s.store != nil {
		s.restore()
	}
	return s, nil
}

// UpdateSearchFilters replaces the search-side filters. When nothing
// changed the call is a no-op returning HasChanges=false. Otherwise the new
// values are stored, conflicts resolved, a snapshot persisted, and
// subscribers notified after the debounce window.
func (s *Synchronizer) UpdateSearchFilters(next SearchFilters) ChangeDetection {
	s.mu.Lock()

	changed := diffSearch(s.search, next)
	if len(changed) == 0 {
		detection := ChangeDetection{Source: SourceSearch, Timestamp: s.timeFunc()}
		s.mu.Unlock()
		return detection
	}

	queryChanged := containsField(changed, FieldQuery)
	if queryChanged {
		logger.Debug("search query updated", "query", logger.TruncateQuery(next.Query))
	}

	s.search = next
	conflicts := detectConflicts(s.search, s.dashboard, s.strategy)
	applyResolution(&s.search, &s.dashboard, conflicts)

	detection := ChangeDetection{
		HasChanges:                true,
		ChangedFields:             changed,
		Conflicts:                 conflicts,
		RequiresPaginationReset:   true,
		RequiresCacheInvalidation: queryChanged,
		Source:                    SourceSearch,
		Timestamp:                 s.timeFunc(),
	}
	s.recordLocked(detection)
	s.scheduleNotifyLocked(detection)
	s.mu.Unlock()
	return detection
}

// UpdateDashboardFilters replaces the dashboard-side filters. Zero-value
// fields in next are treated as their defaults so the dashboard side stays
// fully populated.
func (s *Synchronizer) UpdateDashboardFilters(next DashboardFilters) ChangeDetection {
	next = next.withDefaults()
	s.mu.Lock()

	changed := diffDashboard(s.dashboard, next)
	if len(changed) == 0 {
		detection := ChangeDetection{Source: SourceDashboard, Timestamp: s.timeFunc()}
		s.mu.Unlock()
		return detection
	}

	s.dashboard = next
	conflicts := detectConflicts(s.search, s.dashboard, s.strategy)
	applyResolution(&s.search, &s.dashboard, conflicts)

	detection := ChangeDetection{
		HasChanges:              true,
		ChangedFields:           changed,
		Conflicts:               conflicts,
		RequiresPaginationReset: true,
		Source:                  SourceDashboard,
		Timestamp:               s.timeFunc(),
	}
	s.recordLocked(detection)
	s.scheduleNotifyLocked(detection)
	s.mu.Unlock()
	return detection
}

// Synchronize reconciles the two sides without an external update, used on
// mount. When conflicts are found and resolved, subscribers are notified
// immediately rather than debounced.
func (s *Synchronizer) Synchronize() ChangeDetection {
	s.mu.Lock()

	conflicts := detectConflicts(s.search, s.dashboard, s.strategy)
	changed := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		changed = append(changed, c.Field)
	}

	detection := ChangeDetection{
		HasChanges:              len(conflicts) > 0,
		ChangedFields:           changed,
		Conflicts:               conflicts,
		RequiresPaginationReset: len(conflicts) > 0,
		Source:                  SourceSync,
		Timestamp:               s.timeFunc(),
	}
	if len(conflicts) > 0 {
		applyResolution(&s.search, &s.dashboard, conflicts)
		s.recordLocked(detection)
	}
	s.mu.Unlock()

	if detection.HasChanges {
		s.notifyNow(detection)
	}
	return detection
}

// Reset restores both sides to hard defaults, clears the persisted slot,
// and notifies subscribers immediately with both reset flags set.
func (s *Synchronizer) Reset() ChangeDetection {
	s.mu.Lock()

	changed := diffSearch(s.search, SearchFilters{})
	changed = append(changed, diffDashboard(s.dashboard, DefaultDashboardFilters())...)

	s.search = SearchFilters{}
	s.dashboard = DefaultDashboardFilters()
	s.cancelPendingLocked()

	if s.store != nil {
		if err := s.store.Delete(context.Background(), s.storageKey); err != nil {
			logger.Persistence("delete", s.storageKey, err)
		}
	}

	detection := ChangeDetection{
		HasChanges:                len(changed) > 0,
		ChangedFields:             changed,
		RequiresPaginationReset:   true,
		RequiresCacheInvalidation: true,
		Source:                    SourceReset,
		Timestamp:                 s.timeFunc(),
	}
	s.emitter.FiltersReset(string(SourceReset))
	s.mu.Unlock()

	s.notifyNow(detection)
	return detection
}

// CurrentState returns copies of both sides with their resolved view.
func (s *Synchronizer) CurrentState() FilterState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return FilterState{
		Search:    s.search,
		Dashboard: s.dashboard,
		Effective: resolveEffective(s.search, s.dashboard, s.strategy),
	}
}

// EffectiveFilters resolves both sides under the configured priority rule.
// SortBy is returned in the dashboard vocabulary.
func (s *Synchronizer) EffectiveFilters() EffectiveFilters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return resolveEffective(s.search, s.dashboard, s.strategy)
}

// HasActiveFilters reports whether any effective field deviates from its
// default or a trimmed search query is present.
func (s *Synchronizer) HasActiveFilters() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	effective := resolveEffective(s.search, s.dashboard, s.strategy)
	return effective.PostType != DefaultPostType ||
		effective.SortBy != DefaultSortBy ||
		effective.TimeRange != DefaultTimeRange ||
		strings.TrimSpace(s.search.Query) != ""
}

// Subscribe registers a listener for change detections and returns its
// unsubscribe function. A panicking listener is isolated and logged;
// remaining listeners are still notified.
func (s *Synchronizer) Subscribe(fn func(ChangeDetection)) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

// FilterHistory returns the bounded snapshot history, oldest first.
func (s *Synchronizer) FilterHistory() []Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.Snapshot()
}

// RestoreFromHistory applies the snapshot at index (as returned by
// FilterHistory). It refuses out-of-range indexes and snapshots older than
// the staleness window.
func (s *Synchronizer) RestoreFromHistory(index int) bool {
	s.mu.Lock()

	snapshots := s.history.Snapshot()
	if index < 0 || index >= len(snapshots) {
		s.mu.Unlock()
		return false
	}
	snap := snapshots[index]
	if s.timeFunc().Sub(snap.Timestamp) >= s.staleWindow {
		logger.Debug("refusing stale history snapshot", "index", index, "age", s.timeFunc().Sub(snap.Timestamp))
		s.mu.Unlock()
		return false
	}

	changed := diffSearch(s.search, snap.Search)
	changed = append(changed, diffDashboard(s.dashboard, snap.Dashboard.withDefaults())...)

	s.search = snap.Search
	s.dashboard = snap.Dashboard.withDefaults()
	s.persistLocked()

	detection := ChangeDetection{
		HasChanges:                len(changed) > 0,
		ChangedFields:             changed,
		RequiresPaginationReset:   true,
		RequiresCacheInvalidation: containsField(changed, FieldQuery),
		Source:                    SourceRestore,
		Timestamp:                 s.timeFunc(),
	}
	s.emitter.FiltersRestored(index, changed)
	s.mu.Unlock()

	s.notifyNow(detection)
	return true
}

// Close stops the pending debounce timer. Further updates still apply but
// no longer notify subscribers. Close is idempotent.
func (s *Synchronizer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.cancelPendingLocked()
	return nil
}

// recordLocked appends a history snapshot, persists it, logs, and emits the
// change events. Callers must hold mu.
func (s *Synchronizer) recordLocked(detection ChangeDetection) {
	s.history.Push(Snapshot{
		Search:    s.search,
		Dashboard: s.dashboard,
		Timestamp: detection.Timestamp,
		SessionID: s.sessionID,
	})
	s.persistLocked()

	logger.FilterChange(string(detection.Source), detection.ChangedFields, len(detection.Conflicts))
	s.emitter.FiltersChanged(
		string(detection.Source),
		detection.ChangedFields,
		len(detection.Conflicts),
		detection.RequiresPaginationReset,
		detection.RequiresCacheInvalidation,
	)
	for _, c := range detection.Conflicts {
		s.emitter.FiltersConflict(c.Field, string(c.Strategy), c.SearchValue, c.DashboardValue, c.ResolvedValue)
	}
}

// scheduleNotifyLocked arms the single-slot debounce timer, replacing any
// pending notification so only the latest detection is delivered. Callers
// must hold mu.
func (s *Synchronizer) scheduleNotifyLocked(detection ChangeDetection) {
	if s.closed {
		return
	}
	s.pending = detection
	if s.pendingTimer != nil {
		s.pendingTimer.Stop()
	}
	s.pendingTimer = s.afterFunc(s.debounce, s.flushPending)
}

// flushPending delivers the coalesced detection once the debounce window
// passes quiet.
func (s *Synchronizer) flushPending() {
	s.mu.Lock()
	if s.pendingTimer == nil || s.closed {
		s.mu.Unlock()
		return
	}
	detection := s.pending
	s.pendingTimer = nil
	listeners := s.listenersLocked()
	s.mu.Unlock()

	deliver(listeners, detection)
}

// cancelPendingLocked drops any pending debounced notification. Callers
// must hold mu.
func (s *Synchronizer) cancelPendingLocked() {
	if s.pendingTimer != nil {
		s.pendingTimer.Stop()
		s.pendingTimer = nil
	}
}

// notifyNow bypasses the debounce window.
func (s *Synchronizer) notifyNow(detection ChangeDetection) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return
	}
	listeners := s.listenersLocked()
	s.mu.RUnlock()

	deliver(listeners, detection)
}

func (s *Synchronizer) listenersLocked() []func(ChangeDetection) {
	listeners := make([]func(ChangeDetection), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		listeners = append(listeners, fn)
	}
	return listeners
}

func deliver(listeners []func(ChangeDetection), detection ChangeDetection) {
	for _, fn := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("filter subscriber panicked", "panic", r)
				}
			}()
			fn(detection)
		}()
	}
}

// diffSearch lists the search fields whose values differ, in a stable
// order.
func diffSearch(old, next SearchFilters) []string {
	var changed []string
	if old.Query != next.Query {
		changed = append(changed, FieldQuery)
	}
	if old.PostType != next.PostType {
		changed = append(changed, FieldPostType)
	}
	if old.SortBy != next.SortBy {
		changed = append(changed, FieldSortBy)
	}
	if old.TimeRange != next.TimeRange {
		changed = append(changed, FieldTimeRange)
	}
	return changed
}

func diffDashboard(old, next DashboardFilters) []string {
	var changed []string
	if old.PostType != next.PostType {
		changed = append(changed, FieldPostType)
	}
	if old.SortBy != next.SortBy {
		changed = append(changed, FieldSortBy)
	}
	if old.TimeRange != next.TimeRange {
		changed = append(changed, FieldTimeRange)
	}
	return changed
}

func containsField(fields []string, field string) bool {
	for _, f := range fields {
		if f == field {
			return true
		}
	}
	return false
}
