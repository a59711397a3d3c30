// Package loadstate implements the state machine that guards load-more
// pagination in an infinite-scroll feed.
//
// The machine tracks which kind of load is in progress (server page,
// client-side expansion, or automatic prefetch), rejects transitions the
// fixed table does not allow, and trips a circuit breaker after repeated
// errors so a failing backend cannot drive an endless fetch loop. State
// survives page reloads through an optional storage slot.
package loadstate

import (
	"context"
	"sync"
	"time"

	"github.com/CrescendoLabs/FeedKit/events"
	"github.com/CrescendoLabs/FeedKit/hooks"
	"github.com/CrescendoLabs/FeedKit/logger"
	"github.com/CrescendoLabs/FeedKit/ringbuf"
	"github.com/CrescendoLabs/FeedKit/storage"
)

const (
	// historyCap bounds the transition history.
	historyCap = 50

	// defaultErrorBudget is how many error entries are allowed before the
	// circuit breaker forces recovery.
	defaultErrorBudget = 5

	// defaultErrorCooldown is how long after the last error a successful
	// non-error transition clears the error counter.
	defaultErrorCooldown = 5 * time.Minute

	// heuristicWindow is how many recent transitions the validation
	// heuristics inspect.
	heuristicWindow = 10
)

// Rejection causes carried on load.rejected events.
const (
	causeInvalidTransition = "invalid-transition"
	causeBudgetExhausted   = "budget-exhausted"
)

// Machine is the load-more state machine. All methods are safe for
// concurrent use.
type Machine struct {
	mu          sync.Mutex
	current     State
	lastValid   State
	history     *ringbuf.Buffer[TransitionRecord]
	sequence    int
	errorCount  int
	lastErrorAt time.Time

	errorBudget   int
	errorCooldown time.Duration
	timeFunc      func() time.Time

	store      storage.Store
	storageKey string
	sessionID  string

	emitter *events.Emitter
	hookReg *hooks.Registry
}

// Option configures a Machine during construction.
type Option func(*Machine)

// WithStore persists machine state into the given storage slot on every
// mutation and restores it at construction.
func WithStore(store storage.Store, key string) Option {
	return func(m *Machine) {
		m.store = store
		m.storageKey = key
	}
}

// WithSessionID tags persisted snapshots and emitted events.
func WithSessionID(id string) Option {
	return func(m *Machine) {
		m.sessionID = id
	}
}

// WithEmitter publishes machine lifecycle events through an emitter.
func WithEmitter(emitter *events.Emitter) Option {
	return func(m *Machine) {
		m.emitter = emitter
	}
}

// WithHooks runs registered transition hooks after accepted transitions.
// Hook errors are logged and do not undo the transition.
func WithHooks(reg *hooks.Registry) Option {
	return func(m *Machine) {
		m.hookReg = reg
	}
}

// WithErrorBudget overrides the error budget. Values below 1 are ignored.
func WithErrorBudget(n int) Option {
	return func(m *Machine) {
		if n > 0 {
			m.errorBudget = n
		}
	}
}

// WithErrorCooldown overrides the error counter cooldown window.
func WithErrorCooldown(d time.Duration) Option {
	return func(m *Machine) {
		if d > 0 {
			m.errorCooldown = d
		}
	}
}

// WithTimeFunc overrides the time source. Tests use this to control the
// cooldown clock.
func WithTimeFunc(fn func() time.Time) Option {
	return func(m *Machine) {
		if fn != nil {
			m.timeFunc = fn
		}
	}
}

// New creates a machine in StateIdle. When a store is configured and holds
// a valid snapshot, the persisted state is restored instead.
func New(opts ...Option) *Machine {
	m := &Machine{
		current:       StateIdle,
		lastValid:     StateIdle,
		history:       ringbuf.New[TransitionRecord](historyCap),
		errorBudget:   defaultErrorBudget,
		errorCooldown: defaultErrorCooldown,
		timeFunc:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.store != nil {
		m.restore()
	}
	return m
}

// CurrentState returns the current state.
func (m *Machine) CurrentState() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// LastValidState returns the last non-error state.
func (m *Machine) LastValidState() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastValid
}

// CanTransition reports whether target is reachable from the current state.
func (m *Machine) CanTransition(target State) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.reachable(target)
}

// Transition applies a transition to target. It returns false, leaving the
// state unchanged, when the table does not allow the move. Entering
// StateError with the error budget exhausted trips the circuit breaker
// instead: the machine force-recovers to StateIdle and the requested
// transition still reports false.
func (m *Machine) Transition(target State, reason string, metadata map[string]any) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.current.reachable(target) {
		logger.TransitionRejected(string(m.current), string(target), causeInvalidTransition)
		m.emitter.LoadRejected(string(m.current), string(target), causeInvalidTransition)
		return false
	}

	if target == StateError && m.errorCount >= m.errorBudget {
		logger.TransitionRejected(string(m.current), string(target), causeBudgetExhausted,
			"error_count", m.errorCount)
		m.emitter.LoadRejected(string(m.current), string(target), causeBudgetExhausted)
		m.emitter.BudgetExhausted(m.errorCount, m.errorCooldown)
		m.forceRecoveryLocked()
		return false
	}

	m.applyLocked(target, reason, metadata)
	return true
}

// ForceRecovery unconditionally resets the machine to StateIdle and clears
// the error counter. The forced move is recorded in history.
func (m *Machine) ForceRecovery() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forceRecoveryLocked()
}

// RecoverToLastValid restores the current state to the last non-error
// state. Already being aligned counts as success.
func (m *Machine) RecoverToLastValid() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == m.lastValid {
		return true
	}

	from := m.current
	m.applyRecordLocked(m.lastValid, "recover-to-last-valid", nil)
	logger.Transition(string(from), string(m.current), "recover-to-last-valid")
	m.emitter.LoadRecovered("last-valid", string(from), string(m.current))
	return true
}

// Validate checks the machine's structural health and scans recent history
// for suspicious patterns. Heuristic findings are warnings, not failures.
func (m *Machine) Validate() ValidationResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := ValidationResult{Valid: true}

	if !m.current.Known() {
		result.Valid = false
		result.Errors = append(result.Errors, "current state "+string(m.current)+" is not in the transition table")
	}
	if !m.lastValid.Known() {
		result.Valid = false
		result.Errors = append(result.Errors, "last valid state "+string(m.lastValid)+" is not in the transition table")
	}
	if m.errorCount >= m.errorBudget {
		result.Warnings = append(result.Warnings, "error budget exhausted")
	}

	recent := m.history.Last(heuristicWindow)
	fromIdle := 0
	touchError := 0
	for _, record := range recent {
		if record.From == StateIdle {
			fromIdle++
		}
		if record.From == StateError || record.To == StateError {
			touchError++
		}
	}
	if fromIdle >= 4 {
		result.Warnings = append(result.Warnings, "possible idle cycling: repeated transitions out of idle")
	}
	if touchError >= 2 {
		result.Warnings = append(result.Warnings, "rapid error cycling in recent transitions")
	}

	return result
}

// IsLoading reports whether any load is in progress.
func (m *Machine) IsLoading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.current {
	case StateLoadingServer, StateLoadingClient, StateAutoFetching:
		return true
	default:
		return false
	}
}

// CanLoadMore reports whether a new load could be started.
func (m *Machine) CanLoadMore() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.current {
	case StateIdle, StateComplete, StateError:
		return true
	default:
		return false
	}
}

// Reset returns the machine to construction defaults, clearing history and
// the error counter.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	from := m.current
	m.current = StateIdle
	m.lastValid = StateIdle
	m.history.Clear()
	m.sequence = 0
	m.errorCount = 0
	m.lastErrorAt = time.Time{}
	m.persistLocked()

	m.emitter.LoadReset(string(from))
}

// History returns a copy of the transition history, oldest first.
func (m *Machine) History() []TransitionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history.Snapshot()
}

// ErrorCount returns the number of error entries since the counter was
// last cleared.
func (m *Machine) ErrorCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errorCount
}

// BudgetExhausted reports whether the next error entry would trip the
// circuit breaker.
func (m *Machine) BudgetExhausted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errorCount >= m.errorBudget
}

// Close flushes a final snapshot to storage. The machine stays usable; a
// separate close state is not tracked because no timers are held.
func (m *Machine) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persistLocked()
	return nil
}

// applyLocked performs an accepted transition. Callers must hold mu.
func (m *Machine) applyLocked(target State, reason string, metadata map[string]any) {
	now := m.timeFunc()
	from := m.current

	if target == StateError {
		m.errorCount++
		m.lastErrorAt = now
	} else if m.errorCount > 0 && !m.lastErrorAt.IsZero() && now.Sub(m.lastErrorAt) >= m.errorCooldown {
		m.errorCount = 0
	}

	m.applyRecordLocked(target, reason, metadata)

	logger.Transition(string(from), string(target), reason, "sequence", m.sequence)
	m.emitter.LoadTransitioned(string(from), string(target), reason, m.sequence)

	if m.hookReg != nil {
		event := hooks.TransitionEvent{
			SessionID: m.sessionID,
			From:      string(from),
			To:        string(target),
			Reason:    reason,
			Sequence:  m.sequence,
			Metadata:  metadata,
		}
		if err := m.hookReg.RunOnTransition(context.Background(), event); err != nil {
			logger.Warn("transition hook failed", "error", err, "to", string(target))
		}
	}
}

// applyRecordLocked moves the state, appends history, and persists.
// Callers must hold mu.
func (m *Machine) applyRecordLocked(target State, reason string, metadata map[string]any) {
	record := TransitionRecord{
		From:      m.current,
		To:        target,
		Reason:    reason,
		Timestamp: m.timeFunc(),
		Metadata:  copyMetadata(metadata),
	}

	m.current = target
	if target != StateError {
		m.lastValid = target
	}
	m.sequence++
	m.history.Push(record)
	m.persistLocked()
}

// forceRecoveryLocked resets to idle and clears the error counter.
// Callers must hold mu.
func (m *Machine) forceRecoveryLocked() {
	from := m.current
	m.errorCount = 0
	m.lastErrorAt = time.Time{}
	m.applyRecordLocked(StateIdle, "forced-recovery", nil)

	logger.Transition(string(from), string(StateIdle), "forced-recovery")
	m.emitter.LoadRecovered("forced", string(from), string(StateIdle))
}

func copyMetadata(metadata map[string]any) map[string]any {
	if metadata == nil {
		return nil
	}
	out := make(map[string]any, len(metadata))
	for k, v := range metadata {
		out[k] = v
	}
	return out
}
