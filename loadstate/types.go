package loadstate

import "time"

// State is a load-more lifecycle state.
type State string

// The complete state vocabulary. StateIdle is the initial state; there is
// no terminal state, the machine runs for the life of a feed session.
const (
	StateIdle          State = "idle"
	StateLoadingServer State = "loading-server"
	StateLoadingClient State = "loading-client"
	StateAutoFetching  State = "auto-fetching"
	StateComplete      State = "complete"
	StateError         State = "error"
)

// transitionTable is the fixed reachability table. It is not configurable;
// every instance shares the same shape.
var transitionTable = map[State][]State{
	StateIdle:          {StateLoadingServer, StateLoadingClient, StateAutoFetching, StateComplete},
	StateLoadingServer: {StateIdle, StateComplete, StateError},
	StateLoadingClient: {StateIdle, StateComplete, StateError},
	StateAutoFetching:  {StateIdle, StateComplete, StateError},
	StateComplete:      {StateIdle, StateLoadingServer, StateLoadingClient, StateAutoFetching},
	StateError:         {StateIdle, StateLoadingServer, StateLoadingClient, StateAutoFetching},
}

// Known reports whether s is a key of the transition table.
func (s State) Known() bool {
	_, ok := transitionTable[s]
	return ok
}

func (s State) String() string {
	return string(s)
}

// reachable reports whether target is listed under s in the table.
func (s State) reachable(target State) bool {
	for _, t := range transitionTable[s] {
		if t == target {
			return true
		}
	}
	return false
}

// TransitionRecord is one accepted transition, oldest first in history.
type TransitionRecord struct {
	From      State          `json:"from"`
	To        State          `json:"to"`
	Reason    string         `json:"reason,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ValidationResult reports structural and heuristic checks over a machine.
// Warnings flag suspicious transition patterns; only Errors make the
// machine invalid.
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}
