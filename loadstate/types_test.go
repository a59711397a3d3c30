package loadstate

import "testing"

func TestState_Known(t *testing.T) {
	known := []State{
		StateIdle,
		StateLoadingServer,
		StateLoadingClient,
		StateAutoFetching,
		StateComplete,
		StateError,
	}
	for _, s := range known {
		if !s.Known() {
			t.Errorf("expected %q to be a known state", s)
		}
	}

	unknown := []State{"", "pending", "loading", "IDLE", "complete "}
	for _, s := range unknown {
		if s.Known() {
			t.Errorf("expected %q to be unknown", s)
		}
	}
}

func TestState_String(t *testing.T) {
	if got := StateLoadingServer.String(); got != "loading-server" {
		t.Errorf("expected loading-server, got %q", got)
	}
	if got := StateAutoFetching.String(); got != "auto-fetching" {
		t.Errorf("expected auto-fetching, got %q", got)
	}
}

func TestTransitionTable(t *testing.T) {
	allowed := map[State][]State{
		StateIdle:          {StateLoadingServer, StateLoadingClient, StateAutoFetching, StateComplete},
		StateLoadingServer: {StateIdle, StateComplete, StateError},
		StateLoadingClient: {StateIdle, StateComplete, StateError},
		StateAutoFetching:  {StateIdle, StateComplete, StateError},
		StateComplete:      {StateIdle, StateLoadingServer, StateLoadingClient, StateAutoFetching},
		StateError:         {StateIdle, StateLoadingServer, StateLoadingClient, StateAutoFetching},
	}

	all := []State{
		StateIdle,
		StateLoadingServer,
		StateLoadingClient,
		StateAutoFetching,
		StateComplete,
		StateError,
	}

	for from, targets := range allowed {
		allowedSet := make(map[State]bool, len(targets))
		for _, to := range targets {
			allowedSet[to] = true
		}
		for _, to := range all {
			got := from.reachable(to)
			if want := allowedSet[to]; got != want {
				t.Errorf("reachable(%s -> %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestTransitionTable_NoSelfLoops(t *testing.T) {
	for from := range transitionTable {
		if from.reachable(from) {
			t.Errorf("state %q must not transition to itself", from)
		}
	}
}

func TestTransitionTable_UnknownStatesUnreachable(t *testing.T) {
	if StateIdle.reachable("warp") {
		t.Error("unknown target must not be reachable")
	}
	if State("warp").reachable(StateIdle) {
		t.Error("unknown source must not reach anything")
	}
}
