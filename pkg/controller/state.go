package controller

// State represents the current step of a restart invocation
type State string

const (
	StateIdle                State = "idle"
	StateUpdating            State = "updating"
	StateDependencyResolving State = "dependency_resolving"
	StateDiscovering         State = "discovering"
	StateTerminating         State = "terminating"
	StateDraining            State = "draining"
	StateLaunching           State = "launching"
	StateConfirmed           State = "confirmed"
	StateFailed              State = "failed"
)

// stateTransitions encodes the restart procedure:
// Idle -> Updating -> DependencyResolving -> Discovering ->
// {Terminating -> Draining} -> Launching -> Confirmed | Failed.
// Discovering may skip straight to Launching when nothing is running.
// Idle -> Discovering covers dry runs, which stop after discovery.
var stateTransitions = map[State][]State{
	StateIdle:                {StateUpdating, StateDiscovering},
	StateUpdating:            {StateDependencyResolving, StateFailed},
	StateDependencyResolving: {StateDiscovering, StateFailed},
	StateDiscovering:         {StateTerminating, StateLaunching, StateFailed},
	StateTerminating:         {StateDraining, StateFailed},
	StateDraining:            {StateLaunching, StateFailed},
	StateLaunching:           {StateConfirmed, StateFailed},
	StateConfirmed:           {},
	StateFailed:              {},
}

// CanTransition reports whether the restart procedure allows moving from
// one state to another
func CanTransition(from, to State) bool {
	for _, allowed := range stateTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the state ends the invocation
func (s State) IsTerminal() bool {
	return s == StateConfirmed || s == StateFailed
}
