package transfer

// State is the lifecycle stage of a Job.
type State string

const (
	StateInitializing     State = "initializing"
	StateFormatResolved   State = "format_resolved"
	StateDestinationReady State = "destination_ready"
	StateTransferring     State = "transferring"
	StateCompleted        State = "completed"
	StateFailed           State = "failed"
	StateCancelled        State = "cancelled"
)

func (s State) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is possible.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// transitions lists the states reachable from each non-terminal state.
// Every non-terminal state may fail or be cancelled.
var transitions = map[State]State{
	StateInitializing:     StateFormatResolved,
	StateFormatResolved:   StateDestinationReady,
	StateDestinationReady: StateTransferring,
	StateTransferring:     StateCompleted,
}

func canTransition(from, to State) bool {
	if from.IsTerminal() {
		return false
	}
	if to == StateFailed || to == StateCancelled {
		return true
	}
	return transitions[from] == to
}
