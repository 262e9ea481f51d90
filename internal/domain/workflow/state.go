package workflow

// State represents a canonical claim lifecycle state
type State string

const (
	StatePending   State = "pending"
	StateApproved  State = "approved"
	StateRejected  State = "rejected"
	StateNeedsInfo State = "needs_info"
	StatePaid      State = "paid"
)

var validStates = map[State]bool{
	StatePending:   true,
	StateApproved:  true,
	StateRejected:  true,
	StateNeedsInfo: true,
	StatePaid:      true,
}

var terminalStates = map[State]bool{
	StateRejected: true,
	StatePaid:     true,
}

// AllStates lists every canonical state in lifecycle order
func AllStates() []State {
	return []State{StatePending, StateNeedsInfo, StateApproved, StateRejected, StatePaid}
}

// IsTerminal returns true if the state is a terminal state (no further transitions allowed)
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid workflow state
func (s State) IsValid() bool {
	return validStates[s]
}
