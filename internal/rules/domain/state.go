package rules

// State is the trigger state of a rule instance.
type State int32

const (
	StateCleared State = iota
	StateTriggered
)

const (
	ReasonTriggered = "triggered"
	ReasonCleared   = "cleared"
)

// StateFor maps an evaluation result to a state.
func StateFor(triggered bool) State {
	if triggered {
		return StateTriggered
	}
	return StateCleared
}

// Reason returns the reason string reported to the host.
func (s State) Reason() string {
	if s == StateTriggered {
		return ReasonTriggered
	}
	return ReasonCleared
}

func (s State) String() string {
	return s.Reason()
}
