package lifecycle

// State is the Controller's runtime state. Exactly one State is held at a
// time; StateStopped is terminal.
type State int32

const (
	StateInitializing State = iota + 1
	StateSleeping
	StateIdle
	StateActive
	StateStopRequested
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateSleeping:
		return "sleeping"
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateStopRequested:
		return "stop requested"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// validNext reports whether the state machine permits moving from one state
// to another. Same-state transitions are filtered out before this check.
func validNext(from, to State) bool {
	switch from {
	case StateStopRequested:
		return to == StateStopping || to == StateStopped
	case StateStopping:
		return to == StateStopped
	case StateStopped:
		return false
	case StateSleeping:
		switch to {
		case StateActive, StateIdle, StateStopRequested, StateStopping:
			return true
		}
		return false
	case StateInitializing, StateIdle, StateActive:
		switch to {
		case StateActive, StateIdle, StateSleeping, StateStopRequested, StateStopping:
			return true
		}
		return false
	default:
		return false
	}
}
