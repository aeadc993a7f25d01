package dgt

// State is the supervisor's connection state.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateDisconnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Event names passed to Connection.On.
const (
	EventConnected     = "connected"
	EventDisconnected  = "disconnected"
	EventBoard         = "board"
	EventClock         = "clock"
	EventButtonPressed = "button_pressed"
)
