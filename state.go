package rewind

import "fmt"

// State is the session's position in its lifecycle.
//
// Running and Stalled alternate during normal play.
// RollingBack is only observable from within a step callback,
// since replay completes before AdvanceFrame returns.
// Disconnected is terminal.
type State uint8

const (
	StateRunning State = iota
	StateStalled
	StateRollingBack
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "Running"
	case StateStalled:
		return "Stalled"
	case StateRollingBack:
		return "RollingBack"
	case StateDisconnected:
		return "Disconnected"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}
