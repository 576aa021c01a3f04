package core

import "fmt"

// State is the lifecycle state of a Controller. The only transitions are
// Stopped → Starting → Running → Stopping → Stopped, plus Starting → Stopped
// when a start fails.
type State int

const (
	StateStopped State = iota // zero value
	StateStarting
	StateRunning
	StateStopping
)

// String returns the name of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}
