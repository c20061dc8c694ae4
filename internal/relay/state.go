// ABOUTME: Relay lifecycle states and the errors Run returns
// ABOUTME: ErrStartup marks failures before the relay loop began; IOError ends a running session

package relay

import (
	"errors"
	"fmt"
)

// State is the relay's lifecycle state.
type State int

const (
	StateRunning State = iota
	// StatePopup: a popup owns the keyboard; output relay continues.
	StatePopup
	// StateAwaitingAssistant: an assistant request is in flight.
	StateAwaitingAssistant
	StateShuttingDown
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StatePopup:
		return "popup"
	case StateAwaitingAssistant:
		return "awaiting-assistant"
	case StateShuttingDown:
		return "shutting-down"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrStartup wraps every failure that prevents the relay from starting:
// raw mode, spawning the shell, invalid configuration.
var ErrStartup = errors.New("startup failed")

func startupError(stage string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStartup, stage, err)
}

// IOError is an unexpected read or write failure on stdin, stdout or the
// PTY master. The session is shut down in order when it occurs.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("relay %s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
