// ABOUTME: Error types for hook registration and dispatch
// ABOUTME: DuplicateHookNameError matches ErrDuplicateHookName; DispatchError describes a failed hook run

package hooks

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDuplicateHookName is matched by every *DuplicateHookNameError.
var ErrDuplicateHookName = errors.New("duplicate hook name")

// DuplicateHookNameError is returned by Register for a name already in use.
type DuplicateHookNameError struct {
	Name string
}

func (e *DuplicateHookNameError) Error() string {
	return fmt.Sprintf("hook %q already registered", e.Name)
}

// Is reports whether target is ErrDuplicateHookName.
func (e *DuplicateHookNameError) Is(target error) bool {
	return target == ErrDuplicateHookName
}

// FailureKind classifies a DispatchError.
type FailureKind int

const (
	FailureStart FailureKind = iota
	FailureExit
	FailureTimeout
	FailurePanic
)

// DispatchError reports a hook that could not complete. The session always
// continues after one.
type DispatchError struct {
	Hook     string
	Kind     FailureKind
	ExitCode int
	Stderr   string
	Err      error
}

func (e *DispatchError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "hook %q ", e.Hook)
	switch e.Kind {
	case FailureStart:
		b.WriteString("could not start")
	case FailureExit:
		fmt.Fprintf(&b, "exited with status %d", e.ExitCode)
	case FailureTimeout:
		b.WriteString("timed out")
	case FailurePanic:
		b.WriteString("panicked")
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if s := strings.TrimSpace(e.Stderr); s != "" {
		b.WriteString(": ")
		b.WriteString(s)
	}
	return b.String()
}

func (e *DispatchError) Unwrap() error { return e.Err }
