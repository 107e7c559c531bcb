package event

import (
	"errors"
	"fmt"
)

var (
	// ErrKeywordMismatch is returned by Merge when the two events do not
	// share a keyword.
	ErrKeywordMismatch = errors.New("event keywords differ")

	// ErrLaunchControlUnconfigured is returned when a latest-build lookup is
	// attempted on an event constructed without WithLaunchControl.
	ErrLaunchControlUnconfigured = errors.New("launch control not configured")
)

// RunError wraps a task failure during dispatch. It aborts the Handle call
// that produced it; remaining candidates stay undispatched.
type RunError struct {
	Op    string // "host check" or "run"
	Event string
	Task  string
	Board string
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("event %s: %s failed for task %s on %s: %v", e.Event, e.Op, e.Task, e.Board, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }
