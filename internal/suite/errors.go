package suite

import (
	"errors"
	"fmt"
)

// ErrInvalidNum rejects requests asking for a negative shard count.
var ErrInvalidNum = errors.New("num must be non-negative")

// ScheduleError reports a failure to book one suite run.
type ScheduleError struct {
	Suite string
	Board string
	Build string
	Err   error
}

func (e *ScheduleError) Error() string {
	return fmt.Sprintf("scheduling %s on %s for %s: %v", e.Suite, e.Build, e.Board, e.Err)
}

func (e *ScheduleError) Unwrap() error { return e.Err }
