package manifestversions

import (
	"errors"
	"fmt"
)

// ErrNotPrepared is returned when the watcher is queried before Prepare.
var ErrNotPrepared = errors.New("manifest versions checkout not prepared")

// QueryError indicates a git operation against the checkout failed.
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("manifest versions %s: %v", e.Op, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }
