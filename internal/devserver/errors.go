package devserver

import (
	"errors"
	"fmt"
)

// ErrEmptyResponse marks a lookup that returned no artifact id.
var ErrEmptyResponse = errors.New("empty devserver response")

// ErrEmptyPool is returned when a pool is created without servers.
var ErrEmptyPool = errors.New("devserver pool has no servers")

// LookupError indicates a latest-build key could not be resolved.
type LookupError struct {
	Server string
	Key    string
	Err    error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("lookup %q on %s: %v", e.Key, e.Server, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }
