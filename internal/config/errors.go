package config

import (
	"errors"
	"fmt"
)

// ErrMissing marks a queried option that is absent from its section.
var ErrMissing = errors.New("option missing")

// SectionError indicates a queried section does not exist in the file.
type SectionError struct {
	Section string
}

func (e *SectionError) Error() string {
	return fmt.Sprintf("config section %q not found", e.Section)
}

// OptionError indicates a queried option is absent or malformed.
type OptionError struct {
	Section string
	Option  string
	Err     error
}

func (e *OptionError) Error() string {
	return fmt.Sprintf("config option %s.%s: %v", e.Section, e.Option, e.Err)
}

func (e *OptionError) Unwrap() error { return e.Err }
