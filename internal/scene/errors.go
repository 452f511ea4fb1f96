package scene

import (
	"errors"
	"fmt"
)

// ConfigurationError marks an item that cannot be displayed at all.
// The item renders nothing; other items are unaffected.
type ConfigurationError struct {
	Label  string
	Reason string
	Colors int
	URLs   int
	Err    error
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("invalid item %q: %s", e.Label, e.Reason)
	if e.Colors != e.URLs {
		msg += fmt.Sprintf(" (%d colors, %d urls)", e.Colors, e.URLs)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// ErrEmptyPointSet is reported for assets that parse but carry no vertices
var ErrEmptyPointSet = errors.New("point set has no vertices")

// PanicError carries a panic raised while loading or building a slot
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
