package platform

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPlatform means the platform has no transport identity at
	// all. The condition is permanent for that instance.
	ErrInvalidPlatform = errors.New("invalid platform")

	// ErrNotConnected means the identity is valid but no session is
	// established. Distinct from ErrInvalidPlatform so callers can tell
	// "never configured" apart from "configured but offline".
	ErrNotConnected = errors.New("not connected")
)

// PreconditionError reports a failure detected locally before any transport
// call, such as a missing source file or an empty command.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return e.Reason
}

// preconditionf builds a PreconditionError from a format string.
func preconditionf(format string, args ...any) *PreconditionError {
	return &PreconditionError{Reason: fmt.Sprintf(format, args...)}
}
