package adamom

import(
	"errors"
	"fmt"
)

// Recoverable measurement failures. The iteration engine catches these
// and turns them into flags; callers of the lower-level entry points
// can test them with errors.Is.
var(
	ErrSingular  = errors.New("moment matrix is singular or nearly so")
	ErrBounds    = errors.New("region extends outside the frame")
	ErrBadWeight = errors.New("invalid weight parameter(s)")
)

// An InternalError means a converged result violated an invariant
// without any flag explaining why. That is a bug in this package, not
// a property of the data, and it must not be confused with an
// ordinary measurement failure.
type InternalError struct {
	Msg string
}

func (e *InternalError)Error() string { return "adamom internal error: " + e.Msg }

func internalErrorf(format string, args ...interface{}) error {
	return &InternalError{Msg: fmt.Sprintf(format, args...)}
}
