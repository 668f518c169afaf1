package updater

import (
	"errors"
	"fmt"
)

// ErrUnknownEntity is wrapped by a LinkError whose match names an identifier
// that is not registered.
var ErrUnknownEntity = errors.New("linker matched an unregistered entity")

// LinkError reports a failed link step for one observation of a batch.
type LinkError struct {
	Index int
	// ID is the identifier returned by the linker, if any.
	ID  string
	Err error
}

// Error implements the error interface.
func (e *LinkError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("link observation %d to %q: %v", e.Index, e.ID, e.Err)
	}
	return fmt.Sprintf("link observation %d: %v", e.Index, e.Err)
}

// Unwrap returns the underlying error.
func (e *LinkError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support for LinkError.
func (e *LinkError) Is(target error) bool {
	_, ok := target.(*LinkError)
	return ok
}
