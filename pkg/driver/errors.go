package driver

import (
	"errors"
	"fmt"
)

// ErrStoreUnavailable is matched by every StoreCommunicationError.
var ErrStoreUnavailable = errors.New("graph store unavailable")

// StoreCommunicationError reports a transport or protocol failure talking to
// the graph store.
type StoreCommunicationError struct {
	Op       string
	Provider StoreProvider
	Err      error
}

// Error implements the error interface.
func (e *StoreCommunicationError) Error() string {
	return fmt.Sprintf("%s store %s failed: %v", e.Provider, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *StoreCommunicationError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrStoreUnavailable or another
// StoreCommunicationError.
func (e *StoreCommunicationError) Is(target error) bool {
	if target == ErrStoreUnavailable {
		return true
	}
	_, ok := target.(*StoreCommunicationError)
	return ok
}

func storeError(provider StoreProvider, op string, err error) error {
	if err == nil {
		return nil
	}
	var sce *StoreCommunicationError
	if errors.As(err, &sce) {
		return err
	}
	return &StoreCommunicationError{Op: op, Provider: provider, Err: err}
}
