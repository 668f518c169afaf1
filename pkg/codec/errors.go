package codec

import (
	"fmt"
	"strings"
)

// SchemaMismatchError reports an attribute set that does not match the class
// schema. Nested attributes are named with a dot, e.g. "hasPosition.x".
type SchemaMismatchError struct {
	Class      string
	Missing    []string
	Unexpected []string
	Invalid    []string
}

// Error implements the error interface.
func (e *SchemaMismatchError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if len(e.Unexpected) > 0 {
		parts = append(parts, "unexpected "+strings.Join(e.Unexpected, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid "+strings.Join(e.Invalid, "; "))
	}
	return fmt.Sprintf("attributes do not match class %s: %s", e.Class, strings.Join(parts, "; "))
}

// Is implements errors.Is support for SchemaMismatchError.
func (e *SchemaMismatchError) Is(target error) bool {
	_, ok := target.(*SchemaMismatchError)
	return ok
}

func (e *SchemaMismatchError) empty() bool {
	return len(e.Missing) == 0 && len(e.Unexpected) == 0 && len(e.Invalid) == 0
}

// IncompleteEntityError reports a stored entity that cannot be reconstructed.
// The entity is excluded from decode results.
type IncompleteEntityError struct {
	Class   string
	Subject string
	// ID is empty when the subject IRI does not carry an identifier.
	ID       string
	Missing  []string
	Problems []string
}

// Error implements the error interface.
func (e *IncompleteEntityError) Error() string {
	msg := fmt.Sprintf("incomplete %s entity <%s>", e.Class, e.Subject)
	if len(e.Missing) > 0 {
		msg += ": missing " + strings.Join(e.Missing, ", ")
	}
	if len(e.Problems) > 0 {
		msg += ": " + strings.Join(e.Problems, "; ")
	}
	return msg
}

// Is implements errors.Is support for IncompleteEntityError.
func (e *IncompleteEntityError) Is(target error) bool {
	_, ok := target.(*IncompleteEntityError)
	return ok
}

func (e *IncompleteEntityError) empty() bool {
	return len(e.Missing) == 0 && len(e.Problems) == 0
}
