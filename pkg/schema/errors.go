package schema

import "fmt"

// SchemaError reports a malformed schema document. It is fatal at startup.
type SchemaError struct {
	Class     string
	Attribute string
	Reason    string
	Err       error
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	msg := "schema error"
	if e.Class != "" {
		msg += " in class " + e.Class
	}
	if e.Attribute != "" {
		msg += fmt.Sprintf(" (attribute %s)", e.Attribute)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *SchemaError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support for SchemaError.
func (e *SchemaError) Is(target error) bool {
	_, ok := target.(*SchemaError)
	return ok
}
