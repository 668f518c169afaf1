package types

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
)

// Validation errors
var (
	ErrEmptyID      = errors.New("id cannot be empty")
	ErrInvalidID    = errors.New("id may only contain letters, digits, '.', '_' and '-'")
	ErrEmptyClass   = errors.New("class cannot be empty")
	ErrNilAttribute = errors.New("attributes cannot be nil")
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// ValidateID checks that an identifier can be embedded in a subject IRI.
func ValidateID(id string) error {
	if id == "" {
		return ErrEmptyID
	}
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// Attributes maps attribute names to values. A value is either a primitive
// (string, float64, int64, bool) or a nested Attributes for composite attributes.
type Attributes map[string]any

// Names returns the attribute names in sorted order.
func (a Attributes) Names() []string {
	names := make([]string, 0, len(a))
	for name := range a {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy of the attribute map.
func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	out := make(Attributes, len(a))
	for k, v := range a {
		switch nested := v.(type) {
		case Attributes:
			out[k] = nested.Clone()
		case map[string]any:
			out[k] = Attributes(nested).Clone()
		default:
			out[k] = v
		}
	}
	return out
}

// Entity is one tracked physical object instance.
type Entity struct {
	ID         string     `json:"id"`
	Class      string     `json:"class"`
	Attributes Attributes `json:"attributes"`
}

// Validate checks if the Entity has all required fields set.
func (e *Entity) Validate() error {
	if err := ValidateID(e.ID); err != nil {
		return err
	}
	if e.Class == "" {
		return ErrEmptyClass
	}
	if e.Attributes == nil {
		return ErrNilAttribute
	}
	return nil
}

// ObservedObject is an object description produced by the perception
// pipeline. It has the shape of an Entity's attributes but no identifier.
type ObservedObject struct {
	Attributes Attributes `json:"attributes"`
}

// NewObservedObject wraps an attribute map.
func NewObservedObject(attrs Attributes) *ObservedObject {
	return &ObservedObject{Attributes: attrs}
}

// ContextKey is the type for context keys set by the HTTP and CLI surfaces.
type ContextKey string

const (
	// ContextKeyBatchID identifies the observation batch being processed
	ContextKeyBatchID ContextKey = "batch_id"
	// ContextKeyRequestSource records which surface submitted the batch (server, cli)
	ContextKeyRequestSource ContextKey = "request_source"
)
