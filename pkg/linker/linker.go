// Package linker decides whether an observation corresponds to an entity
// that is already registered.
package linker

import (
	"context"
	"fmt"
	"reflect"

	"github.com/soundprediction/scenegraph/pkg/types"
)

// Result is the outcome of a Match call. ID is set only when Matched is true
// and must name one of the registered entities.
type Result struct {
	Matched bool
	ID      string
}

// Linker matches an observation against the registered entities. The
// observation's attributes are already normalized against the class schema.
type Linker interface {
	Match(ctx context.Context, registered []*types.Entity, obs *types.ObservedObject) (Result, error)
}

// Func adapts an ordinary function to the Linker interface.
type Func func(ctx context.Context, registered []*types.Entity, obs *types.ObservedObject) (Result, error)

// Match calls f.
func (f Func) Match(ctx context.Context, registered []*types.Entity, obs *types.ObservedObject) (Result, error) {
	return f(ctx, registered, obs)
}

// NoMatch treats every observation as a new object.
type NoMatch struct{}

// Match implements Linker.
func (NoMatch) Match(ctx context.Context, registered []*types.Entity, obs *types.ObservedObject) (Result, error) {
	return Result{}, nil
}

// Exact matches an observation to the first registered entity, in the order
// given, whose attributes are all equal to the observation's. It makes a
// replayed observation idempotent and is not a similarity heuristic.
type Exact struct{}

// Match implements Linker.
func (Exact) Match(ctx context.Context, registered []*types.Entity, obs *types.ObservedObject) (Result, error) {
	if obs == nil {
		return Result{}, fmt.Errorf("observation is nil")
	}
	for _, e := range registered {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if e != nil && reflect.DeepEqual(e.Attributes, obs.Attributes) {
			return Result{Matched: true, ID: e.ID}, nil
		}
	}
	return Result{}, nil
}

const (
	ModeExact = "exact"
	ModeNone  = "none"
)

// New returns the built-in linker for a configuration mode.
func New(mode string) (Linker, error) {
	switch mode {
	case ModeExact, "":
		return Exact{}, nil
	case ModeNone:
		return NoMatch{}, nil
	default:
		return nil, fmt.Errorf("unknown linker mode %q (want %s or %s)", mode, ModeExact, ModeNone)
	}
}
