package linker

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/soundprediction/scenegraph/pkg/types"
)

// PanicError wraps a panic raised inside a linker.
type PanicError struct {
	Value      interface{}
	StackTrace string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("linker panic: %v", e.Value)
}

// Recover wraps l so that a panic in Match is returned as a *PanicError
// instead of unwinding through the caller.
func Recover(l Linker) Linker {
	if _, ok := l.(recovering); ok {
		return l
	}
	return recovering{next: l}
}

type recovering struct {
	next Linker
}

func (r recovering) Match(ctx context.Context, registered []*types.Entity, obs *types.ObservedObject) (res Result, err error) {
	defer func() {
		if v := recover(); v != nil {
			res = Result{}
			err = &PanicError{Value: v, StackTrace: string(debug.Stack())}
		}
	}()
	return r.next.Match(ctx, registered, obs)
}
