package updater

import (
	"fmt"
	"math"
	"strconv"

	"github.com/google/uuid"

	"github.com/soundprediction/scenegraph/pkg/types"
)

// Allocator mints identifiers for observations that matched no registered
// entity. taken holds every identifier in use: registered entities, entities
// excluded by the fetch and identifiers allocated earlier in the batch. The
// returned identifier must not be in taken.
type Allocator interface {
	Allocate(registered []*types.Entity, taken map[string]struct{}) (string, error)
}

// Sequential allocates one more than the largest numeric identifier in use,
// starting at 1. Non-numeric identifiers are ignored.
type Sequential struct{}

// Allocate implements Allocator.
func (Sequential) Allocate(registered []*types.Entity, taken map[string]struct{}) (string, error) {
	var highest uint64
	consider := func(id string) {
		if n, err := strconv.ParseUint(id, 10, 64); err == nil && n > highest {
			highest = n
		}
	}
	for id := range taken {
		consider(id)
	}
	for _, e := range registered {
		consider(e.ID)
	}
	if highest == math.MaxUint64 {
		return "", fmt.Errorf("sequential identifiers exhausted")
	}
	return strconv.FormatUint(highest+1, 10), nil
}

// UUID allocates time-ordered UUIDv7 identifiers, which stay distinct across
// independent writers.
type UUID struct{}

// Allocate implements Allocator.
func (UUID) Allocate(registered []*types.Entity, taken map[string]struct{}) (string, error) {
	for {
		id, err := uuid.NewV7()
		if err != nil {
			return "", fmt.Errorf("failed to generate identifier: %w", err)
		}
		if _, dup := taken[id.String()]; !dup {
			return id.String(), nil
		}
	}
}

const (
	AllocatorSequential = "sequential"
	AllocatorUUID       = "uuid"
)

// NewAllocator returns the allocator for a configuration name.
func NewAllocator(name string) (Allocator, error) {
	switch name {
	case AllocatorSequential, "":
		return Sequential{}, nil
	case AllocatorUUID:
		return UUID{}, nil
	default:
		return nil, fmt.Errorf("unknown allocator %q (want %s or %s)", name, AllocatorSequential, AllocatorUUID)
	}
}
