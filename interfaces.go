package scenegraph

import (
	"context"

	"github.com/soundprediction/scenegraph/pkg/schema"
	"github.com/soundprediction/scenegraph/pkg/types"
)

// This file defines focused interfaces that follow the Interface Segregation Principle.
// The main Scenegraph interface is composed from these smaller interfaces.
// Consumers should depend on the smallest interface that meets their needs.

// ObservationProcessor submits observations to the registry.
// Use this interface when you only feed perception output.
type ObservationProcessor interface {
	// Process links each observation to a registered entity or registers it
	// under a fresh identifier, committing one atomic upsert per observation.
	Process(ctx context.Context, batch []*types.ObservedObject) (*types.ProcessResult, error)
}

// RegistryReader provides read-only access to registered entities.
type RegistryReader interface {
	// Entities returns every registered entity and the stored entities that
	// could not be reconstructed.
	Entities(ctx context.Context) ([]*types.Entity, []error, error)

	// Entity returns one registered entity, or an error matching
	// ErrEntityNotFound.
	Entity(ctx context.Context, id string) (*types.Entity, error)
}

// SchemaProvider exposes the reflected class schema.
type SchemaProvider interface {
	Schema() *schema.ClassSchema
}

// Ensure Client implements all interfaces
var (
	_ Scenegraph           = (*Client)(nil)
	_ ObservationProcessor = (*Client)(nil)
	_ RegistryReader       = (*Client)(nil)
	_ SchemaProvider       = (*Client)(nil)
)
