// Package scenegraph provides a schema-driven registry of scene objects for Go.
//
// Scenegraph keeps track of the physical objects a perception pipeline
// observes (each with a type, a model version, a 3D position and an
// orientation) inside a graph store. Object structure is not hard-coded: it
// is reflected from a schema document at startup and drives both how
// objects are written to the store and how they are read back.
//
// # Basic Usage
//
//	// Open an embedded store
//	store, err := driver.NewBadgerDriver(driver.BadgerConfig{Path: "./scenegraph_db"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer store.Close(ctx)
//
//	// Reflect the entity class from the schema
//	doc, err := schema.LoadFile("scene.ttl")
//	if err != nil {
//		log.Fatal(err)
//	}
//	class, err := schema.Reflect(doc, "SceneObject")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	client, err := scenegraph.NewClient(store, class, linker.Exact{}, nil, nil)
//
// # Processing Observations
//
// Each observation is linked to a registered entity or registered under a
// fresh identifier, then written with one atomic upsert:
//
//	result, err := client.Process(ctx, []*types.ObservedObject{
//		types.NewObservedObject(types.Attributes{
//			"hasType":        "Cup",
//			"hasVersion":     "Ceramic Cup",
//			"hasPosition":    types.Attributes{"x": 1.0, "y": 1.0, "z": 1.0},
//			"hasOrientation": types.Attributes{"qx": 0.1, "qy": 0.1, "qz": 0.1, "qw": 0.1},
//		}),
//	})
//
// Observations that do not match the schema are rejected without reaching
// the store. A store failure while fetching the registry aborts the batch;
// a failure while committing one observation fails only that observation.
//
// # Error Handling
//
// The library provides typed errors for common scenarios:
//
//   - schema.SchemaError: the schema cannot describe the class
//   - codec.SchemaMismatchError: an observation does not fit the class
//   - codec.IncompleteEntityError: a stored entity cannot be reconstructed
//   - driver.StoreCommunicationError: the graph store could not be reached
//   - updater.LinkError: the linker failed or named an unknown entity
//   - ErrEntityNotFound: returned by Entity for unknown identifiers
//
// # Architecture
//
//   - pkg/schema: schema documents and class reflection
//   - pkg/codec: entity to fact translation and back
//   - pkg/driver: graph store clients (SPARQL, Neo4j, Badger)
//   - pkg/linker: observation to entity matching
//   - pkg/updater: the observation update loop
//   - pkg/types: core type definitions
package scenegraph
