// Package types defines the core data types shared by the scenegraph packages.
//
// This package contains:
//   - Term and Fact: the graph store's persisted representation
//   - Attributes: attribute name to primitive or nested value mapping
//   - Entity: a registered object with a stable identifier
//   - ObservedObject: a transient perception output without identifier
//   - ObservationResult and ProcessResult: per-batch outcomes
//
// # Values
//
// Attribute values are primitives (string, float64, int64, bool) or a nested
// Attributes for composite attributes:
//
//	obs := types.NewObservedObject(types.Attributes{
//		"hasType":    "Cup",
//		"hasVersion": "Ceramic Cup",
//		"hasPosition": types.Attributes{"x": 1.0, "y": 1.0, "z": 1.0},
//	})
//
// # Validation
//
// Entity provides Validate() for required fields. Schema conformance is
// checked by the codec package, which owns the class schema.
package types
