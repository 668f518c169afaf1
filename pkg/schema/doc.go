// Package schema reflects entity class definitions from a schema document.
//
// A schema document is an ontology graph (Turtle, N-Triples, RDF/XML or the
// compact YAML form) declaring classes and the properties whose rdfs:domain
// is each class. Reflect turns one class of such a document into a
// ClassSchema, the read-only description the codec uses to translate
// entities to facts and back.
//
// # Attribute kinds
//
// Each attribute has one of three kinds, decided from its rdfs:range:
//   - Scalar: an XSD primitive (string, float, double, integer, boolean)
//   - Composite: a class with attributes of its own, stored as a nested subject
//   - Reference: a class without attributes, whose values are named individuals
//
// Nesting stops at two levels: an entity may hold nested value objects, whose
// fields must be Scalar or Reference.
//
// # Usage
//
//	doc, err := schema.LoadFile("scene_objects.ttl")
//	if err != nil {
//		return err
//	}
//	class, err := schema.Reflect(doc, "SceneObject")
//
// Blueprint builds the default scene object schema in memory, and WriteTurtle
// serializes any document.
package schema
