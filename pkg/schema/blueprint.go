package schema

import (
	"fmt"

	"github.com/soundprediction/scenegraph/pkg/types"
)

// DefaultNamespace is the namespace of the scene object vocabulary.
const DefaultNamespace = "http://example.org/ontology#"

// DefaultClass is the entity class tracked by the registry.
const DefaultClass = "SceneObject"

// Orientation selects the orientation representation of the blueprint.
type Orientation string

const (
	// OrientationQuaternion declares qx, qy, qz, qw relative to the base frame.
	OrientationQuaternion Orientation = "quaternion"
	// OrientationEuler declares roll, pitch, yaw.
	OrientationEuler Orientation = "euler"
)

// ParseOrientation parses a configured orientation name; empty means
// quaternion.
func ParseOrientation(s string) (Orientation, error) {
	switch Orientation(s) {
	case "", OrientationQuaternion:
		return OrientationQuaternion, nil
	case OrientationEuler:
		return OrientationEuler, nil
	default:
		return "", fmt.Errorf("unknown orientation %q (want %s or %s)", s, OrientationQuaternion, OrientationEuler)
	}
}

// KnownObjectTypes are declared as named individuals of ObjectType.
var KnownObjectTypes = []string{"Cup", "Drawer", "Box"}

// Blueprint builds the scene object schema: a SceneObject with a type, a
// model version, a Cartesian position and an orientation.
func Blueprint(namespace string, orientation Orientation) *Document {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	ex := func(local string) string { return namespace + local }

	doc := NewDocument()
	for _, c := range []string{DefaultClass, "Position", "Orientation", "ObjectType"} {
		doc.DeclareClass(ex(c))
	}

	doc.DeclareProperty(ex("hasPosition"), ObjectProperty, ex(DefaultClass), ex("Position"), "Cartesian position")
	for _, coord := range []string{"x", "y", "z"} {
		doc.DeclareProperty(ex(coord), DatatypeProperty, ex("Position"), types.XSDFloat, "")
	}

	doc.DeclareProperty(ex("hasOrientation"), ObjectProperty, ex(DefaultClass), ex("Orientation"), "orientation with respect to the base frame")
	fields := []string{"qx", "qy", "qz", "qw"}
	if orientation == OrientationEuler {
		fields = []string{"roll", "pitch", "yaw"}
	}
	for _, f := range fields {
		doc.DeclareProperty(ex(f), DatatypeProperty, ex("Orientation"), types.XSDFloat, "")
	}

	doc.DeclareProperty(ex("hasType"), ObjectProperty, ex(DefaultClass), ex("ObjectType"), "kind of object, e.g. Drawer or Cup")
	doc.DeclareProperty(ex("hasVersion"), DatatypeProperty, ex(DefaultClass), types.XSDString,
		"3D model of the object; two objects may share a version")

	for _, t := range KnownObjectTypes {
		doc.Add(types.NewFact(ex(t), types.RDFType, types.NewIRI(ex("ObjectType"))))
	}
	return doc
}
