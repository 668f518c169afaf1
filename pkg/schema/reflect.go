package schema

import (
	"fmt"

	"github.com/soundprediction/scenegraph/pkg/types"
)

// maxDepth bounds reflection at entity -> nested value object -> scalar fields.
const maxDepth = 2

// Reflect builds the ClassSchema of className from the schema document.
//
// Every property whose rdfs:domain is the class becomes an attribute. Its
// rdfs:range decides the kind:
//   - an XSD datatype yields Scalar
//   - a class declaring attributes of its own yields Composite
//   - a class declaring no attributes yields Reference
//
// Anything else is a SchemaError.
func Reflect(doc *Document, className string) (*ClassSchema, error) {
	if doc == nil {
		return nil, &SchemaError{Class: className, Reason: "schema document is nil"}
	}
	iri, err := doc.ResolveClass(className)
	if err != nil {
		return nil, err
	}
	cs, err := reflectClass(doc, iri, 1)
	if err != nil {
		return nil, err
	}
	if len(cs.Attributes) == 0 {
		return nil, &SchemaError{Class: cs.Name, Reason: "class declares no attributes"}
	}
	return cs, nil
}

func reflectClass(doc *Document, classIRI string, depth int) (*ClassSchema, error) {
	className := types.LocalName(classIRI)
	props := doc.Subjects(types.RDFSDomain, types.NewIRI(classIRI))

	attrs := make([]AttributeDefinition, 0, len(props))
	for _, prop := range props {
		name := types.LocalName(prop)

		ranges := doc.Objects(prop, types.RDFSRange)
		if len(ranges) == 0 {
			return nil, &SchemaError{Class: className, Attribute: name, Reason: "no rdfs:range declared"}
		}
		if len(ranges) > 1 {
			return nil, &SchemaError{Class: className, Attribute: name, Reason: fmt.Sprintf("%d ranges declared, expected one", len(ranges))}
		}
		if !ranges[0].IsIRI() {
			return nil, &SchemaError{Class: className, Attribute: name, Reason: "range is a literal"}
		}

		kind, err := resolveRange(doc, className, name, ranges[0].Value, depth)
		if err != nil {
			return nil, err
		}

		var comment string
		for _, c := range doc.Objects(prop, types.RDFSComment) {
			if !c.IsIRI() {
				comment = c.Value
				break
			}
		}

		attrs = append(attrs, AttributeDefinition{
			Name:    name,
			IRI:     prop,
			Kind:    kind,
			Comment: comment,
		})
	}

	return NewClassSchema(classIRI, attrs)
}

func resolveRange(doc *Document, className, attrName, rng string, depth int) (AttributeKind, error) {
	if p, ok := PrimitiveFor(rng); ok {
		return Scalar{Type: p, Datatype: rng}, nil
	}
	if types.NamespaceOf(rng) == types.XSDNamespace {
		return nil, &SchemaError{Class: className, Attribute: attrName, Reason: "unsupported datatype " + rng}
	}
	if !doc.IsClass(rng) {
		return nil, &SchemaError{Class: className, Attribute: attrName, Reason: "range " + rng + " is neither a primitive type nor a known class"}
	}

	if len(doc.Subjects(types.RDFSDomain, types.NewIRI(rng))) == 0 {
		return Reference{Class: rng}, nil
	}
	if depth >= maxDepth {
		return nil, &SchemaError{Class: className, Attribute: attrName, Reason: "nested value objects may only declare scalar or reference attributes"}
	}

	nested, err := reflectClass(doc, rng, depth+1)
	if err != nil {
		return nil, err
	}
	return Composite{Class: nested}, nil
}
