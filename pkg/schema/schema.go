package schema

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/soundprediction/scenegraph/pkg/types"
)

// PrimitiveType is the value type of a scalar attribute.
type PrimitiveType string

const (
	String  PrimitiveType = "string"
	Float   PrimitiveType = "float"
	Double  PrimitiveType = "double"
	Integer PrimitiveType = "integer"
	Boolean PrimitiveType = "boolean"
)

// primitiveDatatypes maps the XSD datatypes the codec can round-trip.
var primitiveDatatypes = map[string]PrimitiveType{
	types.XSDString:   String,
	types.RDFSLiteral: String,
	types.XSDFloat:    Float,
	types.XSDDouble:   Double,
	types.XSDDecimal:  Double,
	types.XSDInteger:  Integer,
	types.XSDInt:      Integer,
	types.XSDLong:     Integer,
	types.XSDBoolean:  Boolean,
}

// PrimitiveFor returns the primitive type for an XSD datatype IRI.
func PrimitiveFor(datatype string) (PrimitiveType, bool) {
	p, ok := primitiveDatatypes[datatype]
	return p, ok
}

// AttributeKind is the reflected kind of an attribute: Scalar, Composite or
// Reference. The set is closed; codec logic switches on the concrete type.
type AttributeKind interface {
	isAttributeKind()
	String() string
}

// Scalar is an attribute holding a primitive literal.
type Scalar struct {
	Type PrimitiveType
	// Datatype is the declared XSD datatype IRI, used when writing literals
	Datatype string
}

// Composite is an attribute holding a nested value object.
type Composite struct {
	Class *ClassSchema
}

// Reference is an attribute pointing at a named individual of a class that
// declares no attributes of its own (e.g. an object type such as Cup).
type Reference struct {
	Class string
}

func (Scalar) isAttributeKind()    {}
func (Composite) isAttributeKind() {}
func (Reference) isAttributeKind() {}

func (s Scalar) String() string    { return "scalar(" + string(s.Type) + ")" }
func (c Composite) String() string { return "composite(" + c.Class.Name + ")" }
func (r Reference) String() string { return "reference(" + types.LocalName(r.Class) + ")" }

// AttributeDefinition is one declared attribute of a class.
type AttributeDefinition struct {
	Name    string
	IRI     string
	Kind    AttributeKind
	Comment string
}

// MarshalJSON renders the tagged kind as flat fields.
func (a AttributeDefinition) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"name": a.Name,
		"iri":  a.IRI,
	}
	if a.Comment != "" {
		out["comment"] = a.Comment
	}
	switch k := a.Kind.(type) {
	case Scalar:
		out["kind"] = "scalar"
		out["type"] = k.Type
		out["datatype"] = k.Datatype
	case Composite:
		out["kind"] = "composite"
		out["class"] = k.Class
	case Reference:
		out["kind"] = "reference"
		out["class"] = k.Class
	}
	return json.Marshal(out)
}

// ClassSchema is the reflected set of attribute declarations of one class.
type ClassSchema struct {
	Name       string                `json:"name"`
	IRI        string                `json:"iri"`
	Attributes []AttributeDefinition `json:"attributes"`

	index map[string]int
}

// NewClassSchema builds a class schema. Attributes are sorted by name; a
// duplicate name is a SchemaError.
func NewClassSchema(iri string, attrs []AttributeDefinition) (*ClassSchema, error) {
	cs := &ClassSchema{
		Name:       types.LocalName(iri),
		IRI:        iri,
		Attributes: append([]AttributeDefinition(nil), attrs...),
		index:      make(map[string]int, len(attrs)),
	}
	sort.Slice(cs.Attributes, func(i, j int) bool {
		return cs.Attributes[i].Name < cs.Attributes[j].Name
	})
	for i, a := range cs.Attributes {
		if _, dup := cs.index[a.Name]; dup {
			return nil, &SchemaError{Class: cs.Name, Attribute: a.Name, Reason: "attribute name declared more than once"}
		}
		cs.index[a.Name] = i
	}
	return cs, nil
}

// Attribute looks up an attribute by name.
func (c *ClassSchema) Attribute(name string) (AttributeDefinition, bool) {
	i, ok := c.index[name]
	if !ok {
		return AttributeDefinition{}, false
	}
	return c.Attributes[i], true
}

// Names returns the attribute names in sorted order.
func (c *ClassSchema) Names() []string {
	names := make([]string, len(c.Attributes))
	for i, a := range c.Attributes {
		names[i] = a.Name
	}
	return names
}

// Namespace returns the namespace of the class IRI. Subject IRIs minted for
// entities of this class live in it.
func (c *ClassSchema) Namespace() string {
	return types.NamespaceOf(c.IRI)
}

// Composites returns the composite attributes in name order.
func (c *ClassSchema) Composites() []AttributeDefinition {
	var out []AttributeDefinition
	for _, a := range c.Attributes {
		if _, ok := a.Kind.(Composite); ok {
			out = append(out, a)
		}
	}
	return out
}

// Describe renders a human-readable summary, one attribute per line.
func (c *ClassSchema) Describe() string {
	s := fmt.Sprintf("%s <%s>\n", c.Name, c.IRI)
	for _, a := range c.Attributes {
		s += fmt.Sprintf("  %-16s %s", a.Name, a.Kind)
		if a.Comment != "" {
			s += "  # " + a.Comment
		}
		s += "\n"
		if comp, ok := a.Kind.(Composite); ok {
			for _, n := range comp.Class.Attributes {
				s += fmt.Sprintf("    %-14s %s\n", n.Name, n.Kind)
			}
		}
	}
	return s
}
