package schema

import (
	"fmt"
	"strings"

	"github.com/soundprediction/scenegraph/pkg/types"
)

// PropertyKind distinguishes OWL object properties from datatype properties.
type PropertyKind string

const (
	ObjectProperty   PropertyKind = "object"
	DatatypeProperty PropertyKind = "datatype"
)

// Document is a parsed schema graph: the class and property declarations of
// an ontology, kept as facts in declaration order.
type Document struct {
	facts []types.Fact
	seen  map[types.Fact]struct{}
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{seen: make(map[types.Fact]struct{})}
}

// Add records a fact. Duplicates are ignored.
func (d *Document) Add(f types.Fact) {
	if _, ok := d.seen[f]; ok {
		return
	}
	d.seen[f] = struct{}{}
	d.facts = append(d.facts, f)
}

// Len returns the number of facts.
func (d *Document) Len() int {
	return len(d.facts)
}

// Facts returns a copy of the document's facts in declaration order.
func (d *Document) Facts() []types.Fact {
	return append([]types.Fact(nil), d.facts...)
}

// DeclareClass adds an owl:Class declaration.
func (d *Document) DeclareClass(iri string) {
	d.Add(types.NewFact(iri, types.RDFType, types.NewIRI(types.OWLClass)))
}

// DeclareProperty adds a property declaration with its domain and range.
func (d *Document) DeclareProperty(iri string, kind PropertyKind, domain, rng, comment string) {
	owlKind := types.OWLObjectProperty
	if kind == DatatypeProperty {
		owlKind = types.OWLDataProperty
	}
	d.Add(types.NewFact(iri, types.RDFType, types.NewIRI(owlKind)))
	d.Add(types.NewFact(iri, types.RDFSDomain, types.NewIRI(domain)))
	d.Add(types.NewFact(iri, types.RDFSRange, types.NewIRI(rng)))
	if comment != "" {
		d.Add(types.NewFact(iri, types.RDFSComment, types.NewLiteral(comment, types.XSDString)))
	}
}

// Objects returns the objects of all facts with the given subject and predicate.
func (d *Document) Objects(subject, predicate string) []types.Term {
	var out []types.Term
	for _, f := range d.facts {
		if f.Subject == subject && f.Predicate == predicate {
			out = append(out, f.Object)
		}
	}
	return out
}

// Subjects returns the subjects of all facts with the given predicate and object.
func (d *Document) Subjects(predicate string, object types.Term) []string {
	var out []string
	for _, f := range d.facts {
		if f.Predicate == predicate && f.Object == object {
			out = append(out, f.Subject)
		}
	}
	return out
}

// IsClass reports whether iri is declared as a class, or used as the domain
// of some property.
func (d *Document) IsClass(iri string) bool {
	class := types.NewIRI(iri)
	for _, f := range d.facts {
		if f.Subject == iri && f.Predicate == types.RDFType &&
			(f.Object.Value == types.OWLClass || f.Object.Value == types.RDFSClass) {
			return true
		}
		if f.Predicate == types.RDFSDomain && f.Object == class {
			return true
		}
	}
	return false
}

// Classes returns the IRIs of all classes in declaration order.
func (d *Document) Classes() []string {
	var out []string
	seen := make(map[string]bool)
	for _, f := range d.facts {
		var candidate string
		switch {
		case f.Predicate == types.RDFType && (f.Object.Value == types.OWLClass || f.Object.Value == types.RDFSClass):
			candidate = f.Subject
		case f.Predicate == types.RDFSDomain && f.Object.IsIRI():
			candidate = f.Object.Value
		default:
			continue
		}
		if !seen[candidate] {
			seen[candidate] = true
			out = append(out, candidate)
		}
	}
	return out
}

// ResolveClass maps a class name to its IRI. The name may be a full IRI or a
// local name; a local name shared by classes of different namespaces is
// ambiguous.
func (d *Document) ResolveClass(name string) (string, error) {
	if strings.Contains(name, "://") || strings.HasPrefix(name, "urn:") {
		if d.IsClass(name) {
			return name, nil
		}
		return "", &SchemaError{Class: name, Reason: "class not declared in schema document"}
	}

	var matches []string
	for _, iri := range d.Classes() {
		if types.LocalName(iri) == name {
			matches = append(matches, iri)
		}
	}
	switch len(matches) {
	case 0:
		return "", &SchemaError{Class: name, Reason: "class not declared in schema document"}
	case 1:
		return matches[0], nil
	default:
		return "", &SchemaError{Class: name, Reason: fmt.Sprintf("class name is ambiguous: %s", strings.Join(matches, ", "))}
	}
}
