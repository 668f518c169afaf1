package types

import (
	"fmt"
	"strings"
)

// Well-known vocabulary IRIs.
const (
	RDFNamespace  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RDFSNamespace = "http://www.w3.org/2000/01/rdf-schema#"
	OWLNamespace  = "http://www.w3.org/2002/07/owl#"
	XSDNamespace  = "http://www.w3.org/2001/XMLSchema#"

	RDFType           = RDFNamespace + "type"
	RDFSDomain        = RDFSNamespace + "domain"
	RDFSRange         = RDFSNamespace + "range"
	RDFSComment       = RDFSNamespace + "comment"
	RDFSClass         = RDFSNamespace + "Class"
	RDFSLiteral       = RDFSNamespace + "Literal"
	OWLClass          = OWLNamespace + "Class"
	OWLObjectProperty = OWLNamespace + "ObjectProperty"
	OWLDataProperty   = OWLNamespace + "DatatypeProperty"

	XSDString  = XSDNamespace + "string"
	XSDFloat   = XSDNamespace + "float"
	XSDDouble  = XSDNamespace + "double"
	XSDDecimal = XSDNamespace + "decimal"
	XSDInteger = XSDNamespace + "integer"
	XSDInt     = XSDNamespace + "int"
	XSDLong    = XSDNamespace + "long"
	XSDBoolean = XSDNamespace + "boolean"
)

// TermKind distinguishes references from literals.
type TermKind string

const (
	// IRITerm is a reference to another subject
	IRITerm TermKind = "iri"
	// LiteralTerm is a typed primitive value
	LiteralTerm TermKind = "literal"
)

// Term is the object position of a Fact, or a value bound to a query variable.
type Term struct {
	Kind     TermKind `json:"kind"`
	Value    string   `json:"value"`
	Datatype string   `json:"datatype,omitempty"`
}

// NewIRI returns a reference term.
func NewIRI(iri string) Term {
	return Term{Kind: IRITerm, Value: iri}
}

// NewLiteral returns a literal term with the given lexical form and datatype.
// An empty datatype defaults to xsd:string.
func NewLiteral(lexical, datatype string) Term {
	if datatype == "" {
		datatype = XSDString
	}
	return Term{Kind: LiteralTerm, Value: lexical, Datatype: datatype}
}

// IsIRI reports whether the term is a reference.
func (t Term) IsIRI() bool {
	return t.Kind == IRITerm
}

// String renders the term in N-Triples-like notation for logs and errors.
func (t Term) String() string {
	if t.IsIRI() {
		return "<" + t.Value + ">"
	}
	return fmt.Sprintf("%q^^<%s>", t.Value, t.Datatype)
}

// Fact is one subject-attribute-value record in the graph store.
type Fact struct {
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    Term   `json:"object"`
}

// NewFact builds a fact.
func NewFact(subject, predicate string, object Term) Fact {
	return Fact{Subject: subject, Predicate: predicate, Object: object}
}

func (f Fact) String() string {
	return fmt.Sprintf("<%s> <%s> %s", f.Subject, f.Predicate, f.Object)
}

// EscapeLiteral escapes a lexical form for a double-quoted Turtle or SPARQL
// string literal.
func EscapeLiteral(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidIRI reports whether iri can be written between angle brackets without
// escaping, per the IRIREF production shared by Turtle and SPARQL.
func ValidIRI(iri string) bool {
	if iri == "" {
		return false
	}
	for _, r := range iri {
		if r <= 0x20 {
			return false
		}
		switch r {
		case '<', '>', '"', '{', '}', '|', '^', '`', '\\':
			return false
		}
	}
	return true
}

// LocalName returns the part of an IRI after the last '#' or '/'.
func LocalName(iri string) string {
	if i := strings.LastIndexAny(iri, "#/"); i >= 0 && i < len(iri)-1 {
		return iri[i+1:]
	}
	return iri
}

// NamespaceOf returns the IRI prefix up to and including the last '#' or '/'.
func NamespaceOf(iri string) string {
	if i := strings.LastIndexAny(iri, "#/"); i >= 0 {
		return iri[:i+1]
	}
	return ""
}
