package schema

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/knakk/rdf"
	"gopkg.in/yaml.v3"

	"github.com/soundprediction/scenegraph/pkg/types"
)

// Format is a schema document serialization.
type Format string

const (
	FormatTurtle   Format = "turtle"
	FormatNTriples Format = "ntriples"
	FormatRDFXML   Format = "rdfxml"
	FormatYAML     Format = "yaml"
)

// FormatForPath picks a format from a file extension.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ttl", ".turtle":
		return FormatTurtle, nil
	case ".nt":
		return FormatNTriples, nil
	case ".owl", ".rdf", ".xml":
		return FormatRDFXML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unrecognised schema file extension %q", filepath.Ext(path))
	}
}

// LoadFile reads a schema document from disk.
func LoadFile(path string) (*Document, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, &SchemaError{Reason: "cannot load " + path, Err: err}
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, &SchemaError{Reason: "cannot load " + path, Err: err}
	}
	defer f.Close()
	return Parse(f, format)
}

// Parse reads a schema document in the given format.
func Parse(r io.Reader, format Format) (*Document, error) {
	switch format {
	case FormatTurtle:
		return parseRDF(r, rdf.Turtle)
	case FormatNTriples:
		return parseRDF(r, rdf.NTriples)
	case FormatRDFXML:
		return parseRDF(r, rdf.RDFXML)
	case FormatYAML:
		return parseYAML(r)
	default:
		return nil, &SchemaError{Reason: fmt.Sprintf("unsupported schema format %q", format)}
	}
}

func parseRDF(r io.Reader, format rdf.Format) (*Document, error) {
	triples, err := rdf.NewTripleDecoder(r, format).DecodeAll()
	if err != nil {
		return nil, &SchemaError{Reason: "cannot parse schema document", Err: err}
	}
	doc := NewDocument()
	for _, t := range triples {
		doc.Add(types.NewFact(termName(t.Subj), termName(t.Pred), convertTerm(t.Obj)))
	}
	return doc, nil
}

func termName(t rdf.Term) string {
	if t.Type() == rdf.TermBlank && !strings.HasPrefix(t.String(), "_:") {
		return "_:" + t.String()
	}
	return t.String()
}

func convertTerm(t rdf.Term) types.Term {
	switch v := t.(type) {
	case rdf.Literal:
		dt := v.DataType.String()
		if v.Lang() != "" {
			dt = types.XSDString
		}
		return types.NewLiteral(v.String(), dt)
	default:
		return types.NewIRI(termName(t))
	}
}

// yamlSchema is the compact YAML schema format:
//
//	namespace: http://example.org/ontology#
//	classes: [SceneObject, Position]
//	properties:
//	  - {name: hasPosition, domain: SceneObject, range: Position}
//	  - {name: x, domain: Position, range: xsd:float}
type yamlSchema struct {
	Namespace  string         `yaml:"namespace"`
	Classes    []string       `yaml:"classes"`
	Properties []yamlProperty `yaml:"properties"`
}

type yamlProperty struct {
	Name    string `yaml:"name"`
	Domain  string `yaml:"domain"`
	Range   string `yaml:"range"`
	Comment string `yaml:"comment"`
}

var yamlPrefixes = map[string]string{
	"xsd:":  types.XSDNamespace,
	"rdf:":  types.RDFNamespace,
	"rdfs:": types.RDFSNamespace,
	"owl:":  types.OWLNamespace,
}

func parseYAML(r io.Reader) (*Document, error) {
	var ys yamlSchema
	if err := yaml.NewDecoder(r).Decode(&ys); err != nil {
		return nil, &SchemaError{Reason: "cannot parse YAML schema", Err: err}
	}
	if ys.Namespace == "" {
		ys.Namespace = DefaultNamespace
	}

	expand := func(name string) string {
		if strings.Contains(name, "://") {
			return name
		}
		for prefix, ns := range yamlPrefixes {
			if strings.HasPrefix(name, prefix) {
				return ns + strings.TrimPrefix(name, prefix)
			}
		}
		return ys.Namespace + name
	}

	doc := NewDocument()
	for _, c := range ys.Classes {
		doc.DeclareClass(expand(c))
	}
	for i, p := range ys.Properties {
		if p.Name == "" || p.Domain == "" || p.Range == "" {
			return nil, &SchemaError{Reason: fmt.Sprintf("property %d: name, domain and range are required", i)}
		}
		rng := expand(p.Range)
		kind := ObjectProperty
		if types.NamespaceOf(rng) == types.XSDNamespace || rng == types.RDFSLiteral {
			kind = DatatypeProperty
		}
		doc.DeclareProperty(expand(p.Name), kind, expand(p.Domain), rng, p.Comment)
	}
	return doc, nil
}
