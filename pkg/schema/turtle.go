package schema

import (
	"fmt"
	"io"
	"strings"

	"github.com/knakk/rdf"

	"github.com/soundprediction/scenegraph/pkg/types"
)

var turtlePrefixes = map[string]string{
	types.RDFNamespace:  "rdf",
	types.RDFSNamespace: "rdfs",
	types.OWLNamespace:  "owl",
	types.XSDNamespace:  "xsd",
}

// WriteTurtle serializes doc as Turtle. IRIs in namespace are written with the
// "ex:" prefix; IRIs outside the known namespaces are written in full.
func WriteTurtle(w io.Writer, doc *Document, namespace string) error {
	facts := doc.Facts()
	triples := make([]rdf.Triple, 0, len(facts))
	for _, f := range facts {
		t, err := toTriple(f)
		if err != nil {
			return &SchemaError{Reason: "cannot write " + f.String(), Err: err}
		}
		triples = append(triples, t)
	}

	enc := rdf.NewTripleEncoder(w, rdf.Turtle)
	enc.GenerateNamespaces = false
	for ns, prefix := range turtlePrefixes {
		enc.Namespaces[ns] = prefix
	}
	if namespace != "" {
		enc.Namespaces[namespace] = "ex"
	}
	if err := enc.EncodeAll(triples); err != nil {
		return err
	}
	return enc.Close()
}

func toTriple(f types.Fact) (rdf.Triple, error) {
	subj, err := toResource(f.Subject)
	if err != nil {
		return rdf.Triple{}, err
	}
	pred, err := rdf.NewIRI(f.Predicate)
	if err != nil {
		return rdf.Triple{}, err
	}

	var obj rdf.Object
	if f.Object.IsIRI() {
		if obj, err = toResource(f.Object.Value); err != nil {
			return rdf.Triple{}, err
		}
	} else {
		dt, err := rdf.NewIRI(f.Object.Datatype)
		if err != nil {
			return rdf.Triple{}, fmt.Errorf("datatype: %w", err)
		}
		obj = rdf.NewTypedLiteral(f.Object.Value, dt)
	}
	return rdf.Triple{Subj: subj, Pred: pred, Obj: obj}, nil
}

// toResource converts an IRI or "_:label" blank node name.
func toResource(name string) (interface {
	rdf.Subject
	rdf.Object
}, error) {
	if label, ok := strings.CutPrefix(name, "_:"); ok {
		return rdf.NewBlank(label)
	}
	return rdf.NewIRI(name)
}
