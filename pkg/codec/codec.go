package codec

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/soundprediction/scenegraph/pkg/driver"
	"github.com/soundprediction/scenegraph/pkg/schema"
	"github.com/soundprediction/scenegraph/pkg/types"
)

// Codec translates entities of one class to facts and back. It holds no
// state beyond the class schema and is safe for concurrent use.
type Codec struct {
	class *schema.ClassSchema
	ns    string
}

// New returns a codec for class.
func New(class *schema.ClassSchema) *Codec {
	return &Codec{class: class, ns: class.Namespace()}
}

// Class returns the class schema the codec was built from.
func (c *Codec) Class() *schema.ClassSchema {
	return c.class
}

// Subject returns the root subject IRI of the entity with the given id.
func (c *Codec) Subject(id string) string {
	return c.ns + c.class.Name + "_" + id
}

// NestedSubject returns the subject IRI of a composite attribute's value.
// It is unique per entity and attribute.
func (c *Codec) NestedSubject(id, attribute string) string {
	return c.Subject(id) + "/" + attribute
}

// Subjects returns every subject owned by the entity: the root followed by
// one nested subject per composite attribute.
func (c *Codec) Subjects(id string) []string {
	subjects := []string{c.Subject(id)}
	for _, a := range c.class.Composites() {
		subjects = append(subjects, c.NestedSubject(id, a.Name))
	}
	return subjects
}

// ID extracts the entity identifier from a root subject IRI.
func (c *Codec) ID(subject string) (string, bool) {
	id, ok := strings.CutPrefix(subject, c.ns+c.class.Name+"_")
	if !ok || types.ValidateID(id) != nil {
		return "", false
	}
	return id, true
}

// Encode translates an entity into facts. The entity is validated against
// the class schema first; a mismatch returns a *SchemaMismatchError.
func (c *Codec) Encode(e *types.Entity) ([]types.Fact, error) {
	if e == nil {
		return nil, fmt.Errorf("cannot encode nil entity")
	}
	if err := types.ValidateID(e.ID); err != nil {
		return nil, err
	}
	if e.Class != "" && e.Class != c.class.Name && e.Class != c.class.IRI {
		return nil, &SchemaMismatchError{
			Class:   c.class.Name,
			Invalid: []string{fmt.Sprintf("entity class %q", e.Class)},
		}
	}
	attrs, err := c.Normalize(e.Attributes)
	if err != nil {
		return nil, err
	}
	return c.encode(e.ID, attrs), nil
}

// encode assumes attrs is normalized.
func (c *Codec) encode(id string, attrs types.Attributes) []types.Fact {
	root := c.Subject(id)
	facts := []types.Fact{types.NewFact(root, types.RDFType, types.NewIRI(c.class.IRI))}

	for _, def := range c.class.Attributes {
		switch kind := def.Kind.(type) {
		case schema.Composite:
			nested := c.NestedSubject(id, def.Name)
			facts = append(facts,
				types.NewFact(root, def.IRI, types.NewIRI(nested)),
				types.NewFact(nested, types.RDFType, types.NewIRI(kind.Class.IRI)),
			)
			values := attrs[def.Name].(types.Attributes)
			for _, sub := range kind.Class.Attributes {
				facts = append(facts, types.NewFact(nested, sub.IRI, valueTerm(sub.Kind, values[sub.Name])))
			}
		default:
			facts = append(facts, types.NewFact(root, def.IRI, valueTerm(def.Kind, attrs[def.Name])))
		}
	}
	return facts
}

func valueTerm(kind schema.AttributeKind, v any) types.Term {
	switch k := kind.(type) {
	case schema.Reference:
		s := v.(string)
		if isAbsoluteIRI(s) {
			return types.NewIRI(s)
		}
		return types.NewIRI(types.NamespaceOf(k.Class) + url.PathEscape(s))
	case schema.Scalar:
		if f, ok := v.(float64); ok && k.Type == schema.Float {
			return types.NewLiteral(strconv.FormatFloat(f, 'g', -1, 32), k.Datatype)
		}
		return types.NewLiteral(formatLiteral(v), k.Datatype)
	default:
		panic(fmt.Sprintf("codec: no term for %s", kind))
	}
}

func formatLiteral(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

func parseLiteral(p schema.PrimitiveType, lexical string) (any, error) {
	switch p {
	case schema.String:
		return lexical, nil
	case schema.Float, schema.Double:
		switch lexical {
		case "INF", "-INF", "NaN":
			return nil, fmt.Errorf("non-finite number %s", lexical)
		}
		bitSize := 64
		if p == schema.Float {
			bitSize = 32
		}
		return strconv.ParseFloat(strings.TrimSpace(lexical), bitSize)
	case schema.Integer:
		return strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(lexical), "+"), 10, 64)
	case schema.Boolean:
		switch strings.TrimSpace(lexical) {
		case "true", "1":
			return true, nil
		case "false", "0":
			return false, nil
		}
		return nil, fmt.Errorf("invalid boolean %q", lexical)
	default:
		return nil, fmt.Errorf("unsupported primitive type %q", p)
	}
}

// Decode reconstructs every entity of the class present in facts. Facts of
// other classes are ignored. Entities that cannot be reconstructed are left
// out of the result and reported as *IncompleteEntityError values joined in
// the returned error; the decoded entities are returned either way.
func (c *Codec) Decode(facts []types.Fact) ([]*types.Entity, error) {
	bySubject := make(map[string][]types.Fact)
	var roots []string
	classTerm := types.NewIRI(c.class.IRI)
	for _, f := range facts {
		bySubject[f.Subject] = append(bySubject[f.Subject], f)
		if f.Predicate == types.RDFType && f.Object == classTerm {
			roots = append(roots, f.Subject)
		}
	}

	var (
		entities []*types.Entity
		errs     []error
		seen     = make(map[string]bool)
	)
	for _, root := range roots {
		if seen[root] {
			continue
		}
		seen[root] = true

		report := &IncompleteEntityError{Class: c.class.Name, Subject: root}
		id, ok := c.ID(root)
		if !ok {
			report.Problems = append(report.Problems, "subject does not carry a "+c.class.Name+" identifier")
			errs = append(errs, report)
			continue
		}
		report.ID = id

		attrs := decodeClass(c.class, bySubject, root, "", report)
		if !report.empty() {
			errs = append(errs, report)
			continue
		}
		entities = append(entities, &types.Entity{ID: id, Class: c.class.Name, Attributes: attrs})
	}

	sortEntities(entities)
	return entities, errors.Join(errs...)
}

func decodeClass(class *schema.ClassSchema, bySubject map[string][]types.Fact, subject, prefix string, report *IncompleteEntityError) types.Attributes {
	values := make(map[string][]types.Term)
	for _, f := range bySubject[subject] {
		values[f.Predicate] = append(values[f.Predicate], f.Object)
	}

	attrs := make(types.Attributes, len(class.Attributes))
	for _, def := range class.Attributes {
		path := prefix + def.Name
		objs := values[def.IRI]
		switch {
		case len(objs) == 0:
			report.Missing = append(report.Missing, path)
			continue
		case len(objs) > 1:
			report.Problems = append(report.Problems, fmt.Sprintf("%s has %d values", path, len(objs)))
			continue
		}
		obj := objs[0]

		switch kind := def.Kind.(type) {
		case schema.Scalar:
			if obj.IsIRI() {
				report.Problems = append(report.Problems, path+" is a reference, expected a literal")
				continue
			}
			v, err := parseLiteral(kind.Type, obj.Value)
			if err != nil {
				report.Problems = append(report.Problems, fmt.Sprintf("%s: %v", path, err))
				continue
			}
			attrs[def.Name] = v
		case schema.Reference:
			if !obj.IsIRI() {
				report.Problems = append(report.Problems, path+" is a literal, expected a reference")
				continue
			}
			attrs[def.Name] = referenceValue(kind, obj.Value)
		case schema.Composite:
			if !obj.IsIRI() {
				report.Problems = append(report.Problems, path+" is a literal, expected a nested subject")
				continue
			}
			attrs[def.Name] = decodeClass(kind.Class, bySubject, obj.Value, path+".", report)
		}
	}
	return attrs
}

func referenceValue(ref schema.Reference, iri string) string {
	local, ok := strings.CutPrefix(iri, types.NamespaceOf(ref.Class))
	if !ok || local == "" {
		return iri
	}
	if unescaped, err := url.PathUnescape(local); err == nil {
		return unescaped
	}
	return local
}

// sortEntities orders by identifier; numeric identifiers sort numerically
// and before non-numeric ones.
func sortEntities(entities []*types.Entity) {
	sort.Slice(entities, func(i, j int) bool {
		return LessID(entities[i].ID, entities[j].ID)
	})
}

// LessID compares identifiers numerically when both are numeric.
func LessID(a, b string) bool {
	na, errA := strconv.ParseUint(a, 10, 64)
	nb, errB := strconv.ParseUint(b, 10, 64)
	switch {
	case errA == nil && errB == nil:
		if na != nb {
			return na < nb
		}
		return a < b
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}

// DecodeBindings decodes the rows returned for BuildQuery. Each row must bind
// s, p and o.
func (c *Codec) DecodeBindings(rows []driver.Binding) ([]*types.Entity, error) {
	facts := make([]types.Fact, 0, len(rows))
	seen := make(map[types.Fact]struct{}, len(rows))
	for i, row := range rows {
		s, sok := row["s"]
		p, pok := row["p"]
		o, ook := row["o"]
		if !sok || !pok || !ook {
			return nil, fmt.Errorf("row %d does not bind s, p and o", i)
		}
		if !s.IsIRI() || !p.IsIRI() {
			return nil, fmt.Errorf("row %d: subject and predicate must be references", i)
		}
		f := types.NewFact(s.Value, p.Value, o)
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		facts = append(facts, f)
	}
	return c.Decode(facts)
}

// BuildQuery returns the single query that retrieves every fact of every
// entity of the class: one branch for root facts and one per composite
// attribute for the nested subjects.
func (c *Codec) BuildQuery() *driver.Query {
	s, p, o, root := driver.Var("s"), driver.Var("p"), driver.Var("o"), driver.Var("root")
	isClass := driver.Pattern{S: s, P: driver.IRI(types.RDFType), O: driver.IRI(c.class.IRI)}

	q := &driver.Query{Select: []string{"s", "p", "o"}}
	q.Branches = append(q.Branches, []driver.Pattern{isClass, {S: s, P: p, O: o}})
	for _, a := range c.class.Composites() {
		q.Branches = append(q.Branches, []driver.Pattern{
			{S: root, P: driver.IRI(types.RDFType), O: driver.IRI(c.class.IRI)},
			{S: root, P: driver.IRI(a.IRI), O: s},
			{S: s, P: p, O: o},
		})
	}
	return q
}

// BuildUpsert returns the update replacing every fact owned by id with the
// encoding of attrs.
func (c *Codec) BuildUpsert(id string, attrs types.Attributes) (*driver.Update, error) {
	if err := types.ValidateID(id); err != nil {
		return nil, err
	}
	normalized, err := c.Normalize(attrs)
	if err != nil {
		return nil, err
	}
	return &driver.Update{
		Clear:  c.Subjects(id),
		Insert: c.encode(id, normalized),
	}, nil
}
