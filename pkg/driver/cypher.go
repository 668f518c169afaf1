package driver

import (
	"fmt"
	"strings"

	"github.com/soundprediction/scenegraph/pkg/types"
)

// Facts are stored in Neo4j as (:Fact {s, p, o, k, dt}) nodes. k is "iri" or
// "literal"; dt is the literal datatype, or "" for references so that
// equality never compares against null.

const (
	kindSuffix     = "__k"
	datatypeSuffix = "__dt"
)

type fieldRef struct {
	alias string
	field string // "s", "p" or "o"
}

func (r fieldRef) value() string {
	return r.alias + "." + r.field
}

func (r fieldRef) isObject() bool {
	return r.field == "o"
}

// translateQuery renders q as Cypher. Each branch becomes a MATCH over Fact
// nodes; branches are joined with UNION ALL. Constants travel as parameters.
func translateQuery(q *Query) (string, map[string]any, error) {
	if err := q.Validate(); err != nil {
		return "", nil, err
	}

	params := make(map[string]any)
	param := func(v string) string {
		name := fmt.Sprintf("p%d", len(params))
		params[name] = v
		return "$" + name
	}

	parts := make([]string, 0, len(q.Branches))
	for _, branch := range q.Branches {
		var (
			aliases []string
			where   []string
			vars    = make(map[string]fieldRef)
		)
		for i, p := range branch {
			alias := fmt.Sprintf("f%d", i)
			aliases = append(aliases, "("+alias+":Fact)")

			for j, n := range p.nodes() {
				ref := fieldRef{alias: alias, field: [3]string{"s", "p", "o"}[j]}
				if !n.IsVar() {
					where = append(where, constantCondition(ref, n.Term, param)...)
					continue
				}
				first, seen := vars[n.Var]
				if !seen {
					vars[n.Var] = ref
					continue
				}
				where = append(where, joinCondition(first, ref)...)
			}
		}

		var b strings.Builder
		b.WriteString("MATCH " + strings.Join(aliases, ", "))
		if len(where) > 0 {
			b.WriteString("\nWHERE " + strings.Join(where, " AND "))
		}
		b.WriteString("\nRETURN ")
		cols := make([]string, 0, 3*len(q.Select))
		for _, v := range q.Select {
			ref := vars[v]
			if ref.isObject() {
				cols = append(cols,
					ref.value()+" AS "+v,
					ref.alias+".k AS "+v+kindSuffix,
					ref.alias+".dt AS "+v+datatypeSuffix,
				)
			} else {
				cols = append(cols,
					ref.value()+" AS "+v,
					"'iri' AS "+v+kindSuffix,
					"'' AS "+v+datatypeSuffix,
				)
			}
		}
		b.WriteString(strings.Join(cols, ", "))
		parts = append(parts, b.String())
	}
	return strings.Join(parts, "\nUNION ALL\n"), params, nil
}

func constantCondition(ref fieldRef, t types.Term, param func(string) string) []string {
	if !ref.isObject() {
		return []string{ref.value() + " = " + param(t.Value)}
	}
	if t.IsIRI() {
		return []string{ref.value() + " = " + param(t.Value), ref.alias + ".k = 'iri'"}
	}
	return []string{
		ref.value() + " = " + param(t.Value),
		ref.alias + ".k = 'literal'",
		ref.alias + ".dt = " + param(t.Datatype),
	}
}

func joinCondition(a, b fieldRef) []string {
	conds := []string{a.value() + " = " + b.value()}
	switch {
	case a.isObject() && b.isObject():
		conds = append(conds, a.alias+".k = "+b.alias+".k", a.alias+".dt = "+b.alias+".dt")
	case a.isObject():
		conds = append(conds, a.alias+".k = 'iri'")
	case b.isObject():
		conds = append(conds, b.alias+".k = 'iri'")
	}
	return conds
}

const (
	cypherClear  = "MATCH (f:Fact) WHERE f.s IN $subjects DELETE f"
	cypherInsert = "UNWIND $facts AS x CREATE (:Fact {s: x.s, p: x.p, o: x.o, k: x.k, dt: x.dt})"
)

func factParams(facts []types.Fact) []map[string]any {
	out := make([]map[string]any, len(facts))
	for i, f := range facts {
		out[i] = map[string]any{
			"s":  f.Subject,
			"p":  f.Predicate,
			"o":  f.Object.Value,
			"k":  string(f.Object.Kind),
			"dt": f.Object.Datatype,
		}
	}
	return out
}

// termFromColumns rebuilds a term from the value, kind and datatype columns
// returned for a variable.
func termFromColumns(value, kind, datatype string) (types.Term, error) {
	switch types.TermKind(kind) {
	case types.IRITerm:
		return types.NewIRI(value), nil
	case types.LiteralTerm:
		return types.NewLiteral(value, datatype), nil
	default:
		return types.Term{}, fmt.Errorf("unknown term kind %q", kind)
	}
}
