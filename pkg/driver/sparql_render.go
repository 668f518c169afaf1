package driver

import (
	"fmt"
	"strings"

	"github.com/soundprediction/scenegraph/pkg/types"
)

// RenderSelect renders q as a SPARQL 1.1 SELECT. Every constant is validated
// and literals are escaped; no caller-supplied text reaches the query
// unquoted.
func RenderSelect(q *Query) (string, error) {
	if err := q.Validate(); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("SELECT")
	for _, v := range q.Select {
		b.WriteString(" ?" + v)
	}
	b.WriteString(" WHERE {\n")
	for i, branch := range q.Branches {
		if i > 0 {
			b.WriteString("  UNION\n")
		}
		b.WriteString("  {")
		for _, p := range branch {
			b.WriteString(" ")
			b.WriteString(renderNode(p.S))
			b.WriteString(" ")
			b.WriteString(renderNode(p.P))
			b.WriteString(" ")
			b.WriteString(renderNode(p.O))
			b.WriteString(" .")
		}
		b.WriteString(" }\n")
	}
	b.WriteString("}")
	return b.String(), nil
}

// RenderUpdate renders u as one SPARQL 1.1 update request: a DELETE/WHERE
// over the cleared subjects followed by INSERT DATA. Operations of a single
// request are applied atomically by conforming stores. An empty update
// renders as "".
func RenderUpdate(u *Update) (string, error) {
	if err := u.Validate(); err != nil {
		return "", err
	}

	var ops []string
	if len(u.Clear) > 0 {
		var b strings.Builder
		b.WriteString("DELETE { ?s ?p ?o } WHERE {\n  VALUES ?s {")
		for _, s := range u.Clear {
			b.WriteString(" <" + s + ">")
		}
		b.WriteString(" }\n  ?s ?p ?o .\n}")
		ops = append(ops, b.String())
	}
	if len(u.Insert) > 0 {
		var b strings.Builder
		b.WriteString("INSERT DATA {\n")
		for _, f := range u.Insert {
			fmt.Fprintf(&b, "  <%s> <%s> %s .\n", f.Subject, f.Predicate, renderTerm(f.Object))
		}
		b.WriteString("}")
		ops = append(ops, b.String())
	}
	return strings.Join(ops, " ;\n"), nil
}

// renderAsk returns the connectivity probe query.
func renderAsk() string {
	return "ASK { ?s ?p ?o }"
}

func renderNode(n Node) string {
	if n.IsVar() {
		return "?" + n.Var
	}
	return renderTerm(n.Term)
}

// renderTerm assumes t has been validated.
func renderTerm(t types.Term) string {
	if t.IsIRI() {
		return "<" + t.Value + ">"
	}
	return `"` + types.EscapeLiteral(t.Value) + `"^^<` + t.Datatype + `>`
}
