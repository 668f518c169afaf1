package driver

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/soundprediction/scenegraph/pkg/types"
)

var varName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Node is one position of a Pattern: a variable or a constant term.
type Node struct {
	Var  string
	Term types.Term
}

// Var returns a variable node.
func Var(name string) Node {
	return Node{Var: name}
}

// IRI returns a constant reference node.
func IRI(iri string) Node {
	return Node{Term: types.NewIRI(iri)}
}

// Const returns a constant node.
func Const(t types.Term) Node {
	return Node{Term: t}
}

// IsVar reports whether the node is a variable.
func (n Node) IsVar() bool {
	return n.Var != ""
}

func (n Node) String() string {
	if n.IsVar() {
		return "?" + n.Var
	}
	return n.Term.String()
}

// Pattern is a fact pattern; each position is a variable or a constant.
type Pattern struct {
	S, P, O Node
}

func (p Pattern) nodes() [3]Node {
	return [3]Node{p.S, p.P, p.O}
}

// Query is a union of conjunctive branches. A solution of any branch is a
// solution of the query, projected onto Select.
type Query struct {
	Select   []string
	Branches [][]Pattern
}

// Validate checks variable names, constant IRIs and that every selected
// variable is bound by every branch.
func (q *Query) Validate() error {
	if q == nil {
		return fmt.Errorf("query is nil")
	}
	if len(q.Select) == 0 {
		return fmt.Errorf("query selects no variables")
	}
	if len(q.Branches) == 0 {
		return fmt.Errorf("query has no branches")
	}
	for _, v := range q.Select {
		if !varName.MatchString(v) {
			return fmt.Errorf("invalid variable name %q", v)
		}
	}
	for i, branch := range q.Branches {
		if len(branch) == 0 {
			return fmt.Errorf("branch %d is empty", i)
		}
		bound := make(map[string]bool)
		for _, p := range branch {
			for pos, n := range p.nodes() {
				if n.IsVar() {
					if !varName.MatchString(n.Var) {
						return fmt.Errorf("invalid variable name %q", n.Var)
					}
					bound[n.Var] = true
					continue
				}
				if err := validateConstant(n.Term, pos == 2); err != nil {
					return fmt.Errorf("branch %d: %w", i, err)
				}
			}
		}
		for _, v := range q.Select {
			if !bound[v] {
				return fmt.Errorf("branch %d does not bind selected variable %q", i, v)
			}
		}
	}
	return nil
}

func validateConstant(t types.Term, objectPosition bool) error {
	switch t.Kind {
	case types.IRITerm:
		if !types.ValidIRI(t.Value) {
			return fmt.Errorf("invalid IRI %q", t.Value)
		}
	case types.LiteralTerm:
		if !objectPosition {
			return fmt.Errorf("literal %s outside object position", t)
		}
		if !types.ValidIRI(t.Datatype) {
			return fmt.Errorf("invalid datatype IRI %q", t.Datatype)
		}
	default:
		return fmt.Errorf("constant has unknown term kind %q", t.Kind)
	}
	return nil
}

// Binding maps variable names to the terms of one solution.
type Binding map[string]types.Term

// Update replaces every fact of the Clear subjects with Insert.
type Update struct {
	Clear  []string
	Insert []types.Fact
}

// Validate checks every IRI and literal of the update.
func (u *Update) Validate() error {
	if u == nil {
		return fmt.Errorf("update is nil")
	}
	for _, s := range u.Clear {
		if !types.ValidIRI(s) {
			return fmt.Errorf("invalid subject IRI %q", s)
		}
	}
	for _, f := range u.Insert {
		if err := ValidateFact(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateFact checks that a fact can be written to any store.
func ValidateFact(f types.Fact) error {
	if !types.ValidIRI(f.Subject) {
		return fmt.Errorf("invalid subject IRI %q", f.Subject)
	}
	if !types.ValidIRI(f.Predicate) {
		return fmt.Errorf("invalid predicate IRI %q", f.Predicate)
	}
	return validateConstant(f.Object, true)
}

func (u *Update) String() string {
	return fmt.Sprintf("update(clear=%s, insert=%d facts)", strings.Join(u.Clear, ","), len(u.Insert))
}
