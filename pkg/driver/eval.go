package driver

import (
	"context"

	"github.com/soundprediction/scenegraph/pkg/types"
)

// factSource returns the facts matching the bound positions of a pattern.
// Nil arguments are unbound.
type factSource interface {
	candidates(subject, predicate *string, object *types.Term) ([]types.Fact, error)
}

type solution map[string]types.Term

// evaluate solves one conjunctive branch by backtracking. At each step the
// pattern with the most positions bound by the current solution is expanded
// next.
func evaluate(ctx context.Context, src factSource, branch []Pattern) ([]solution, error) {
	var out []solution
	var step func(sol solution, remaining []Pattern) error
	step = func(sol solution, remaining []Pattern) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(remaining) == 0 {
			out = append(out, sol)
			return nil
		}

		next := mostBound(sol, remaining)
		p := remaining[next]
		rest := make([]Pattern, 0, len(remaining)-1)
		rest = append(rest, remaining[:next]...)
		rest = append(rest, remaining[next+1:]...)

		subject, sok := resolveRef(p.S, sol)
		predicate, pok := resolveRef(p.P, sol)
		if !sok || !pok {
			return nil
		}
		object := resolveTerm(p.O, sol)

		facts, err := src.candidates(subject, predicate, object)
		if err != nil {
			return err
		}
		for _, f := range facts {
			ext, ok := extend(sol, p, f)
			if !ok {
				continue
			}
			if err := step(ext, rest); err != nil {
				return err
			}
		}
		return nil
	}

	if err := step(solution{}, branch); err != nil {
		return nil, err
	}
	return out, nil
}

func mostBound(sol solution, patterns []Pattern) int {
	best, bestScore := 0, -1
	for i, p := range patterns {
		score := 0
		for _, n := range p.nodes() {
			if !n.IsVar() {
				score++
			} else if _, ok := sol[n.Var]; ok {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return best
}

// resolveRef returns the IRI a subject or predicate position is bound to.
// ok is false when the position is bound to a literal, which cannot match.
func resolveRef(n Node, sol solution) (iri *string, ok bool) {
	t := resolveTerm(n, sol)
	if t == nil {
		return nil, true
	}
	if !t.IsIRI() {
		return nil, false
	}
	v := t.Value
	return &v, true
}

func resolveTerm(n Node, sol solution) *types.Term {
	if !n.IsVar() {
		t := n.Term
		return &t
	}
	if t, ok := sol[n.Var]; ok {
		return &t
	}
	return nil
}

// extend binds the variables of p to f, checking consistency with sol and
// with repeated variables inside p.
func extend(sol solution, p Pattern, f types.Fact) (solution, bool) {
	ext := make(solution, len(sol)+3)
	for k, v := range sol {
		ext[k] = v
	}
	values := [3]types.Term{types.NewIRI(f.Subject), types.NewIRI(f.Predicate), f.Object}
	for i, n := range p.nodes() {
		if !n.IsVar() {
			if n.Term != values[i] {
				return nil, false
			}
			continue
		}
		if bound, ok := ext[n.Var]; ok {
			if bound != values[i] {
				return nil, false
			}
			continue
		}
		ext[n.Var] = values[i]
	}
	return ext, true
}
