package query

import (
	"fmt"
	"sort"
	"strings"
)

// Formula is a boolean combination of atomic predicates. The variant set is
// closed: And, Or, Not and Atom.
type Formula interface {
	formula()
	String() string
}

// Atom wraps a single atomic predicate.
type Atom struct{ Pred Predicate }

// Not negates a sub-formula.
type Not struct{ F Formula }

// And conjoins two sub-formulas.
type And struct{ L, R Formula }

// Or disjoins two sub-formulas.
type Or struct{ L, R Formula }

func (Atom) formula() {}
func (Not) formula()  {}
func (And) formula()  {}
func (Or) formula()   {}

func (a Atom) String() string { return a.Pred.String() }
func (n Not) String() string  { return "!(" + n.F.String() + ")" }
func (a And) String() string  { return "(" + a.L.String() + " && " + a.R.String() + ")" }
func (o Or) String() string   { return "(" + o.L.String() + " || " + o.R.String() + ")" }

// Conjunct is one AND-group of a DNF formula: a canonicalized list of atoms
// corresponding to one accepting path through the pipeline.
type Conjunct []Predicate

func (c Conjunct) String() string {
	parts := make([]string, len(c))
	for i, p := range c {
		parts[i] = p.String()
	}
	return strings.Join(parts, " && ")
}

// DNF normalizes a formula to disjunctive normal form over positive atoms.
// Negation folds into the ordered comparisons (!(x < c) ⇒ x > c−1,
// !(x > c) ⇒ x < c+1); negated equality and prefix matches have no single
// positive atom and are rejected. Each conjunct comes back sorted by the
// predicate order and deduplicated.
func DNF(f Formula) ([]Conjunct, error) {
	conjs, err := dnf(f, false)
	if err != nil {
		return nil, err
	}
	out := make([]Conjunct, 0, len(conjs))
	for _, c := range conjs {
		out = append(out, canonicalize(c))
	}
	return out, nil
}

func dnf(f Formula, negated bool) ([]Conjunct, error) {
	switch n := f.(type) {
	case Atom:
		p := n.Pred
		if negated {
			var err error
			p, err = negate(p)
			if err != nil {
				return nil, err
			}
		}
		return []Conjunct{{p}}, nil
	case Not:
		return dnf(n.F, !negated)
	case And:
		if negated {
			// De Morgan: !(a && b) = !a || !b
			return dnfOr(n.L, n.R, true)
		}
		return dnfAnd(n.L, n.R, false)
	case Or:
		if negated {
			return dnfAnd(n.L, n.R, true)
		}
		return dnfOr(n.L, n.R, false)
	}
	return nil, fmt.Errorf("unknown formula node %T", f)
}

func dnfOr(l, r Formula, negated bool) ([]Conjunct, error) {
	lc, err := dnf(l, negated)
	if err != nil {
		return nil, err
	}
	rc, err := dnf(r, negated)
	if err != nil {
		return nil, err
	}
	return append(lc, rc...), nil
}

func dnfAnd(l, r Formula, negated bool) ([]Conjunct, error) {
	lc, err := dnf(l, negated)
	if err != nil {
		return nil, err
	}
	rc, err := dnf(r, negated)
	if err != nil {
		return nil, err
	}
	out := make([]Conjunct, 0, len(lc)*len(rc))
	for _, a := range lc {
		for _, b := range rc {
			merged := make(Conjunct, 0, len(a)+len(b))
			merged = append(merged, a...)
			merged = append(merged, b...)
			out = append(out, merged)
		}
	}
	return out, nil
}

// negate complements a single atom. Only the ordered comparisons have a
// positive complement over the integer domain.
func negate(p Predicate) (Predicate, error) {
	switch p.Kind {
	case PredLt:
		return Gt(p.Field, p.Value.Add(-1)), nil
	case PredGt:
		return Lt(p.Field, p.Value.Add(1)), nil
	default:
		return Predicate{}, fmt.Errorf("cannot negate %s", p)
	}
}

func canonicalize(c Conjunct) Conjunct {
	sort.SliceStable(c, func(i, j int) bool { return c[i].Compare(c[j]) < 0 })
	out := c[:0]
	for i, p := range c {
		if i > 0 && p.Equal(c[i-1]) {
			continue
		}
		out = append(out, p)
	}
	return out
}
