package query

import "fmt"

// PredKind identifies the comparison an atomic predicate performs. The
// declaration order is the ordering rank within one field: range atoms sort
// before equality so range constraints accumulate first, and LPM sorts last.
type PredKind int

const (
	PredLt PredKind = iota
	PredGt
	PredEq
	PredLpm
)

func (k PredKind) String() string {
	switch k {
	case PredLt:
		return "<"
	case PredGt:
		return ">"
	case PredEq:
		return "="
	case PredLpm:
		return "lpm"
	default:
		return "?"
	}
}

// Predicate is a single comparison between one field and one constant
// (two for LPM: base address and prefix length).
type Predicate struct {
	Kind   PredKind
	Field  Field
	Value  Const
	Prefix Const // LPM prefix length; Number
}

// Eq builds an equality atom. Any constant kind is allowed.
func Eq(f Field, c Const) Predicate { return Predicate{Kind: PredEq, Field: f, Value: c} }

// Lt builds a less-than atom; the constant must be a Number.
func Lt(f Field, c Const) Predicate { return Predicate{Kind: PredLt, Field: f, Value: c} }

// Gt builds a greater-than atom; the constant must be a Number.
func Gt(f Field, c Const) Predicate { return Predicate{Kind: PredGt, Field: f, Value: c} }

// Lpm builds a longest-prefix-match atom on an IPv4 or IPv6 address.
func Lpm(f Field, addr, prefixLen Const) Predicate {
	return Predicate{Kind: PredLpm, Field: f, Value: addr, Prefix: prefixLen}
}

// Validate enforces the operator/constant invariants: Lt/Gt apply only to
// numbers, Lpm only to addresses with a numeric prefix length.
func (p Predicate) Validate() error {
	switch p.Kind {
	case PredLt, PredGt:
		if p.Value.Kind != KindNumber {
			return fmt.Errorf("%s.%s: %s comparison requires a number, got %s",
				p.Field.Header, p.Field.Field, p.Kind, p.Value.Kind)
		}
	case PredLpm:
		if p.Value.Kind != KindIPv4 && p.Value.Kind != KindIPv6 {
			return fmt.Errorf("%s.%s: prefix match requires an IPv4 or IPv6 address, got %s",
				p.Field.Header, p.Field.Field, p.Value.Kind)
		}
		if p.Prefix.Kind != KindNumber {
			return fmt.Errorf("%s.%s: prefix length must be a number, got %s",
				p.Field.Header, p.Field.Field, p.Prefix.Kind)
		}
	}
	return nil
}

// Independent reports whether p and q constrain different fields.
func (p Predicate) Independent(q Predicate) bool { return !p.Field.Equal(q.Field) }

// Disjoint reports whether p ∧ q is structurally unsatisfiable. False never
// asserts satisfiability: the check is conservative and field-local.
func (p Predicate) Disjoint(q Predicate) bool {
	if p.Independent(q) {
		return false
	}
	// Normalize so the pair is checked in one orientation.
	if p.Kind > q.Kind {
		p, q = q, p
	}
	switch {
	case p.Kind == PredEq && q.Kind == PredEq:
		return !p.Value.Equal(q.Value)
	case p.Kind == PredGt && q.Kind == PredEq:
		// x > a ∧ x = b: empty when b ≤ a.
		return q.Value.Compare(p.Value) <= 0
	case p.Kind == PredLt && q.Kind == PredEq:
		// x < a ∧ x = b: empty when b ≥ a.
		return q.Value.Compare(p.Value) >= 0
	case p.Kind == PredLt && q.Kind == PredGt:
		// x < a ∧ x > b: empty when a ≤ b+1.
		return p.Value.Compare(q.Value.Add(1)) <= 0
	case p.Kind == PredLpm && q.Kind == PredLpm:
		// Conservative: nested prefixes with equal bases are not split.
		return !p.Value.Equal(q.Value)
	}
	return false
}

// Subset reports whether every assignment satisfying p satisfies q.
// Conservative false outside the covered comparisons; in particular nested
// LPM prefixes are not analyzed.
func (p Predicate) Subset(q Predicate) bool {
	if p.Independent(q) {
		return false
	}
	switch {
	case p.Kind == PredGt && q.Kind == PredGt:
		return p.Value.Compare(q.Value) >= 0
	case p.Kind == PredLt && q.Kind == PredLt:
		return p.Value.Compare(q.Value) <= 0
	case p.Kind == PredEq && q.Kind == PredGt:
		return p.Value.Compare(q.Value) > 0
	case p.Kind == PredEq && q.Kind == PredLt:
		return p.Value.Compare(q.Value) < 0
	case p.Kind == PredEq && q.Kind == PredEq:
		return p.Value.Equal(q.Value)
	case p.Kind == PredLpm && q.Kind == PredLpm:
		return p.Value.Equal(q.Value) && p.Prefix.Equal(q.Prefix)
	}
	return false
}

// Eval reports whether the assignment satisfies p. It is an error for the
// assignment to lack a binding for p's field or to bind a value whose type
// the comparison cannot consume.
func (p Predicate) Eval(a Assignment) (bool, error) {
	v, err := a.Lookup(p.Field)
	if err != nil {
		return false, err
	}
	switch p.Kind {
	case PredEq:
		if v.Kind != p.Value.Kind {
			return false, fmt.Errorf("field %s: cannot compare %s against %s",
				p.Field.Name(), v.Kind, p.Value.Kind)
		}
		return v.Equal(p.Value), nil
	case PredLt, PredGt:
		if v.Kind != KindNumber {
			return false, fmt.Errorf("field %s: ordered comparison on %s value",
				p.Field.Name(), v.Kind)
		}
		if p.Kind == PredLt {
			return v.Compare(p.Value) < 0, nil
		}
		return v.Compare(p.Value) > 0, nil
	case PredLpm:
		return p.evalLpm(v)
	}
	return false, fmt.Errorf("field %s: unknown predicate kind", p.Field.Name())
}

func (p Predicate) evalLpm(v Const) (bool, error) {
	plen, err := p.Prefix.ToInt()
	if err != nil {
		return false, err
	}
	switch p.Value.Kind {
	case KindIPv4:
		if v.Kind != KindIPv4 {
			return false, fmt.Errorf("field %s: prefix match on %s value", p.Field.Name(), v.Kind)
		}
		if plen <= 0 {
			return true, nil
		}
		if plen > 32 {
			plen = 32
		}
		shift := uint(32 - plen)
		return uint32(v.Num)>>shift == uint32(p.Value.Num)>>shift, nil
	case KindIPv6:
		if v.Kind != KindIPv6 {
			return false, fmt.Errorf("field %s: prefix match on %s value", p.Field.Name(), v.Kind)
		}
		if plen > 128 {
			plen = 128
		}
		rem := plen
		for i := range 4 {
			if rem <= 0 {
				break
			}
			bits := rem
			if bits > 32 {
				bits = 32
			}
			shift := uint(32 - bits)
			if v.V6[i]>>shift != p.Value.V6[i]>>shift {
				return false, nil
			}
			rem -= 32
		}
		return true, nil
	}
	return false, fmt.Errorf("field %s: prefix match base is not an address", p.Field.Name())
}

// Compare is a strict total order over atoms, used to canonicalize formula
// conjuncts. Atoms on different fields order by field priority; within a
// field the kind rank applies (Lt < Gt < Eq < Lpm) and atoms of the same
// kind order by constant (LPM by base address, then prefix length).
func (p Predicate) Compare(q Predicate) int {
	if c := p.Field.Compare(q.Field); c != 0 {
		return c
	}
	if p.Kind != q.Kind {
		if p.Kind < q.Kind {
			return -1
		}
		return 1
	}
	if c := p.Value.Compare(q.Value); c != 0 {
		return c
	}
	if p.Kind == PredLpm {
		return p.Prefix.Compare(q.Prefix)
	}
	return 0
}

// Equal reports whether two atoms are identical under Compare.
func (p Predicate) Equal(q Predicate) bool { return p.Compare(q) == 0 }

func (p Predicate) String() string {
	if p.Kind == PredLpm {
		plen, _ := p.Prefix.ToInt()
		return fmt.Sprintf("%s = %s/%d", p.Field.Name(), p.Value, plen)
	}
	return fmt.Sprintf("%s %s %s", p.Field.Name(), p.Kind, p.Value)
}
