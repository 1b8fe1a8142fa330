package query

// ConstRange tracks the accumulated (lo, hi) closed interval a field has
// been constrained to along one compilation path. A nil endpoint is
// unbounded.
type ConstRange struct {
	Lo *Const
	Hi *Const
}

// SetEq pins the range to exactly x.
func (r ConstRange) SetEq(x Const) ConstRange {
	return ConstRange{Lo: &x, Hi: &x}
}

// SetLt caps the range below x: hi becomes x − 1.
func (r ConstRange) SetLt(x Const) ConstRange {
	h := x.Add(-1)
	return ConstRange{Lo: r.Lo, Hi: &h}
}

// SetGt floors the range above x: lo becomes x + 1.
func (r ConstRange) SetGt(x Const) ConstRange {
	l := x.Add(1)
	return ConstRange{Lo: &l, Hi: r.Hi}
}

// ImpliesTrueEq reports whether the range already pins the field to x.
func (r ConstRange) ImpliesTrueEq(x Const) bool {
	return r.Lo != nil && r.Hi != nil && r.Lo.Equal(x) && r.Hi.Equal(x)
}

// ImpliesTrueLt reports whether the range already guarantees field < x.
func (r ConstRange) ImpliesTrueLt(x Const) bool {
	return r.Hi != nil && r.Hi.Compare(x) < 0
}

// ImpliesTrueGt reports whether the range already guarantees field > x.
func (r ConstRange) ImpliesTrueGt(x Const) bool {
	return r.Lo != nil && r.Lo.Compare(x) > 0
}

// Empty reports whether the range admits no value.
func (r ConstRange) Empty() bool {
	return r.Lo != nil && r.Hi != nil && r.Lo.Compare(*r.Hi) > 0
}

// Contains reports whether x lies within the range.
func (r ConstRange) Contains(x Const) bool {
	if r.Lo != nil && r.Lo.Compare(x) > 0 {
		return false
	}
	if r.Hi != nil && r.Hi.Compare(x) < 0 {
		return false
	}
	return true
}

// ConstraintSet maps fields to their accumulated ranges along a compilation
// path, to detect atoms made redundant by earlier conjuncts on the same
// field. LPM atoms contribute nothing.
type ConstraintSet map[FieldKey]ConstRange

// NewConstraintSet returns an empty constraint set.
func NewConstraintSet() ConstraintSet { return make(ConstraintSet) }

// Add replaces the stored range for p's field using the setter matching p's
// kind. LPM atoms are ignored.
func (cs ConstraintSet) Add(p Predicate) {
	r := cs[p.Field.Key()]
	switch p.Kind {
	case PredEq:
		cs[p.Field.Key()] = r.SetEq(p.Value)
	case PredLt:
		cs[p.Field.Key()] = r.SetLt(p.Value)
	case PredGt:
		cs[p.Field.Key()] = r.SetGt(p.Value)
	}
}

// ImpliesTrue reports whether the stored range for p's field already
// guarantees p. LPM atoms are never implied.
func (cs ConstraintSet) ImpliesTrue(p Predicate) bool {
	r, ok := cs[p.Field.Key()]
	if !ok {
		return false
	}
	switch p.Kind {
	case PredEq:
		return r.ImpliesTrueEq(p.Value)
	case PredLt:
		return r.ImpliesTrueLt(p.Value)
	case PredGt:
		return r.ImpliesTrueGt(p.Value)
	}
	return false
}

// Range returns the stored range for a field.
func (cs ConstraintSet) Range(f Field) (ConstRange, bool) {
	r, ok := cs[f.Key()]
	return r, ok
}
