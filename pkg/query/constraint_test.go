package query

import "testing"

func TestConstRangeSetters(t *testing.T) {
	var r ConstRange

	r = r.SetLt(Number(100))
	if r.Lo != nil || r.Hi == nil || !r.Hi.Equal(Number(99)) {
		t.Fatalf("after SetLt(100): %+v", r)
	}

	r = r.SetGt(Number(10))
	if r.Lo == nil || !r.Lo.Equal(Number(11)) || !r.Hi.Equal(Number(99)) {
		t.Fatalf("after SetGt(10): %+v", r)
	}

	r = r.SetEq(Number(50))
	if !r.Lo.Equal(Number(50)) || !r.Hi.Equal(Number(50)) {
		t.Fatalf("after SetEq(50): %+v", r)
	}
}

func TestConstRangeImplies(t *testing.T) {
	var r ConstRange
	r = r.SetEq(Number(7))
	if !r.ImpliesTrueEq(Number(7)) {
		t.Error("pinned range should imply its own equality")
	}
	if r.ImpliesTrueEq(Number(8)) {
		t.Error("pinned range should not imply a different equality")
	}
	if !r.ImpliesTrueLt(Number(8)) {
		t.Error("[7,7] implies < 8")
	}
	if r.ImpliesTrueLt(Number(7)) {
		t.Error("[7,7] does not imply < 7")
	}
	if !r.ImpliesTrueGt(Number(6)) {
		t.Error("[7,7] implies > 6")
	}
	if r.ImpliesTrueGt(Number(7)) {
		t.Error("[7,7] does not imply > 7")
	}

	var unbounded ConstRange
	if unbounded.ImpliesTrueLt(Number(5)) || unbounded.ImpliesTrueGt(Number(5)) || unbounded.ImpliesTrueEq(Number(5)) {
		t.Error("unbounded range implies nothing")
	}
}

func TestConstRangeEmpty(t *testing.T) {
	var r ConstRange
	r = r.SetGt(Number(10)) // lo = 11
	r = r.SetLt(Number(11)) // hi = 10
	if !r.Empty() {
		t.Errorf("range %+v should be empty", r)
	}

	var ok ConstRange
	ok = ok.SetGt(Number(10))
	ok = ok.SetLt(Number(12)) // [11, 11]
	if ok.Empty() {
		t.Errorf("range %+v should admit 11", ok)
	}
	if !ok.Contains(Number(11)) || ok.Contains(Number(12)) {
		t.Errorf("Contains wrong on %+v", ok)
	}
}

// After adding any range-contributing atom, the set must imply that atom.
func TestConstraintSetAddImplies(t *testing.T) {
	atoms := []Predicate{
		Lt(tcpDport, Number(2000)),
		Gt(tcpDport, Number(1023)),
		Eq(ipv4Dst, Number(5)),
	}
	for _, p := range atoms {
		cs := NewConstraintSet()
		cs.Add(p)
		if !cs.ImpliesTrue(p) {
			t.Errorf("after Add(%s), ImpliesTrue(%s) = false", p, p)
		}
	}
}

func TestConstraintSetAccumulation(t *testing.T) {
	cs := NewConstraintSet()
	cs.Add(Gt(tcpDport, Number(1023)))
	cs.Add(Lt(tcpDport, Number(2000)))

	r, ok := cs.Range(tcpDport)
	if !ok {
		t.Fatal("no range stored for tcp.dport")
	}
	if r.Lo == nil || !r.Lo.Equal(Number(1024)) || r.Hi == nil || !r.Hi.Equal(Number(1999)) {
		t.Errorf("accumulated range = %+v, want [1024, 1999]", r)
	}

	// A looser atom is already implied.
	if !cs.ImpliesTrue(Gt(tcpDport, Number(1000))) {
		t.Error("> 1000 should be implied by lo = 1024")
	}
	if cs.ImpliesTrue(Gt(tcpDport, Number(1024))) {
		t.Error("> 1024 is not implied by lo = 1024")
	}
}

func TestConstraintSetIgnoresLpm(t *testing.T) {
	cs := NewConstraintSet()
	p := Lpm(ipv4Dst, IPv4(0x0a000000), Number(8))
	cs.Add(p)
	if _, ok := cs.Range(ipv4Dst); ok {
		t.Error("LPM atoms must not contribute to the constraint set")
	}
	if cs.ImpliesTrue(p) {
		t.Error("LPM atoms are never implied")
	}
}
