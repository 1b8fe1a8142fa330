package rules

import (
	"testing"

	"github.com/camuslang/camus/pkg/query"
)

func parseOne(t *testing.T, input string) *RuleNode {
	t.Helper()
	file, err := NewParser(input).Parse()
	if err != nil {
		t.Fatalf("parse %q: %v", input, err)
	}
	if len(file.Rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(file.Rules))
	}
	return file.Rules[0]
}

func TestParseSimpleRule(t *testing.T) {
	rule := parseOne(t, `ipv4.dstAddr = 10.0.0.1 : fwd(3) ;`)

	rel, ok := rule.Expr.(*RelNode)
	if !ok {
		t.Fatalf("expr is %T", rule.Expr)
	}
	if rel.LHS.Header != "ipv4" || rel.LHS.Field != "dstAddr" {
		t.Errorf("lhs = %+v", rel.LHS)
	}
	if rel.Op != OpEquals || rel.Negate {
		t.Errorf("op = %v negate = %v", rel.Op, rel.Negate)
	}
	want, _ := query.ParseIPv4("10.0.0.1")
	if !rel.Value.Equal(want) {
		t.Errorf("value = %s", rel.Value)
	}
	if len(rule.Actions) != 1 || rule.Actions[0].Name != "fwd" {
		t.Errorf("actions = %+v", rule.Actions)
	}
}

func TestParseBareFieldIsDefaultHeader(t *testing.T) {
	rule := parseOne(t, `dport > 1023 : fwd(1) ;`)
	rel := rule.Expr.(*RelNode)
	if rel.LHS.Header != "default" || rel.LHS.Field != "dport" {
		t.Errorf("lhs = %+v", rel.LHS)
	}
	if rel.Op != OpGreater {
		t.Errorf("op = %v", rel.Op)
	}
}

func TestParseLpm(t *testing.T) {
	rule := parseOne(t, `ipv4.dstAddr = 10.0.0.0 / 8 : fwd(2) ;`)
	rel := rule.Expr.(*RelNode)
	if rel.Prefix == nil {
		t.Fatal("prefix not parsed")
	}
	plen, err := rel.Prefix.ToInt()
	if err != nil || plen != 8 {
		t.Errorf("prefix = %v, %v", rel.Prefix, err)
	}
}

func TestParseLpmRequiresEquals(t *testing.T) {
	if _, err := NewParser(`tcp.dport < 10 / 8 : fwd(1) ;`).Parse(); err == nil {
		t.Error("prefix on '<' should be a parse error")
	}
}

func TestParsePrecedence(t *testing.T) {
	// && binds tighter than ||.
	rule := parseOne(t, `a = 1 || b = 2 && c = 3 : fwd(1) ;`)
	or, ok := rule.Expr.(*OrNode)
	if !ok {
		t.Fatalf("top is %T, want OrNode", rule.Expr)
	}
	if _, ok := or.L.(*RelNode); !ok {
		t.Errorf("or.L is %T", or.L)
	}
	if _, ok := or.R.(*AndNode); !ok {
		t.Errorf("or.R is %T, want AndNode", or.R)
	}
}

func TestParseNegation(t *testing.T) {
	rule := parseOne(t, `! tcp.dport < 1024 : fwd(1) ;`)
	rel := rule.Expr.(*RelNode)
	if !rel.Negate {
		t.Error("negation lost")
	}
}

func TestParseCallLHS(t *testing.T) {
	rule := parseOne(t, `count(flows) > 10 : fwd(1) ;`)
	rel := rule.Expr.(*RelNode)
	if !rel.LHS.IsCall || rel.LHS.Call.Name != "count" {
		t.Fatalf("lhs = %+v", rel.LHS)
	}
	if len(rel.LHS.Call.Args) != 1 || rel.LHS.Call.Args[0].Text != "flows" {
		t.Errorf("args = %+v", rel.LHS.Call.Args)
	}
}

func TestParseActionList(t *testing.T) {
	rule := parseOne(t, `eth.src = aa:bb:cc:dd:ee:ff : fwd(1), fwd(2), log_pkt(7, 8) ;`)
	if len(rule.Actions) != 3 {
		t.Fatalf("actions = %d", len(rule.Actions))
	}
	last := rule.Actions[2]
	if last.Name != "log_pkt" || len(last.Args) != 2 || !last.Args[0].IsNum || last.Args[0].Num != 7 {
		t.Errorf("last action = %+v", last)
	}
}

func TestParseMultipleRules(t *testing.T) {
	input := `
# pick off ssh
tcp.dport = 22 : fwd(1) ;
tcp.dport = 80 : fwd(2) ;
`
	file, err := NewParser(input).Parse()
	if err != nil {
		t.Fatal(err)
	}
	if len(file.Rules) != 2 {
		t.Errorf("rules = %d", len(file.Rules))
	}
}

func TestParseStringConst(t *testing.T) {
	rule := parseOne(t, `msg.topic = "orders" : deliver(1) ;`)
	rel := rule.Expr.(*RelNode)
	if rel.Value.Kind != query.KindString || rel.Value.Str != "orders" {
		t.Errorf("value = %+v", rel.Value)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing semicolon", `tcp.dport = 22 : fwd(1)`},
		{"missing colon", `tcp.dport = 22 fwd(1) ;`},
		{"missing action", `tcp.dport = 22 : ;`},
		{"missing constant", `tcp.dport = : fwd(1) ;`},
		{"missing operator", `tcp.dport 22 : fwd(1) ;`},
		{"stray paren", `tcp.dport = 22 : fwd(1)) ;`},
		{"lone pipe", `a = 1 | b = 2 : fwd(1) ;`},
		{"constant lhs", `22 = tcp.dport : fwd(1) ;`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewParser(tt.input).Parse(); err == nil {
				t.Errorf("parse %q: expected error", tt.input)
			}
		})
	}
}

func TestParseErrorHasLocation(t *testing.T) {
	_, err := NewParser("tcp.dport = 22 :\n  fwd(1\n;").Parse()
	if err == nil {
		t.Fatal("expected error")
	}
	if got := err.Error(); got[:5] != "line " {
		t.Errorf("error %q does not lead with a location", got)
	}
}
