package rules

import (
	"fmt"

	"github.com/camuslang/camus/pkg/query"
)

// CompileFile converts a parsed rule file into a typed rule set, resolving
// field references against the catalog and enforcing the operator/constant
// and action shape invariants.
func CompileFile(file *File, catalog *Catalog) (*query.RuleSet, error) {
	rs := &query.RuleSet{}
	for i, node := range file.Rules {
		rule, err := compileRule(node, catalog)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i+1, err)
		}
		rs.Rules = append(rs.Rules, rule)
	}
	return rs, nil
}

// Compile parses and compiles rule text in one step.
func Compile(input string, catalog *Catalog) (*query.RuleSet, error) {
	file, err := NewParser(input).Parse()
	if err != nil {
		return nil, err
	}
	return CompileFile(file, catalog)
}

func compileRule(node *RuleNode, catalog *Catalog) (query.Rule, error) {
	formula, err := compileExpr(node.Expr, catalog)
	if err != nil {
		return query.Rule{}, err
	}

	actions := make([]query.Action, 0, len(node.Actions))
	for _, call := range node.Actions {
		act, err := compileAction(call)
		if err != nil {
			return query.Rule{}, err
		}
		actions = append(actions, act)
	}
	return query.Rule{Query: formula, Actions: actions}, nil
}

func compileExpr(node ExprNode, catalog *Catalog) (query.Formula, error) {
	switch n := node.(type) {
	case *OrNode:
		l, err := compileExpr(n.L, catalog)
		if err != nil {
			return nil, err
		}
		r, err := compileExpr(n.R, catalog)
		if err != nil {
			return nil, err
		}
		return query.Or{L: l, R: r}, nil
	case *AndNode:
		l, err := compileExpr(n.L, catalog)
		if err != nil {
			return nil, err
		}
		r, err := compileExpr(n.R, catalog)
		if err != nil {
			return nil, err
		}
		return query.And{L: l, R: r}, nil
	case *RelNode:
		return compileRel(n, catalog)
	}
	return nil, fmt.Errorf("unknown expression node %T", node)
}

func compileRel(n *RelNode, catalog *Catalog) (query.Formula, error) {
	field, err := resolveLHS(n.LHS, catalog)
	if err != nil {
		return nil, fmt.Errorf("line %d:%d: %w", n.Line, n.Column, err)
	}

	var pred query.Predicate
	switch {
	case n.Prefix != nil:
		pred = query.Lpm(field, n.Value, *n.Prefix)
	case n.Op == OpLess:
		pred = query.Lt(field, n.Value)
	case n.Op == OpGreater:
		pred = query.Gt(field, n.Value)
	default:
		pred = query.Eq(field, n.Value)
	}
	if err := pred.Validate(); err != nil {
		return nil, fmt.Errorf("line %d:%d: %w", n.Line, n.Column, err)
	}

	var f query.Formula = query.Atom{Pred: pred}
	if n.Negate {
		f = query.Not{F: f}
	}
	return f, nil
}

// resolveLHS maps a surface LHS to a typed field. A call form addresses
// stateful metadata by its first argument; `inc` is reserved.
func resolveLHS(lhs LHSNode, catalog *Catalog) (query.Field, error) {
	if !lhs.IsCall {
		return catalog.Resolve(lhs.Header, lhs.Field), nil
	}
	call := lhs.Call
	if call.Name == "inc" {
		return query.Field{}, fmt.Errorf("inc() is reserved and cannot be used in a query")
	}
	if len(call.Args) == 0 {
		return query.Field{}, fmt.Errorf("%s() needs a field argument", call.Name)
	}
	if call.Args[0].IsNum {
		return query.Field{}, fmt.Errorf("%s(): first argument must name a field", call.Name)
	}
	return catalog.Resolve("stful_meta", call.Args[0].Text), nil
}

func compileAction(call *CallNode) (query.Action, error) {
	if call.Name == "fwd" {
		if len(call.Args) != 1 || !call.Args[0].IsNum {
			return query.Action{}, fmt.Errorf("line %d:%d: fwd() takes a single numeric port",
				call.Line, call.Column)
		}
		return query.Forward(int(call.Args[0].Num)), nil
	}

	args := make([]int64, len(call.Args))
	for i, a := range call.Args {
		if !a.IsNum {
			return query.Action{}, fmt.Errorf("line %d:%d: action %s: argument %q is not numeric",
				call.Line, call.Column, call.Name, a.Text)
		}
		args[i] = a.Num
	}
	return query.User(call.Name, args), nil
}
