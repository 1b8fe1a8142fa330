package rules

import "github.com/camuslang/camus/pkg/query"

// File is a parsed rule file.
type File struct {
	Rules []*RuleNode
}

// RuleNode is one `query : action_list ;` rule.
type RuleNode struct {
	Expr    ExprNode
	Actions []*CallNode
	Line    int
	Column  int
}

// ExprNode is a node of the query expression tree. The variant set is
// closed: OrNode, AndNode and RelNode.
type ExprNode interface {
	exprNode()
}

// OrNode is a '||' of two sub-expressions.
type OrNode struct {
	L, R ExprNode
}

// AndNode is a '&&' of two sub-expressions.
type AndNode struct {
	L, R ExprNode
}

// RelOp is the comparison operator of a relational expression.
type RelOp int

const (
	OpLess RelOp = iota
	OpGreater
	OpEquals
)

func (op RelOp) String() string {
	switch op {
	case OpLess:
		return "<"
	case OpGreater:
		return ">"
	case OpEquals:
		return "="
	default:
		return "?"
	}
}

// RelNode is a single comparison: [!] lhs op const, or the LPM form
// [!] lhs = addr / prefix in which Prefix is non-nil.
type RelNode struct {
	Negate bool
	LHS    LHSNode
	Op     RelOp
	Value  query.Const
	Prefix *query.Const
	Line   int
	Column int
}

// LHSNode is the left-hand side of a comparison: either a (possibly bare)
// field reference or a call form addressing stateful metadata.
type LHSNode struct {
	IsCall bool
	Header string
	Field  string
	Call   *CallNode
}

// CallNode is `name(args…)`, used both as an LHS and as an action.
type CallNode struct {
	Name   string
	Args   []ArgNode
	Line   int
	Column int
}

// ArgNode is one call argument: a numeric literal or a bare identifier.
type ArgNode struct {
	IsNum bool
	Num   int64
	Text  string
}

func (*OrNode) exprNode()  {}
func (*AndNode) exprNode() {}
func (*RelNode) exprNode() {}
