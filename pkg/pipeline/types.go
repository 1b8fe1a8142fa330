// Package pipeline compiles a typed rule set into an abstract pipeline of
// per-field state-transition tables plus a terminal actions table. The
// pipeline is a staged DFA: a packet carries a 16-bit state through one
// table per header field, and the terminal table maps its final state to
// the merged action set.
package pipeline

import (
	"fmt"
	"strings"

	"github.com/camuslang/camus/pkg/query"
)

// MatchKind identifies the shape of a transition's field match.
type MatchKind int

const (
	MatchWildcard MatchKind = iota
	MatchEq
	MatchLt
	MatchGt
	MatchRange
	MatchLpm
)

func (k MatchKind) String() string {
	switch k {
	case MatchWildcard:
		return "wildcard"
	case MatchEq:
		return "eq"
	case MatchLt:
		return "lt"
	case MatchGt:
		return "gt"
	case MatchRange:
		return "range"
	case MatchLpm:
		return "lpm"
	default:
		return "unknown"
	}
}

// Match is the field condition of one transition.
type Match struct {
	Kind   MatchKind
	Value  query.Const // Eq/Lt/Gt value; Range low bound; Lpm base address
	Hi     query.Const // Range high bound
	Prefix int         // Lpm prefix length
}

// Ternary reports whether the match needs an explicit priority on the
// target (any range-shaped match).
func (m Match) Ternary() bool {
	return m.Kind == MatchLt || m.Kind == MatchGt || m.Kind == MatchRange
}

// key is a canonical representation used to share transitions between
// conjuncts that constrain a field identically.
func (m Match) key() string {
	switch m.Kind {
	case MatchWildcard:
		return "*"
	case MatchEq:
		return "=" + m.Value.String()
	case MatchLt:
		return "<" + m.Value.String()
	case MatchGt:
		return ">" + m.Value.String()
	case MatchRange:
		return m.Value.String() + ".." + m.Hi.String()
	case MatchLpm:
		return fmt.Sprintf("%s/%d", m.Value, m.Prefix)
	default:
		return "?"
	}
}

func (m Match) String() string {
	if m.Kind == MatchWildcard {
		return "*"
	}
	return m.key()
}

// Transition is one entry of a transition table: in state StateIn, a packet
// whose field matches moves to StateOut. Priority is non-zero only for
// ternary matches.
type Transition struct {
	StateIn  uint16
	Match    Match
	StateOut uint16
	Priority int
}

// Table is the transition table for one header field.
type Table struct {
	Field       query.Field
	Transitions []Transition
}

// Name returns the table's base name, derived from its field.
func (t *Table) Name() string {
	return "query_" + t.Field.Header + "_" + t.Field.Field
}

// Terminal maps one final state to the actions it triggers.
type Terminal struct {
	State   uint16
	Actions []query.Action
}

// Pipeline is the compiled abstract pipeline: transition tables in field
// order followed by the single terminal table. States form a DAG across
// the sequence; state 0 is the start state of every packet.
type Pipeline struct {
	Tables        []Table
	Terminal      []Terminal
	DefaultAction *query.Action
}

// String renders the pipeline for debugging and the REPL.
func (p *Pipeline) String() string {
	var b strings.Builder
	for i := range p.Tables {
		t := &p.Tables[i]
		fmt.Fprintf(&b, "table %s (%s)\n", t.Name(), t.Field.Name())
		for _, tr := range t.Transitions {
			if tr.Priority != 0 {
				fmt.Fprintf(&b, "  %4d %-24s -> %-4d prio=%d\n", tr.StateIn, tr.Match, tr.StateOut, tr.Priority)
			} else {
				fmt.Fprintf(&b, "  %4d %-24s -> %d\n", tr.StateIn, tr.Match, tr.StateOut)
			}
		}
	}
	b.WriteString("table query_actions\n")
	for _, term := range p.Terminal {
		parts := make([]string, len(term.Actions))
		for i, a := range term.Actions {
			parts[i] = a.String()
		}
		fmt.Fprintf(&b, "  %4d -> %s\n", term.State, strings.Join(parts, ", "))
	}
	return b.String()
}
