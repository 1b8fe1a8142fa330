package query

import (
	"fmt"
	"strings"
)

// ActionKind identifies the variant of an Action.
type ActionKind int

const (
	ActionForward ActionKind = iota
	ActionUser
)

// Action is one entry of a rule's action list: either forwarding to an
// output port or invoking a named user action with numeric arguments.
type Action struct {
	Kind ActionKind
	Port int
	Name string
	Args []int64
}

// Forward returns a forwarding action to the given port.
func Forward(port int) Action { return Action{Kind: ActionForward, Port: port} }

// User returns a user action call.
func User(name string, args []int64) Action {
	return Action{Kind: ActionUser, Name: name, Args: args}
}

// Compare is a total order over actions: forwarding actions first, ordered
// by port; user actions by name, then argument lists elementwise.
func (a Action) Compare(b Action) int {
	if a.Kind != b.Kind {
		if a.Kind < b.Kind {
			return -1
		}
		return 1
	}
	if a.Kind == ActionForward {
		if a.Port != b.Port {
			if a.Port < b.Port {
				return -1
			}
			return 1
		}
		return 0
	}
	if c := strings.Compare(a.Name, b.Name); c != 0 {
		return c
	}
	for i := 0; i < len(a.Args) && i < len(b.Args); i++ {
		if a.Args[i] != b.Args[i] {
			if a.Args[i] < b.Args[i] {
				return -1
			}
			return 1
		}
	}
	if len(a.Args) != len(b.Args) {
		if len(a.Args) < len(b.Args) {
			return -1
		}
		return 1
	}
	return 0
}

// Equal reports whether two actions are identical under Compare.
func (a Action) Equal(b Action) bool { return a.Compare(b) == 0 }

func (a Action) String() string {
	if a.Kind == ActionForward {
		return fmt.Sprintf("fwd(%d)", a.Port)
	}
	parts := make([]string, len(a.Args))
	for i, v := range a.Args {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return fmt.Sprintf("%s(%s)", a.Name, strings.Join(parts, ", "))
}

// Rule pairs a query formula with the actions to run when it matches.
type Rule struct {
	Query   Formula
	Actions []Action
}

// RuleSet is an ordered list of rules plus an optional default action for
// terminal states whose action list is empty.
type RuleSet struct {
	Rules         []Rule
	DefaultAction *Action
}
