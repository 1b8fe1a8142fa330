package pipeline

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/camuslang/camus/pkg/query"
)

// initialPriority seeds the descending ternary priority counter. Earlier
// entries get higher priorities, so source order wins on overlap.
const initialPriority = 1 << 20

// maxState bounds state allocation to what the 16-bit metadata field can
// carry.
const maxState = 1<<16 - 1

// compiler holds the per-run mutable state: the growing tables, the state
// allocator and the ternary priority counter.
type compiler struct {
	layers       []*layer
	terminal     map[uint16][]query.Action
	termOrder    []uint16
	nextState    uint32
	nextPriority int
}

type layer struct {
	field query.Field
	table Table
	trans map[transKey]uint16
}

// transKey identifies a transition for sharing: same in-state, same match.
type transKey struct {
	state uint16
	match string
}

// ruleConjuncts pairs a rule with its normalized DNF conjuncts.
type ruleConjuncts struct {
	rule  query.Rule
	conjs []query.Conjunct
}

// Compile translates a rule set into an abstract pipeline. Each rule's
// formula is normalized to DNF; each conjunct threads one path of states
// through the per-field tables, sharing transitions with identical
// prefixes, and lands on a terminal state carrying the rule's actions.
func Compile(rs *query.RuleSet) (*Pipeline, error) {
	normalized := make([]ruleConjuncts, 0, len(rs.Rules))
	for i, r := range rs.Rules {
		if err := checkActions(r.Actions); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i+1, err)
		}
		conjs, err := query.DNF(r.Query)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i+1, err)
		}
		normalized = append(normalized, ruleConjuncts{rule: r, conjs: conjs})
	}

	c := &compiler{
		terminal:     make(map[uint16][]query.Action),
		nextPriority: initialPriority,
	}
	c.buildLayers(normalized)

	pruned := 0
	for i, rc := range normalized {
		for _, conj := range rc.conjs {
			matches, prune, err := c.foldConjunct(conj)
			if err != nil {
				return nil, fmt.Errorf("rule %d: %w", i+1, err)
			}
			if prune {
				pruned++
				slog.Debug("conjunct pruned as unsatisfiable", "rule", i+1, "conjunct", conj.String())
				continue
			}
			if err := c.thread(matches, rc.rule.Actions); err != nil {
				return nil, fmt.Errorf("rule %d: %w", i+1, err)
			}
		}
	}

	p := &Pipeline{DefaultAction: rs.DefaultAction}
	for _, l := range c.layers {
		p.Tables = append(p.Tables, l.table)
	}
	for _, s := range c.termOrder {
		p.Terminal = append(p.Terminal, Terminal{State: s, Actions: c.terminal[s]})
	}
	sort.Slice(p.Terminal, func(i, j int) bool { return p.Terminal[i].State < p.Terminal[j].State })

	slog.Info("rules compiled to pipeline",
		"rules", len(rs.Rules),
		"tables", len(p.Tables),
		"states", c.nextState,
		"terminals", len(p.Terminal),
		"pruned_conjuncts", pruned)
	return p, nil
}

// checkActions rejects a rule mixing forwarding with non-forwarding
// actions; the data plane cannot run both from one terminal state.
func checkActions(actions []query.Action) error {
	var fwd, user bool
	for _, a := range actions {
		if a.Kind == query.ActionForward {
			fwd = true
		} else {
			user = true
		}
	}
	if fwd && user {
		return fmt.Errorf("cannot merge fwd action with other types")
	}
	return nil
}

// buildLayers collects every field referenced by any conjunct and lays the
// tables out in ascending field order (priority, lowest first).
func (c *compiler) buildLayers(normalized []ruleConjuncts) {
	seen := make(map[query.FieldKey]query.Field)
	var fields []query.Field
	for _, rc := range normalized {
		for _, conj := range rc.conjs {
			for _, p := range conj {
				if _, ok := seen[p.Field.Key()]; !ok {
					seen[p.Field.Key()] = p.Field
					fields = append(fields, p.Field)
				}
			}
		}
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Compare(fields[j]) < 0 })

	for _, f := range fields {
		c.layers = append(c.layers, &layer{
			field: f,
			table: Table{Field: f},
			trans: make(map[transKey]uint16),
		})
	}
}

// foldConjunct reduces a conjunct to at most one match per field. Range
// atoms accumulate through a ConstRange so implied atoms are skipped and
// contradictions prune the conjunct; an equality must land inside the
// accumulated range; prefix matches cannot combine with anything else on
// the same field.
func (c *compiler) foldConjunct(conj query.Conjunct) (map[query.FieldKey]Match, bool, error) {
	// Pairwise structural contradiction check.
	for i := range conj {
		for j := i + 1; j < len(conj); j++ {
			if conj[i].Disjoint(conj[j]) {
				return nil, true, nil
			}
		}
	}

	matches := make(map[query.FieldKey]Match)
	for start := 0; start < len(conj); {
		end := start
		for end < len(conj) && conj[end].Field.Equal(conj[start].Field) {
			end++
		}
		m, prune, err := foldFieldAtoms(conj[start].Field, conj[start:end])
		if err != nil {
			return nil, false, err
		}
		if prune {
			return nil, true, nil
		}
		matches[conj[start].Field.Key()] = m
		start = end
	}
	return matches, false, nil
}

// foldFieldAtoms folds one field's atoms (already in canonical order:
// Lt, Gt, Eq, Lpm) into a single match.
func foldFieldAtoms(field query.Field, atoms []query.Predicate) (Match, bool, error) {
	var (
		cr       query.ConstRange
		eq       *query.Const
		ltC, gtC *query.Const
		lpmBase  *query.Const
		lpmLen   int64
		hasLpm   bool
	)

	for _, p := range atoms {
		switch p.Kind {
		case query.PredLt:
			if cr.ImpliesTrueLt(p.Value) {
				continue
			}
			cr = cr.SetLt(p.Value)
			v := p.Value
			ltC = &v
		case query.PredGt:
			if cr.ImpliesTrueGt(p.Value) {
				continue
			}
			cr = cr.SetGt(p.Value)
			v := p.Value
			gtC = &v
		case query.PredEq:
			if eq != nil {
				// Distinct equalities were already pruned pairwise.
				continue
			}
			if !cr.Contains(p.Value) {
				return Match{}, true, nil
			}
			v := p.Value
			eq = &v
			cr = cr.SetEq(p.Value)
		case query.PredLpm:
			plen, err := p.Prefix.ToInt()
			if err != nil {
				return Match{}, false, err
			}
			if hasLpm {
				if lpmBase.Equal(p.Value) && lpmLen == plen {
					continue
				}
				return Match{}, false, fmt.Errorf(
					"field %s: cannot combine multiple prefix matches", field.Name())
			}
			v := p.Value
			lpmBase = &v
			lpmLen = plen
			hasLpm = true
		}
	}

	if cr.Empty() {
		return Match{}, true, nil
	}
	if hasLpm && (eq != nil || ltC != nil || gtC != nil) {
		return Match{}, false, fmt.Errorf(
			"field %s: cannot combine a prefix match with other constraints", field.Name())
	}

	switch {
	case eq != nil:
		return Match{Kind: MatchEq, Value: *eq}, false, nil
	case hasLpm:
		return Match{Kind: MatchLpm, Value: *lpmBase, Prefix: int(lpmLen)}, false, nil
	case ltC != nil && gtC != nil:
		return Match{Kind: MatchRange, Value: gtC.Add(1), Hi: ltC.Add(-1)}, false, nil
	case ltC != nil:
		return Match{Kind: MatchLt, Value: *ltC}, false, nil
	case gtC != nil:
		return Match{Kind: MatchGt, Value: *gtC}, false, nil
	default:
		return Match{Kind: MatchWildcard}, false, nil
	}
}

// thread walks one conjunct's matches through the table sequence, reusing
// transitions emitted for an identical match from the same state and
// allocating fresh states where the path diverges.
func (c *compiler) thread(matches map[query.FieldKey]Match, actions []query.Action) error {
	state := uint16(0)
	for _, l := range c.layers {
		m, ok := matches[l.field.Key()]
		if !ok {
			m = Match{Kind: MatchWildcard}
		}
		k := transKey{state: state, match: m.key()}
		if out, ok := l.trans[k]; ok {
			state = out
			continue
		}
		out, err := c.allocState()
		if err != nil {
			return err
		}
		prio := 0
		if m.Ternary() {
			prio = c.nextPriority
			c.nextPriority--
		}
		l.table.Transitions = append(l.table.Transitions, Transition{
			StateIn:  state,
			Match:    m,
			StateOut: out,
			Priority: prio,
		})
		l.trans[k] = out
		state = out
	}

	if existing, ok := c.terminal[state]; ok {
		c.terminal[state] = mergeActions(existing, actions)
	} else {
		c.terminal[state] = append([]query.Action(nil), actions...)
		c.termOrder = append(c.termOrder, state)
	}
	return nil
}

func (c *compiler) allocState() (uint16, error) {
	c.nextState++
	if c.nextState > maxState {
		return 0, fmt.Errorf("state space exhausted (more than %d states)", maxState)
	}
	return uint16(c.nextState), nil
}

// mergeActions unions two action lists, dropping duplicates and keeping
// first-seen order.
func mergeActions(a, b []query.Action) []query.Action {
	out := append([]query.Action(nil), a...)
	for _, act := range b {
		dup := false
		for _, have := range out {
			if have.Equal(act) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, act)
		}
	}
	return out
}
