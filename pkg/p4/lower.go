package p4

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/camuslang/camus/pkg/pipeline"
	"github.com/camuslang/camus/pkg/query"
)

// stateField is the synthetic metadata field carrying the pipeline state.
var stateField = FieldSpec{Name: "query.state", Width: 16, Type: MatchExact}

// Lower translates an abstract pipeline into the concrete target program:
// each transition table splits by match shape into up to four physical
// tables, the terminal table becomes query_actions, and multi-port
// forwarding sets get multicast groups.
func Lower(p *pipeline.Pipeline) (*Program, error) {
	prog := &Program{}
	groups, groupIDs := multicastGroups(p)
	prog.Groups = groups

	for i := range p.Tables {
		tables, err := lowerTable(&p.Tables[i])
		if err != nil {
			return nil, err
		}
		prog.Tables = append(prog.Tables, tables...)
	}

	actions, err := lowerTerminal(p, groupIDs)
	if err != nil {
		return nil, err
	}
	prog.Tables = append(prog.Tables, actions)

	slog.Debug("pipeline lowered",
		"tables", len(prog.Tables),
		"entries", prog.EntryCount(),
		"multicast_groups", len(prog.Groups))
	return prog, nil
}

// lowerTable splits one abstract transition table into its physical
// shape tables, creating each only if non-empty. Every transition lands
// in exactly one of them.
func lowerTable(t *pipeline.Table) ([]P4Table, error) {
	base := t.Name()
	fieldName := t.Field.Name()
	width := t.Field.Width

	exact := P4Table{
		Name:   base + "_exact",
		Fields: []FieldSpec{stateField, {Name: fieldName, Width: width, Type: MatchExact}},
	}
	rng := P4Table{
		Name:       base + "_range",
		Fields:     []FieldSpec{stateField, {Name: fieldName, Width: width, Type: MatchRange}},
		HasTernary: true,
	}
	lpm := P4Table{
		Name:   base + "_lpm",
		Fields: []FieldSpec{stateField, {Name: fieldName, Width: width, Type: MatchLPM}},
	}
	miss := P4Table{
		Name:   base + "_miss",
		Fields: []FieldSpec{stateField},
	}

	for _, tr := range t.Transitions {
		state := MatchValue{Type: MatchExact, Value: strconv.Itoa(int(tr.StateIn)), Width: 16}
		entry := Entry{
			Action:   "set_next_state",
			Params:   []Param{{Name: "next_state", Value: strconv.Itoa(int(tr.StateOut))}},
			Priority: tr.Priority,
		}

		switch tr.Match.Kind {
		case pipeline.MatchEq:
			entry.Match = []MatchValue{state, {
				Type:  MatchExact,
				Value: encodeConst(tr.Match.Value, width),
				Human: tr.Match.Value.String(),
				Width: width,
			}}
			exact.Entries = append(exact.Entries, entry)
		case pipeline.MatchLt:
			entry.Match = []MatchValue{state, {
				Type:  MatchRange,
				Form:  RangeLt,
				Lo:    "0",
				Hi:    encodeOffset(tr.Match.Value, width, -1),
				HiHex: maxHex(width),
				Width: width,
			}}
			rng.Entries = append(rng.Entries, entry)
		case pipeline.MatchGt:
			entry.Match = []MatchValue{state, {
				Type:  MatchRange,
				Form:  RangeGt,
				Lo:    encodeOffset(tr.Match.Value, width, 1),
				Hi:    maxDecimal(width),
				HiHex: maxHex(width),
				Width: width,
			}}
			rng.Entries = append(rng.Entries, entry)
		case pipeline.MatchRange:
			entry.Match = []MatchValue{state, {
				Type:  MatchRange,
				Form:  RangeFull,
				Lo:    encodeConst(tr.Match.Value, width),
				Hi:    encodeConst(tr.Match.Hi, width),
				Width: width,
			}}
			rng.Entries = append(rng.Entries, entry)
		case pipeline.MatchLpm:
			entry.Match = []MatchValue{state, {
				Type:   MatchLPM,
				Value:  encodeConst(tr.Match.Value, width),
				Human:  tr.Match.Value.String(),
				Prefix: tr.Match.Prefix,
				Width:  width,
			}}
			lpm.Entries = append(lpm.Entries, entry)
		case pipeline.MatchWildcard:
			entry.Match = []MatchValue{state}
			miss.Entries = append(miss.Entries, entry)
		default:
			return nil, fmt.Errorf("internal: table %s: unrecognized match shape %v", base, tr.Match.Kind)
		}
	}

	var out []P4Table
	for _, tab := range []P4Table{exact, rng, lpm, miss} {
		if len(tab.Entries) > 0 {
			out = append(out, tab)
		}
	}
	return out, nil
}

// lowerTerminal produces the query_actions table mapping final states to
// their actions.
func lowerTerminal(p *pipeline.Pipeline, groupIDs map[string]int) (P4Table, error) {
	table := P4Table{
		Name:   "query_actions",
		Fields: []FieldSpec{stateField},
	}

	for _, term := range p.Terminal {
		entry := Entry{
			Match: []MatchValue{{Type: MatchExact, Value: strconv.Itoa(int(term.State)), Width: 16}},
		}

		switch {
		case len(term.Actions) == 0:
			if p.DefaultAction != nil {
				act, params, err := actionCall(*p.DefaultAction)
				if err != nil {
					return P4Table{}, fmt.Errorf("state %d: default action: %w", term.State, err)
				}
				entry.Action, entry.Params = act, params
			} else {
				entry.Action = "query_drop"
			}

		case len(term.Actions) == 1:
			act, params, err := actionCall(term.Actions[0])
			if err != nil {
				return P4Table{}, fmt.Errorf("state %d: %w", term.State, err)
			}
			entry.Action, entry.Params = act, params

		default:
			ports, allFwd := forwardPorts(term.Actions)
			if !allFwd {
				return P4Table{}, fmt.Errorf("state %d: Cannot merge fwd action with other types", term.State)
			}
			mgid, ok := groupIDs[portSetKey(ports)]
			if !ok {
				return P4Table{}, fmt.Errorf("internal: state %d: no multicast group for ports %v", term.State, ports)
			}
			entry.Action = "set_mgid"
			entry.Params = []Param{{Name: "mgid", Value: strconv.Itoa(mgid)}}
		}

		table.Entries = append(table.Entries, entry)
	}
	return table, nil
}

// actionCall lowers a single rule action to its target action name and
// parameters.
func actionCall(a query.Action) (string, []Param, error) {
	switch a.Kind {
	case query.ActionForward:
		return "set_egress_port", []Param{{Name: "port", Value: strconv.Itoa(a.Port)}}, nil
	case query.ActionUser:
		params := make([]Param, len(a.Args))
		for i, v := range a.Args {
			params[i] = Param{Name: fmt.Sprintf("arg%d", i), Value: strconv.FormatInt(v, 10)}
		}
		return a.Name, params, nil
	}
	return "", nil, fmt.Errorf("unknown action kind %d", a.Kind)
}
