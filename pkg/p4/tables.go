// Package p4 lowers an abstract pipeline into concrete match-action tables
// and emits them as runtime table_add commands, an equivalent JSON
// document, and a multicast-group file.
package p4

import "fmt"

// MatchType is the match kind of a physical table field.
type MatchType int

const (
	MatchExact MatchType = iota
	MatchRange
	MatchLPM
)

func (t MatchType) String() string {
	switch t {
	case MatchExact:
		return "exact"
	case MatchRange:
		return "range"
	case MatchLPM:
		return "lpm"
	default:
		return "unknown"
	}
}

// FieldSpec describes one match field of a physical table.
type FieldSpec struct {
	Name  string // dotted field name, e.g. "ipv4.dstAddr" or "query.state"
	Width int    // bits
	Type  MatchType
}

// RangeForm records which abstract shape produced a range match, so the
// command emitter can render the open end the way the runtime expects.
type RangeForm int

const (
	RangeFull RangeForm = iota // lo->hi
	RangeLt                    // 0x00->hi
	RangeGt                    // lo->0xff…
)

// MatchValue is one encoded match field value of an entry. Values are
// unsigned decimal strings; range bounds are inclusive. Human carries the
// value's native textual form (dotted quad, colon groups, quoted string)
// when that differs from the decimal encoding.
type MatchValue struct {
	Type   MatchType
	Form   RangeForm
	Value  string // exact value, or LPM base address
	Human  string // native textual form of Value, if any
	Lo, Hi string // range bounds
	HiHex  string // hex rendering of the range's upper end for Gt entries
	Prefix int    // LPM prefix length
	Width  int
}

// FormatHuman renders the match for human-readable table dumps: native
// textual forms for addresses, lo-hi for ranges.
func (m MatchValue) FormatHuman() string {
	v := m.Value
	if m.Human != "" {
		v = m.Human
	}
	switch m.Type {
	case MatchLPM:
		return fmt.Sprintf("%s/%d", v, m.Prefix)
	case MatchRange:
		return m.Lo + "-" + m.Hi
	default:
		return v
	}
}

// Param is one action parameter.
type Param struct {
	Name  string
	Value string
}

// Entry is one physical table entry.
type Entry struct {
	Match    []MatchValue
	Action   string
	Params   []Param
	Priority int // non-zero only in tables with ternary matches
}

// P4Table is one concrete match table.
type P4Table struct {
	Name       string
	Fields     []FieldSpec
	Entries    []Entry
	HasTernary bool
}

// Group is one multicast group: the set of output ports a packet is
// replicated to.
type Group struct {
	ID    int
	Ports []int
}

// Program is the fully lowered target pipeline.
type Program struct {
	Tables []P4Table
	Groups []Group
}

// EntryCount returns the total number of table entries in the program.
func (p *Program) EntryCount() int {
	n := 0
	for i := range p.Tables {
		n += len(p.Tables[i].Entries)
	}
	return n
}
