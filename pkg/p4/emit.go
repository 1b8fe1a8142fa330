package p4

import (
	"fmt"
	"io"
	"strings"
)

// WriteCommands renders the program as runtime table_add lines, one per
// entry:
//
//	table_add <table> <action> <match> … => <args> [<priority>]
//
// Priority appears only on entries of tables containing ternary matches.
func WriteCommands(w io.Writer, prog *Program) error {
	for i := range prog.Tables {
		t := &prog.Tables[i]
		for _, e := range t.Entries {
			parts := []string{"table_add", t.Name, e.Action}
			for _, m := range e.Match {
				parts = append(parts, formatMatch(m))
			}
			parts = append(parts, "=>")
			for _, p := range e.Params {
				parts = append(parts, p.Value)
			}
			if t.HasTernary && e.Priority != 0 {
				parts = append(parts, fmt.Sprintf("%d", e.Priority))
			}
			if _, err := fmt.Fprintln(w, strings.Join(parts, " ")); err != nil {
				return err
			}
		}
	}
	return nil
}

func formatMatch(m MatchValue) string {
	switch m.Type {
	case MatchExact:
		return m.Value
	case MatchLPM:
		return fmt.Sprintf("%s/%d", m.Value, m.Prefix)
	case MatchRange:
		switch m.Form {
		case RangeLt:
			return "0x00->" + m.Hi
		case RangeGt:
			return m.Lo + "->" + m.HiHex
		default:
			return m.Lo + "->" + m.Hi
		}
	default:
		return m.Value
	}
}

// WriteMulticast renders the multicast-group file, one line per group,
// sorted ascending by group id:
//
//	<mgid>: <port> <port> …
func WriteMulticast(w io.Writer, prog *Program) error {
	for _, g := range prog.Groups {
		parts := make([]string, len(g.Ports))
		for i, p := range g.Ports {
			parts[i] = fmt.Sprintf("%d", p)
		}
		if _, err := fmt.Fprintf(w, "%d: %s\n", g.ID, strings.Join(parts, " ")); err != nil {
			return err
		}
	}
	return nil
}
