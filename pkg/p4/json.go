package p4

import (
	"fmt"
	"io"
	"strings"
)

// WriteJSON renders the program as a JSON array of entry objects,
// terminated by a null element:
//
//	{"table_name":"Camus.<name>","match_fields":{"hdr.<h>.<f>":[…], …},
//	 "action_name":"Camus.<act>","action_params":{…}[,"priority":N]}
//
// Values are emitted as raw decimal number tokens, since IPv6 and string
// matches exceed what a float64-backed encoder can carry.
func WriteJSON(w io.Writer, prog *Program) error {
	var b strings.Builder
	b.WriteString("[\n")
	for i := range prog.Tables {
		t := &prog.Tables[i]
		for _, e := range t.Entries {
			writeJSONEntry(&b, t, e)
			b.WriteString(",\n")
		}
	}
	b.WriteString("null\n]\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func writeJSONEntry(b *strings.Builder, t *P4Table, e Entry) {
	b.WriteString("{")
	fmt.Fprintf(b, "%q:%q", "table_name", "Camus."+t.Name)

	b.WriteString(",\"match_fields\":{")
	for i, m := range e.Match {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(b, "%q:%s", jsonFieldName(t.Fields[i].Name), jsonMatchValue(m))
	}
	b.WriteString("}")

	fmt.Fprintf(b, ",%q:%q", "action_name", "Camus."+e.Action)

	b.WriteString(",\"action_params\":{")
	for i, p := range e.Params {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(b, "%q:%s", p.Name, p.Value)
	}
	b.WriteString("}")

	if t.HasTernary && e.Priority != 0 {
		fmt.Fprintf(b, ",\"priority\":%d", e.Priority)
	}
	b.WriteString("}")
}

// jsonFieldName prefixes header fields with "hdr."; the synthetic state
// field lives in metadata and gets "meta." instead.
func jsonFieldName(name string) string {
	if name == "query.state" {
		return "meta." + name
	}
	return "hdr." + name
}

// jsonMatchValue renders one match field value list: exact [v],
// less-than [0, hi], greater-than [lo, max], range [lo, hi], and
// LPM [addr, prefix].
func jsonMatchValue(m MatchValue) string {
	switch m.Type {
	case MatchExact:
		return "[" + m.Value + "]"
	case MatchLPM:
		return fmt.Sprintf("[%s,%d]", m.Value, m.Prefix)
	case MatchRange:
		return "[" + m.Lo + "," + m.Hi + "]"
	default:
		return "[" + m.Value + "]"
	}
}
