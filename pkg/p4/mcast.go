package p4

import (
	"fmt"
	"sort"
	"strings"

	"github.com/camuslang/camus/pkg/pipeline"
	"github.com/camuslang/camus/pkg/query"
)

// multicastGroups scans the terminal table for entries forwarding to two
// or more ports and allocates one group per distinct port set. Group ids
// start at 1 and increase in the order of the port sets under elementwise
// comparison, so allocation is deterministic.
func multicastGroups(p *pipeline.Pipeline) ([]Group, map[string]int) {
	distinct := make(map[string][]int)
	for _, term := range p.Terminal {
		ports, ok := forwardPorts(term.Actions)
		if !ok || len(ports) < 2 {
			continue
		}
		distinct[portSetKey(ports)] = ports
	}

	sets := make([][]int, 0, len(distinct))
	for _, ports := range distinct {
		sets = append(sets, ports)
	}
	sort.Slice(sets, func(i, j int) bool { return portSetLess(sets[i], sets[j]) })

	groups := make([]Group, 0, len(sets))
	byKey := make(map[string]int, len(sets))
	for i, ports := range sets {
		id := i + 1
		groups = append(groups, Group{ID: id, Ports: ports})
		byKey[portSetKey(ports)] = id
	}
	return groups, byKey
}

// forwardPorts returns the sorted, deduplicated port set of an action list
// consisting only of forwarding actions; ok is false when any action is
// not a forward.
func forwardPorts(actions []query.Action) ([]int, bool) {
	var ports []int
	for _, a := range actions {
		if a.Kind != query.ActionForward {
			return nil, false
		}
		ports = append(ports, a.Port)
	}
	sort.Ints(ports)
	out := ports[:0]
	for i, p := range ports {
		if i > 0 && p == ports[i-1] {
			continue
		}
		out = append(out, p)
	}
	return out, true
}

func portSetKey(ports []int) string {
	parts := make([]string, len(ports))
	for i, p := range ports {
		parts[i] = fmt.Sprintf("%d", p)
	}
	return strings.Join(parts, ",")
}

// portSetLess orders integer sets elementwise; a strict prefix sorts
// first.
func portSetLess(a, b []int) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
