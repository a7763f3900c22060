package splitter

import (
	"sort"

	"github.com/ppcsplit/ppcsplit/pkg/obj"
)

// ResolveLinkOrder implements spec section 4.2. The ordering of units
// within each section is itself a directed edge in a DAG: for every
// section, walking its splits in address order and pairing each split with
// its successor yields an "appears before" constraint whenever the two
// splits belong to different units. A topological sort over the union of
// these constraints produces a link order compatible with every section's
// observed concatenation order.
//
// Two narrow exceptions keep spurious edges out of the graph (spec section
// 4.2): the first split of .ctors/.dtors belongs to the C++
// init-exceptions startup unit and is excluded from pairing so it cannot
// force an unrelated ordering; and a transition from a non-common split
// into a common split is the boundary into the linker's common-BSS tail,
// not a TU-ordering constraint.
//
// No repo in the retrieved pack imports a graph library (they are all
// CLI/emulator tools with no topological sort need), so this is a direct,
// hand-rolled Kahn's algorithm rather than an adopted dependency; the
// original implementation builds the same edge set and runs petgraph's
// toposort over it.
func ResolveLinkOrder(img *obj.Image) ([]obj.Unit, error) {
	units := collectUnits(img)

	unitIndex := make(map[string]int, len(units))
	for i, u := range units {
		unitIndex[u.Name] = i
	}

	edges := make([]map[int]bool, len(units))
	for i := range edges {
		edges[i] = make(map[int]bool)
	}

	for secIdx := range img.Sections {
		section := &img.Sections[secIdx]
		splits := img.SplitsInSection(secIdx)

		start := 0
		if section.IsCtorsOrDtors() && len(splits) > 0 {
			// Skip the startup unit's split (spec section 4.2).
			start = 1
		}

		for i := start; i+1 < len(splits); i++ {
			a, b := splits[i], splits[i+1]
			if !a.Common && b.Common {
				// Boundary into the common-BSS tail; not an ordering edge.
				continue
			}
			if a.Unit == b.Unit {
				continue
			}
			from, to := unitIndex[a.Unit], unitIndex[b.Unit]
			edges[from][to] = true
		}
	}

	indegree := make([]int, len(units))
	for from := range edges {
		for to := range edges[from] {
			indegree[to]++
		}
	}

	var queue []int
	for i := range units {
		if indegree[i] == 0 {
			queue = append(queue, i)
		}
	}
	sort.Slice(queue, func(i, j int) bool { return units[queue[i]].Name < units[queue[j]].Name })

	var order []int
	for len(queue) > 0 {
		sort.Slice(queue, func(i, j int) bool { return units[queue[i]].Name < units[queue[j]].Name })
		n := queue[0]
		queue = queue[1:]
		order = append(order, n)

		var freed []int
		for to := range edges[n] {
			indegree[to]--
			if indegree[to] == 0 {
				freed = append(freed, to)
			}
		}
		queue = append(queue, freed...)
	}

	if len(order) != len(units) {
		remaining := "unknown"
		for i, d := range indegree {
			if d > 0 {
				remaining = units[i].Name
				break
			}
		}
		return nil, obj.WrapError(obj.ErrTopology, "cyclic unit dependency detected (involving %s)", remaining)
	}

	out := make([]obj.Unit, len(order))
	for i, idx := range order {
		unit := units[idx]
		for _, existing := range img.LinkOrder {
			if existing.Name == unit.Name {
				unit = existing
				break
			}
		}
		out[i] = unit
	}
	return out, nil
}

// collectUnits gathers every distinct unit name referenced by any split,
// then sorts them for a stable starting point before topological
// resolution. A unit is autogenerated only if every split it owns is.
func collectUnits(img *obj.Image) []obj.Unit {
	autogen := make(map[string]bool)
	seen := make(map[string]bool)
	for secIdx := range img.Sections {
		for _, sp := range img.SplitsInSection(secIdx) {
			if !seen[sp.Unit] {
				seen[sp.Unit] = true
				autogen[sp.Unit] = true
			}
			if !sp.Autogenerated {
				autogen[sp.Unit] = false
			}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]obj.Unit, len(names))
	for i, name := range names {
		out[i] = obj.Unit{Name: name, Autogenerated: autogen[name]}
	}
	return out
}
