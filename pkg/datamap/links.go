package datamap

import (
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/graph/traverse"
)

// linkGraph keeps links in insertion order for rendering and mirrors them into
// a gonum directed graph for reachability queries
type linkGraph struct {
	order  []Link
	seen   map[Link]bool
	graph  *simple.DirectedGraph
	ids    map[string]int64 // name -> graph node ID
	names  map[int64]string // graph node ID -> name
	nextID int64
}

func newLinkGraph() *linkGraph {
	return &linkGraph{
		seen:  make(map[Link]bool),
		graph: simple.NewDirectedGraph(),
		ids:   make(map[string]int64),
		names: make(map[int64]string),
	}
}

func (lg *linkGraph) has(l Link) bool {
	return lg.seen[l]
}

func (lg *linkGraph) add(l Link) bool {
	if lg.seen[l] {
		return false
	}
	lg.seen[l] = true
	lg.order = append(lg.order, l)

	from := lg.node(l.Source)
	to := lg.node(l.Target)

	// simple.DirectedGraph rejects self edges; they add nothing to reachability
	if from != to && !lg.graph.HasEdgeFromTo(from, to) {
		lg.graph.SetEdge(lg.graph.NewEdge(lg.graph.Node(from), lg.graph.Node(to)))
	}
	return true
}

// node returns the graph ID for name, adding it on first sight
func (lg *linkGraph) node(name string) int64 {
	if id, ok := lg.ids[name]; ok {
		return id
	}
	id := lg.nextID
	lg.nextID++
	lg.ids[name] = id
	lg.names[id] = name
	lg.graph.AddNode(simple.Node(id))
	return id
}

// reachableFrom lists the names reachable from name, ordered by when each
// name first appeared in a link
func (lg *linkGraph) reachableFrom(name string) []string {
	start, ok := lg.ids[name]
	if !ok {
		return nil
	}

	var reached []int64
	bf := traverse.BreadthFirst{
		Visit: func(n graph.Node) {
			if n.ID() != start {
				reached = append(reached, n.ID())
			}
		},
	}
	bf.Walk(lg.graph, lg.graph.Node(start), nil)

	sort.Slice(reached, func(i, j int) bool { return reached[i] < reached[j] })

	out := make([]string, 0, len(reached))
	for _, id := range reached {
		out = append(out, lg.names[id])
	}
	return out
}

// cycles returns the strongly connected components with more than one member.
// Members and groups are ordered by first appearance in a link.
func (lg *linkGraph) cycles() [][]string {
	var groups [][]int64
	for _, scc := range topo.TarjanSCC(lg.graph) {
		if len(scc) < 2 {
			continue
		}
		ids := make([]int64, 0, len(scc))
		for _, n := range scc {
			ids = append(ids, n.ID())
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		groups = append(groups, ids)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i][0] < groups[j][0] })

	out := make([][]string, 0, len(groups))
	for _, ids := range groups {
		names := make([]string, 0, len(ids))
		for _, id := range ids {
			names = append(names, lg.names[id])
		}
		out = append(out, names)
	}
	return out
}
