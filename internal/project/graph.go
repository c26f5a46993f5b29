// Package project builds layout-agnostic graphs of a compiled world: the
// location graph (exits) and the dialogue graph (jumps between sections).
//
// Projections trust the compiler's diagnostics for reachability and choice
// viability. Inputs may be partial or inconsistent; every Graph returned
// has all edge endpoints present in its node list.
package project

import "sort"

// Node kinds.
const (
	KindLocation = "location"
	KindSection  = "section"
	KindEnd      = "end"
	KindExit     = "exit"
)

// Node flags.
const (
	FlagUnreachable = "unreachable"
	FlagOrphaned    = "orphaned"
	FlagStart       = "start"
)

// EndNode is the id of the synthetic terminal node of a dialogue graph.
const EndNode = "#end"

// ExitNode returns the id of the synthetic node for an exit-jump target.
func ExitNode(direction string) string { return "#exit:" + direction }

type Node struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Kind  string `json:"kind"`
	Flag  string `json:"flag,omitempty"`
}

type Edge struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Label       string `json:"label"`
	Conditional bool   `json:"conditional"`
}

// Graph is a serializable projection.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Consistent reports whether every edge endpoint names a node.
func (g Graph) Consistent() bool {
	ids := g.nodeSet()
	for _, e := range g.Edges {
		if !ids[e.From] || !ids[e.To] {
			return false
		}
	}
	return true
}

// Node returns the node with id.
func (g Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// EdgesFrom returns the edges leaving id, in graph order.
func (g Graph) EdgesFrom(id string) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.From == id {
			out = append(out, e)
		}
	}
	return out
}

func (g Graph) nodeSet() map[string]bool {
	ids := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		ids[n.ID] = true
	}
	return ids
}

// prune drops edges whose endpoints are missing. It is the last step of
// every projection.
func (g Graph) prune() Graph {
	ids := g.nodeSet()
	edges := g.Edges[:0:0]
	for _, e := range g.Edges {
		if ids[e.From] && ids[e.To] {
			edges = append(edges, e)
		}
	}
	g.Edges = edges
	if g.Nodes == nil {
		g.Nodes = []Node{}
	}
	if g.Edges == nil {
		g.Edges = []Edge{}
	}
	return g
}

func sortedSet(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
