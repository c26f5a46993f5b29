package project

import (
	"strings"

	"github.com/jward/worldlens/internal/facts"
)

// DialogueGraph projects jumps into a graph of sections. Jumps to END share
// one terminal node; each exit-jump direction gets its own terminal node.
func DialogueGraph(fs *facts.FactSet, diags []facts.Diagnostic) Graph {
	if fs == nil {
		return Graph{}.prune()
	}
	sections := make(map[string]bool)
	exits := make(map[string]bool)
	hasEnd := false
	for _, j := range fs.Jumps {
		if j.FromSection != "" {
			sections[j.FromSection] = true
		}
		switch j.Target.Kind {
		case facts.TargetSection:
			if j.Target.ID != "" {
				sections[j.Target.ID] = true
			}
		case facts.TargetEnd:
			hasEnd = true
		case facts.TargetExit:
			exits[j.Target.ID] = true
		}
	}
	for _, c := range fs.Choices {
		if c.Section != "" {
			sections[c.Section] = true
		}
	}

	orphaned := flagged(diags, CodeImpossibleChoice, facts.SymbolSection, impossibleMessage)

	var g Graph
	for _, id := range sortedSet(sections) {
		n := Node{ID: id, Label: shortName(id), Kind: KindSection}
		if orphaned[id] || orphaned[n.Label] {
			n.Flag = FlagOrphaned
		}
		g.Nodes = append(g.Nodes, n)
	}
	if hasEnd {
		g.Nodes = append(g.Nodes, Node{ID: EndNode, Label: "END", Kind: KindEnd})
	}
	for _, dir := range sortedSet(exits) {
		g.Nodes = append(g.Nodes, Node{ID: ExitNode(dir), Label: "exit:" + dir, Kind: KindExit})
	}

	owners := fs.ChoiceOwners()
	for i, j := range fs.Jumps {
		e := Edge{From: j.FromSection, To: target(j.Target)}
		if ci, ok := owners[i]; ok {
			c := fs.Choices[ci]
			e.Label = c.Label
			e.Conditional = len(c.ConditionReads) > 0
		}
		g.Edges = append(g.Edges, e)
	}
	return g.prune()
}

func target(t facts.JumpTarget) string {
	switch t.Kind {
	case facts.TargetEnd:
		return EndNode
	case facts.TargetExit:
		return ExitNode(t.ID)
	}
	return t.ID
}

// shortName is the last path segment of a section id.
func shortName(id string) string {
	if i := strings.LastIndex(id, "/"); i >= 0 {
		return id[i+1:]
	}
	return id
}
