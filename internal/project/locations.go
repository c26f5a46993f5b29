package project

import "github.com/jward/worldlens/internal/facts"

// LocationGraph projects exits into a graph of locations. out may be nil
// when nothing has compiled yet; the exit facts alone still produce nodes.
func LocationGraph(fs *facts.FactSet, diags []facts.Diagnostic, out *facts.CompiledOutput) Graph {
	ids := make(map[string]bool)
	if out != nil {
		for id := range out.Locations {
			ids[id] = true
		}
	}
	var exits []facts.ExitEdge
	if fs != nil {
		exits = fs.Exits
	}
	for _, e := range exits {
		if e.FromLocation != "" {
			ids[e.FromLocation] = true
		}
		if e.ToLocation != "" {
			ids[e.ToLocation] = true
		}
	}

	unreachable := flagged(diags, CodeUnreachableLocation, facts.SymbolLocation, unreachableMessage)
	var start string
	if out != nil {
		start = out.World.Start
	}

	var g Graph
	for _, id := range sortedSet(ids) {
		n := Node{ID: id, Label: id, Kind: KindLocation}
		if out != nil && out.Locations[id].Name != "" {
			n.Label = out.Locations[id].Name
		}
		switch {
		case unreachable[id]:
			n.Flag = FlagUnreachable
		case id == start:
			n.Flag = FlagStart
		}
		g.Nodes = append(g.Nodes, n)
	}
	for _, e := range exits {
		g.Edges = append(g.Edges, Edge{
			From:        e.FromLocation,
			To:          e.ToLocation,
			Label:       e.ExitName,
			Conditional: e.IsConditional || len(e.GuardReads) > 0,
		})
	}
	return g.prune()
}
