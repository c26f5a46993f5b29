package project

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/worldlens/internal/facts"
	"github.com/jward/worldlens/internal/facts/factstest"
)

func TestLocationGraph_ScenarioB(t *testing.T) {
	t.Parallel()
	out := &facts.CompiledOutput{Locations: map[string]facts.Location{"a": {}, "b": {}, "c": {}}}
	fs := &facts.FactSet{Exits: []facts.ExitEdge{{FromLocation: "a", ToLocation: "b", ExitName: "east"}}}
	diags := []facts.Diagnostic{{Severity: facts.SeverityWarning, Code: "URD430", Message: "Location 'c' is unreachable."}}

	g := LocationGraph(fs, diags, out)

	require.Len(t, g.Nodes, 3)
	c, ok := g.Node("c")
	require.True(t, ok)
	assert.Equal(t, FlagUnreachable, c.Flag)
	a, _ := g.Node("a")
	assert.Empty(t, a.Flag)
	assert.Equal(t, []Edge{{From: "a", To: "b", Label: "east"}}, g.Edges)
	assert.True(t, g.Consistent())
}

func TestLocationGraph_Tavern(t *testing.T) {
	t.Parallel()
	snap := factstest.Tavern(t)

	g := LocationGraph(&snap.Facts, snap.Diagnostics, snap.Output)

	assert.Equal(t, []Node{
		{ID: "cellar", Label: "Cellar", Kind: KindLocation},
		{ID: "tavern", Label: "Tavern", Kind: KindLocation, Flag: FlagStart},
		{ID: "yard", Label: "Yard", Kind: KindLocation, Flag: FlagUnreachable},
	}, g.Nodes)
	assert.Equal(t, []Edge{
		{From: "tavern", To: "cellar", Label: "north"},
		{From: "cellar", To: "tavern", Label: "south"},
	}, g.Edges)
}

func TestLocationGraph_PartialCompile(t *testing.T) {
	t.Parallel()
	fs := &facts.FactSet{
		Reads: []facts.PropertyRead{{Property: "locked"}},
		Exits: []facts.ExitEdge{
			{FromLocation: "hall", ToLocation: "vault", ExitName: "down", GuardReads: []int{0}},
			{FromLocation: "hall", ToLocation: "", ExitName: "up"},
		},
	}

	g := LocationGraph(fs, nil, nil)

	assert.Len(t, g.Nodes, 2, "exit endpoints become nodes without output")
	require.Len(t, g.Edges, 1, "edge to an empty id is dropped")
	assert.True(t, g.Edges[0].Conditional)
}

func TestLocationGraph_FlagSources(t *testing.T) {
	t.Parallel()
	out := &facts.CompiledOutput{
		World:     facts.World{Start: "gate"},
		Locations: map[string]facts.Location{"gate": {}, "tower": {}, "moat": {}},
	}

	tests := []struct {
		name string
		diag facts.Diagnostic
		want string
	}{
		{"structured symbol", facts.Diagnostic{Code: "URD430", Message: "unrelated wording", RelatedSymbol: &facts.Symbol{Kind: "location", ID: "tower"}}, "tower"},
		{"message template", facts.Diagnostic{Code: "URD430", Message: "Location 'moat' is unreachable."}, "moat"},
		{"start can be unreachable", facts.Diagnostic{Code: "URD430", Message: "Location 'gate' is unreachable."}, "gate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := LocationGraph(nil, []facts.Diagnostic{tt.diag}, out)
			n, ok := g.Node(tt.want)
			require.True(t, ok)
			assert.Equal(t, FlagUnreachable, n.Flag)
		})
	}

	g := LocationGraph(nil, []facts.Diagnostic{{Code: "URD999", Message: "Location 'moat' is unreachable."}}, out)
	n, _ := g.Node("moat")
	assert.Empty(t, n.Flag, "other codes are ignored")
	n, _ = g.Node("gate")
	assert.Equal(t, FlagStart, n.Flag)
}

func TestDialogueGraph_ScenarioC(t *testing.T) {
	t.Parallel()
	fs := &facts.FactSet{
		Jumps: []facts.JumpEdge{
			{FromSection: "intro", Target: facts.JumpTarget{Kind: facts.TargetSection, ID: "greet"}},
			{FromSection: "intro", Target: facts.JumpTarget{Kind: facts.TargetEnd}},
		},
		Choices: []facts.ChoiceFact{
			{Section: "intro", ChoiceID: "intro/go", Label: "Go on", JumpIndices: []int{0, 1}},
		},
	}

	g := DialogueGraph(fs, nil)

	edges := g.EdgesFrom("intro")
	require.Len(t, edges, 2)
	assert.Equal(t, Edge{From: "intro", To: "greet", Label: "Go on"}, edges[0])
	assert.Equal(t, Edge{From: "intro", To: EndNode, Label: "Go on"}, edges[1])
	end, ok := g.Node(EndNode)
	require.True(t, ok)
	assert.Equal(t, KindEnd, end.Kind)
	assert.True(t, g.Consistent())
}

func TestDialogueGraph_Tavern(t *testing.T) {
	t.Parallel()
	snap := factstest.Tavern(t)
	diags := append(snap.Diagnostics, facts.Diagnostic{
		Code:    "URD432",
		Message: "Choice in section 'cellar_talk' can never be taken.",
	})

	g := DialogueGraph(&snap.Facts, diags)

	assert.Equal(t, []Node{
		{ID: "tavern/cellar_talk", Label: "cellar_talk", Kind: KindSection, Flag: FlagOrphaned},
		{ID: "tavern/greet", Label: "greet", Kind: KindSection},
		{ID: EndNode, Label: "END", Kind: KindEnd},
		{ID: "#exit:north", Label: "exit:north", Kind: KindExit},
	}, g.Nodes)
	assert.Equal(t, []Edge{
		{From: "tavern/greet", To: "tavern/cellar_talk", Label: "Ask about the cellar", Conditional: true},
		{From: "tavern/greet", To: "tavern/greet", Label: "Order a drink"},
		{From: "tavern/greet", To: EndNode, Label: "Leave"},
		{From: "tavern/cellar_talk", To: "#exit:north"},
	}, g.Edges)
}

func TestDialogueGraph_DanglingTargets(t *testing.T) {
	t.Parallel()
	fs := &facts.FactSet{
		Jumps: []facts.JumpEdge{
			{FromSection: "a", Target: facts.JumpTarget{Kind: facts.TargetSection}},
			{FromSection: "", Target: facts.JumpTarget{Kind: facts.TargetSection, ID: "b"}},
			{FromSection: "a", Target: facts.JumpTarget{Kind: "teleport", ID: "z"}},
		},
		Choices: []facts.ChoiceFact{{Section: "a", Label: "x", JumpIndices: []int{7}}},
	}

	g := DialogueGraph(fs, nil)

	assert.Empty(t, g.Edges)
	assert.Len(t, g.Nodes, 2)
	assert.True(t, g.Consistent())
}

func TestGraph_EmptyIsSerializable(t *testing.T) {
	t.Parallel()
	data, err := json.Marshal(DialogueGraph(nil, nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"nodes":[],"edges":[]}`, string(data))

	data, err = json.Marshal(LocationGraph(nil, nil, nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"nodes":[],"edges":[]}`, string(data))
}

// randomFacts builds a fact set whose ids and indices are drawn from a small
// pool so that collisions, dangling targets and out-of-range indices occur.
func randomFacts(r *rand.Rand) (*facts.FactSet, *facts.CompiledOutput, []facts.Diagnostic) {
	id := func(prefix string) string {
		if r.IntN(8) == 0 {
			return ""
		}
		return fmt.Sprintf("%s%d", prefix, r.IntN(6))
	}
	fs := &facts.FactSet{}
	for range r.IntN(4) {
		fs.Reads = append(fs.Reads, facts.PropertyRead{Property: id("p")})
	}
	for range r.IntN(10) {
		fs.Exits = append(fs.Exits, facts.ExitEdge{
			FromLocation: id("loc"),
			ToLocation:   id("loc"),
			ExitName:     id("dir"),
			GuardReads:   []int{r.IntN(6) - 1},
		})
	}
	kinds := []string{facts.TargetSection, facts.TargetEnd, facts.TargetExit, "bogus"}
	for range r.IntN(12) {
		fs.Jumps = append(fs.Jumps, facts.JumpEdge{
			FromSection: id("s"),
			Target:      facts.JumpTarget{Kind: kinds[r.IntN(len(kinds))], ID: id("s")},
		})
	}
	for range r.IntN(6) {
		c := facts.ChoiceFact{Section: id("s"), Label: id("label")}
		for range r.IntN(4) {
			c.JumpIndices = append(c.JumpIndices, r.IntN(16)-2)
		}
		for range r.IntN(2) {
			c.ConditionReads = append(c.ConditionReads, r.IntN(6))
		}
		fs.Choices = append(fs.Choices, c)
	}
	out := &facts.CompiledOutput{Locations: map[string]facts.Location{}}
	for range r.IntN(5) {
		out.Locations[fmt.Sprintf("loc%d", r.IntN(8))] = facts.Location{}
	}
	var diags []facts.Diagnostic
	for range r.IntN(3) {
		diags = append(diags,
			facts.Diagnostic{Code: CodeUnreachableLocation, Message: fmt.Sprintf("Location 'loc%d' is unreachable.", r.IntN(9))},
			facts.Diagnostic{Code: CodeImpossibleChoice, Message: fmt.Sprintf("Choice in section 's%d' is impossible.", r.IntN(9))},
		)
	}
	return fs, out, diags
}

func TestProjections_AlwaysConsistent(t *testing.T) {
	t.Parallel()
	for seed := uint64(1); seed <= 500; seed++ {
		r := rand.New(rand.NewPCG(seed, 0x5eed))
		fs, out, diags := randomFacts(r)

		lg := LocationGraph(fs, diags, out)
		dg := DialogueGraph(fs, diags)

		require.True(t, lg.Consistent(), "location graph, seed %d", seed)
		require.True(t, dg.Consistent(), "dialogue graph, seed %d", seed)
		for _, n := range append(lg.Nodes, dg.Nodes...) {
			require.NotEmpty(t, n.ID, "seed %d", seed)
		}
	}
}

func TestProjections_Deterministic(t *testing.T) {
	t.Parallel()
	r := rand.New(rand.NewPCG(42, 7))
	fs, out, diags := randomFacts(r)

	assert.Equal(t, LocationGraph(fs, diags, out), LocationGraph(fs, diags, out))
	assert.Equal(t, DialogueGraph(fs, diags), DialogueGraph(fs, diags))
}
