package hover

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/worldlens/internal/document"
	"github.com/jward/worldlens/internal/facts"
	"github.com/jward/worldlens/internal/facts/factstest"
	"github.com/jward/worldlens/internal/resolve"
)

func tavernCursor(t *testing.T, line int) Cursor {
	t.Helper()
	return Cursor{Doc: document.New(factstest.TavernFile, factstest.TavernSource), Line: line}
}

// lineOf returns the 0-based index of the first line whose trimmed text is
// text.
func lineOf(t *testing.T, doc *document.Document, text string) int {
	t.Helper()
	for i := 0; i < doc.LineCount(); i++ {
		if strings.TrimSpace(doc.Line(i)) == text {
			return i
		}
	}
	t.Fatalf("line %q not found", text)
	return -1
}

func synth(t *testing.T, ref resolve.Reference, snap *facts.Snapshot, cur Cursor) string {
	t.Helper()
	md, ok := Synthesize(ref, snap, cur)
	require.True(t, ok, "no tooltip for %#v", ref)
	require.NotEmpty(t, md)
	return md
}

func TestSynthesize_ScenarioA(t *testing.T) {
	t.Parallel()
	snap := factstest.Tavern(t)
	text := "@warden.trust + 1"

	ref := resolve.Resolve(text, strings.Index(text, "trust")+2, resolve.Context{})
	require.Equal(t, resolve.EntityProperty{EntityID: "warden", Property: "trust"}, ref)

	md := synth(t, ref, snap, Cursor{})
	assert.Contains(t, md, "Default: `0`")
	assert.Contains(t, md, "Writes: 2")
	assert.Contains(t, md, "Value: `5`")
	assert.Contains(t, md, "Type: `integer` (0..100)")
}

func TestSynthesize_MissingSymbols(t *testing.T) {
	t.Parallel()
	snap := factstest.Tavern(t)

	refs := []resolve.Reference{
		resolve.Entity{ID: "ghost"},
		resolve.EntityProperty{EntityID: "ghost", Property: "trust"},
		resolve.EntityProperty{EntityID: "warden", Property: "luck"},
		resolve.TypeProperty{TypeName: "Character", Property: "luck"},
		resolve.TypeName{Name: "Dragon"},
		resolve.SectionJump{Name: "nowhere"},
		resolve.SectionLabel{Name: "nowhere"},
		resolve.LocationHeading{Name: "Moon"},
		resolve.ExitDestination{Direction: "up", Destination: "Moon"},
		resolve.RuleName{Name: "nothing"},
		resolve.SequenceHeading{Name: "Heist"},
		resolve.PhaseHeading{Name: "Reveal"},
		resolve.ValueLiteral{EntityID: "ghost", Property: "mood", Operator: "=", Literal: "calm"},
		resolve.Keyword{Token: "zzz"},
		resolve.FrontmatterKey{Key: "zzz"},
		nil,
	}
	for _, ref := range refs {
		md, ok := Synthesize(ref, snap, Cursor{})
		assert.False(t, ok, "%#v", ref)
		assert.Empty(t, md)
	}
}

func TestSynthesize_NilSnapshot(t *testing.T) {
	t.Parallel()

	_, ok := Synthesize(resolve.Entity{ID: "warden"}, nil, Cursor{})
	assert.False(t, ok)

	md, ok := Synthesize(resolve.Keyword{Token: "END"}, nil, Cursor{})
	require.True(t, ok)
	assert.Contains(t, md, "Ends the conversation")
}

func TestSynthesize_PresenceMarker(t *testing.T) {
	t.Parallel()
	snap := factstest.Tavern(t)
	cur := tavernCursor(t, 0)
	cur.Line = lineOf(t, cur.Doc, "Damp stone and a rusty lock. [@key, @warden]")

	md := synth(t, resolve.Entity{ID: "warden", Presence: true}, snap, cur)
	assert.Contains(t, md, "⚠ @warden is not in `cellar`; it is in `tavern`")

	md = synth(t, resolve.Entity{ID: "key", Presence: true}, snap, cur)
	assert.Contains(t, md, "✓ present in `cellar`")

	cur.Line = lineOf(t, cur.Doc, "A smoky room that smells of tar. [@barkeep, @warden]")
	md = synth(t, resolve.Entity{ID: "warden", Presence: true}, snap, cur)
	assert.Contains(t, md, "✓ present in `tavern`")
}

func TestSynthesize_EntityWithoutPresence(t *testing.T) {
	t.Parallel()
	md := synth(t, resolve.Entity{ID: "warden"}, factstest.Tavern(t), Cursor{})
	assert.Contains(t, md, "**@warden** · `Character`")
	assert.Contains(t, md, "Traits: `interactable`")
	assert.Contains(t, md, "In: `tavern`")
	assert.NotContains(t, md, "present")
}

func TestSynthesize_Evaluation(t *testing.T) {
	t.Parallel()
	snap := factstest.Tavern(t)
	cur := tavernCursor(t, 0)
	prop := resolve.EntityProperty{EntityID: "warden", Property: "trust"}

	cur.Line = lineOf(t, cur.Doc, "? @warden.trust >= 3")
	assert.Contains(t, synth(t, prop, snap, cur), "With `5` now: `true`")

	cur.Line = lineOf(t, cur.Doc, "> @warden.trust + 10")
	md := synth(t, prop, snap, cur)
	assert.Contains(t, md, "After: `5` → `15`")
	assert.NotContains(t, md, "exceeds")

	cur.Line = lineOf(t, cur.Doc, "@warden: Mind the stairs.")
	assert.NotContains(t, synth(t, prop, snap, cur), "After:")
}

func TestSynthesize_RangeWarning(t *testing.T) {
	t.Parallel()
	snap := factstest.Tavern(t)
	doc := document.New(factstest.TavernFile, "# Tavern\n> @warden.trust + 100\n> @warden.trust - 9\n")
	prop := resolve.EntityProperty{EntityID: "warden", Property: "trust"}

	md := synth(t, prop, snap, Cursor{Doc: doc, Line: 1})
	assert.Contains(t, md, "After: `5` → `105`")
	assert.Contains(t, md, "⚠ exceeds max `100`")

	md = synth(t, prop, snap, Cursor{Doc: doc, Line: 2})
	assert.Contains(t, md, "⚠ below min `0`")
}

func TestSynthesize_EnumValueLiteral(t *testing.T) {
	t.Parallel()
	snap := factstest.Tavern(t)
	cur := tavernCursor(t, 0)
	cur.Line = lineOf(t, cur.Doc, "> @barkeep.mood = wary")

	md := synth(t, resolve.ValueLiteral{EntityID: "barkeep", Property: "mood", Operator: "=", Literal: "wary"}, snap, cur)
	assert.Contains(t, md, "✓ `wary` is a valid value")
	assert.Contains(t, md, "Values: `calm`, `wary`, `hostile`")
	assert.Contains(t, md, "After: `calm` → `wary`")

	md = synth(t, resolve.ValueLiteral{EntityID: "barkeep", Property: "mood", Operator: "=", Literal: "angry"}, snap, Cursor{})
	assert.Contains(t, md, "⚠ `angry` is not a valid value")
	assert.Contains(t, md, "Values: `calm`, `wary`, `hostile`")
}

func TestSynthesize_PropertyOrphanAndContainer(t *testing.T) {
	t.Parallel()
	snap := factstest.Tavern(t)

	md := synth(t, resolve.TypeProperty{TypeName: "Character", Property: "mood"}, snap, Cursor{})
	assert.Contains(t, md, "⚠ written but never read")
	assert.Contains(t, md, "Default: `calm`")

	md = synth(t, resolve.TypeProperty{TypeName: "Character", Property: "secret"}, snap, Cursor{})
	assert.Contains(t, md, "Hidden until revealed")
	assert.Contains(t, md, "Never read or written")

	md = synth(t, resolve.EntityProperty{EntityID: "warden", Property: "container"}, snap, Cursor{})
	assert.Contains(t, md, "implicit")
	assert.Contains(t, md, "Currently: `tavern`")
}

func TestSynthesize_Section(t *testing.T) {
	t.Parallel()
	snap := factstest.Tavern(t)
	cur := tavernCursor(t, 0)

	md := synth(t, resolve.SectionLabel{Name: "cellar_talk"}, snap, cur)
	assert.Contains(t, md, "`tavern/cellar_talk`")
	assert.Contains(t, md, "Incoming: 1 · Outgoing: 1 · Choices: 0")
	assert.Contains(t, md, "@warden: Mind the stairs.")
	assert.Contains(t, md, "\n…\n")
	assert.NotContains(t, md, "Off you go")

	md = synth(t, resolve.SectionJump{Name: "greet"}, snap, cur)
	assert.Contains(t, md, "Incoming: 1 · Outgoing: 3 · Choices: 3")
	assert.Contains(t, md, "- * Order a drink")
	assert.Contains(t, md, "- + Leave")

	md = synth(t, resolve.SectionJump{Name: "greet"}, snap, Cursor{})
	assert.NotContains(t, md, "```", "no preview without a document")
}

func TestSynthesize_LocationAndExits(t *testing.T) {
	t.Parallel()
	snap := factstest.Tavern(t)
	cur := tavernCursor(t, 0)

	md := synth(t, resolve.LocationHeading{Name: "Tavern"}, snap, cur)
	assert.Contains(t, md, "A smoky room")
	assert.Contains(t, md, "- north → `cellar`")
	assert.Contains(t, md, "Contains: `@barkeep`, `@warden`")
	assert.Contains(t, md, "Start location")

	md = synth(t, resolve.ExitDestination{Direction: "north", Destination: "Cellar"}, snap, cur)
	assert.Contains(t, md, "**# Cellar** · `cellar`")

	cur.Line = lineOf(t, cur.Doc, "north: Cellar")
	md = synth(t, resolve.ExitDirection{Direction: "north", Destination: "Cellar"}, snap, cur)
	assert.Contains(t, md, "`tavern` → `cellar`")
	assert.Contains(t, md, "Damp stone")

	cur.Line = lineOf(t, cur.Doc, "-> exit:north")
	md = synth(t, resolve.ExitJump{Direction: "north"}, snap, cur)
	assert.Contains(t, md, "`tavern` → `cellar`")

	cur.Line = lineOf(t, cur.Doc, "south: Tavern")
	_, ok := Synthesize(resolve.ExitDirection{Direction: "north"}, snap, cur)
	assert.False(t, ok, "cellar has no north exit")
}

func TestSynthesize_TypesRulesWorld(t *testing.T) {
	t.Parallel()
	snap := factstest.Tavern(t)

	md := synth(t, resolve.TypeName{Name: "Character"}, snap, Cursor{})
	assert.Contains(t, md, "Entities: 2")
	assert.Contains(t, md, "- `trust`: integer")

	md = synth(t, resolve.RuleName{Name: "wander"}, snap, Cursor{})
	assert.Contains(t, md, "Actor: `@barkeep`")
	assert.Contains(t, md, "Conditions: 0 · Effects: 1")

	md = synth(t, resolve.WorldKey{Key: "start", Value: "tavern"}, snap, Cursor{})
	assert.Contains(t, md, "✓ location `tavern`")

	md = synth(t, resolve.WorldKey{Key: "start", Value: "moon"}, snap, Cursor{})
	assert.Contains(t, md, "⚠ no location named `moon`")

	md = synth(t, resolve.WorldKey{Key: "entry", Value: "greet"}, snap, tavernCursor(t, 0))
	assert.Contains(t, md, "✓ section `tavern/greet`")

	md = synth(t, resolve.Trait{Name: "portable"}, snap, Cursor{})
	assert.Contains(t, md, "Types: `Item`")
}

func TestSynthesize_StaticTables(t *testing.T) {
	t.Parallel()

	refs := []resolve.Reference{
		resolve.Keyword{Token: "*"},
		resolve.Keyword{Token: "->"},
		resolve.FrontmatterKey{Key: "types"},
		resolve.EffectCommand{Name: "move"},
		resolve.ConditionKeyword{Keyword: "not in"},
		resolve.RuleKeyword{Keyword: "actor"},
		resolve.VisibilityPrefix{},
		resolve.OrCombinator{},
		resolve.Comment{},
		resolve.Trait{Name: "custom"},
	}
	for _, ref := range refs {
		_, ok := Synthesize(ref, nil, Cursor{})
		assert.True(t, ok, "%#v", ref)
	}

	md := synth(t, resolve.TypeConstructor{Name: "enum", Values: []string{"calm", "wary"}, Default: "calm"}, nil, Cursor{})
	assert.Contains(t, md, "Values: `calm`, `wary`")
	assert.Contains(t, md, "Default: `calm`")

	md = synth(t, resolve.TypeConstructor{Name: "int", Range: "0, 100"}, nil, Cursor{})
	assert.Contains(t, md, "Range: `0, 100`")
}

func TestSynthesize_SequencesAndPhases(t *testing.T) {
	t.Parallel()
	snap := factstest.Tavern(t)
	snap.Definitions = facts.DefinitionIndex{}
	for k, v := range factstest.Tavern(t).Definitions {
		snap.Definitions[k] = v
	}
	snap.Definitions["sequence:heist"] = facts.Definition{Kind: facts.KindSequence, Name: "Heist"}
	snap.Definitions["phase:heist/reveal"] = facts.Definition{Kind: facts.KindPhase, Name: "Reveal"}

	md := synth(t, resolve.SequenceHeading{Name: "Heist", Auto: true}, snap, Cursor{})
	assert.Contains(t, md, "Advances automatically")
	md = synth(t, resolve.PhaseHeading{Name: "Reveal"}, snap, Cursor{})
	assert.Contains(t, md, "`heist/reveal`")
}
