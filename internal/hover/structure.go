package hover

import (
	"fmt"
	"strings"

	"github.com/jward/worldlens/internal/facts"
)

func section(name string, snap *facts.Snapshot, cur Cursor) (string, bool) {
	id, def, ok := snap.Definitions.SectionByName(name, cur.stem())
	if !ok {
		return "", false
	}
	f := &snap.Facts
	choices := f.ChoicesIn(id)

	var b strings.Builder
	fmt.Fprintf(&b, "**== %s** · `%s`\n\n", name, id)
	fmt.Fprintf(&b, "Incoming: %d · Outgoing: %d · Choices: %d\n",
		len(f.JumpsTo(id)), len(f.JumpsFrom(id)), len(choices))
	if len(choices) > 0 {
		b.WriteString("\n")
		for _, ci := range choices {
			c := f.Choices[ci]
			if c.Sticky {
				fmt.Fprintf(&b, "- * %s\n", c.Label)
			} else {
				fmt.Fprintf(&b, "- + %s\n", c.Label)
			}
		}
	}
	if cur.Doc != nil && (def.Span.File == "" || def.Span.File == cur.Doc.Name) {
		lines, more := cur.Doc.Preview(def.Span.StartLine-1, PreviewLines)
		if len(lines) > 0 {
			b.WriteString("\n```\n")
			b.WriteString(strings.Join(lines, "\n"))
			if more {
				b.WriteString("\n…")
			}
			b.WriteString("\n```\n")
		}
	}
	return strings.TrimRight(b.String(), "\n"), true
}

func location(name string, snap *facts.Snapshot) (string, bool) {
	id, _, ok := snap.Definitions.LocationByName(name)
	if !ok {
		if _, compiled := snap.Output.Locations[name]; !compiled {
			return "", false
		}
		id = name
	}
	loc := snap.Output.Locations[id]
	title := loc.Name
	if title == "" {
		title = name
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**# %s** · `%s`\n", title, id)
	if loc.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", loc.Description)
	}
	if len(loc.Exits) > 0 {
		b.WriteString("\nExits:\n")
		for _, dir := range sortedKeys(loc.Exits) {
			e := loc.Exits[dir]
			fmt.Fprintf(&b, "- %s → `%s`", dir, e.To)
			if e.Condition != "" {
				b.WriteString(" (conditional)")
			}
			b.WriteString("\n")
		}
	}
	if len(loc.Contains) > 0 {
		contains := make([]string, len(loc.Contains))
		for i, e := range loc.Contains {
			contains[i] = "@" + strings.TrimPrefix(e, "@")
		}
		fmt.Fprintf(&b, "\nContains: %s\n", codeList(contains))
	}
	if snap.Output.World.Start == id {
		b.WriteString("\nStart location\n")
	}
	return strings.TrimRight(b.String(), "\n"), true
}

// exit describes direction as seen from the location enclosing the cursor.
func exit(direction string, snap *facts.Snapshot, cur Cursor) (string, bool) {
	if cur.Doc == nil {
		return "", false
	}
	name, _, ok := cur.Doc.EnclosingLocation(cur.Line)
	if !ok {
		return "", false
	}
	from, _, ok := snap.Definitions.LocationByName(name)
	if !ok {
		return "", false
	}
	e, ok := snap.Output.Locations[from].Exits[direction]
	if !ok {
		return "", false
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%s** exit · `%s` → `%s`\n", direction, from, e.To)
	if e.Condition != "" {
		fmt.Fprintf(&b, "\nCondition: `%s`\n", e.Condition)
	}
	if e.Blocked != "" {
		fmt.Fprintf(&b, "\nBlocked: %s\n", e.Blocked)
	}
	if to, ok := snap.Output.Locations[e.To]; ok && to.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", to.Description)
	}
	return strings.TrimRight(b.String(), "\n"), true
}

func rule(name string, snap *facts.Snapshot) (string, bool) {
	r, compiled := snap.Output.Rules[name]
	_, declared := snap.Definitions.Lookup(facts.RuleKey(name))
	if !compiled && !declared {
		return "", false
	}
	var b strings.Builder
	fmt.Fprintf(&b, "**rule %s**\n", name)
	if r.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", r.Description)
	}
	if r.Actor != "" {
		fmt.Fprintf(&b, "\nActor: `@%s`\n", strings.TrimPrefix(r.Actor, "@"))
	}
	if r.Trigger != "" {
		fmt.Fprintf(&b, "Trigger: `%s`\n", r.Trigger)
	}
	for _, rf := range snap.Facts.Rules {
		if rf.RuleID == name {
			fmt.Fprintf(&b, "\nConditions: %d · Effects: %d\n", len(rf.ConditionReads), len(rf.EffectWrites))
			break
		}
	}
	return strings.TrimRight(b.String(), "\n"), true
}

func sequence(name string, auto bool, snap *facts.Snapshot) (string, bool) {
	id, _, ok := snap.Definitions.ByName(facts.KindSequence, name)
	if !ok {
		return "", false
	}
	var b strings.Builder
	fmt.Fprintf(&b, "**## %s** sequence · `%s`\n", name, id)
	if auto {
		b.WriteString("\nAdvances automatically\n")
	}
	if seq, ok := snap.Output.Sequences[id]; ok && len(seq.Phases) > 0 {
		b.WriteString("\nPhases:\n")
		for _, p := range seq.Phases {
			fmt.Fprintf(&b, "- `%s`", p.ID)
			if p.Advance != "" {
				fmt.Fprintf(&b, " (%s)", p.Advance)
			}
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n"), true
}

func phase(name string, auto bool, snap *facts.Snapshot) (string, bool) {
	id, _, ok := snap.Definitions.ByName(facts.KindPhase, name)
	if !ok {
		return "", false
	}
	var b strings.Builder
	fmt.Fprintf(&b, "**### %s** phase · `%s`\n", name, id)
	if auto {
		b.WriteString("\nAdvances automatically once its effects run\n")
	} else {
		b.WriteString("\nAdvances when its advance condition is met\n")
	}
	return strings.TrimRight(b.String(), "\n"), true
}
