package hover

import (
	"fmt"
	"slices"
	"strings"

	"github.com/jward/worldlens/internal/eval"
	"github.com/jward/worldlens/internal/facts"
	"github.com/jward/worldlens/internal/resolve"
)

// entityType returns the declared type of an entity, preferring the
// compiled output over the definition index.
func entityType(snap *facts.Snapshot, id string) (string, bool) {
	if e, ok := snap.Output.Entities[id]; ok {
		return e.Type, true
	}
	if def, ok := snap.Definitions.Lookup(facts.EntityKey(id)); ok {
		return def.TypeName, true
	}
	return "", false
}

func entity(r resolve.Entity, snap *facts.Snapshot, cur Cursor) (string, bool) {
	typ, ok := entityType(snap, r.ID)
	if !ok {
		return "", false
	}
	var b strings.Builder
	fmt.Fprintf(&b, "**@%s** · `%s`\n", r.ID, typ)
	if t, ok := snap.Output.Types[typ]; ok && len(t.Traits) > 0 {
		fmt.Fprintf(&b, "\nTraits: %s\n", codeList(t.Traits))
	}
	container, placed := snap.Output.ContainerOf(r.ID)
	if placed {
		fmt.Fprintf(&b, "\nIn: `%s`\n", container)
	}
	if r.Presence && cur.Doc != nil {
		b.WriteString("\n")
		b.WriteString(presence(r.ID, container, placed, snap, cur))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n"), true
}

// presence checks a [@a, @b] marker against the enclosing location's
// contains list.
func presence(id, container string, placed bool, snap *facts.Snapshot, cur Cursor) string {
	name, _, ok := cur.Doc.EnclosingLocation(cur.Line)
	if !ok {
		return "⚠ presence marker outside any location"
	}
	locID, _, ok := snap.Definitions.LocationByName(name)
	if !ok {
		return fmt.Sprintf("⚠ location `%s` is not compiled", name)
	}
	if slices.Contains(snap.Output.Locations[locID].Contains, id) {
		return fmt.Sprintf("✓ present in `%s`", locID)
	}
	if !placed {
		return fmt.Sprintf("⚠ @%s is not in `%s` and is not placed anywhere", id, locID)
	}
	return fmt.Sprintf("⚠ @%s is not in `%s`; it is in `%s`", id, locID, container)
}

// propertyInfo merges what the definition index and the compiled types say
// about a property.
type propertyInfo struct {
	typeName string
	name     string
	kind     string
	def      any
	min, max *float64
	values   []string
	hidden   bool
}

func lookupProperty(snap *facts.Snapshot, typeName, prop string) (propertyInfo, bool) {
	p := propertyInfo{typeName: typeName, name: prop}
	if d, ok := snap.Definitions.Lookup(facts.PropertyKey(typeName, prop)); ok {
		p.kind, p.def, p.min, p.max, p.values = d.PropertyType, d.Default, d.Min, d.Max, d.Values
		p.hidden = d.Visibility == "hidden"
		return p, true
	}
	if d, ok := snap.Output.Types[typeName].Properties[prop]; ok {
		p.kind, p.def, p.min, p.max, p.values = d.Type, d.Default, d.Min, d.Max, d.Values
		p.hidden = d.Visibility == "hidden"
		return p, true
	}
	return p, false
}

func (p propertyInfo) write(b *strings.Builder) {
	fmt.Fprintf(b, "Type: `%s`", p.kind)
	switch {
	case p.min != nil && p.max != nil:
		fmt.Fprintf(b, " (%s..%s)", eval.Format(*p.min), eval.Format(*p.max))
	case p.min != nil:
		fmt.Fprintf(b, " (≥ %s)", eval.Format(*p.min))
	case p.max != nil:
		fmt.Fprintf(b, " (≤ %s)", eval.Format(*p.max))
	}
	b.WriteString("\n")
	if len(p.values) > 0 {
		fmt.Fprintf(b, "Values: %s\n", codeList(p.values))
	}
	if p.def != nil {
		fmt.Fprintf(b, "Default: `%s`\n", eval.Format(p.def))
	}
	if p.hidden {
		b.WriteString("Hidden until revealed\n")
	}
}

func usage(b *strings.Builder, snap *facts.Snapshot, typeName, prop string) {
	u, ok := snap.Properties.Lookup(typeName, prop)
	if !ok {
		b.WriteString("\nNever read or written\n")
		return
	}
	fmt.Fprintf(b, "\nReads: %d · Writes: %d\n", u.ReadCount, u.WriteCount)
	orphan := u.Orphan
	if orphan == "" {
		orphan = u.Classify()
	}
	switch orphan {
	case facts.OrphanReadNeverWritten:
		b.WriteString("⚠ read but never written\n")
	case facts.OrphanWrittenNeverRead:
		b.WriteString("⚠ written but never read\n")
	}
}

func entityProperty(r resolve.EntityProperty, snap *facts.Snapshot, cur Cursor) (string, bool) {
	typ, ok := entityType(snap, r.EntityID)
	if !ok {
		return "", false
	}
	var b strings.Builder
	if r.Property == "container" {
		fmt.Fprintf(&b, "**@%s.container** · implicit\n\n%s", r.EntityID, containerDoc)
		if loc, ok := snap.Output.ContainerOf(r.EntityID); ok {
			fmt.Fprintf(&b, "\n\nCurrently: `%s`", loc)
		}
		return b.String(), true
	}
	p, ok := lookupProperty(snap, typ, r.Property)
	if !ok {
		return "", false
	}
	fmt.Fprintf(&b, "**@%s.%s** · `%s.%s`\n\n", r.EntityID, r.Property, typ, r.Property)
	p.write(&b)
	if v, ok := snap.Output.EffectiveValue(r.EntityID, r.Property); ok {
		fmt.Fprintf(&b, "Value: `%s`\n", eval.Format(v))
	}
	usage(&b, snap, typ, r.Property)
	if op, lit, ok := resolve.ValueAfter(cur.text(), r.EntityID, r.Property); ok {
		evaluation(&b, snap, p, r.EntityID, op, lit, cur)
	}
	return strings.TrimRight(b.String(), "\n"), true
}

func valueLiteral(r resolve.ValueLiteral, snap *facts.Snapshot, cur Cursor) (string, bool) {
	typ, ok := entityType(snap, r.EntityID)
	if !ok {
		return "", false
	}
	p, ok := lookupProperty(snap, typ, r.Property)
	if !ok {
		return "", false
	}
	var b strings.Builder
	fmt.Fprintf(&b, "**`%s`** for `%s.%s`\n", r.Literal, typ, r.Property)
	if len(p.values) > 0 {
		lit := strings.Trim(r.Literal, `"`)
		if slices.Contains(p.values, lit) {
			fmt.Fprintf(&b, "\n✓ `%s` is a valid value\n", lit)
		} else {
			fmt.Fprintf(&b, "\n⚠ `%s` is not a valid value\n", lit)
		}
		fmt.Fprintf(&b, "Values: %s\n", codeList(p.values))
	}
	evaluation(&b, snap, p, r.EntityID, r.Operator, r.Literal, cur)
	return strings.TrimRight(b.String(), "\n"), true
}

// evaluation appends the outcome of "value op literal" when the cursor line
// is a condition or an effect.
func evaluation(b *strings.Builder, snap *facts.Snapshot, p propertyInfo, entityID, op, lit string, cur Cursor) {
	var marker byte
	if t := strings.TrimSpace(cur.text()); t != "" {
		marker = t[0]
	}
	if marker != '?' && marker != '>' {
		return
	}
	ev, err := evaluator()
	if err != nil {
		return
	}
	value, _ := snap.Output.EffectiveValue(entityID, p.name)
	if marker == '?' {
		ok, err := ev.Condition(value, op, lit)
		if err != nil {
			return
		}
		fmt.Fprintf(b, "\nWith `%s` now: `%t`\n", eval.Format(value), ok)
		return
	}
	next, err := ev.Effect(value, op, lit)
	if err != nil {
		return
	}
	fmt.Fprintf(b, "\nAfter: `%s` → `%s`\n", eval.Format(value), eval.Format(next))
	if f, ok := next.(float64); ok {
		if p.max != nil && f > *p.max {
			fmt.Fprintf(b, "⚠ exceeds max `%s`\n", eval.Format(*p.max))
		}
		if p.min != nil && f < *p.min {
			fmt.Fprintf(b, "⚠ below min `%s`\n", eval.Format(*p.min))
		}
	}
}

func typeProperty(r resolve.TypeProperty, snap *facts.Snapshot) (string, bool) {
	p, ok := lookupProperty(snap, r.TypeName, r.Property)
	if !ok {
		return "", false
	}
	var b strings.Builder
	fmt.Fprintf(&b, "**%s.%s**\n\n", r.TypeName, r.Property)
	p.write(&b)
	usage(&b, snap, r.TypeName, r.Property)
	return strings.TrimRight(b.String(), "\n"), true
}

func typeName(r resolve.TypeName, snap *facts.Snapshot) (string, bool) {
	t, compiled := snap.Output.Types[r.Name]
	def, declared := snap.Definitions.Lookup(facts.TypeKey(r.Name))
	if !compiled && !declared {
		return "", false
	}
	traits := t.Traits
	if len(traits) == 0 {
		traits = def.Traits
	}
	var b strings.Builder
	fmt.Fprintf(&b, "**%s** type\n", r.Name)
	if len(traits) > 0 {
		fmt.Fprintf(&b, "\nTraits: %s\n", codeList(traits))
	}
	if len(t.Properties) > 0 {
		b.WriteString("\nProperties:\n")
		for _, name := range sortedKeys(t.Properties) {
			fmt.Fprintf(&b, "- `%s`: %s\n", name, t.Properties[name].Type)
		}
	}
	fmt.Fprintf(&b, "\nEntities: %d\n", len(snap.Output.EntitiesOfType(r.Name)))
	return strings.TrimRight(b.String(), "\n"), true
}
