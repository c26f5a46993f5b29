// Package hover turns a resolved Reference into markdown describing what the
// compiled world knows about it.
//
// Every builder re-queries the snapshot; a symbol absent from the snapshot
// yields ("", false) rather than an error.
package hover

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jward/worldlens/internal/document"
	"github.com/jward/worldlens/internal/eval"
	"github.com/jward/worldlens/internal/facts"
	"github.com/jward/worldlens/internal/resolve"
)

// PreviewLines is how many section lines a section tooltip previews.
const PreviewLines = 5

// Cursor is where the reference was found. Doc may be nil, in which case
// checks that scan the document are skipped.
type Cursor struct {
	Doc  *document.Document
	Line int
}

func (c Cursor) text() string {
	if c.Doc == nil {
		return ""
	}
	return c.Doc.Line(c.Line)
}

func (c Cursor) stem() string {
	if c.Doc == nil {
		return ""
	}
	return c.Doc.Stem()
}

var evaluator = sync.OnceValues(eval.New)

// Synthesize builds the tooltip for ref against snap.
func Synthesize(ref resolve.Reference, snap *facts.Snapshot, cur Cursor) (string, bool) {
	switch r := ref.(type) {
	case resolve.Keyword:
		return static(keywordDocs, r.Token, "`"+r.Token+"`")
	case resolve.FrontmatterKey:
		return static(frontmatterDocs, r.Key, "**"+r.Key+"**")
	case resolve.EffectCommand:
		return static(effectDocs, r.Name, "**"+r.Name+"**")
	case resolve.ConditionKeyword:
		return static(conditionDocs, r.Keyword, "**"+r.Keyword+"**")
	case resolve.RuleKeyword:
		return static(ruleKeywordDocs, r.Keyword, "**"+r.Keyword+"**")
	case resolve.VisibilityPrefix:
		return visibilityDoc, true
	case resolve.OrCombinator:
		return orDoc, true
	case resolve.Comment:
		return commentDoc, true
	case resolve.TypeConstructor:
		return constructor(r)
	case resolve.Trait:
		return trait(r, snap)
	case resolve.WorldKey:
		return worldKey(r, snap, cur)
	case nil:
		return "", false
	}

	if snap == nil || snap.Output == nil {
		return "", false
	}
	switch r := ref.(type) {
	case resolve.Entity:
		return entity(r, snap, cur)
	case resolve.EntityProperty:
		return entityProperty(r, snap, cur)
	case resolve.ValueLiteral:
		return valueLiteral(r, snap, cur)
	case resolve.TypeProperty:
		return typeProperty(r, snap)
	case resolve.TypeName:
		return typeName(r, snap)
	case resolve.SectionJump:
		return section(r.Name, snap, cur)
	case resolve.SectionLabel:
		return section(r.Name, snap, cur)
	case resolve.LocationHeading:
		return location(r.Name, snap)
	case resolve.ExitDestination:
		return location(r.Destination, snap)
	case resolve.ExitDirection:
		return exit(r.Direction, snap, cur)
	case resolve.ExitJump:
		return exit(r.Direction, snap, cur)
	case resolve.RuleName:
		return rule(r.Name, snap)
	case resolve.SequenceHeading:
		return sequence(r.Name, r.Auto, snap)
	case resolve.PhaseHeading:
		return phase(r.Name, r.Auto, snap)
	}
	return "", false
}

func static(table map[string]string, key, title string) (string, bool) {
	doc, ok := table[key]
	if !ok {
		return "", false
	}
	return title + "\n\n" + doc, true
}

func constructor(r resolve.TypeConstructor) (string, bool) {
	doc, ok := constructorDocs[r.Name]
	if !ok {
		return "", false
	}
	var b strings.Builder
	fmt.Fprintf(&b, "**%s**\n\n%s\n", r.Name, doc)
	if r.Range != "" {
		fmt.Fprintf(&b, "\nRange: `%s`", r.Range)
	}
	if len(r.Values) > 0 {
		fmt.Fprintf(&b, "\nValues: %s", codeList(r.Values))
	}
	if r.Target != "" {
		fmt.Fprintf(&b, "\nTarget: `%s`", r.Target)
	}
	if r.Default != "" {
		fmt.Fprintf(&b, "\nDefault: `%s`", r.Default)
	}
	return strings.TrimRight(b.String(), "\n"), true
}

func trait(r resolve.Trait, snap *facts.Snapshot) (string, bool) {
	var b strings.Builder
	fmt.Fprintf(&b, "**[%s]** trait\n", r.Name)
	if doc, ok := traitDocs[r.Name]; ok {
		fmt.Fprintf(&b, "\n%s\n", doc)
	}
	if snap != nil && snap.Output != nil {
		var types []string
		for name, t := range snap.Output.Types {
			for _, tr := range t.Traits {
				if tr == r.Name {
					types = append(types, name)
				}
			}
		}
		sort.Strings(types)
		if len(types) > 0 {
			fmt.Fprintf(&b, "\nTypes: %s\n", codeList(types))
		}
	}
	return strings.TrimRight(b.String(), "\n"), true
}

func worldKey(r resolve.WorldKey, snap *facts.Snapshot, cur Cursor) (string, bool) {
	doc, ok := worldKeyDocs[r.Key]
	if !ok {
		return "", false
	}
	var b strings.Builder
	fmt.Fprintf(&b, "**world.%s**\n\n%s", r.Key, doc)
	if snap == nil || r.Value == "" {
		return b.String(), true
	}
	switch r.Key {
	case "start":
		if id, _, ok := snap.Definitions.LocationByName(r.Value); ok {
			fmt.Fprintf(&b, "\n\n✓ location `%s`", id)
		} else {
			fmt.Fprintf(&b, "\n\n⚠ no location named `%s`", r.Value)
		}
	case "entry":
		if id, _, ok := snap.Definitions.SectionByName(r.Value, cur.stem()); ok {
			fmt.Fprintf(&b, "\n\n✓ section `%s`", id)
		} else {
			fmt.Fprintf(&b, "\n\n⚠ no section named `%s`", r.Value)
		}
	}
	return b.String(), true
}

func codeList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = "`" + s + "`"
	}
	return strings.Join(quoted, ", ")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
