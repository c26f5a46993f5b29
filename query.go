package worldlens

import (
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/jward/worldlens/internal/document"
	"github.com/jward/worldlens/internal/facts"
	"github.com/jward/worldlens/internal/hover"
	"github.com/jward/worldlens/internal/project"
	"github.com/jward/worldlens/internal/resolve"
)

// Queries take 0-based lines and 0-based character columns, the editor's
// coordinates. Spans from the engine are converted with the current
// document, clamping lines that no longer exist.

// Location is a declaration site in editor coordinates.
type Location struct {
	File  string `json:"file"`
	Range Range  `json:"range"`
}

// EditorDiagnostic is a diagnostic positioned for the editor.
type EditorDiagnostic struct {
	Range    Range          `json:"range"`
	Severity facts.Severity `json:"severity"`
	Code     string         `json:"code"`
	Message  string         `json:"message"`
}

// Completion kinds.
const (
	CompletionEntity    = "entity"
	CompletionProperty  = "property"
	CompletionSection   = "section"
	CompletionDirection = "direction"
	CompletionKeyword   = "keyword"
)

// Completion is one autocomplete candidate.
type Completion struct {
	Label  string `json:"label"`
	Kind   string `json:"kind"`
	Detail string `json:"detail,omitempty"`
}

// view returns the document and snapshot a query runs against.
func (s *Session) view() (*document.Document, *Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readyLocked(); err != nil {
		return nil, nil, err
	}
	if s.doc == nil {
		return nil, nil, ErrNoDocument
	}
	return s.doc, s.snap.Load(), nil
}

// ReferenceAt resolves the construct under the cursor. It returns nil when
// nothing is there.
func (s *Session) ReferenceAt(line, col int) (Reference, error) {
	doc, _, err := s.view()
	if err != nil {
		return nil, err
	}
	return referenceAt(doc, line, col), nil
}

func referenceAt(doc *document.Document, line, col int) Reference {
	if line < 0 || line >= doc.LineCount() {
		return nil
	}
	region := doc.RegionAt(line)
	return resolve.Resolve(doc.Line(line), col, resolve.Context{
		InFrontmatter: region.InFrontmatter,
		InTypeBlock:   region.InTypeBlock,
		Block:         region.Block,
		TypeName:      region.TypeName,
	})
}

// Hover returns the tooltip markdown for the cursor position. ok is false
// when there is nothing to show.
func (s *Session) Hover(line, col int) (text string, ok bool, err error) {
	doc, snap, err := s.view()
	if err != nil {
		return "", false, err
	}
	ref := referenceAt(doc, line, col)
	if ref == nil {
		return "", false, nil
	}
	text, ok = hover.Synthesize(ref, snap, hover.Cursor{Doc: doc, Line: line})
	return text, ok, nil
}

// DefinitionAt returns the declaration of the construct under the cursor,
// or nil when it has none in the snapshot.
func (s *Session) DefinitionAt(line, col int) (*Location, error) {
	doc, snap, err := s.view()
	if err != nil {
		return nil, err
	}
	if !snap.HasOutput() {
		return nil, nil
	}
	ref := referenceAt(doc, line, col)
	if ref == nil {
		return nil, nil
	}
	def, ok := definitionOf(ref, snap, doc, line)
	if !ok || def.Span.IsZero() {
		return nil, nil
	}
	return s.location(doc, def.Span), nil
}

// definitionOf maps a reference to its DefinitionIndex entry.
func definitionOf(ref Reference, snap *Snapshot, doc *document.Document, line int) (facts.Definition, bool) {
	defs := snap.Definitions
	byName := func(id string, def facts.Definition, ok bool) (facts.Definition, bool) { return def, ok }
	exitOf := func(dir string) (facts.Definition, bool) {
		name, _, ok := doc.EnclosingLocation(line)
		if !ok {
			return facts.Definition{}, false
		}
		loc, _, ok := defs.LocationByName(name)
		if !ok {
			return facts.Definition{}, false
		}
		return defs.Lookup(facts.ExitKey(loc, dir))
	}
	property := func(entityID, prop string) (facts.Definition, bool) {
		if ent, ok := snap.Output.Entities[entityID]; ok {
			if def, ok := defs.Lookup(facts.PropertyKey(ent.Type, prop)); ok {
				return def, true
			}
		}
		return defs.Lookup(facts.EntityKey(entityID))
	}

	switch r := ref.(type) {
	case resolve.Entity:
		return defs.Lookup(facts.EntityKey(r.ID))
	case resolve.EntityProperty:
		return property(r.EntityID, r.Property)
	case resolve.ValueLiteral:
		return property(r.EntityID, r.Property)
	case resolve.TypeProperty:
		return defs.Lookup(facts.PropertyKey(r.TypeName, r.Property))
	case resolve.TypeName:
		return defs.Lookup(facts.TypeKey(r.Name))
	case resolve.SectionJump:
		return byName(defs.SectionByName(r.Name, doc.Stem()))
	case resolve.SectionLabel:
		return byName(defs.SectionByName(r.Name, doc.Stem()))
	case resolve.LocationHeading:
		return byName(defs.LocationByName(r.Name))
	case resolve.ExitDestination:
		return byName(defs.LocationByName(r.Destination))
	case resolve.ExitDirection:
		return exitOf(r.Direction)
	case resolve.ExitJump:
		return exitOf(r.Direction)
	case resolve.RuleName:
		return defs.Lookup(facts.RuleKey(r.Name))
	case resolve.SequenceHeading:
		return byName(defs.ByName(facts.KindSequence, r.Name))
	case resolve.PhaseHeading:
		return byName(defs.ByName(facts.KindPhase, r.Name))
	case resolve.WorldKey:
		switch r.Key {
		case "start":
			return byName(defs.LocationByName(r.Value))
		case "entry":
			return byName(defs.SectionByName(r.Value, doc.Stem()))
		}
	}
	return facts.Definition{}, false
}

// location converts a span to editor coordinates. Spans in other files
// cannot be converted to characters without their text; their byte
// columns are passed through.
func (s *Session) location(doc *document.Document, span facts.Span) *Location {
	if span.File == "" || sameFile(span.File, s.file) {
		return &Location{File: s.file, Range: doc.SpanRange(span)}
	}
	return &Location{File: span.File, Range: Range{
		Start: Position{Line: max(span.StartLine-1, 0), Char: max(span.StartCol-1, 0)},
		End:   Position{Line: max(span.EndLine-1, 0), Char: max(span.EndCol-1, 0)},
	}}
}

func sameFile(a, b string) bool {
	a, b = filepath.ToSlash(a), filepath.ToSlash(b)
	return a == b || path.Base(a) == path.Base(b)
}

// Diagnostics returns the latest snapshot's diagnostics positioned in the
// current document.
func (s *Session) Diagnostics() ([]EditorDiagnostic, error) {
	doc, snap, err := s.view()
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return []EditorDiagnostic{}, nil
	}
	return editorDiagnostics(doc, snap.Diagnostics), nil
}

// SyntaxDiagnostics returns the latest syntax check's diagnostics
// positioned in the current document.
func (s *Session) SyntaxDiagnostics() ([]EditorDiagnostic, error) {
	doc, _, err := s.view()
	if err != nil {
		return nil, err
	}
	return editorDiagnostics(doc, s.Syntax().Diagnostics), nil
}

func editorDiagnostics(doc *document.Document, diags []Diagnostic) []EditorDiagnostic {
	out := make([]EditorDiagnostic, 0, len(diags))
	for _, d := range diags {
		out = append(out, EditorDiagnostic{
			Range:    doc.SpanRange(d.Span),
			Severity: d.Severity,
			Code:     d.Code,
			Message:  d.Message,
		})
	}
	return out
}

// LocationGraph projects the exits of the latest snapshot.
func (s *Session) LocationGraph() (Graph, error) {
	_, snap, err := s.view()
	if err != nil {
		return Graph{}, err
	}
	if snap == nil {
		return Graph{}, ErrNoSnapshot
	}
	return project.LocationGraph(&snap.Facts, snap.Diagnostics, snap.Output), nil
}

// DialogueGraph projects the jumps of the latest snapshot.
func (s *Session) DialogueGraph() (Graph, error) {
	_, snap, err := s.view()
	if err != nil {
		return Graph{}, err
	}
	if snap == nil {
		return Graph{}, ErrNoSnapshot
	}
	return project.DialogueGraph(&snap.Facts, snap.Diagnostics), nil
}

var (
	propertyPrefix = regexp.MustCompile(`@([A-Za-z_][\w-]*)\.([\w-]*)$`)
	entityPrefix   = regexp.MustCompile(`@([\w-]*)$`)
	exitJumpPrefix = regexp.MustCompile(`->\s*exit:([\w-]*)$`)
	sectionPrefix  = regexp.MustCompile(`->\s*([\w-]*)$`)
	builtinTargets = []string{"END", "RETURN"}
)

// Complete returns completion candidates for the text before the cursor:
// entity ids after '@', properties after '@id.', exit directions after
// '-> exit:' and section names after '->'.
func (s *Session) Complete(line, col int) ([]Completion, error) {
	doc, snap, err := s.view()
	if err != nil {
		return nil, err
	}
	if line < 0 || line >= doc.LineCount() || !snap.HasOutput() {
		return []Completion{}, nil
	}
	runes := []rune(doc.Line(line))
	col = min(max(col, 0), len(runes))
	before := string(runes[:col])
	out := snap.Output

	var items []Completion
	switch {
	case propertyPrefix.MatchString(before):
		m := propertyPrefix.FindStringSubmatch(before)
		ent, ok := out.Entities[m[1]]
		if !ok {
			break
		}
		props := out.Types[ent.Type].Properties
		for _, name := range sortedKeys(props) {
			if strings.HasPrefix(name, m[2]) {
				items = append(items, Completion{Label: name, Kind: CompletionProperty, Detail: props[name].Type})
			}
		}
		if strings.HasPrefix("container", m[2]) {
			items = append(items, Completion{Label: "container", Kind: CompletionProperty, Detail: "implicit"})
		}
	case entityPrefix.MatchString(before):
		m := entityPrefix.FindStringSubmatch(before)
		for _, id := range sortedKeys(out.Entities) {
			if strings.HasPrefix(id, m[1]) {
				items = append(items, Completion{Label: id, Kind: CompletionEntity, Detail: out.Entities[id].Type})
			}
		}
	case exitJumpPrefix.MatchString(before):
		m := exitJumpPrefix.FindStringSubmatch(before)
		name, _, ok := doc.EnclosingLocation(line)
		if !ok {
			break
		}
		id, _, ok := snap.Definitions.LocationByName(name)
		if !ok {
			break
		}
		exits := out.Locations[id].Exits
		for _, dir := range sortedKeys(exits) {
			if strings.HasPrefix(dir, m[1]) {
				items = append(items, Completion{Label: dir, Kind: CompletionDirection, Detail: exits[dir].To})
			}
		}
	case sectionPrefix.MatchString(before):
		m := sectionPrefix.FindStringSubmatch(before)
		for _, name := range sectionNames(snap.Definitions, doc.Stem()) {
			if strings.HasPrefix(name, m[1]) {
				items = append(items, Completion{Label: name, Kind: CompletionSection})
			}
		}
		for _, kw := range builtinTargets {
			if strings.HasPrefix(kw, strings.ToUpper(m[1])) {
				items = append(items, Completion{Label: kw, Kind: CompletionKeyword})
			}
		}
	}
	if items == nil {
		items = []Completion{}
	}
	return items, nil
}

// sectionNames lists the short names of sections compiled from the file
// with the given stem.
func sectionNames(defs facts.DefinitionIndex, stem string) []string {
	seen := map[string]bool{}
	for _, k := range defs.Keys(facts.KindSection) {
		id := strings.TrimPrefix(k, facts.KindSection+":")
		file, short, ok := strings.Cut(id, "/")
		if !ok {
			short = id
		} else if stem != "" && file != stem {
			continue
		}
		seen[short] = true
	}
	return sortedKeys(seen)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
