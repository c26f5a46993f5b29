package facts

import (
	"sort"
	"strings"
)

// Definition kinds, also used as key namespaces in a DefinitionIndex.
const (
	KindEntity   = "entity"
	KindType     = "type"
	KindProperty = "prop"
	KindLocation = "location"
	KindSection  = "section"
	KindExit     = "exit"
	KindChoice   = "choice"
	KindRule     = "rule"
	KindSequence = "sequence"
	KindPhase    = "phase"
)

// Definition is a declaration site plus the metadata the tooling displays.
type Definition struct {
	Kind         string   `json:"kind"`
	Span         Span     `json:"span"`
	Name         string   `json:"name,omitempty"`
	TypeName     string   `json:"type,omitempty"`
	PropertyType string   `json:"property_type,omitempty"`
	Default      any      `json:"default,omitempty"`
	Min          *float64 `json:"min,omitempty"`
	Max          *float64 `json:"max,omitempty"`
	Values       []string `json:"values,omitempty"`
	Traits       []string `json:"traits,omitempty"`
	Visibility   string   `json:"visibility,omitempty"`
}

// DefinitionIndex maps namespaced keys such as "entity:@warden",
// "prop:Character.trust" or "section:tavern/greet" to declarations.
type DefinitionIndex map[string]Definition

// EntityKey returns the index key for an entity id (without '@').
func EntityKey(id string) string { return KindEntity + ":@" + id }

// TypeKey returns the index key for a type.
func TypeKey(name string) string { return KindType + ":" + name }

// PropertyKey returns the index key for a type property.
func PropertyKey(typeName, prop string) string { return KindProperty + ":" + typeName + "." + prop }

// LocationKey returns the index key for a location id.
func LocationKey(id string) string { return KindLocation + ":" + id }

// SectionKey returns the index key for a compiled section id.
func SectionKey(id string) string { return KindSection + ":" + id }

// ExitKey returns the index key for an exit of a location.
func ExitKey(locationID, direction string) string {
	return KindExit + ":" + locationID + "/" + direction
}

// RuleKey returns the index key for a rule.
func RuleKey(id string) string { return KindRule + ":" + id }

// Lookup returns the definition stored under key.
func (d DefinitionIndex) Lookup(key string) (Definition, bool) {
	def, ok := d[key]
	return def, ok
}

// Keys returns all keys in the namespace kind, sorted.
func (d DefinitionIndex) Keys(kind string) []string {
	prefix := kind + ":"
	var keys []string
	for k := range d {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// ByName finds a declaration of kind whose display name or id is name.
// It returns the id part of the key.
func (d DefinitionIndex) ByName(kind, name string) (string, Definition, bool) {
	for _, k := range d.Keys(kind) {
		id := strings.TrimPrefix(k, kind+":")
		def := d[k]
		if def.Name == name || id == name {
			return id, def, true
		}
	}
	return "", Definition{}, false
}

// LocationByName resolves a heading's display name to a location id.
func (d DefinitionIndex) LocationByName(name string) (string, Definition, bool) {
	if id, def, ok := d.ByName(KindLocation, name); ok {
		return id, def, true
	}
	// Headings are often slugged into ids ("The Cellar" -> "the-cellar").
	return d.ByName(KindLocation, Slug(name))
}

// SectionByName resolves a section's short name to its compiled id. When
// several files declare the same name, the one under file wins.
func (d DefinitionIndex) SectionByName(name, file string) (string, Definition, bool) {
	var (
		fallbackID  string
		fallbackDef Definition
		found       bool
	)
	for _, k := range d.Keys(KindSection) {
		id := strings.TrimPrefix(k, KindSection+":")
		short := id
		if i := strings.LastIndex(id, "/"); i >= 0 {
			short = id[i+1:]
		}
		if short != name && id != name {
			continue
		}
		if file != "" && strings.HasPrefix(id, file+"/") {
			return id, d[k], true
		}
		if !found {
			fallbackID, fallbackDef, found = id, d[k], true
		}
	}
	return fallbackID, fallbackDef, found
}

// Slug lowercases name and joins its words with '-'.
func Slug(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}

// Orphan classifications in a PropertyUsage.
const (
	OrphanReadNeverWritten = "read_never_written"
	OrphanWrittenNeverRead = "written_never_read"
)

// PropertyUsage aggregates reads and writes of one (type, property) pair.
type PropertyUsage struct {
	EntityType   string `json:"entity_type"`
	Property     string `json:"property"`
	ReadCount    int    `json:"read_count"`
	WriteCount   int    `json:"write_count"`
	ReadIndices  []int  `json:"read_indices,omitempty"`
	WriteIndices []int  `json:"write_indices,omitempty"`
	Orphan       string `json:"orphaned,omitempty"`
}

// Classify derives the orphan classification from the counts.
func (u PropertyUsage) Classify() string {
	switch {
	case u.ReadCount > 0 && u.WriteCount == 0:
		return OrphanReadNeverWritten
	case u.WriteCount > 0 && u.ReadCount == 0:
		return OrphanWrittenNeverRead
	}
	return ""
}

// PropertyIndex lists usage per referenced (type, property) pair.
type PropertyIndex []PropertyUsage

// Lookup returns the usage entry for a pair.
func (p PropertyIndex) Lookup(typeName, prop string) (PropertyUsage, bool) {
	for _, u := range p {
		if u.EntityType == typeName && u.Property == prop {
			return u, true
		}
	}
	return PropertyUsage{}, false
}

func (p PropertyIndex) sanitize(reads, writes int) int {
	dropped := 0
	filter := func(idx []int, n int) []int {
		out := idx[:0:0]
		for _, i := range idx {
			if i >= 0 && i < n {
				out = append(out, i)
			} else {
				dropped++
			}
		}
		return out
	}
	for i := range p {
		if len(p[i].ReadIndices) > 0 {
			p[i].ReadIndices = filter(p[i].ReadIndices, reads)
		}
		if len(p[i].WriteIndices) > 0 {
			p[i].WriteIndices = filter(p[i].WriteIndices, writes)
		}
	}
	return dropped
}
