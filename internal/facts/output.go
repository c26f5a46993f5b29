package facts

import (
	"encoding/json"
	"fmt"
	"sort"
)

// CompiledOutput is the compiled world, decoded once per snapshot.
type CompiledOutput struct {
	World     World               `json:"world"`
	Types     map[string]TypeDef  `json:"types,omitempty"`
	Entities  map[string]Entity   `json:"entities,omitempty"`
	Locations map[string]Location `json:"locations,omitempty"`
	Rules     map[string]Rule     `json:"rules,omitempty"`
	Sequences map[string]Sequence `json:"sequences,omitempty"`
	Dialogue  map[string]Section  `json:"dialogue,omitempty"`

	// Raw is the undecoded output, handed to the structural validator.
	Raw json.RawMessage `json:"-"`
}

type World struct {
	Name        string `json:"name"`
	Version     string `json:"version,omitempty"`
	Start       string `json:"start,omitempty"`
	Entry       string `json:"entry,omitempty"`
	Seed        *int64 `json:"seed,omitempty"`
	Description string `json:"description,omitempty"`
	Author      string `json:"author,omitempty"`
}

type TypeDef struct {
	Traits     []string               `json:"traits,omitempty"`
	Properties map[string]PropertyDef `json:"properties,omitempty"`
}

type PropertyDef struct {
	Type        string   `json:"type"`
	Default     any      `json:"default,omitempty"`
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
	Values      []string `json:"values,omitempty"`
	Ref         string   `json:"ref,omitempty"`
	Visibility  string   `json:"visibility,omitempty"`
	Description string   `json:"description,omitempty"`
}

type Entity struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
}

type Location struct {
	Name        string          `json:"name,omitempty"`
	Description string          `json:"description,omitempty"`
	Contains    []string        `json:"contains,omitempty"`
	Exits       map[string]Exit `json:"exits,omitempty"`
}

type Exit struct {
	To        string `json:"to"`
	Condition string `json:"condition,omitempty"`
	Blocked   string `json:"blocked_message,omitempty"`
}

type Rule struct {
	Actor       string `json:"actor,omitempty"`
	Trigger     string `json:"trigger,omitempty"`
	Description string `json:"description,omitempty"`
}

type Sequence struct {
	Phases []Phase `json:"phases,omitempty"`
}

type Phase struct {
	ID      string `json:"id"`
	Advance string `json:"advance,omitempty"`
	Auto    bool   `json:"auto,omitempty"`
}

type Section struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt,omitempty"`
	Choices []Choice `json:"choices,omitempty"`
}

type Choice struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Sticky bool   `json:"sticky,omitempty"`
}

// DecodeOutput parses compiled output JSON.
func DecodeOutput(raw json.RawMessage) (*CompiledOutput, error) {
	var out CompiledOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode compiled output: %w", err)
	}
	out.Raw = raw
	return &out, nil
}

// LocationIDs returns the declared location ids, sorted.
func (o *CompiledOutput) LocationIDs() []string {
	ids := make([]string, 0, len(o.Locations))
	for id := range o.Locations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ContainerOf returns the location whose contains list holds entityID.
func (o *CompiledOutput) ContainerOf(entityID string) (string, bool) {
	for _, id := range o.LocationIDs() {
		for _, e := range o.Locations[id].Contains {
			if e == entityID || e == "@"+entityID {
				return id, true
			}
		}
	}
	return "", false
}

// Property returns the declared definition of prop on the entity's type.
func (o *CompiledOutput) Property(entityID, prop string) (PropertyDef, bool) {
	ent, ok := o.Entities[entityID]
	if !ok {
		return PropertyDef{}, false
	}
	def, ok := o.Types[ent.Type].Properties[prop]
	return def, ok
}

// EffectiveValue returns the entity override for prop, or else the type
// default.
func (o *CompiledOutput) EffectiveValue(entityID, prop string) (any, bool) {
	ent, ok := o.Entities[entityID]
	if !ok {
		return nil, false
	}
	if v, ok := ent.Properties[prop]; ok {
		return v, true
	}
	def, ok := o.Types[ent.Type].Properties[prop]
	if !ok || def.Default == nil {
		return nil, false
	}
	return def.Default, true
}

// EntitiesOfType returns ids of entities declared with typeName, sorted.
func (o *CompiledOutput) EntitiesOfType(typeName string) []string {
	var ids []string
	for id, e := range o.Entities {
		if e.Type == typeName {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
