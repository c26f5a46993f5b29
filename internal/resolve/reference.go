// Package resolve identifies the language construct under a cursor.
//
// Resolution is line-oriented and ordered: the first rule whose token span
// contains the cursor column wins. A Reference only describes what kind of
// thing sits under the cursor; the snapshot is consulted later.
package resolve

// Kind names a Reference variant.
type Kind string

const (
	KindEntity           Kind = "entity"
	KindEntityProperty   Kind = "entity-property"
	KindTypeProperty     Kind = "type-property"
	KindSectionJump      Kind = "section-jump"
	KindSectionLabel     Kind = "section-label"
	KindLocationHeading  Kind = "location-heading"
	KindKeyword          Kind = "keyword"
	KindFrontmatterKey   Kind = "frontmatter-key"
	KindTypeConstructor  Kind = "type-constructor"
	KindExitDirection    Kind = "exit-direction"
	KindExitDestination  Kind = "exit-destination"
	KindTrait            Kind = "trait"
	KindTypeName         Kind = "type-name"
	KindVisibilityPrefix Kind = "visibility-prefix"
	KindEffectCommand    Kind = "effect-command"
	KindConditionKeyword Kind = "condition-keyword"
	KindOrCombinator     Kind = "or-combinator"
	KindRuleKeyword      Kind = "rule-keyword"
	KindRuleName         Kind = "rule-name"
	KindSequenceHeading  Kind = "sequence-heading"
	KindPhaseHeading     Kind = "phase-heading"
	KindWorldKey         Kind = "world-key"
	KindExitJump         Kind = "exit-jump"
	KindValueLiteral     Kind = "value-literal"
	KindComment          Kind = "comment"
)

// Reference is the construct found under the cursor. The set of
// implementations is closed.
type Reference interface {
	Kind() Kind
	reference()
}

type Entity struct {
	ID string
	// Presence is set when the reference sits in a [@a, @b] presence list.
	Presence bool
}

type EntityProperty struct {
	EntityID string
	Property string
}

type TypeProperty struct {
	TypeName string
	Property string
}

type SectionJump struct{ Name string }

type SectionLabel struct{ Name string }

type LocationHeading struct{ Name string }

type Keyword struct{ Token string }

type FrontmatterKey struct{ Key string }

// TypeConstructor is the value side of a property declaration such as
// "int(0, 100) = 50" or "enum(calm, wary) = calm".
type TypeConstructor struct {
	Name    string
	Range   string
	Default string
	Values  []string
	Target  string
}

type ExitDirection struct {
	Direction   string
	Destination string
}

type ExitDestination struct {
	Direction   string
	Destination string
}

type Trait struct{ Name string }

type TypeName struct {
	Name   string
	Traits []string
}

type VisibilityPrefix struct{}

type EffectCommand struct{ Name string }

type ConditionKeyword struct{ Keyword string }

type OrCombinator struct{}

type RuleKeyword struct{ Keyword string }

type RuleName struct{ Name string }

type SequenceHeading struct {
	Name string
	Auto bool
}

type PhaseHeading struct {
	Name string
	Auto bool
}

type WorldKey struct {
	Key   string
	Value string
}

type ExitJump struct{ Direction string }

// ValueLiteral is the "operator literal" tail after @entity.property.
type ValueLiteral struct {
	EntityID string
	Property string
	Operator string
	Literal  string
}

type Comment struct{}

func (Entity) Kind() Kind           { return KindEntity }
func (EntityProperty) Kind() Kind   { return KindEntityProperty }
func (TypeProperty) Kind() Kind     { return KindTypeProperty }
func (SectionJump) Kind() Kind      { return KindSectionJump }
func (SectionLabel) Kind() Kind     { return KindSectionLabel }
func (LocationHeading) Kind() Kind  { return KindLocationHeading }
func (Keyword) Kind() Kind          { return KindKeyword }
func (FrontmatterKey) Kind() Kind   { return KindFrontmatterKey }
func (TypeConstructor) Kind() Kind  { return KindTypeConstructor }
func (ExitDirection) Kind() Kind    { return KindExitDirection }
func (ExitDestination) Kind() Kind  { return KindExitDestination }
func (Trait) Kind() Kind            { return KindTrait }
func (TypeName) Kind() Kind         { return KindTypeName }
func (VisibilityPrefix) Kind() Kind { return KindVisibilityPrefix }
func (EffectCommand) Kind() Kind    { return KindEffectCommand }
func (ConditionKeyword) Kind() Kind { return KindConditionKeyword }
func (OrCombinator) Kind() Kind     { return KindOrCombinator }
func (RuleKeyword) Kind() Kind      { return KindRuleKeyword }
func (RuleName) Kind() Kind         { return KindRuleName }
func (SequenceHeading) Kind() Kind  { return KindSequenceHeading }
func (PhaseHeading) Kind() Kind     { return KindPhaseHeading }
func (WorldKey) Kind() Kind         { return KindWorldKey }
func (ExitJump) Kind() Kind         { return KindExitJump }
func (ValueLiteral) Kind() Kind     { return KindValueLiteral }
func (Comment) Kind() Kind          { return KindComment }

func (Entity) reference()           {}
func (EntityProperty) reference()   {}
func (TypeProperty) reference()     {}
func (SectionJump) reference()      {}
func (SectionLabel) reference()     {}
func (LocationHeading) reference()  {}
func (Keyword) reference()          {}
func (FrontmatterKey) reference()   {}
func (TypeConstructor) reference()  {}
func (ExitDirection) reference()    {}
func (ExitDestination) reference()  {}
func (Trait) reference()            {}
func (TypeName) reference()         {}
func (VisibilityPrefix) reference() {}
func (EffectCommand) reference()    {}
func (ConditionKeyword) reference() {}
func (OrCombinator) reference()     {}
func (RuleKeyword) reference()      {}
func (RuleName) reference()         {}
func (SequenceHeading) reference()  {}
func (PhaseHeading) reference()     {}
func (WorldKey) reference()         {}
func (ExitJump) reference()         {}
func (ValueLiteral) reference()     {}
func (Comment) reference()          {}
