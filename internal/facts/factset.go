package facts

// Site kinds for reads and writes.
const (
	SiteChoice = "choice"
	SiteExit   = "exit"
	SiteRule   = "rule"
)

// Jump target kinds.
const (
	TargetSection = "section"
	TargetExit    = "exit"
	TargetEnd     = "end"
)

// Site names the construct a read or write belongs to.
type Site struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// PropertyRead is a property comparison in a condition.
type PropertyRead struct {
	Site       Site   `json:"site"`
	EntityType string `json:"entity_type"`
	Property   string `json:"property"`
	Operator   string `json:"operator"`
	Literal    string `json:"literal"`
	Span       Span   `json:"span"`
}

// PropertyWrite is a property mutation in an effect.
type PropertyWrite struct {
	Site       Site   `json:"site"`
	EntityType string `json:"entity_type"`
	Property   string `json:"property"`
	Operator   string `json:"operator"`
	ValueExpr  string `json:"value_expr"`
	Span       Span   `json:"span"`
}

// ExitEdge connects two locations. GuardReads index into FactSet.Reads.
type ExitEdge struct {
	FromLocation  string `json:"from_location"`
	ToLocation    string `json:"to_location"`
	ExitName      string `json:"exit_name"`
	IsConditional bool   `json:"is_conditional"`
	GuardReads    []int  `json:"guard_reads,omitempty"`
	Span          Span   `json:"span"`
}

// JumpTarget is where a jump goes. ID is empty for TargetEnd.
type JumpTarget struct {
	Kind string `json:"kind"`
	ID   string `json:"id,omitempty"`
}

// JumpEdge is a `->` transfer out of a dialogue section.
type JumpEdge struct {
	FromSection string     `json:"from_section"`
	Target      JumpTarget `json:"target"`
	Span        Span       `json:"span"`
}

// ChoiceFact is one `+`/`*` choice. Index lists point into Reads, Writes and
// Jumps of the same FactSet.
type ChoiceFact struct {
	Section        string `json:"section"`
	ChoiceID       string `json:"choice_id"`
	Label          string `json:"label"`
	Sticky         bool   `json:"sticky"`
	ConditionReads []int  `json:"condition_reads,omitempty"`
	EffectWrites   []int  `json:"effect_writes,omitempty"`
	JumpIndices    []int  `json:"jump_indices,omitempty"`
	Span           Span   `json:"span"`
}

// RuleFact is one declared rule.
type RuleFact struct {
	RuleID         string `json:"rule_id"`
	ConditionReads []int  `json:"condition_reads,omitempty"`
	EffectWrites   []int  `json:"effect_writes,omitempty"`
	Span           Span   `json:"span"`
}

// FactSet is the flat relationship database extracted from one compile.
type FactSet struct {
	Reads   []PropertyRead  `json:"reads"`
	Writes  []PropertyWrite `json:"writes"`
	Exits   []ExitEdge      `json:"exits"`
	Jumps   []JumpEdge      `json:"jumps"`
	Choices []ChoiceFact    `json:"choices"`
	Rules   []RuleFact      `json:"rules"`
}

// JumpsFrom returns the indices of jumps leaving section.
func (f *FactSet) JumpsFrom(section string) []int {
	var out []int
	for i, j := range f.Jumps {
		if j.FromSection == section {
			out = append(out, i)
		}
	}
	return out
}

// JumpsTo returns the indices of section jumps targeting section.
func (f *FactSet) JumpsTo(section string) []int {
	var out []int
	for i, j := range f.Jumps {
		if j.Target.Kind == TargetSection && j.Target.ID == section {
			out = append(out, i)
		}
	}
	return out
}

// ChoicesIn returns the indices of choices owned by section.
func (f *FactSet) ChoicesIn(section string) []int {
	var out []int
	for i, c := range f.Choices {
		if c.Section == section {
			out = append(out, i)
		}
	}
	return out
}

// ChoiceOwners maps each jump index to the index of the choice that owns
// it. Jumps without an owning choice are absent from the map.
func (f *FactSet) ChoiceOwners() map[int]int {
	owners := make(map[int]int)
	for ci, c := range f.Choices {
		for _, ji := range c.JumpIndices {
			if _, taken := owners[ji]; !taken {
				owners[ji] = ci
			}
		}
	}
	return owners
}

// Sanitize drops every index that does not point into its target
// collection and returns how many were dropped.
func (f *FactSet) Sanitize() int {
	dropped := 0
	keep := func(idx []int, n int) []int {
		if len(idx) == 0 {
			return idx
		}
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
	for i := range f.Exits {
		f.Exits[i].GuardReads = keep(f.Exits[i].GuardReads, len(f.Reads))
	}
	for i := range f.Choices {
		c := &f.Choices[i]
		c.ConditionReads = keep(c.ConditionReads, len(f.Reads))
		c.EffectWrites = keep(c.EffectWrites, len(f.Writes))
		c.JumpIndices = keep(c.JumpIndices, len(f.Jumps))
	}
	for i := range f.Rules {
		r := &f.Rules[i]
		r.ConditionReads = keep(r.ConditionReads, len(f.Reads))
		r.EffectWrites = keep(r.EffectWrites, len(f.Writes))
	}
	return dropped
}
