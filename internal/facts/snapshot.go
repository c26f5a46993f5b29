package facts

import (
	"encoding/json"
	"fmt"
	"time"
)

// Result is what the engine returns from a full compile.
type Result struct {
	Success         bool            `json:"success"`
	Output          json.RawMessage `json:"output,omitempty"`
	Diagnostics     []Diagnostic    `json:"diagnostics"`
	Facts           *FactSet        `json:"facts,omitempty"`
	PropertyIndex   PropertyIndex   `json:"property_index,omitempty"`
	DefinitionIndex DefinitionIndex `json:"definition_index,omitempty"`
}

// SyntaxResult is what the engine returns from a syntax-only check.
type SyntaxResult struct {
	Success     bool         `json:"success"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// DecodeResult parses an engine compile result.
func DecodeResult(data []byte) (*Result, error) {
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("decode compile result: %w", err)
	}
	return &res, nil
}

// DecodeSyntaxResult parses an engine syntax-check result.
func DecodeSyntaxResult(data []byte) (*SyntaxResult, error) {
	var res SyntaxResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("decode syntax result: %w", err)
	}
	return &res, nil
}

// Usable reports whether the result carries compiled output to publish.
func (r *Result) Usable() bool {
	return r != nil && r.Success && len(r.Output) > 0 && string(r.Output) != "null"
}

// Snapshot is the immutable bundle published after each compile.
type Snapshot struct {
	Seq         uint64          `json:"seq"`
	Success     bool            `json:"success"`
	Output      *CompiledOutput `json:"output,omitempty"`
	Diagnostics []Diagnostic    `json:"diagnostics"`
	Facts       FactSet         `json:"facts"`
	Properties  PropertyIndex   `json:"property_index"`
	Definitions DefinitionIndex `json:"definition_index"`
	CompiledAt  time.Time       `json:"compiled_at"`
}

// NewSnapshot builds a snapshot from a usable result. Dangling fact indices
// are dropped; the count is returned so callers can report it.
func NewSnapshot(seq uint64, res *Result, at time.Time) (*Snapshot, int, error) {
	out, err := DecodeOutput(res.Output)
	if err != nil {
		return nil, 0, err
	}
	snap := &Snapshot{
		Seq:         seq,
		Success:     true,
		Output:      out,
		Diagnostics: res.Diagnostics,
		Properties:  res.PropertyIndex,
		Definitions: res.DefinitionIndex,
		CompiledAt:  at,
	}
	if res.Facts != nil {
		snap.Facts = *res.Facts
	}
	if snap.Definitions == nil {
		snap.Definitions = DefinitionIndex{}
	}
	dropped := snap.Facts.Sanitize()
	dropped += snap.Properties.sanitize(len(snap.Facts.Reads), len(snap.Facts.Writes))
	return snap, dropped, nil
}

// Continue builds the snapshot for a failed compile. The previous output,
// facts and indices stay; only diagnostics and the success flag change.
// prev may be nil when nothing has compiled yet.
func Continue(prev *Snapshot, seq uint64, diags []Diagnostic, at time.Time) *Snapshot {
	next := &Snapshot{
		Seq:         seq,
		Success:     false,
		Diagnostics: diags,
		Definitions: DefinitionIndex{},
		CompiledAt:  at,
	}
	if prev != nil {
		next.Output = prev.Output
		next.Facts = prev.Facts
		next.Properties = prev.Properties
		next.Definitions = prev.Definitions
	}
	return next
}

// HasOutput reports whether any compile has succeeded so far.
func (s *Snapshot) HasOutput() bool {
	return s != nil && s.Output != nil
}
