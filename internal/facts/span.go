// Package facts holds the compiled snapshot data model: diagnostics, the
// flat fact set, the definition and property-dependency indices, and the
// typed compiled output. Values in this package are produced by the
// compilation engine and treated as immutable once published.
package facts

import "fmt"

// Span is a source range as reported by the engine. Lines are 1-indexed.
// Columns are 1-indexed byte offsets; EndCol points one past the last byte.
type Span struct {
	File      string `json:"file"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_col"`
	EndLine   int    `json:"end_line"`
	EndCol    int    `json:"end_col"`
}

func (s Span) String() string {
	return fmt.Sprintf("%s:%d:%d-%d:%d", s.File, s.StartLine, s.StartCol, s.EndLine, s.EndCol)
}

// IsZero reports whether the span carries no position.
func (s Span) IsZero() bool {
	return s.StartLine == 0 && s.EndLine == 0
}

// Severity of a diagnostic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Symbol kinds carried by Diagnostic.RelatedSymbol.
const (
	SymbolLocation = "location"
	SymbolSection  = "section"
	SymbolEntity   = "entity"
	SymbolProperty = "property"
	SymbolChoice   = "choice"
)

// Symbol identifies the declaration a diagnostic is about.
type Symbol struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// Diagnostic is one compiler finding. RelatedSymbol is optional; when it is
// absent consumers fall back to the documented message templates.
type Diagnostic struct {
	Severity      Severity `json:"severity"`
	Code          string   `json:"code"`
	Message       string   `json:"message"`
	Span          Span     `json:"span"`
	RelatedSymbol *Symbol  `json:"related_symbol,omitempty"`
}

// HasErrors reports whether any diagnostic is an error.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}
