package project

import (
	"regexp"

	"github.com/jward/worldlens/internal/facts"
)

// Diagnostic codes the projections rely on.
const (
	CodeUnreachableLocation = "URD430"
	CodeImpossibleChoice    = "URD432"
)

var (
	unreachableMessage = regexp.MustCompile(`^Location '([^']+)' is unreachable`)
	impossibleMessage  = regexp.MustCompile(`^Choice in section '([^']+)'`)
)

// flagged collects the identifiers named by diagnostics with code. The
// structured related symbol is preferred; the message template is the
// fallback for engines that do not emit one.
func flagged(diags []facts.Diagnostic, code, kind string, template *regexp.Regexp) map[string]bool {
	out := make(map[string]bool)
	for _, d := range diags {
		if d.Code != code {
			continue
		}
		if d.RelatedSymbol != nil && d.RelatedSymbol.Kind == kind && d.RelatedSymbol.ID != "" {
			out[d.RelatedSymbol.ID] = true
			continue
		}
		if m := template.FindStringSubmatch(d.Message); m != nil {
			out[m[1]] = true
		}
	}
	return out
}
