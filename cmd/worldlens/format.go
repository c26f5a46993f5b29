package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/jward/worldlens"
	"github.com/jward/worldlens/internal/store"
)

// formatLocationsText formats CLILocation results as "file:line:col" lines.
func formatLocationsText(w io.Writer, locs []CLILocation) {
	for _, loc := range locs {
		fmt.Fprintf(w, "%s:%d:%d\n", loc.File, loc.StartLine, loc.StartCol)
	}
}

// formatCompletionsText formats completions as aligned columns.
func formatCompletionsText(w io.Writer, items []worldlens.Completion) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LABEL\tKIND\tDETAIL")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", it.Label, it.Kind, it.Detail)
	}
	tw.Flush()
}

// formatGraphText lists nodes then edges.
func formatGraphText(w io.Writer, g worldlens.Graph) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NODE\tLABEL\tKIND\tFLAG")
	for _, n := range g.Nodes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", n.ID, n.Label, n.Kind, n.Flag)
	}
	tw.Flush()
	fmt.Fprintln(w)

	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FROM\tTO\tLABEL\tCONDITIONAL")
	for _, e := range g.Edges {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", e.From, e.To, e.Label, e.Conditional)
	}
	tw.Flush()
}

// formatChecksText prints one "file:line:col: severity code: message" line
// per diagnostic and a summary.
func formatChecksText(w io.Writer, checks []CLICheck) {
	failed := 0
	for _, c := range checks {
		if c.failed() {
			failed++
		}
		for _, d := range c.Diagnostics {
			fmt.Fprintf(w, "%s:%d:%d: %s %s: %s\n",
				c.File, d.Range.Start.Line+1, d.Range.Start.Char+1, d.Severity, d.Code, d.Message)
		}
	}
	fmt.Fprintf(w, "%d file(s) checked, %d failed\n", len(checks), failed)
}

// formatReportText prints "valid" or the validation errors.
func formatReportText(w io.Writer, rep worldlens.Report) {
	if rep.Valid {
		fmt.Fprintln(w, "valid")
		return
	}
	for _, e := range rep.Errors {
		fmt.Fprintf(w, "error: %s\n", e)
	}
}

// formatRecordsText formats snapshot records as aligned columns.
func formatRecordsText(w io.Writer, recs []*store.Record) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFILE\tSEQ\tSUCCESS\tDIAGNOSTICS\tCOMPILED")
	for _, r := range recs {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%t\t%d\t%s\n",
			r.ID, r.File, r.Seq, r.Success, r.Diagnostics, r.CompiledAt.Format("2006-01-02 15:04:05"))
	}
	tw.Flush()
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type.
func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case []CLILocation:
		formatLocationsText(w, v)
	case CLIHover:
		if v.Found {
			fmt.Fprintln(w, strings.TrimRight(v.Markdown, "\n"))
		}
	case CLIReference:
		fmt.Fprintf(w, "%s\t%+v\n", v.Kind, v.Detail)
	case []worldlens.Completion:
		formatCompletionsText(w, v)
	case worldlens.Graph:
		formatGraphText(w, v)
	case []CLICheck:
		formatChecksText(w, v)
	case worldlens.Report:
		formatReportText(w, v)
	case []*store.Record:
		formatRecordsText(w, v)
	case *store.Record:
		formatRecordsText(w, []*store.Record{v})
	case string:
		fmt.Fprintln(w, v)
	case nil:
		// No output for nil results (e.g., resolve with no match).
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
