package main

import "github.com/jward/worldlens"

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command string `json:"command"`
	Results any    `json:"results"`
	Error   string `json:"error,omitempty"`
}

// CLILocation is a declaration site with flattened 0-based coordinates.
type CLILocation struct {
	File      string `json:"file"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_col"`
	EndLine   int    `json:"end_line"`
	EndCol    int    `json:"end_col"`
}

// CLIHover is the tooltip at a position.
type CLIHover struct {
	Found    bool   `json:"found"`
	Markdown string `json:"markdown,omitempty"`
}

// CLIReference is the construct at a position.
type CLIReference struct {
	Kind   string `json:"kind"`
	Detail any    `json:"detail"`
}

// CLICheck is the compile outcome of one file.
type CLICheck struct {
	File        string                       `json:"file"`
	Success     bool                         `json:"success"`
	Diagnostics []worldlens.EditorDiagnostic `json:"diagnostics"`
}

func locationToCLI(loc *worldlens.Location) CLILocation {
	return CLILocation{
		File:      loc.File,
		StartLine: loc.Range.Start.Line,
		StartCol:  loc.Range.Start.Char,
		EndLine:   loc.Range.End.Line,
		EndCol:    loc.Range.End.Char,
	}
}
