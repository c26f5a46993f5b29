// Package document models the source text the editor shows: line access,
// byte/character coordinate conversion, frontmatter context and the
// backward and forward line scans used by tooltips.
package document

import (
	"path"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/jward/worldlens/internal/facts"
)

// Document is an immutable view of one version of a source file.
type Document struct {
	Name  string
	text  string
	lines []string

	outlineOnce sync.Once
	outline     outline
}

// New splits text into lines. A trailing "\r" on each line is dropped.
func New(name, text string) *Document {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return &Document{Name: name, text: text, lines: lines}
}

// Stem is the file's base name without its world-file extensions.
// Compiled section ids are prefixed with it.
func (d *Document) Stem() string {
	name := path.Base(filepath.ToSlash(d.Name))
	name = strings.TrimSuffix(name, ".md")
	return strings.TrimSuffix(name, ".urd")
}

// Text returns the full source.
func (d *Document) Text() string { return d.text }

// LineCount returns the number of lines (at least 1).
func (d *Document) LineCount() int { return len(d.lines) }

// Line returns line i (0-based), or "" when out of range.
func (d *Document) Line(i int) string {
	if i < 0 || i >= len(d.lines) {
		return ""
	}
	return d.lines[i]
}

// ClampLine maps i into [0, LineCount-1].
func (d *Document) ClampLine(i int) int {
	if i < 0 {
		return 0
	}
	if i >= len(d.lines) {
		return len(d.lines) - 1
	}
	return i
}

// Position is a 0-based editor position measured in characters.
type Position struct {
	Line int `json:"line"`
	Char int `json:"character"`
}

// Range is a half-open editor range in characters.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// ByteToChar converts a 0-based byte offset within line to a 0-based
// character offset. Offsets past the end clamp to the line length.
func ByteToChar(line string, byteOff int) int {
	if byteOff <= 0 {
		return 0
	}
	if byteOff >= len(line) {
		return utf8.RuneCountInString(line)
	}
	return utf8.RuneCountInString(line[:byteOff])
}

// CharToByte converts a 0-based character offset to a byte offset.
func CharToByte(line string, charOff int) int {
	if charOff <= 0 {
		return 0
	}
	n := 0
	for i := range line {
		if n == charOff {
			return i
		}
		n++
	}
	return len(line)
}

// SpanRange converts an engine span (1-indexed lines, 1-indexed byte
// columns) into an editor range. Lines past the end of the document are
// clamped to the last line.
func (d *Document) SpanRange(s facts.Span) Range {
	startLine := d.ClampLine(s.StartLine - 1)
	endLine := d.ClampLine(s.EndLine - 1)
	if endLine < startLine {
		endLine = startLine
	}
	start := Position{Line: startLine, Char: ByteToChar(d.lines[startLine], s.StartCol-1)}
	end := Position{Line: endLine, Char: ByteToChar(d.lines[endLine], s.EndCol-1)}
	if end.Line == start.Line && end.Char < start.Char {
		end.Char = start.Char
	}
	return Range{Start: start, End: end}
}

// IsHeading reports whether trimmed is a heading-level line: a markdown
// heading or a section label.
func IsHeading(trimmed string) bool {
	return strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "==")
}

// LocationHeading returns the display name if line is a single-level
// heading ("# Name", not "## Name").
func LocationHeading(line string) (string, bool) {
	t := strings.TrimSpace(line)
	if !strings.HasPrefix(t, "# ") {
		return "", false
	}
	name := strings.TrimSpace(t[2:])
	return name, name != ""
}

// EnclosingLocation scans backward from line to the nearest single-level
// heading and returns its display name and line index.
func (d *Document) EnclosingLocation(line int) (string, int, bool) {
	for i := d.ClampLine(line); i >= 0; i-- {
		if name, ok := LocationHeading(d.lines[i]); ok {
			return name, i, true
		}
	}
	return "", -1, false
}

// Preview collects up to max non-blank lines after the declaration on line,
// stopping at the next heading-level line. more reports whether further
// non-blank lines were cut off.
func (d *Document) Preview(line, max int) (lines []string, more bool) {
	if line < 0 || line >= len(d.lines) {
		return nil, false
	}
	for i := line + 1; i < len(d.lines); i++ {
		t := strings.TrimSpace(d.lines[i])
		if t == "" {
			continue
		}
		if IsHeading(t) {
			break
		}
		if len(lines) == max {
			return lines, true
		}
		lines = append(lines, t)
	}
	return lines, false
}
