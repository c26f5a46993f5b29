package resolve

import (
	"strings"
	"unicode"
)

// Context is the lightweight position context the caller supplies.
type Context struct {
	InFrontmatter bool
	InTypeBlock   bool
	// Block is the enclosing top-level frontmatter key.
	Block string
	// TypeName is the type being declared when InTypeBlock is set.
	TypeName string
}

type rule func(l *line, col int, ctx Context) Reference

// rules run in order; the first match wins.
var rules = []rule{
	headingRule,
	delimiterRule,
	commentRule,
	jumpRule,
	markerRule,
	ruleBlockRule,
	frontmatterRule,
	exitRule,
	entityRule,
	typePropertyRule,
}

// Resolve returns the construct under col (0-based, in characters) on
// text, or nil when nothing is there.
func Resolve(text string, col int, ctx Context) Reference {
	l := newLine(text)
	if col < 0 || col >= len(l.r) {
		return nil
	}
	for _, r := range rules {
		if ref := r(l, col, ctx); ref != nil {
			return ref
		}
	}
	return nil
}

// ValueAfter finds "@entityID.prop" on text and returns the operator and
// literal that follow it.
func ValueAfter(text, entityID, prop string) (op, literal string, ok bool) {
	for _, m := range newLine(text).entities() {
		if m.id == entityID && m.prop == prop && m.op != "" {
			return m.op, m.literal, true
		}
	}
	return "", "", false
}

// line caches the rune view of one source line.
type line struct {
	text    string
	r       []rune
	indent  int
	trimmed string

	comment int // rune index of "//", or len(r)
	refs    []entityMatch
	scanned bool
}

func newLine(text string) *line {
	l := &line{text: text, r: []rune(text)}
	for l.indent < len(l.r) && (l.r[l.indent] == ' ' || l.r[l.indent] == '\t') {
		l.indent++
	}
	l.trimmed = strings.TrimRightFunc(string(l.r[l.indent:]), unicode.IsSpace)
	l.comment = len(l.r)
	for i := 0; i+1 < len(l.r); i++ {
		if l.r[i] == '/' && l.r[i+1] == '/' && (i == 0 || l.r[i-1] != ':') {
			l.comment = i
			break
		}
	}
	return l
}

// end is the rune index where content stops: before a comment and any
// trailing whitespace.
func (l *line) end() int {
	e := l.comment
	for e > l.indent && unicode.IsSpace(l.r[e-1]) {
		e--
	}
	return e
}

func (l *line) marker() rune {
	if l.indent >= len(l.r) {
		return 0
	}
	return l.r[l.indent]
}

func (l *line) slice(start, end int) string { return string(l.r[start:end]) }

func within(col, start, end int) bool { return col >= start && col < end }

func isIdent(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// ident returns the end of the identifier starting at i (i when none).
func (l *line) ident(i int) int {
	for i < len(l.r) && isIdent(l.r[i]) {
		i++
	}
	return i
}

// find returns the rune index of the first c at or after from, or -1.
func (l *line) find(from int, c rune) int {
	for i := from; i < len(l.r); i++ {
		if l.r[i] == c {
			return i
		}
	}
	return -1
}

func (l *line) skipSpace(i int) int {
	for i < len(l.r) && (l.r[i] == ' ' || l.r[i] == '\t') {
		i++
	}
	return i
}

// word is an identifier token with its rune span.
type word struct {
	text       string
	start, end int
}

// words lists identifier tokens from index from up to the comment,
// skipping any that fall inside an entity reference.
func (l *line) words(from int) []word {
	var out []word
	for i := from; i < l.comment; {
		if !isIdent(l.r[i]) {
			i++
			continue
		}
		e := l.ident(i)
		if !l.inEntity(i) && (i == 0 || (l.r[i-1] != '@' && l.r[i-1] != '.')) {
			out = append(out, word{text: l.slice(i, e), start: i, end: e})
		}
		i = e
	}
	return out
}

func (l *line) inEntity(i int) bool {
	for _, m := range l.entities() {
		if i >= m.at && i < m.valEnd {
			return true
		}
	}
	return false
}

// entityMatch is one "@id[.prop[ op literal]]" occurrence.
type entityMatch struct {
	at, idEnd, propEnd, valEnd int
	id, prop, op, literal      string
	presence                   bool
}

var operators = []string{">=", "<=", "==", "!=", ">", "<", "+", "-", "*", "="}

func (l *line) entities() []entityMatch {
	if l.scanned {
		return l.refs
	}
	l.scanned = true
	for i := 0; i+1 < len(l.r); i++ {
		if l.r[i] != '@' || !isIdent(l.r[i+1]) {
			continue
		}
		m := entityMatch{at: i}
		m.idEnd = l.ident(i + 1)
		m.id = l.slice(i+1, m.idEnd)
		m.propEnd, m.valEnd = m.idEnd, m.idEnd
		if m.idEnd+1 < len(l.r) && l.r[m.idEnd] == '.' && isIdent(l.r[m.idEnd+1]) {
			m.propEnd = l.ident(m.idEnd + 1)
			m.prop = l.slice(m.idEnd+1, m.propEnd)
			m.valEnd = m.propEnd
			l.scanValue(&m)
		}
		m.presence = l.inBrackets(i)
		l.refs = append(l.refs, m)
		i = m.valEnd - 1
	}
	return l.refs
}

// scanValue extends m over a trailing "operator literal" pair.
func (l *line) scanValue(m *entityMatch) {
	p := l.skipSpace(m.propEnd)
	rest := string(l.r[p:])
	var op string
	for _, o := range operators {
		if strings.HasPrefix(rest, o) {
			op = o
			break
		}
	}
	if op == "" || strings.HasPrefix(rest, "->") {
		return
	}
	q := l.skipSpace(p + len([]rune(op)))
	e := q
	switch {
	case q < len(l.r) && l.r[q] == '"':
		e = q + 1
		for e < len(l.r) && l.r[e] != '"' {
			e++
		}
		if e < len(l.r) {
			e++
		}
	default:
		for e < len(l.r) && e < l.comment && !unicode.IsSpace(l.r[e]) && !strings.ContainsRune(",])", l.r[e]) {
			e++
		}
	}
	if e == q {
		return
	}
	m.op = op
	m.literal = l.slice(q, e)
	m.valEnd = e
}

// inBrackets reports whether index i sits inside an open [ ... ] list.
func (l *line) inBrackets(i int) bool {
	open, closed := -1, -1
	for j := 0; j < i; j++ {
		switch l.r[j] {
		case '[':
			open = j
		case ']':
			closed = j
		}
	}
	if open <= closed {
		return false
	}
	for j := i; j < len(l.r); j++ {
		if l.r[j] == ']' {
			return true
		}
		if l.r[j] == '[' {
			return false
		}
	}
	return false
}
