package resolve

import (
	"strings"
	"unicode"
)

// Effect commands recognised as the first word of a '>' line.
var effectCommands = map[string]bool{
	"move":    true,
	"destroy": true,
	"reveal":  true,
	"set":     true,
	"spawn":   true,
}

// TypeConstructors lists the property constructors allowed in a type block.
var TypeConstructors = map[string]bool{
	"bool":    true,
	"boolean": true,
	"int":     true,
	"integer": true,
	"number":  true,
	"float":   true,
	"string":  true,
	"enum":    true,
	"ref":     true,
	"list":    true,
}

// headingRule: "###" phase, "##" sequence, "#" location, "==" section.
func headingRule(l *line, col int, _ Context) Reference {
	t := l.trimmed
	if !within(col, l.indent, len(l.r)) {
		return nil
	}
	if strings.HasPrefix(t, "==") {
		name := strings.TrimSpace(stripComment(t[2:]))
		if name == "" {
			return nil
		}
		return SectionLabel{Name: name}
	}
	hashes := 0
	for hashes < len(t) && t[hashes] == '#' {
		hashes++
	}
	if hashes == 0 || hashes > 3 || (hashes < len(t) && t[hashes] != ' ') {
		return nil
	}
	name, auto := headingName(t[hashes:])
	if name == "" {
		return nil
	}
	switch hashes {
	case 1:
		return LocationHeading{Name: name}
	case 2:
		return SequenceHeading{Name: name, Auto: auto}
	default:
		return PhaseHeading{Name: name, Auto: auto}
	}
}

// headingName strips a trailing "(auto)" or "(manual)" marker.
func headingName(s string) (string, bool) {
	s = strings.TrimSpace(stripComment(s))
	if rest, ok := strings.CutSuffix(s, "(auto)"); ok {
		return strings.TrimSpace(rest), true
	}
	if rest, ok := strings.CutSuffix(s, "(manual)"); ok {
		return strings.TrimSpace(rest), false
	}
	return s, false
}

func stripComment(s string) string {
	if i := strings.Index(s, "//"); i >= 0 && (i == 0 || s[i-1] != ':') {
		return s[:i]
	}
	return s
}

func delimiterRule(l *line, col int, _ Context) Reference {
	if l.trimmed == "---" && within(col, l.indent, l.indent+3) {
		return Keyword{Token: "---"}
	}
	return nil
}

func commentRule(l *line, col int, _ Context) Reference {
	if l.comment < len(l.r) && col >= l.comment {
		return Comment{}
	}
	return nil
}

// jumpRule covers "->" plus its target as one token.
func jumpRule(l *line, col int, _ Context) Reference {
	for i := 0; i+1 < l.comment; i++ {
		if l.r[i] != '-' || l.r[i+1] != '>' {
			continue
		}
		ts := l.skipSpace(i + 2)
		te := ts
		for te < l.comment && (isIdent(l.r[te]) || l.r[te] == ':' || l.r[te] == '/') {
			te++
		}
		end := te
		if te == ts {
			end = i + 2
		}
		if !within(col, i, end) {
			i = end - 1
			continue
		}
		if te == ts {
			return Keyword{Token: "->"}
		}
		target := l.slice(ts, te)
		switch {
		case strings.EqualFold(target, "end"), strings.EqualFold(target, "return"):
			return Keyword{Token: strings.ToUpper(target)}
		case strings.HasPrefix(target, "exit:"):
			return ExitJump{Direction: strings.TrimPrefix(target, "exit:")}
		case l.marker() == '>' && (target == "player" || target == "here"):
			return Keyword{Token: target}
		}
		return SectionJump{Name: target}
	}
	return nil
}

// markerRule handles + * ? > ! at the start of the trimmed line and the
// keywords scoped to those lines.
func markerRule(l *line, col int, _ Context) Reference {
	if strings.HasPrefix(l.trimmed, "any:") {
		if within(col, l.indent, l.indent+4) {
			return OrCombinator{}
		}
		return nil
	}
	m := l.marker()
	if m == 0 || !strings.ContainsRune("+*?>!", m) {
		return nil
	}
	if col == l.indent {
		return Keyword{Token: string(m)}
	}
	switch m {
	case '?':
		ws := l.words(l.indent + 1)
		for i, w := range ws {
			switch w.text {
			case "any":
				if w.end < len(l.r) && l.r[w.end] == ':' && within(col, w.start, w.end+1) {
					return OrCombinator{}
				}
			case "not":
				if i+1 < len(ws) && ws[i+1].text == "in" && onlySpace(l, w.end, ws[i+1].start) {
					if within(col, w.start, ws[i+1].end) {
						return ConditionKeyword{Keyword: "not in"}
					}
				} else if within(col, w.start, w.end) {
					return ConditionKeyword{Keyword: "not"}
				}
			case "in":
				if i > 0 && ws[i-1].text == "not" && onlySpace(l, ws[i-1].end, w.start) {
					continue
				}
				if within(col, w.start, w.end) {
					return ConditionKeyword{Keyword: "in"}
				}
			case "here", "player":
				if within(col, w.start, w.end) {
					return Keyword{Token: w.text}
				}
			}
		}
	case '>':
		ws := l.words(l.indent + 1)
		for i, w := range ws {
			if !within(col, w.start, w.end) {
				continue
			}
			if i == 0 && effectCommands[w.text] && onlySpace(l, l.indent+1, w.start) {
				return EffectCommand{Name: w.text}
			}
			if w.text == "here" || w.text == "player" {
				return Keyword{Token: w.text}
			}
		}
	}
	return nil
}

func onlySpace(l *line, from, to int) bool {
	for i := from; i < to; i++ {
		if !unicode.IsSpace(l.r[i]) {
			return false
		}
	}
	return true
}

// ruleBlockRule handles "rule name:" headers and the keywords that open
// the lines of a rule body.
func ruleBlockRule(l *line, col int, ctx Context) Reference {
	if ctx.InFrontmatter {
		return nil
	}
	t := l.trimmed
	switch {
	case strings.HasPrefix(t, "rule "):
		if within(col, l.indent, l.indent+4) {
			return RuleKeyword{Keyword: "rule"}
		}
		ns := l.skipSpace(l.indent + 4)
		ne := l.ident(ns)
		if ne > ns && within(col, ns, ne) {
			return RuleName{Name: l.slice(ns, ne)}
		}
	case strings.HasPrefix(t, "actor:"), strings.HasPrefix(t, "trigger:"):
		kw, _, _ := strings.Cut(t, ":")
		if within(col, l.indent, l.indent+len(kw)+1) {
			return RuleKeyword{Keyword: kw}
		}
	case strings.HasPrefix(t, "selects "), strings.HasPrefix(t, "select "), strings.HasPrefix(t, "where "):
		for _, w := range l.words(l.indent) {
			switch w.text {
			case "select", "selects", "from", "as", "where":
				if within(col, w.start, w.end) {
					return RuleKeyword{Keyword: w.text}
				}
			}
		}
	}
	return nil
}

// frontmatterRule covers top-level keys, world keys, type declarations and
// entity declarations.
func frontmatterRule(l *line, col int, ctx Context) Reference {
	if !ctx.InFrontmatter {
		return nil
	}
	if l.indent == 0 {
		ke := l.ident(0)
		if ke > 0 && ke < len(l.r) && l.r[ke] == ':' && within(col, 0, ke+1) {
			return FrontmatterKey{Key: l.slice(0, ke)}
		}
		return nil
	}
	switch {
	case ctx.InTypeBlock:
		return typeBlockLine(l, col, ctx)
	case ctx.Block == "world":
		ke := l.ident(l.indent)
		if ke == l.indent || ke >= len(l.r) || l.r[ke] != ':' {
			return nil
		}
		value := strings.TrimSpace(stripComment(string(l.r[ke+1:])))
		if within(col, l.indent, l.end()) {
			return WorldKey{Key: l.slice(l.indent, ke), Value: value}
		}
	case ctx.Block == "entities":
		return entityDeclLine(l, col)
	}
	return nil
}

func typeBlockLine(l *line, col int, ctx Context) Reference {
	i := l.indent
	if i >= len(l.r) {
		return nil
	}
	// Type header: Name [trait, trait]:
	if unicode.IsUpper(l.r[i]) && strings.HasSuffix(l.trimmed, ":") {
		ne := l.ident(i)
		var traits []word
		p := l.skipSpace(ne)
		if p < len(l.r) && l.r[p] == '[' {
			closing := l.find(p, ']')
			for _, w := range l.words(p + 1) {
				if closing >= 0 && w.end > closing {
					break
				}
				traits = append(traits, w)
			}
		}
		if within(col, i, ne) {
			names := make([]string, len(traits))
			for k, w := range traits {
				names[k] = w.text
			}
			if len(names) == 0 {
				names = nil
			}
			return TypeName{Name: l.slice(i, ne), Traits: names}
		}
		for _, w := range traits {
			if within(col, w.start, w.end) {
				return Trait{Name: w.text}
			}
		}
		return nil
	}

	// Property: [~]name: constructor(args) = default
	if l.r[i] == '~' {
		if col == i {
			return VisibilityPrefix{}
		}
		i++
	}
	ne := l.ident(i)
	if ne == i || ne >= len(l.r) || l.r[ne] != ':' {
		return nil
	}
	if within(col, i, ne) {
		return TypeProperty{TypeName: ctx.TypeName, Property: l.slice(i, ne)}
	}
	vs := l.skipSpace(ne + 1)
	ce := l.ident(vs)
	name := l.slice(vs, ce)
	if !TypeConstructors[name] || !within(col, vs, l.end()) {
		return nil
	}
	return parseConstructor(name, string(l.r[ce:l.end()]))
}

// parseConstructor parses the text after a constructor name, e.g.
// "(0, 100) = 50".
func parseConstructor(name, rest string) TypeConstructor {
	tc := TypeConstructor{Name: name}
	rest = strings.TrimSpace(rest)
	if strings.HasPrefix(rest, "(") {
		if j := strings.IndexByte(rest, ')'); j > 0 {
			args := strings.TrimSpace(rest[1:j])
			rest = strings.TrimSpace(rest[j+1:])
			switch name {
			case "enum":
				for _, v := range strings.Split(args, ",") {
					if v = strings.TrimSpace(v); v != "" {
						tc.Values = append(tc.Values, v)
					}
				}
			case "ref", "list":
				tc.Target = args
			default:
				tc.Range = args
			}
		}
	}
	if d, ok := strings.CutPrefix(rest, "="); ok {
		tc.Default = strings.TrimSpace(d)
	}
	return tc
}

// entityDeclLine handles "@id: Type { prop: value }".
func entityDeclLine(l *line, col int) Reference {
	ms := l.entities()
	if len(ms) == 0 || ms[0].at != l.indent {
		return nil
	}
	p := ms[0].idEnd
	if p >= len(l.r) || l.r[p] != ':' {
		return nil
	}
	ts := l.skipSpace(p + 1)
	te := l.ident(ts)
	if te > ts && within(col, ts, te) {
		return TypeName{Name: l.slice(ts, te)}
	}
	open := l.find(te, '{')
	if open < 0 {
		return nil
	}
	for _, w := range l.words(open + 1) {
		if c := l.skipSpace(w.end); c < len(l.r) && l.r[c] == ':' && within(col, w.start, w.end) {
			return EntityProperty{EntityID: ms[0].id, Property: w.text}
		}
	}
	return nil
}

// exitRule handles "direction: Destination" in the narrative body.
func exitRule(l *line, col int, ctx Context) Reference {
	if ctx.InFrontmatter {
		return nil
	}
	i := l.indent
	if i >= len(l.r) || !unicode.IsLower(l.r[i]) {
		return nil
	}
	de := l.ident(i)
	dir := l.slice(i, de)
	switch dir {
	case "actor", "trigger", "rule", "where", "select", "selects":
		return nil
	}
	if de >= len(l.r) || l.r[de] != ':' {
		return nil
	}
	ds := l.skipSpace(de + 1)
	end := l.end()
	if ds >= end || !unicode.IsUpper(l.r[ds]) {
		return nil
	}
	dest := l.slice(ds, end)
	switch {
	case within(col, i, de):
		return ExitDirection{Direction: dir, Destination: dest}
	case within(col, ds, end):
		return ExitDestination{Direction: dir, Destination: dest}
	}
	return nil
}

// entityRule checks every '@' on the line. The dotted property wins over
// the bare entity; the operator/literal tail resolves to a value literal.
func entityRule(l *line, col int, _ Context) Reference {
	for _, m := range l.entities() {
		switch {
		case m.prop != "" && within(col, m.idEnd, m.propEnd):
			return EntityProperty{EntityID: m.id, Property: m.prop}
		case m.op != "" && within(col, m.propEnd, m.valEnd):
			return ValueLiteral{EntityID: m.id, Property: m.prop, Operator: m.op, Literal: m.literal}
		case within(col, m.at, m.idEnd):
			return Entity{ID: m.id, Presence: m.presence}
		}
	}
	return nil
}

// typePropertyRule handles "TypeName.prop" where TypeName is capitalised
// and not itself an entity reference.
func typePropertyRule(l *line, col int, _ Context) Reference {
	for i := 0; i < l.comment; i++ {
		if !unicode.IsUpper(l.r[i]) || (i > 0 && (isIdent(l.r[i-1]) || l.r[i-1] == '@' || l.r[i-1] == '.')) {
			continue
		}
		te := l.ident(i)
		if te+1 >= len(l.r) || l.r[te] != '.' || !isIdent(l.r[te+1]) {
			i = te
			continue
		}
		pe := l.ident(te + 1)
		if within(col, i, pe) {
			return TypeProperty{TypeName: l.slice(i, te), Property: l.slice(te+1, pe)}
		}
		i = pe
	}
	return nil
}
