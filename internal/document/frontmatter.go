package document

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/yaml"
)

// Region describes where a line sits relative to the frontmatter.
type Region struct {
	InFrontmatter bool
	// Block is the top-level frontmatter key enclosing the line
	// ("world", "types", "entities", ...).
	Block       string
	InTypeBlock bool
	// TypeName is the type declaration enclosing the line inside the
	// types block.
	TypeName string
}

// block is a named run of lines, both ends inclusive.
type block struct {
	name       string
	start, end int
}

type outline struct {
	fmStart, fmEnd int // delimiter lines; fmStart is -1 without frontmatter
	blocks         []block
	types          []block
}

// RegionAt reports the frontmatter context of line (0-based).
func (d *Document) RegionAt(line int) Region {
	o := d.frontmatter()
	if o.fmStart < 0 || line <= o.fmStart || line >= o.fmEnd {
		return Region{}
	}
	r := Region{InFrontmatter: true}
	for _, b := range o.blocks {
		if line >= b.start && line <= b.end {
			r.Block = b.name
			break
		}
	}
	if r.Block != "types" {
		return r
	}
	for _, b := range o.types {
		if line >= b.start && line <= b.end {
			r.InTypeBlock = true
			r.TypeName = b.name
			break
		}
	}
	return r
}

// FrontmatterEnd returns the line index of the closing delimiter, or -1.
func (d *Document) FrontmatterEnd() int {
	o := d.frontmatter()
	if o.fmStart < 0 {
		return -1
	}
	return o.fmEnd
}

func (d *Document) frontmatter() *outline {
	d.outlineOnce.Do(func() {
		d.outline = buildOutline(d.lines)
	})
	return &d.outline
}

func buildOutline(lines []string) outline {
	o := outline{fmStart: -1}
	for i, l := range lines {
		t := strings.TrimSpace(l)
		if t == "" {
			continue
		}
		if t == "---" {
			o.fmStart = i
		}
		break
	}
	if o.fmStart < 0 {
		return o
	}
	o.fmEnd = len(lines)
	for i := o.fmStart + 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			o.fmEnd = i
			break
		}
	}
	body := lines[o.fmStart+1 : o.fmEnd]
	blocks, types, ok := outlineYAML(body, o.fmStart+1)
	if !ok {
		blocks, types = outlineIndent(body, o.fmStart+1)
	}
	o.blocks, o.types = blocks, types
	return o
}

// outlineYAML parses the frontmatter with tree-sitter. ok is false when the
// tree has errors.
func outlineYAML(lines []string, base int) (blocks, types []block, ok bool) {
	src := yamlSafe(strings.Join(lines, "\n"))

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(yaml.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, nil, false
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, nil, false
	}
	top := firstOfType(root, "block_mapping")
	if top == nil {
		return nil, nil, false
	}
	for i := 0; i < int(top.NamedChildCount()); i++ {
		pair := top.NamedChild(i)
		if pair.Type() != "block_mapping_pair" {
			continue
		}
		key := pair.ChildByFieldName("key")
		if key == nil {
			continue
		}
		name := strings.TrimSpace(key.Content(src))
		blocks = append(blocks, block{name: name, start: base + int(pair.StartPoint().Row), end: base + endRow(pair)})

		if name != "types" {
			continue
		}
		value := pair.ChildByFieldName("value")
		if value == nil {
			continue
		}
		inner := firstOfType(value, "block_mapping")
		if inner == nil {
			continue
		}
		for j := 0; j < int(inner.NamedChildCount()); j++ {
			tp := inner.NamedChild(j)
			tk := tp.ChildByFieldName("key")
			if tp.Type() != "block_mapping_pair" || tk == nil {
				continue
			}
			types = append(types, block{
				name:  typeHeaderName(tk.Content(src)),
				start: base + int(tp.StartPoint().Row),
				end:   base + endRow(tp),
			})
		}
	}
	return blocks, types, len(blocks) > 0
}

// yamlSafe rewrites the bytes YAML would reject without moving any offset:
// '@' cannot start a plain scalar, and "key: value" pairs inside inline
// entity overrides would read as nested mappings.
func yamlSafe(text string) []byte {
	src := []byte(text)
	depth := 0
	for i, c := range src {
		switch c {
		case '@':
			src[i] = '_'
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		case ':':
			if depth > 0 {
				src[i] = ';'
			}
		case '\n':
			depth = 0
		}
	}
	return src
}

func firstOfType(n *sitter.Node, typ string) *sitter.Node {
	if n == nil {
		return nil
	}
	if n.Type() == typ {
		return n
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if found := firstOfType(n.NamedChild(i), typ); found != nil {
			return found
		}
	}
	return nil
}

// endRow is the last row a node covers; a node ending at column 0 of a
// row ends on the row before.
func endRow(n *sitter.Node) int {
	end := n.EndPoint()
	if end.Column == 0 && end.Row > n.StartPoint().Row {
		return int(end.Row) - 1
	}
	return int(end.Row)
}

// outlineIndent recovers the same outline from indentation alone, used
// while the frontmatter is too broken to parse.
func outlineIndent(lines []string, base int) (blocks, types []block) {
	typeIndent := -1
	for i, l := range lines {
		t := strings.TrimSpace(l)
		if t == "" || strings.HasPrefix(t, "#") {
			continue
		}
		indent := len(l) - len(strings.TrimLeft(l, " \t"))
		if indent == 0 {
			name, _, _ := strings.Cut(t, ":")
			blocks = append(blocks, block{name: strings.TrimSpace(name), start: base + i, end: base + i})
			typeIndent = -1
			continue
		}
		if len(blocks) == 0 {
			continue
		}
		cur := &blocks[len(blocks)-1]
		cur.end = base + i
		if cur.name != "types" {
			continue
		}
		if typeIndent < 0 {
			typeIndent = indent
		}
		if indent == typeIndent {
			types = append(types, block{name: typeHeaderName(strings.TrimSuffix(t, ":")), start: base + i, end: base + i})
		} else if len(types) > 0 {
			types[len(types)-1].end = base + i
		}
	}
	return blocks, types
}

// typeHeaderName strips the trait list from "Character [interactable]".
func typeHeaderName(header string) string {
	name, _, _ := strings.Cut(strings.TrimSpace(header), "[")
	return strings.TrimSpace(name)
}
