// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markdown

import (
	"strconv"
	"strings"
)

// MaxHeadingLevel is the deepest heading recognised; "#####" is paragraph text.
const MaxHeadingLevel = 4

// =============================================================================
// LINE CLASSIFICATION
// =============================================================================

type lineKind int

const (
	lineBlank lineKind = iota
	lineText
	lineHeading
	lineBreak
	lineBullet
	lineOrdered
	lineTable
	lineFence
	lineQuote
)

// line is one classified input line.
type line struct {
	kind   lineKind
	raw    string
	text   string // content after the block marker
	level  int    // heading level
	indent int    // leading spaces, tabs count as four
	number int    // ordered list number
}

func classify(raw string) line {
	l := line{raw: raw, kind: lineText}
	trimmed := strings.TrimLeft(raw, " \t")
	l.indent = indentWidth(raw[:len(raw)-len(trimmed)])

	switch {
	case strings.TrimSpace(trimmed) == "":
		l.kind = lineBlank

	case strings.HasPrefix(trimmed, "```"):
		l.kind = lineFence
		l.text = strings.TrimSpace(strings.TrimLeft(trimmed, "`"))

	case trimmed[0] == '#':
		n := len(trimmed) - len(strings.TrimLeft(trimmed, "#"))
		if n <= MaxHeadingLevel && len(trimmed) > n && (trimmed[n] == ' ' || trimmed[n] == '\t') {
			l.kind = lineHeading
			l.level = n
			l.text = stripClosingHashes(strings.TrimSpace(trimmed[n:]))
		}

	case isThematicBreak(trimmed):
		l.kind = lineBreak

	case strings.HasPrefix(trimmed, "- ") || trimmed == "-":
		l.kind = lineBullet
		l.text = strings.TrimSpace(trimmed[1:])

	case trimmed[0] == '>':
		l.kind = lineQuote
		l.text = strings.TrimPrefix(trimmed[1:], " ")

	case isTableRow(trimmed):
		l.kind = lineTable
		l.text = strings.TrimSpace(trimmed)

	default:
		if num, rest, ok := orderedMarker(trimmed); ok {
			l.kind = lineOrdered
			l.number = num
			l.text = rest
		}
	}
	return l
}

func indentWidth(ws string) int {
	w := 0
	for _, r := range ws {
		if r == '\t' {
			w += 4
		} else {
			w++
		}
	}
	return w
}

// stripClosingHashes removes an optional closing "###" sequence, which must
// be preceded by a space so "C#" survives.
func stripClosingHashes(s string) string {
	t := strings.TrimRight(s, "#")
	if t == "" {
		return ""
	}
	if len(t) < len(s) && (strings.HasSuffix(t, " ") || strings.HasSuffix(t, "\t")) {
		return strings.TrimSpace(t)
	}
	return s
}

func isThematicBreak(s string) bool {
	s = strings.TrimSpace(s)
	return len(s) >= 3 && strings.Trim(s, "-") == ""
}

func isTableRow(s string) bool {
	s = strings.TrimSpace(s)
	return len(s) >= 2 && s[0] == '|' && s[len(s)-1] == '|'
}

// orderedMarker matches "12. rest" and "12) rest".
func orderedMarker(s string) (int, string, bool) {
	i := 0
	for i < len(s) && i < 9 && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 || i+1 >= len(s) || (s[i] != '.' && s[i] != ')') || s[i+1] != ' ' {
		return 0, "", false
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil {
		return 0, "", false
	}
	return n, strings.TrimSpace(s[i+2:]), true
}

// =============================================================================
// BLOCK PARSER
// =============================================================================

// Render parses buf into a Document. It never panics and keeps no state
// between calls.
func Render(buf string) Document {
	p := parser{lines: splitLines(buf)}
	return Document{Blocks: p.parse()}
}

func splitLines(buf string) []string {
	if buf == "" {
		return nil
	}
	lines := strings.Split(buf, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

type parser struct {
	lines []string
	pos   int
}

func (p *parser) peek() (line, bool) {
	if p.pos >= len(p.lines) {
		return line{}, false
	}
	return classify(p.lines[p.pos]), true
}

func (p *parser) parse() []Node {
	var blocks []Node
	for {
		l, ok := p.peek()
		if !ok {
			return blocks
		}
		switch l.kind {
		case lineBlank:
			p.pos++
		case lineFence:
			blocks = append(blocks, p.codeBlock(l))
		case lineHeading:
			p.pos++
			blocks = append(blocks, Node{Kind: KindHeading, Level: l.level, Children: ParseInline(l.text)})
		case lineBreak:
			p.pos++
			blocks = append(blocks, Node{Kind: KindThematicBreak})
		case lineBullet, lineOrdered:
			blocks = append(blocks, p.list(l))
		case lineTable:
			blocks = append(blocks, p.table())
		case lineQuote:
			blocks = append(blocks, p.quote())
		default:
			blocks = append(blocks, p.paragraph())
		}
	}
}

// codeBlock accumulates raw lines until a closing fence. Without one the
// block runs to the end of the buffer and is marked Open.
func (p *parser) codeBlock(open line) Node {
	p.pos++
	n := Node{Kind: KindCodeBlock, Lang: firstField(open.text), Open: true}
	var body []string
	for p.pos < len(p.lines) {
		raw := p.lines[p.pos]
		p.pos++
		t := strings.TrimSpace(raw)
		if strings.HasPrefix(t, "```") && strings.Trim(t, "`") == "" {
			n.Open = false
			break
		}
		body = append(body, raw)
	}
	n.Text = strings.Join(body, "\n")
	return n
}

func firstField(s string) string {
	if f := strings.Fields(s); len(f) > 0 {
		return f[0]
	}
	return ""
}

// list groups consecutive items of the same flavour. Blank lines between
// items do not end the list; indented text lines continue the last item.
func (p *parser) list(first line) Node {
	ordered := first.kind == lineOrdered
	n := Node{Kind: KindList, Ordered: ordered}
	if ordered {
		n.Start = first.number
	}
	base := first.indent
	var items []string
	var depths []int

	for {
		l, ok := p.peek()
		if !ok {
			break
		}
		if l.kind == first.kind || (l.indent > base && (l.kind == lineBullet || l.kind == lineOrdered)) {
			items = append(items, l.text)
			depths = append(depths, nestingDepth(l.indent-base))
			p.pos++
			continue
		}
		if l.kind == lineText && l.indent > base && len(items) > 0 {
			items[len(items)-1] += "\n" + strings.TrimSpace(l.raw)
			p.pos++
			continue
		}
		if l.kind == lineBlank && p.itemFollowsBlank(first.kind, base) {
			p.pos++
			continue
		}
		break
	}

	for i, text := range items {
		n.Children = append(n.Children, Node{Kind: KindListItem, Depth: depths[i], Children: ParseInline(text)})
	}
	return n
}

// itemFollowsBlank reports whether the blank run at pos is followed by
// another item of the list being built.
func (p *parser) itemFollowsBlank(kind lineKind, base int) bool {
	for i := p.pos; i < len(p.lines); i++ {
		l := classify(p.lines[i])
		if l.kind == lineBlank {
			continue
		}
		return l.kind == kind || (l.indent > base && (l.kind == lineBullet || l.kind == lineOrdered))
	}
	return false
}

func nestingDepth(extra int) int {
	if extra <= 0 {
		return 0
	}
	return (extra + 1) / 2
}

// table reads a run of pipe rows. The first row is the header; a separator
// row directly after it sets column alignment and is not emitted.
func (p *parser) table() Node {
	n := Node{Kind: KindTable}
	for {
		l, ok := p.peek()
		if !ok || l.kind != lineTable {
			break
		}
		p.pos++
		cells := splitCells(l.text)
		if len(n.Children) == 1 && n.Align == nil && isSeparatorRow(cells) {
			n.Align = alignments(cells)
			continue
		}
		row := Node{Kind: KindTableRow, Header: len(n.Children) == 0}
		for _, c := range cells {
			row.Children = append(row.Children, Node{Kind: KindTableCell, Children: ParseInline(c)})
		}
		n.Children = append(n.Children, row)
	}
	return n
}

func splitCells(row string) []string {
	inner := strings.TrimSuffix(strings.TrimPrefix(row, "|"), "|")
	parts := strings.Split(inner, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func isSeparatorRow(cells []string) bool {
	for _, c := range cells {
		t := strings.Trim(c, ":")
		if t == "" || strings.Trim(t, "-") != "" {
			return false
		}
	}
	return len(cells) > 0
}

func alignments(cells []string) []Align {
	out := make([]Align, len(cells))
	for i, c := range cells {
		left, right := strings.HasPrefix(c, ":"), strings.HasSuffix(c, ":")
		switch {
		case left && right:
			out[i] = AlignCenter
		case right:
			out[i] = AlignRight
		case left:
			out[i] = AlignLeft
		}
	}
	return out
}

// quote gathers consecutive "> " lines and renders their contents as a
// nested document.
func (p *parser) quote() Node {
	var inner []string
	for {
		l, ok := p.peek()
		if !ok || l.kind != lineQuote {
			break
		}
		inner = append(inner, l.text)
		p.pos++
	}
	return Node{Kind: KindBlockquote, Children: Render(strings.Join(inner, "\n")).Blocks}
}

// paragraph joins text lines, keeping their line breaks, until a blank line
// or any other block construct.
func (p *parser) paragraph() Node {
	var text []string
	for {
		l, ok := p.peek()
		if !ok || l.kind != lineText {
			break
		}
		text = append(text, strings.TrimSpace(l.raw))
		p.pos++
	}
	return Node{Kind: KindParagraph, Children: ParseInline(strings.Join(text, "\n"))}
}
