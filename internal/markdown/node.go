// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markdown

import (
	"fmt"
	"strings"
)

// =============================================================================
// NODE KINDS
// =============================================================================

// Kind identifies a node type.
type Kind int

const (
	// Inline kinds
	KindText Kind = iota
	KindEmphasis
	KindStrong
	KindCode

	// Block kinds
	KindHeading
	KindParagraph
	KindCodeBlock
	KindList
	KindListItem
	KindBlockquote
	KindTable
	KindTableRow
	KindTableCell
	KindThematicBreak
)

var kindNames = map[Kind]string{
	KindText:          "text",
	KindEmphasis:      "emphasis",
	KindStrong:        "strong",
	KindCode:          "code",
	KindHeading:       "heading",
	KindParagraph:     "paragraph",
	KindCodeBlock:     "code_block",
	KindList:          "list",
	KindListItem:      "item",
	KindBlockquote:    "blockquote",
	KindTable:         "table",
	KindTableRow:      "row",
	KindTableCell:     "cell",
	KindThematicBreak: "thematic_break",
}

// String returns the snake_case kind name.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText lets kinds appear by name in JSON exports.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// IsInline reports whether k is an inline kind.
func (k Kind) IsInline() bool {
	return k <= KindCode
}

// Align is a table column alignment taken from the separator row.
type Align int

const (
	AlignDefault Align = iota
	AlignLeft
	AlignCenter
	AlignRight
)

// =============================================================================
// NODE
// =============================================================================

// Node is one element of the document tree. Which fields are meaningful
// depends on Kind:
//
//   - Text: text and inline code content, raw code block content
//   - Level: heading level 1-4
//   - Ordered, Start: list numbering
//   - Depth: list item indentation level
//   - Lang: code block info string
//   - Open: code block whose closing fence has not arrived yet
//   - Header: first table row
//   - Align: table column alignments
type Node struct {
	Kind     Kind    `json:"kind"`
	Text     string  `json:"text,omitempty"`
	Level    int     `json:"level,omitempty"`
	Ordered  bool    `json:"ordered,omitempty"`
	Start    int     `json:"start,omitempty"`
	Depth    int     `json:"depth,omitempty"`
	Lang     string  `json:"lang,omitempty"`
	Open     bool    `json:"open,omitempty"`
	Header   bool    `json:"header,omitempty"`
	Align    []Align `json:"align,omitempty"`
	Children []Node  `json:"children,omitempty"`
}

// PlainText returns the node's text with all markup removed.
func (n Node) PlainText() string {
	switch n.Kind {
	case KindText, KindCode, KindCodeBlock:
		return n.Text
	case KindThematicBreak:
		return ""
	}
	var sb strings.Builder
	for i, c := range n.Children {
		switch {
		case i == 0 || c.Kind.IsInline():
		case n.Kind == KindTableRow:
			sb.WriteByte('\t')
		default:
			sb.WriteByte('\n')
		}
		sb.WriteString(c.PlainText())
	}
	return sb.String()
}

// Walk calls fn for n and every descendant, depth first. Returning false
// from fn skips the node's children.
func (n Node) Walk(fn func(Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// =============================================================================
// DOCUMENT
// =============================================================================

// Document is the rendered form of a buffer: a flat sequence of blocks,
// each carrying its own children.
type Document struct {
	Blocks []Node `json:"blocks"`
}

// Len returns the number of top-level blocks.
func (d Document) Len() int { return len(d.Blocks) }

// Last returns the final block, which is the one later input may extend.
func (d Document) Last() (Node, bool) {
	if len(d.Blocks) == 0 {
		return Node{}, false
	}
	return d.Blocks[len(d.Blocks)-1], true
}

// Walk visits every node in document order.
func (d Document) Walk(fn func(Node) bool) {
	for _, b := range d.Blocks {
		b.Walk(fn)
	}
}

// PlainText returns the document text without markup, one block per line.
func (d Document) PlainText() string {
	parts := make([]string, 0, len(d.Blocks))
	for _, b := range d.Blocks {
		if t := b.PlainText(); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}

// Dump returns an indented, human-readable outline of the tree.
func (d Document) Dump() string {
	var sb strings.Builder
	for _, b := range d.Blocks {
		dumpNode(&sb, b, 0)
	}
	return sb.String()
}

func dumpNode(sb *strings.Builder, n Node, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString(n.Kind.String())
	switch n.Kind {
	case KindHeading:
		fmt.Fprintf(sb, " level=%d", n.Level)
	case KindList:
		if n.Ordered {
			fmt.Fprintf(sb, " ordered start=%d", n.Start)
		} else {
			sb.WriteString(" unordered")
		}
	case KindListItem:
		if n.Depth > 0 {
			fmt.Fprintf(sb, " depth=%d", n.Depth)
		}
	case KindCodeBlock:
		if n.Lang != "" {
			fmt.Fprintf(sb, " lang=%s", n.Lang)
		}
		if n.Open {
			sb.WriteString(" open")
		}
	case KindTableRow:
		if n.Header {
			sb.WriteString(" header")
		}
	}
	if n.Kind == KindText || n.Kind == KindCode || n.Kind == KindCodeBlock {
		fmt.Fprintf(sb, " %q", n.Text)
	}
	sb.WriteByte('\n')
	for _, c := range n.Children {
		dumpNode(sb, c, depth+1)
	}
}
