// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"

	"github.com/jeranaias/fleetwise-tui/internal/markdown"
	"github.com/jeranaias/fleetwise-tui/internal/ui/styles"
	"github.com/jeranaias/fleetwise-tui/internal/util"
)

// =============================================================================
// DOCUMENT VIEW
// =============================================================================

// MinWidth is the narrowest width the view lays out for.
const MinWidth = 20

// DocumentView presents a rendered markdown document in the terminal.
type DocumentView struct {
	Theme *styles.Theme

	// Width is the available width in cells.
	Width int

	// WrapAt caps paragraph width below Width; 0 means Width.
	WrapAt int

	// Highlight enables chroma highlighting of code blocks.
	Highlight bool

	highlighter *Highlighter
}

// NewDocumentView creates a view with highlighting on.
func NewDocumentView(theme *styles.Theme, width int) *DocumentView {
	if theme == nil {
		theme = styles.NewTheme("dark")
	}
	return &DocumentView{
		Theme:       theme,
		Width:       width,
		Highlight:   true,
		highlighter: NewHighlighter(theme),
	}
}

// SetWidth updates the layout width.
func (v *DocumentView) SetWidth(width int) {
	v.Width = width
}

func (v *DocumentView) width() int {
	w := v.Width
	if v.WrapAt > 0 && v.WrapAt < w {
		w = v.WrapAt
	}
	if w < MinWidth {
		w = MinWidth
	}
	return w
}

// Render lays out every block of doc, separated by blank lines.
func (v *DocumentView) Render(doc markdown.Document) string {
	return v.renderBlocks(doc.Blocks, v.width())
}

func (v *DocumentView) renderBlocks(blocks []markdown.Node, width int) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		parts = append(parts, v.renderBlock(b, width))
	}
	return strings.Join(parts, "\n\n")
}

func (v *DocumentView) renderBlock(n markdown.Node, width int) string {
	switch n.Kind {
	case markdown.KindHeading:
		level := n.Level
		if level < 1 || level > 4 {
			level = 4
		}
		return wrapText(v.renderInline(n.Children, v.Theme.Heading[level]), width)

	case markdown.KindParagraph:
		return wrapText(v.renderInline(n.Children, v.Theme.Paragraph), width)

	case markdown.KindCodeBlock:
		return v.renderCodeBlock(n, width)

	case markdown.KindList:
		return v.renderList(n, width)

	case markdown.KindBlockquote:
		return v.renderQuote(n, width)

	case markdown.KindTable:
		return v.renderTable(n, width)

	case markdown.KindThematicBreak:
		return v.Theme.Rule.Render(strings.Repeat("─", width))
	}
	return ""
}

// wrapText word-wraps styled text and hard-breaks words longer than width.
func wrapText(s string, width int) string {
	return wrap.String(wordwrap.String(s, width), width)
}

// =============================================================================
// INLINE RUNS
// =============================================================================

// renderInline styles each text run with the accumulated style, so nested
// strong and emphasis combine instead of resetting each other. Each line of
// a run is rendered separately so lipgloss does not pad lines to a block.
func (v *DocumentView) renderInline(nodes []markdown.Node, base lipgloss.Style) string {
	var sb strings.Builder
	for _, n := range nodes {
		switch n.Kind {
		case markdown.KindText:
			sb.WriteString(renderLines(base, n.Text))
		case markdown.KindCode:
			sb.WriteString(renderLines(v.Theme.InlineCode, n.Text))
		case markdown.KindStrong:
			sb.WriteString(v.renderInline(n.Children, base.Bold(true)))
		case markdown.KindEmphasis:
			sb.WriteString(v.renderInline(n.Children, base.Italic(true)))
		}
	}
	return sb.String()
}

func renderLines(style lipgloss.Style, s string) string {
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = style.Render(l)
		}
	}
	return strings.Join(lines, "\n")
}

// =============================================================================
// LISTS
// =============================================================================

// renderList draws items with a hanging indent. Ordered lists count from
// Start at depth 0 and from 1 at each nested depth.
func (v *DocumentView) renderList(n markdown.Node, width int) string {
	counters := map[int]int{}
	lines := make([]string, 0, len(n.Children))

	for _, item := range n.Children {
		depth := item.Depth
		for d := range counters {
			if d > depth {
				delete(counters, d)
			}
		}

		var marker string
		switch {
		case n.Ordered:
			if _, ok := counters[depth]; !ok {
				counters[depth] = 1
				if depth == 0 {
					counters[depth] = n.Start
				}
			} else {
				counters[depth]++
			}
			marker = strconv.Itoa(counters[depth]) + ". "
		case depth == 0:
			marker = "• "
		default:
			marker = "◦ "
		}

		indent := strings.Repeat("  ", depth)
		hang := runewidth.StringWidth(indent + marker)
		textWidth := width - hang
		if textWidth < 10 {
			textWidth = 10
		}
		body := wrapText(v.renderInline(item.Children, v.Theme.Paragraph), textWidth)

		for i, l := range strings.Split(body, "\n") {
			if i == 0 {
				lines = append(lines, indent+v.Theme.ListMarker.Render(marker)+l)
			} else {
				lines = append(lines, strings.Repeat(" ", hang)+l)
			}
		}
	}
	return strings.Join(lines, "\n")
}

// =============================================================================
// BLOCKQUOTES
// =============================================================================

func (v *DocumentView) renderQuote(n markdown.Node, width int) string {
	inner := width - 2
	if inner < 10 {
		inner = 10
	}
	bar := v.Theme.QuoteBar.Render("│ ")
	body := v.renderBlocks(n.Children, inner)
	lines := strings.Split(body, "\n")
	for i, l := range lines {
		lines[i] = bar + l
	}
	return strings.Join(lines, "\n")
}

// =============================================================================
// TABLES
// =============================================================================

const cellSep = " │ "

// renderTable sizes columns by the widest cell, shrinks the widest columns
// until the table fits, and truncates cells that still do not fit.
func (v *DocumentView) renderTable(n markdown.Node, width int) string {
	cols := 0
	for _, row := range n.Children {
		if len(row.Children) > cols {
			cols = len(row.Children)
		}
	}
	if cols == 0 {
		return ""
	}

	widths := make([]int, cols)
	for _, row := range n.Children {
		for c, cell := range row.Children {
			if w := runewidth.StringWidth(cell.PlainText()); w > widths[c] {
				widths[c] = w
			}
		}
	}
	fitColumns(widths, width-runewidth.StringWidth(cellSep)*(cols-1))

	var lines []string
	for _, row := range n.Children {
		base := v.Theme.Paragraph
		if row.Header {
			base = v.Theme.TableHeader
		}
		cells := make([]string, cols)
		for c := 0; c < cols; c++ {
			var cell markdown.Node
			if c < len(row.Children) {
				cell = row.Children[c]
			}
			cells[c] = v.renderCell(cell, base, widths[c], alignAt(n.Align, c))
		}
		lines = append(lines, strings.Join(cells, v.Theme.TableRule.Render(cellSep)))

		if row.Header {
			rule := make([]string, cols)
			for c, w := range widths {
				rule[c] = strings.Repeat("─", w)
			}
			lines = append(lines, v.Theme.TableRule.Render(strings.Join(rule, "─┼─")))
		}
	}
	return strings.Join(lines, "\n")
}

func (v *DocumentView) renderCell(cell markdown.Node, base lipgloss.Style, width int, align markdown.Align) string {
	plain := strings.ReplaceAll(cell.PlainText(), "\n", " ")
	w := runewidth.StringWidth(plain)

	var styled string
	if w > width {
		plain = util.TruncateWidth(plain, width)
		w = runewidth.StringWidth(plain)
		styled = base.Render(plain)
	} else if w > 0 {
		styled = v.renderInline(cell.Children, base)
	}

	pad := width - w
	if pad < 0 {
		pad = 0
	}
	switch align {
	case markdown.AlignRight:
		return strings.Repeat(" ", pad) + styled
	case markdown.AlignCenter:
		left := pad / 2
		return strings.Repeat(" ", left) + styled + strings.Repeat(" ", pad-left)
	default:
		return styled + strings.Repeat(" ", pad)
	}
}

func alignAt(aligns []markdown.Align, col int) markdown.Align {
	if col < len(aligns) {
		return aligns[col]
	}
	return markdown.AlignDefault
}

// fitColumns shrinks the widest column one cell at a time until the sum
// fits in avail. No column goes below 3 cells.
func fitColumns(widths []int, avail int) {
	const minCol = 3
	for {
		total, widest := 0, -1
		for i, w := range widths {
			total += w
			if w > minCol && (widest < 0 || w > widths[widest]) {
				widest = i
			}
		}
		if total <= avail || widest < 0 {
			return
		}
		widths[widest]--
	}
}
