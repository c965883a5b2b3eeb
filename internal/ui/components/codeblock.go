// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/reflow/truncate"

	"github.com/jeranaias/fleetwise-tui/internal/markdown"
	"github.com/jeranaias/fleetwise-tui/internal/ui/styles"
)

// =============================================================================
// SYNTAX HIGHLIGHTING (Chroma-based)
// =============================================================================

// maxCachedBlocks bounds the highlight cache; it is simply reset when full.
const maxCachedBlocks = 64

// Highlighter colours code with chroma. Closed blocks are cached because
// the streaming view re-renders them on every frame.
type Highlighter struct {
	style     string
	formatter string
	cache     map[string]string
}

// NewHighlighter creates a highlighter for the theme's chroma style and
// colour depth.
func NewHighlighter(theme *styles.Theme) *Highlighter {
	h := &Highlighter{
		style:     "monokai",
		formatter: "terminal256",
		cache:     make(map[string]string),
	}
	if theme != nil {
		h.style = theme.ChromaStyle
		if theme.HasTrueColor {
			h.formatter = "terminal16m"
		}
	}
	return h
}

// Highlight returns code coloured for lang, or code unchanged when the
// language is unknown or highlighting fails. Only the result for a closed
// block is cached.
func (h *Highlighter) Highlight(code, lang string, closed bool) string {
	if lang == "" || code == "" || lexers.Get(lang) == nil {
		return code
	}
	key := lang + "\x00" + code
	if closed {
		if out, ok := h.cache[key]; ok {
			return out
		}
	}

	out := highlightCode(code, lang, h.style, h.formatter)
	if closed {
		if len(h.cache) >= maxCachedBlocks {
			h.cache = make(map[string]string)
		}
		h.cache[key] = out
	}
	return out
}

func highlightCode(code, language, styleName, formatterName string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		return code
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get(styleName)
	if style == nil {
		style = chromaStyles.Fallback
	}

	formatter := formatters.Get(formatterName)
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	out := buf.String()
	if strings.HasSuffix(code, "\n") {
		return out
	}
	// lexers append a newline to the input; drop it along with any reset
	// sequence written after it
	if i := strings.LastIndex(out, "\n"); i >= 0 && ansi.Strip(out[i+1:]) == "" {
		out = out[:i] + out[i+1:]
	}
	return out
}

// =============================================================================
// CODE BLOCK RENDERER
// =============================================================================

// renderCodeBlock draws a fenced block inside a rounded border. An open
// block (closing fence not yet received) gets the warning border colour.
func (v *DocumentView) renderCodeBlock(n markdown.Node, width int) string {
	inner := width - 4
	if inner < 8 {
		inner = 8
	}

	code := n.Text
	if v.Highlight {
		code = v.highlighter.Highlight(n.Text, n.Lang, !n.Open)
	}

	lines := strings.Split(code, "\n")
	for i, l := range lines {
		lines[i] = truncate.StringWithTail(strings.ReplaceAll(l, "\t", "    "), uint(inner), "…")
	}
	body := strings.Join(lines, "\n")

	if n.Lang != "" {
		body = v.Theme.CodeLang.Render(n.Lang) + "\n" + body
	}

	style := v.Theme.CodeBlock
	if n.Open {
		style = v.Theme.CodeOpen
	}
	return style.Render(body)
}
