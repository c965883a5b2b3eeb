// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"

	"github.com/jeranaias/fleetwise-tui/internal/markdown"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter renders the report's node tree as a standalone HTML page.
// All text from the buffer is escaped; no raw HTML passes through.
type HTMLExporter struct {
	options *Options
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{options: opts}
}

// Export converts a report to HTML.
func (e *HTMLExporter) Export(r *Report) ([]byte, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}
	theme := "dark"
	if e.options.Theme == "light" {
		theme = "light"
	}

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	sb.WriteString("<meta charset=\"UTF-8\">\n")
	sb.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	fmt.Fprintf(&sb, "<title>%s</title>\n", html.EscapeString(r.Title()))
	sb.WriteString("<meta name=\"generator\" content=\"fleetwise\">\n")
	fmt.Fprintf(&sb, "<meta name=\"date\" content=\"%s\">\n", r.CreatedAt.Format(time.RFC3339))
	sb.WriteString(css)
	fmt.Fprintf(&sb, "</head>\n<body class=\"%s-theme\">\n<div class=\"container\">\n", theme)

	if e.options.IncludeMetadata {
		e.renderHeader(&sb, r)
	}

	sb.WriteString("<main class=\"report\">\n")
	hw := htmlWriter{sb: &sb, theme: theme}
	hw.blocks(r.Document().Blocks)
	sb.WriteString("</main>\n")

	if r.Partial() {
		fmt.Fprintf(&sb, "<p class=\"partial\">Partial report: session ended as %s.</p>\n", r.Status)
	}
	fmt.Fprintf(&sb, "<footer class=\"footer\">Exported from <strong>fleetwise</strong> on %s</footer>\n",
		r.CreatedAt.Format("January 2, 2006 at 3:04 PM"))
	sb.WriteString("</div>\n</body>\n</html>\n")
	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

func (e *HTMLExporter) renderHeader(sb *strings.Builder, r *Report) {
	sb.WriteString("<header class=\"metadata\">\n")
	fmt.Fprintf(sb, "<span class=\"meta-item\"><strong>Created:</strong> %s</span>\n", formatTimestamp(r.CreatedAt))
	fmt.Fprintf(sb, "<span class=\"meta-item\"><strong>Status:</strong> %s</span>\n", r.Status)
	if r.Request != nil {
		fmt.Fprintf(sb, "<span class=\"meta-item\"><strong>Scope:</strong> %s</span>\n", html.EscapeString(r.Request.Summary()))
		if q := r.Request.QuestionText(); q != "" {
			fmt.Fprintf(sb, "<span class=\"meta-item\"><strong>Question:</strong> %s</span>\n", html.EscapeString(q))
		}
	}
	if r.Stats != nil && r.Stats.Finished() {
		fmt.Fprintf(sb, "<span class=\"meta-item\"><strong>Stats:</strong> %s</span>\n", html.EscapeString(r.Stats.Format()))
	}
	if r.Error != "" {
		fmt.Fprintf(sb, "<span class=\"meta-item error\"><strong>Error:</strong> %s</span>\n", html.EscapeString(r.Error))
	}
	sb.WriteString("</header>\n")
}

// =============================================================================
// NODE RENDERING
// =============================================================================

type htmlWriter struct {
	sb    *strings.Builder
	theme string
}

func (w htmlWriter) blocks(nodes []markdown.Node) {
	for _, n := range nodes {
		w.block(n)
	}
}

func (w htmlWriter) block(n markdown.Node) {
	sb := w.sb
	switch n.Kind {
	case markdown.KindHeading:
		fmt.Fprintf(sb, "<h%d>", n.Level)
		w.inline(n.Children)
		fmt.Fprintf(sb, "</h%d>\n", n.Level)

	case markdown.KindParagraph:
		sb.WriteString("<p>")
		w.inline(n.Children)
		sb.WriteString("</p>\n")

	case markdown.KindCodeBlock:
		w.codeBlock(n)

	case markdown.KindList:
		tag := "ul"
		if n.Ordered {
			tag = "ol"
		}
		if n.Ordered && n.Start != 1 {
			fmt.Fprintf(sb, "<ol start=\"%d\">\n", n.Start)
		} else {
			fmt.Fprintf(sb, "<%s>\n", tag)
		}
		for _, item := range n.Children {
			if item.Depth > 0 {
				fmt.Fprintf(sb, "<li class=\"depth-%d\" style=\"margin-left:%dem\">", item.Depth, item.Depth*2)
			} else {
				sb.WriteString("<li>")
			}
			w.inline(item.Children)
			sb.WriteString("</li>\n")
		}
		fmt.Fprintf(sb, "</%s>\n", tag)

	case markdown.KindBlockquote:
		sb.WriteString("<blockquote>\n")
		w.blocks(n.Children)
		sb.WriteString("</blockquote>\n")

	case markdown.KindTable:
		w.table(n)

	case markdown.KindThematicBreak:
		sb.WriteString("<hr>\n")
	}
}

func (w htmlWriter) inline(nodes []markdown.Node) {
	sb := w.sb
	for _, n := range nodes {
		switch n.Kind {
		case markdown.KindText:
			sb.WriteString(strings.ReplaceAll(html.EscapeString(n.Text), "\n", "<br>\n"))
		case markdown.KindCode:
			fmt.Fprintf(sb, "<code class=\"inline-code\">%s</code>", html.EscapeString(n.Text))
		case markdown.KindStrong:
			sb.WriteString("<strong>")
			w.inline(n.Children)
			sb.WriteString("</strong>")
		case markdown.KindEmphasis:
			sb.WriteString("<em>")
			w.inline(n.Children)
			sb.WriteString("</em>")
		}
	}
}

func (w htmlWriter) table(n markdown.Node) {
	sb := w.sb
	sb.WriteString("<table>\n")
	for i, row := range n.Children {
		cell := "td"
		if row.Header {
			cell = "th"
			sb.WriteString("<thead>\n")
		} else if i == 1 || (i == 0 && !row.Header) {
			sb.WriteString("<tbody>\n")
		}
		sb.WriteString("<tr>")
		for c, col := range row.Children {
			if style := alignStyle(n.Align, c); style != "" {
				fmt.Fprintf(sb, "<%s style=\"%s\">", cell, style)
			} else {
				fmt.Fprintf(sb, "<%s>", cell)
			}
			w.inline(col.Children)
			fmt.Fprintf(sb, "</%s>", cell)
		}
		sb.WriteString("</tr>\n")
		if row.Header {
			sb.WriteString("</thead>\n")
		}
	}
	if len(n.Children) > 1 || (len(n.Children) == 1 && !n.Children[0].Header) {
		sb.WriteString("</tbody>\n")
	}
	sb.WriteString("</table>\n")
}

func alignStyle(aligns []markdown.Align, col int) string {
	if col >= len(aligns) {
		return ""
	}
	switch aligns[col] {
	case markdown.AlignLeft:
		return "text-align:left"
	case markdown.AlignCenter:
		return "text-align:center"
	case markdown.AlignRight:
		return "text-align:right"
	}
	return ""
}

// codeBlock highlights with chroma when the language is known. Chroma's
// formatter escapes token text; the plain path escapes it here.
func (w htmlWriter) codeBlock(n markdown.Node) {
	sb := w.sb
	sb.WriteString("<div class=\"code-block\">")
	if n.Lang != "" {
		fmt.Fprintf(sb, "<div class=\"code-lang\">%s</div>", html.EscapeString(n.Lang))
	}
	if out, ok := highlightHTML(n.Text, n.Lang, w.theme); ok {
		sb.WriteString(out)
	} else {
		fmt.Fprintf(sb, "<pre><code>%s</code></pre>", html.EscapeString(n.Text))
	}
	sb.WriteString("</div>\n")
}

func highlightHTML(code, lang, theme string) (string, bool) {
	if lang == "" {
		return "", false
	}
	lexer := lexers.Get(lang)
	if lexer == nil {
		return "", false
	}
	lexer = chroma.Coalesce(lexer)

	styleName := "monokai"
	if theme == "light" {
		styleName = "github"
	}
	style := chromaStyles.Get(styleName)
	if style == nil {
		style = chromaStyles.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "", false
	}
	var sb strings.Builder
	formatter := chromahtml.New(chromahtml.WithClasses(false), chromahtml.TabWidth(4))
	if err := formatter.Format(&sb, style, iterator); err != nil {
		return "", false
	}
	return sb.String(), true
}

// =============================================================================
// CSS
// =============================================================================

const css = `<style>
:root { --radius: 6px; }
.dark-theme { --bg: #1a1b26; --fg: #c0caf5; --muted: #565f89; --accent: #7aa2f7; --code-bg: #24283b; --border: #3b4261; }
.light-theme { --bg: #ffffff; --fg: #24292f; --muted: #57606a; --accent: #0969da; --code-bg: #f6f8fa; --border: #d0d7de; }
body { margin: 0; background: var(--bg); color: var(--fg); font-family: -apple-system, "Segoe UI", Helvetica, Arial, sans-serif; line-height: 1.6; }
.container { max-width: 960px; margin: 0 auto; padding: 2rem; }
.metadata { display: flex; flex-wrap: wrap; gap: 1rem; color: var(--muted); border-bottom: 1px solid var(--border); padding-bottom: 1rem; margin-bottom: 1.5rem; }
.metadata .error { color: #f7768e; }
h1, h2, h3, h4 { color: var(--accent); }
table { border-collapse: collapse; margin: 1rem 0; }
th, td { border: 1px solid var(--border); padding: 0.35rem 0.75rem; }
blockquote { border-left: 4px solid var(--accent); margin: 1rem 0; padding: 0 1rem; color: var(--muted); }
.code-block { background: var(--code-bg); border-radius: var(--radius); margin: 1rem 0; overflow-x: auto; }
.code-block pre { margin: 0; padding: 1rem; }
.code-lang { font-size: 0.8rem; color: var(--muted); padding: 0.25rem 1rem; border-bottom: 1px solid var(--border); }
.inline-code { background: var(--code-bg); border-radius: 3px; padding: 0.1rem 0.3rem; }
.partial { color: #e0af68; font-style: italic; }
.footer { margin-top: 2rem; color: var(--muted); font-size: 0.85rem; }
</style>
`
