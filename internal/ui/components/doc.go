// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides the display components of the fleetwise TUI.

# Components

DocumentView (document.go) - Presents a markdown.Document in the terminal:
wrapped paragraphs, styled headings and inline runs, aligned tables,
blockquotes and syntax-highlighted code blocks. It is a pure function of the
document and width, so the streaming view simply re-renders the whole
buffer each frame.

Highlighter (codeblock.go) - Chroma-based highlighting for fenced code, with
a small cache for blocks whose closing fence has arrived.

StatusBar (statusbar.go) - Bottom bar with session status, request summary,
statistics and key hints.

# Usage

	view := components.NewDocumentView(theme, width)
	out := view.Render(markdown.Render(buffer))
*/
package components
