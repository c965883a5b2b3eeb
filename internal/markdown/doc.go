// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package markdown converts a growing markdown buffer into a document tree.
//
// Render is a pure function of its input and accepts any prefix of a
// document, including one that ends mid-token, mid-table-row or inside an
// unterminated code fence. It is called with the whole accumulated buffer
// after every streamed token, so it does one line-classification pass over
// the buffer followed by an inline scan of each text run. No state survives
// between calls.
//
// Supported blocks: ATX headings (levels 1-4), thematic breaks, unordered
// and ordered lists, pipe tables, fenced code, block quotes and paragraphs.
// Supported inlines: **strong**, *emphasis* and `code`. An opener without a
// closer is kept as literal text.
package markdown
