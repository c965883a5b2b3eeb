// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markdown

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// ParseInline scans s for code spans, strong and emphasis runs. Code spans
// are tried first and their contents are never interpreted; strong is tried
// before emphasis so a single-asterisk run cannot swallow a "**" pair.
// Openers without a matching closer stay literal text.
func ParseInline(s string) []Node {
	var (
		out  []Node
		text strings.Builder
	)
	flush := func() {
		if text.Len() > 0 {
			out = append(out, Node{Kind: KindText, Text: text.String()})
			text.Reset()
		}
	}

	for i := 0; i < len(s); {
		switch {
		case s[i] == '`':
			if j := strings.IndexByte(s[i+1:], '`'); j > 0 {
				flush()
				out = append(out, Node{Kind: KindCode, Text: s[i+1 : i+1+j]})
				i += j + 2
				continue
			}
			text.WriteByte('`')
			i++
			continue

		case strings.HasPrefix(s[i:], "**"):
			if end, ok := findCloser(s, i+2, "**"); ok && spanContent(s[i+2:end]) {
				flush()
				out = append(out, Node{Kind: KindStrong, Children: ParseInline(s[i+2 : end])})
				i = end + 2
				continue
			}
			text.WriteString("**")
			i += 2
			continue

		case s[i] == '*':
			if end, ok := findCloser(s, i+1, "*"); ok && spanContent(s[i+1:end]) {
				flush()
				out = append(out, Node{Kind: KindEmphasis, Children: ParseInline(s[i+1 : end])})
				i = end + 1
				continue
			}
		}
		text.WriteByte(s[i])
		i++
	}
	flush()
	return out
}

// findCloser returns the index of the marker closing a run opened just
// before from. Closed code spans are skipped. When looking for a single "*",
// a nested "**" pair is skipped as a whole.
func findCloser(s string, from int, marker string) (int, bool) {
	for k := from; k < len(s); {
		switch {
		case s[k] == '`':
			if j := strings.IndexByte(s[k+1:], '`'); j > 0 {
				k += j + 2
				continue
			}
		case marker == "*" && strings.HasPrefix(s[k:], "**"):
			if end, ok := findCloser(s, k+2, "**"); ok {
				k = end + 2
				continue
			}
			return k, true
		case strings.HasPrefix(s[k:], marker):
			return k, true
		}
		k++
	}
	return 0, false
}

// spanContent reports whether inner may form a strong or emphasis run: it
// must be non-empty and must not start or end with whitespace, so that
// "2 * 3 * 4" stays plain text.
func spanContent(inner string) bool {
	if inner == "" {
		return false
	}
	first, _ := utf8.DecodeRuneInString(inner)
	last, _ := utf8.DecodeLastRuneInString(inner)
	return !unicode.IsSpace(first) && !unicode.IsSpace(last)
}
