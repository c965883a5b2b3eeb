// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseInline(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []Node
	}{
		{"plain", "hello", []Node{text("hello")}},
		{"empty", "", nil},
		{
			"closed code span",
			"Use `kubectl get`",
			[]Node{text("Use "), {Kind: KindCode, Text: "kubectl get"}},
		},
		{
			"unclosed code span is literal",
			"Use `kubectl",
			[]Node{text("Use `kubectl")},
		},
		{
			"code contents not interpreted",
			"`**x**` and `*y*`",
			[]Node{{Kind: KindCode, Text: "**x**"}, text(" and "), {Kind: KindCode, Text: "*y*"}},
		},
		{
			"strong",
			"a **b** c",
			[]Node{text("a "), {Kind: KindStrong, Children: []Node{text("b")}}, text(" c")},
		},
		{
			"emphasis",
			"*b*",
			[]Node{{Kind: KindEmphasis, Children: []Node{text("b")}}},
		},
		{
			"strong before emphasis",
			"**x** *y*",
			[]Node{
				{Kind: KindStrong, Children: []Node{text("x")}},
				text(" "),
				{Kind: KindEmphasis, Children: []Node{text("y")}},
			},
		},
		{
			"strong inside emphasis",
			"*a **b** c*",
			[]Node{{Kind: KindEmphasis, Children: []Node{
				text("a "),
				{Kind: KindStrong, Children: []Node{text("b")}},
				text(" c"),
			}}},
		},
		{
			"unclosed strong is literal",
			"**Risk level: high",
			[]Node{text("**Risk level: high")},
		},
		{
			"half-closed strong is literal",
			"**bold*",
			[]Node{text("**bold*")},
		},
		{
			"arithmetic stays text",
			"2 * 3 * 4",
			[]Node{text("2 * 3 * 4")},
		},
		{
			"marker inside code span does not close",
			"**a `**` b**",
			[]Node{{Kind: KindStrong, Children: []Node{
				text("a "),
				{Kind: KindCode, Text: "**"},
				text(" b"),
			}}},
		},
		{
			"double backtick is literal",
			"``",
			[]Node{text("``")},
		},
		{
			"multibyte text",
			"**ünï** ✓",
			[]Node{{Kind: KindStrong, Children: []Node{text("ünï")}}, text(" ✓")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseInline(tt.in))
		})
	}
}

func TestParseInline_StreamingPrefixes(t *testing.T) {
	full := "Check **`i-0abc`** and *retire* it"
	for i := 0; i <= len(full); i++ {
		var got []Node
		assert.NotPanics(t, func() { got = ParseInline(full[:i]) })

		// Nothing is lost: the plain text always covers the prefix minus markers.
		para := Node{Kind: KindParagraph, Children: got}
		assert.LessOrEqual(t, len(para.PlainText()), i)
	}
	got := ParseInline(full)
	assert.Equal(t, KindStrong, got[1].Kind)
	assert.Equal(t, KindCode, got[1].Children[0].Kind)
	assert.Equal(t, KindEmphasis, got[3].Kind)
}
