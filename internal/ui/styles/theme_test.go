// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"
)

func TestNewTheme_Modes(t *testing.T) {
	tests := []struct {
		mode     string
		wantMode string
		dark     bool
		chroma   string
	}{
		{"dark", "dark", true, "monokai"},
		{"LIGHT", "light", false, "github"},
		{" Dark ", "dark", true, "monokai"},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			th := NewTheme(tt.mode)
			if th.Mode != tt.wantMode {
				t.Errorf("Mode = %q, want %q", th.Mode, tt.wantMode)
			}
			if th.IsDark != tt.dark {
				t.Errorf("IsDark = %v, want %v", th.IsDark, tt.dark)
			}
			if th.ChromaStyle != tt.chroma {
				t.Errorf("ChromaStyle = %q, want %q", th.ChromaStyle, tt.chroma)
			}
		})
	}
}

func TestNewTheme_UnknownIsAuto(t *testing.T) {
	if th := NewTheme("neon"); th.Mode != "auto" {
		t.Errorf("Mode = %q, want auto", th.Mode)
	}
}

func TestTheme_HeadingsDefined(t *testing.T) {
	th := NewTheme("dark")
	for level := 1; level <= 4; level++ {
		if !th.Heading[level].GetBold() {
			t.Errorf("heading %d should be bold", level)
		}
	}
}

func TestRenderError_KeepsIndicatorAndText(t *testing.T) {
	out := RenderError("boom")
	if !strings.Contains(out, StatusIndicators.Error) {
		t.Errorf("missing indicator in %q", out)
	}
	if !strings.Contains(out, "boom") {
		t.Error("RenderError dropped the message")
	}
}
