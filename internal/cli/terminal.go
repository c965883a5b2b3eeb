// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"io"
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// =============================================================================
// STREAMS
// =============================================================================

// IOStreams are the standard streams a command reads and writes. Tests
// replace them with buffers, which also turns colour and spinners off.
type IOStreams struct {
	In     io.Reader
	Out    io.Writer
	ErrOut io.Writer
}

// StdStreams returns the process streams.
func StdStreams() IOStreams {
	return IOStreams{In: os.Stdin, Out: os.Stdout, ErrOut: os.Stderr}
}

// InIsTTY reports whether stdin is a terminal, so prompting is possible.
func (s IOStreams) InIsTTY() bool { return isTerminal(s.In) }

// OutIsTTY reports whether stdout is a terminal.
func (s IOStreams) OutIsTTY() bool { return isTerminal(s.Out) }

// ErrIsTTY reports whether stderr is a terminal.
func (s IOStreams) ErrIsTTY() bool { return isTerminal(s.ErrOut) }

type fder interface {
	Fd() uintptr
}

func isTerminal(v any) bool {
	f, ok := v.(fder)
	return ok && term.IsTerminal(int(f.Fd()))
}

// =============================================================================
// TERMINAL WIDTH
// =============================================================================

const (
	// DefaultTerminalWidth is the fallback width when detection fails
	DefaultTerminalWidth = 80

	// MinTerminalWidth is the minimum width we'll use for wrapping
	MinTerminalWidth = 40
)

// Width returns the width of stdout, or DefaultTerminalWidth when stdout is
// not a terminal.
func (s IOStreams) Width() int {
	f, ok := s.Out.(fder)
	if !ok {
		return DefaultTerminalWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return DefaultTerminalWidth
	}
	return max(width, MinTerminalWidth)
}

// =============================================================================
// COLOR OUTPUT CONTROL
// =============================================================================

// ColorsEnabled reports whether output to a stream should be coloured.
// NO_COLOR (https://no-color.org/) wins over FORCE_COLOR, which wins over
// TTY detection.
func ColorsEnabled(tty bool) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("FORCE_COLOR") != "" {
		return true
	}
	return tty
}

// ColorProfile returns the termenv profile for stdout.
func (s IOStreams) ColorProfile() termenv.Profile {
	if !ColorsEnabled(s.OutIsTTY()) {
		return termenv.Ascii
	}
	return termenv.NewOutput(s.Out).ColorProfile()
}

// HasDarkBackground asks the terminal behind stdout for its background.
// Non-terminals are assumed dark.
func (s IOStreams) HasDarkBackground() bool {
	if !s.OutIsTTY() {
		return true
	}
	return termenv.NewOutput(s.Out).HasDarkBackground()
}
