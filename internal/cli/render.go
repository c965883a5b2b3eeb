// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/jeranaias/fleetwise-tui/internal/config"
	"github.com/jeranaias/fleetwise-tui/internal/markdown"
	"github.com/jeranaias/fleetwise-tui/internal/ui/components"
	"github.com/jeranaias/fleetwise-tui/internal/ui/styles"
)

// maxRenderInput bounds what render reads from a file or stdin.
const maxRenderInput = 8 << 20

// =============================================================================
// TERMINAL RENDERING
// =============================================================================

// renderPretty lays out doc with the same presenter the TUI uses.
func renderPretty(streams IOStreams, cfg *config.Config, doc markdown.Document) string {
	lipgloss.SetColorProfile(streams.ColorProfile())
	v := components.NewDocumentView(styles.NewTheme(cfg.UI.Theme), streams.Width())
	v.WrapAt = cfg.UI.WordWrap
	v.Highlight = cfg.UI.SyntaxHighlight && ColorsEnabled(streams.OutIsTTY())
	return v.Render(doc)
}

// renderGlamour renders text with glamour, for comparison with the
// incremental renderer.
func renderGlamour(streams IOStreams, cfg *config.Config, text string) (string, error) {
	style := "notty"
	if ColorsEnabled(streams.OutIsTTY()) {
		style = "dark"
		if !streams.HasDarkBackground() {
			style = "light"
		}
	}
	width := streams.Width()
	if cfg.UI.WordWrap > 0 {
		width = min(width, cfg.UI.WordWrap)
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("glamour: %w", err)
	}
	return r.Render(text)
}

// =============================================================================
// RENDER COMMAND
// =============================================================================

type renderOptions struct {
	*rootOptions
	tree    bool
	glamour bool
}

func newRenderCmd(root *rootOptions) *cobra.Command {
	o := &renderOptions{rootOptions: root}
	cmd := &cobra.Command{
		Use:   "render FILE|-",
		Short: "Render a markdown file with the streaming renderer",
		Long: `Render a markdown file with the same renderer the analyst screen uses.
Pass - to read from stdin.

Examples:
  # Show how a saved report looks in the terminal
  fleetwise render report.md

  # Print the node tree
  fleetwise render --tree report.md

  # Compare with glamour
  cat report.md | fleetwise render --glamour -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(args[0])
		},
	}
	cmd.Flags().BoolVar(&o.tree, "tree", false, "print the node tree instead of rendering")
	cmd.Flags().BoolVar(&o.glamour, "glamour", false, "render with glamour instead")
	cmd.MarkFlagsMutuallyExclusive("tree", "glamour")
	return cmd
}

func (o *renderOptions) run(name string) error {
	text, err := o.read(name)
	if err != nil {
		return err
	}
	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}

	out := o.streams.Out
	switch {
	case o.tree:
		_, err = io.WriteString(out, markdown.Render(text).Dump())
	case o.glamour:
		var s string
		if s, err = renderGlamour(o.streams, cfg, text); err == nil {
			_, err = io.WriteString(out, s)
		}
	default:
		_, err = fmt.Fprintln(out, renderPretty(o.streams, cfg, markdown.Render(text)))
	}
	return err
}

func (o *renderOptions) read(name string) (string, error) {
	var r io.Reader
	if name == "-" {
		r = o.streams.In
	} else {
		f, err := os.Open(name)
		if err != nil {
			return "", err
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(io.LimitReader(r, maxRenderInput))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return strings.ToValidUTF8(string(data), "�"), nil
}
