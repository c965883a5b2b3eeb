// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/jeranaias/fleetwise-tui/internal/ui/styles"
)

// =============================================================================
// STATUS LINES
// =============================================================================

// printer writes status lines to stderr, coloured when stderr is a terminal.
type printer struct {
	w     io.Writer
	quiet bool

	ok   *color.Color
	warn *color.Color
	fail *color.Color
	info *color.Color
	dim  *color.Color
}

func newPrinter(streams IOStreams, quiet bool) *printer {
	p := &printer{
		w:     streams.ErrOut,
		quiet: quiet,
		ok:    color.New(color.FgGreen, color.Bold),
		warn:  color.New(color.FgYellow, color.Bold),
		fail:  color.New(color.FgRed, color.Bold),
		info:  color.New(color.FgCyan, color.Bold),
		dim:   color.New(color.Faint),
	}
	enabled := ColorsEnabled(streams.ErrIsTTY())
	for _, c := range []*color.Color{p.ok, p.warn, p.fail, p.info, p.dim} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p *printer) success(format string, args ...any) {
	if p.quiet {
		return
	}
	p.ok.Fprint(p.w, styles.StatusIndicators.Success+" ")
	fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *printer) warning(format string, args ...any) {
	p.warn.Fprint(p.w, styles.StatusIndicators.Warning+" ")
	fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *printer) failure(format string, args ...any) {
	p.fail.Fprint(p.w, styles.StatusIndicators.Error+" ")
	fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *printer) note(format string, args ...any) {
	if p.quiet {
		return
	}
	p.dim.Fprintf(p.w, format+"\n", args...)
}

// =============================================================================
// SPINNER
// =============================================================================

// startSpinner shows a spinner on stderr while the backend works. It is a
// no-op when stderr is not a terminal or output is quiet.
func startSpinner(streams IOStreams, quiet bool, suffix string) func() {
	if quiet || !streams.ErrIsTTY() {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(streams.ErrOut))
	s.Suffix = " " + suffix
	s.Start()
	stopped := false
	return func() {
		if !stopped {
			stopped = true
			s.Stop()
		}
	}
}

// =============================================================================
// STRUCTURED OUTPUT
// =============================================================================

// Output format names.
const (
	FormatRaw     = "raw"
	FormatPretty  = "pretty"
	FormatGlamour = "glamour"
	FormatTable   = "table"
	FormatText    = "text"
	FormatJSON    = "json"
	FormatYAML    = "yaml"
	FormatTOML    = "toml"
)

func checkFormat(name string, allowed ...string) error {
	if slices.Contains(allowed, name) {
		return nil
	}
	return fmt.Errorf("unknown output format %q (want one of %s)", name, strings.Join(allowed, ", "))
}

// writeStructured prints v as indented JSON or YAML.
func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("format %q is not structured", format)
}
