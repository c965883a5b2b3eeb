// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/fleetwise-tui/internal/config"
	"github.com/jeranaias/fleetwise-tui/internal/export"
	"github.com/jeranaias/fleetwise-tui/internal/markdown"
	"github.com/jeranaias/fleetwise-tui/internal/model"
	"github.com/jeranaias/fleetwise-tui/internal/session"
)

// errEmptyQuestion is returned when the interactive prompt is left blank.
var errEmptyQuestion = errors.New("no question entered")

type askOptions struct {
	*rootOptions
	window      int
	instances   []string
	focus       string
	output      string
	quiet       bool
	exportPath  string
	interactive bool
}

func newAskCmd(root *rootOptions) *cobra.Command {
	o := &askOptions{rootOptions: root}
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Run one analysis and print the report",
		Long: `Run one analysis without the TUI. The report streams to stdout with
-o raw and is rendered once complete for the other formats.

The question is optional. When stdin is piped it is read from there.

Examples:
  # Rightsizing for the whole fleet over 30 days
  fleetwise ask -f rightsizing

  # Two instances, 90 days, with a question
  fleetwise ask -w 90 -i i-0a1b2c3d4e5f60001 -i i-0a1b2c3d4e5f60002 "which is cheaper to run?"

  # Machine readable, saved as HTML too
  fleetwise ask -o json --export report.html`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, args)
		},
	}

	f := cmd.Flags()
	f.IntVarP(&o.window, "window", "w", 0, "lookback window in days: 10, 30, 60 or 90 (default analysis.window_days)")
	f.StringArrayVarP(&o.instances, "instance", "i", nil, "instance id to analyse (repeatable; default all)")
	f.StringVarP(&o.focus, "focus", "f", "", "comma separated focus areas: rightsizing, risk_warnings, full_report")
	f.StringVarP(&o.output, "output", "o", "", "output format: raw, pretty, glamour, json, yaml (default pretty on a terminal, raw otherwise)")
	f.BoolVarP(&o.quiet, "quiet", "q", false, "no spinner, stats or status lines")
	f.StringVar(&o.exportPath, "export", "", "also save the report to FILE (.md, .html or .json)")
	f.BoolVar(&o.interactive, "interactive", false, "prompt for the question")
	return cmd
}

// =============================================================================
// ASK
// =============================================================================

func (o *askOptions) run(cmd *cobra.Command, args []string) error {
	if o.output == "" {
		o.output = FormatRaw
		if o.streams.OutIsTTY() {
			o.output = FormatPretty
		}
	}
	if err := checkFormat(o.output, FormatRaw, FormatPretty, FormatGlamour, FormatJSON, FormatYAML); err != nil {
		return err
	}
	var exporter export.Exporter
	if o.exportPath != "" {
		exp, err := export.ForPath(o.exportPath, export.DefaultOptions())
		if err != nil {
			return err
		}
		exporter = exp
	}

	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}
	log, closer := o.setupLogging(cfg)
	defer closer.Close()

	question, err := o.question(args, cfg)
	if err != nil {
		return err
	}
	req, err := o.request(cmd, cfg, question)
	if err != nil {
		return err
	}

	p := newPrinter(o.streams, o.quiet)
	p.note("analysing %s", req.Summary())

	ctrl := session.NewController(newClient(cfg, log), session.WithLogger(log))
	events, err := ctrl.SubmitRequest(req)
	if err != nil {
		return err
	}

	ctx, stop := interruptContext(cmd.Context())
	defer stop()

	stopSpinner := startSpinner(o.streams, o.quiet, "waiting for the backend...")
	defer stopSpinner()

	st := ctrl.Wait(ctx, events, func(_ session.State, ev session.Event) {
		if ev.Kind != session.EventToken {
			return
		}
		stopSpinner()
		if o.output == FormatRaw {
			io.WriteString(o.streams.Out, ev.Text)
		}
	})
	stopSpinner()

	if err := o.print(cfg, ctrl, st); err != nil {
		return err
	}

	if stats, ok := ctrl.Stats(); ok && cfg.UI.ShowStats && stats.Finished() {
		p.note("%s", stats.Format())
	}

	if exporter != nil && st.Buffer != "" {
		if err := export.ExportTo(export.FromController(ctrl, time.Now()), exporter, o.exportPath); err != nil {
			p.failure("%v", err)
		} else {
			p.success("saved %s", o.exportPath)
		}
	}

	return outcome(p, st)
}

// outcome maps the final session state to the command result. Only a
// session that was actually cancelled exits 130; an interrupt that lands
// after the end marker leaves a complete report.
func outcome(p *printer, st session.State) error {
	switch st.Status {
	case session.StatusIdle:
		p.warning("cancelled, output is partial")
		return &exitError{code: ExitCancelled}
	case session.StatusError:
		if st.Buffer != "" {
			p.warning("output is partial")
		}
		return errors.New(st.Err)
	}
	return nil
}

// print writes the session result in the chosen format. Raw output has
// already been streamed.
func (o *askOptions) print(cfg *config.Config, ctrl *session.Controller, st session.State) error {
	out := o.streams.Out
	switch o.output {
	case FormatRaw:
		if st.Buffer != "" && !strings.HasSuffix(st.Buffer, "\n") {
			fmt.Fprintln(out)
		}
		return nil
	case FormatJSON, FormatYAML:
		return writeStructured(out, o.output, export.ToDocument(export.FromController(ctrl, time.Now())))
	}

	if st.Buffer == "" {
		return nil
	}
	if o.output == FormatGlamour {
		s, err := renderGlamour(o.streams, cfg, st.Buffer)
		if err != nil {
			return err
		}
		_, err = io.WriteString(out, s)
		return err
	}
	_, err := fmt.Fprintln(out, renderPretty(o.streams, cfg, markdown.Render(st.Buffer)))
	return err
}

// =============================================================================
// REQUEST ASSEMBLY
// =============================================================================

// request builds the analysis request from config defaults and flags.
func (o *askOptions) request(cmd *cobra.Command, cfg *config.Config, question string) (model.AnalysisRequest, error) {
	sel := cfg.Selection()
	if cmd.Flags().Changed("window") {
		w := model.WindowDays(o.window)
		if !w.Valid() {
			return model.AnalysisRequest{}, model.ErrInvalidWindow
		}
		sel.Window = w
	}
	if cmd.Flags().Changed("focus") {
		focus, err := model.ParseFocus(o.focus)
		if err != nil {
			return model.AnalysisRequest{}, err
		}
		sel.Focus = make(map[model.Focus]bool, len(focus))
		for _, f := range focus {
			sel.Focus[f] = true
		}
	}
	for _, id := range o.instances {
		if id = strings.TrimSpace(id); id != "" {
			sel.Selected[id] = true
		}
	}
	sel.Question = question
	return sel.Snapshot()
}

// question resolves the question from arguments, then the interactive
// prompt, then piped stdin.
func (o *askOptions) question(args []string, cfg *config.Config) (string, error) {
	q := strings.TrimSpace(strings.Join(args, " "))
	switch {
	case q != "":
	case o.interactive:
		var err error
		if q, err = o.prompt(); err != nil {
			return "", err
		}
	case !o.streams.InIsTTY() && o.streams.In != nil:
		limit := int64(cfg.Analysis.MaxQuestionChars)*utf8.UTFMax + 1
		data, err := io.ReadAll(io.LimitReader(o.streams.In, limit))
		if err != nil {
			return "", fmt.Errorf("read question from stdin: %w", err)
		}
		q = strings.TrimSpace(string(data))
	}

	if n := utf8.RuneCountInString(q); cfg.Analysis.MaxQuestionChars > 0 && n > cfg.Analysis.MaxQuestionChars {
		return "", fmt.Errorf("question is %d characters; the limit is %d (analysis.max_question_chars)", n, cfg.Analysis.MaxQuestionChars)
	}
	return q, nil
}

// prompt reads the question with line editing and history.
func (o *askOptions) prompt() (string, error) {
	if !o.streams.InIsTTY() {
		return "", errors.New("--interactive needs a terminal on stdin")
	}
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	history := historyPath()
	if f, err := os.Open(history); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}

	q, err := line.Prompt("question> ")
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", &exitError{code: ExitCancelled}
	}
	if err != nil {
		return "", err
	}
	q = strings.TrimSpace(q)
	if q == "" {
		return "", errEmptyQuestion
	}

	line.AppendHistory(q)
	if err := os.MkdirAll(filepath.Dir(history), 0o700); err == nil {
		if f, err := os.OpenFile(history, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
			_, _ = line.WriteHistory(f)
			f.Close()
		}
	}
	return q, nil
}

func historyPath() string {
	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "ask_history")
}
