// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jeranaias/fleetwise-tui/internal/backend"
	"github.com/jeranaias/fleetwise-tui/internal/config"
	"github.com/jeranaias/fleetwise-tui/internal/logging"
)

// Version information (set at build time)
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// ExitCancelled is the exit code after Ctrl-C, as a shell reports SIGINT.
const ExitCancelled = 130

// =============================================================================
// EXIT ERRORS
// =============================================================================

// exitError carries a specific exit code. A nil err prints nothing.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// =============================================================================
// ROOT COMMAND
// =============================================================================

// rootOptions are the persistent flags plus the streams every command
// writes to.
type rootOptions struct {
	streams    IOStreams
	configPath string
	backendURL string
	debug      bool
}

// NewRootCmd builds the fleetwise command tree.
func NewRootCmd(streams IOStreams) *cobra.Command {
	o := &rootOptions{streams: streams}

	cmd := &cobra.Command{
		Use:   "fleetwise",
		Short: "Terminal client for the fleet analysis service",
		Long: `fleetwise streams EC2 rightsizing and risk analyses from the fleet analysis
backend and renders the markdown report as it arrives.

Run without a subcommand to open the interactive analyst screen.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), o)
		},
	}
	cmd.CompletionOptions.DisableDefaultCmd = true
	cmd.SetIn(streams.In)
	cmd.SetOut(streams.Out)
	cmd.SetErr(streams.ErrOut)

	flags := cmd.PersistentFlags()
	flags.StringVar(&o.configPath, "config", "", "config file (default ~/.fleetwise/config.toml)")
	flags.StringVar(&o.backendURL, "backend", "", "backend base URL (overrides backend.url)")
	flags.BoolVar(&o.debug, "debug", false, "write a debug log under logging.path")

	cmd.AddCommand(
		newAskCmd(o),
		newInstancesCmd(o),
		newHealthCmd(o),
		newPromptCmd(o),
		newRenderCmd(o),
		newConfigCmd(o),
		newMockServerCmd(o),
		newVersionCmd(o),
	)
	return cmd
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	return Run(context.Background(), os.Args[1:], StdStreams())
}

// Run executes args against a fresh command tree.
func Run(ctx context.Context, args []string, streams IOStreams) int {
	cmd := NewRootCmd(streams)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintf(streams.ErrOut, "Error: %v\n", ee.err)
		}
		return ee.code
	}
	fmt.Fprintf(streams.ErrOut, "Error: %v\n", err)
	return 1
}

// =============================================================================
// SHARED SETUP
// =============================================================================

// loadConfig reads --config or the default file and applies --backend and
// --debug. A broken default file is reported and the defaults are used.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if o.configPath != "" {
		cfg, err = config.LoadFromPath(o.configPath)
		if err != nil {
			return nil, err
		}
	} else {
		cfg, err = config.Load()
		if cfg == nil {
			return nil, err
		}
		if err != nil {
			newPrinter(o.streams, false).warning("%v; using defaults", err)
		}
	}

	if o.backendURL != "" {
		u, err := backend.ValidateBaseURL(o.backendURL)
		if err != nil {
			return nil, fmt.Errorf("--backend: %w", err)
		}
		cfg.Backend.URL = u
	}
	if o.debug {
		cfg.Logging.Enabled = true
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// watchPath is the config file the TUI should watch, if any.
func (o *rootOptions) watchPath() string {
	if o.configPath != "" {
		return o.configPath
	}
	if p, ok := config.ActivePath(); ok {
		return p
	}
	return ""
}

// setupLogging starts the file logger. Failure falls back to discarding
// so a read-only home never blocks an analysis.
func (o *rootOptions) setupLogging(cfg *config.Config) (*slog.Logger, io.Closer) {
	log, closer, err := logging.Setup(cfg.LoggingOptions())
	if err != nil {
		newPrinter(o.streams, false).warning("logging disabled: %v", err)
		return logging.Discard(), io.NopCloser(nil)
	}
	return log, closer
}

func newClient(cfg *config.Config, log *slog.Logger) *backend.Client {
	cc := cfg.ClientConfig()
	cc.Logger = log
	return backend.NewClientWithConfig(cc)
}

// interruptContext is cancelled on Ctrl-C or SIGTERM.
func interruptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}
