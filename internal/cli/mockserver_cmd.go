// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"log/slog"
	"net"

	"github.com/spf13/cobra"

	"github.com/jeranaias/fleetwise-tui/internal/logging"
	"github.com/jeranaias/fleetwise-tui/internal/mockserver"
)

type mockServerOptions struct {
	*rootOptions
	addr          string
	tps           float64
	burst         int
	failInventory bool
}

func newMockServerCmd(root *rootOptions) *cobra.Command {
	o := &mockServerOptions{rootOptions: root}
	cmd := &cobra.Command{
		Use:   "mock-server",
		Short: "Run a stub analysis backend",
		Long: `Run a stand-in for the analysis backend with a five instance fixture
fleet and a canned report. Useful for trying the TUI without AWS.

Markers in the question change the stream:
  #fail-midstream   drop the connection halfway
  #no-done          end without the [DONE] marker
  #garbage          interleave malformed lines

Examples:
  fleetwise mock-server
  fleetwise mock-server --addr 127.0.0.1:9000 --tps 20`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			level := slog.LevelInfo
			if o.debug || logging.DebugFromEnv() {
				level = slog.LevelDebug
			}
			log := logging.New(o.streams.ErrOut, level)

			srv := mockserver.New(mockserver.Options{
				TokensPerSecond: o.tps,
				Burst:           o.burst,
				FailInventory:   o.failInventory,
				Logger:          log,
			})

			ctx, stop := interruptContext(cmd.Context())
			defer stop()

			p := newPrinter(o.streams, false)
			err := srv.ListenAndServe(ctx, o.addr, func(a net.Addr) {
				p.info.Fprintf(p.w, "mock backend listening on http://%s\n", a)
				p.note("press Ctrl-C to stop")
			})
			if err != nil {
				return err
			}
			snap := srv.Stats().Snapshot()
			p.note("served %d requests, %d analyses, %d tokens", snap.Requests, snap.Analyses, snap.Tokens)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.addr, "addr", mockserver.DefaultAddr, "listen address")
	f.Float64Var(&o.tps, "tps", 40, "tokens per second (0 for unpaced)")
	f.IntVar(&o.burst, "burst", 1, "token burst size")
	f.BoolVar(&o.failInventory, "fail-inventory", false, "answer /instances with an error")
	return cmd
}
