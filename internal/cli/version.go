// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

func newVersionCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(root.streams.Out, "fleetwise %s\n", Version)
			fmt.Fprintf(root.streams.Out, "  commit: %s\n", GitCommit)
			fmt.Fprintf(root.streams.Out, "  built:  %s\n", BuildDate)
			fmt.Fprintf(root.streams.Out, "  go:     %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
