// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"runtime"

	"github.com/spf13/cobra"
)

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b := a.build
			if b.Version == "" {
				b.Version = "dev"
			}
			out := cmd.OutOrStdout()
			printf(out, "cauris %s\n", b.Version)
			if b.GitCommit != "" {
				printf(out, "  commit: %s\n", b.GitCommit)
			}
			if b.BuildDate != "" {
				printf(out, "  built:  %s\n", b.BuildDate)
			}
			printf(out, "  go:     %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
			return nil
		},
	}
}
