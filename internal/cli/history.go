// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/caurisai/cauris-tui/internal/model"
)

func (a *app) historyCmd() *cobra.Command {
	var (
		limit int
		show  int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past questions, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := a.authedClient()
			if err != nil {
				return err
			}
			entries, err := client.History(cmd.Context())
			if err != nil {
				return err
			}
			entries = model.MostRecentFirst(entries)
			out := cmd.OutOrStdout()

			if show > 0 {
				if show > len(entries) {
					return fmt.Errorf("no entry %d (%d in history)", show, len(entries))
				}
				e := entries[show-1]
				printf(out, "> %s\n\n", e.Question)
				if IsStdoutTTY() {
					printf(out, "%s", a.renderMarkdown(e.Answer))
				} else {
					printf(out, "%s\n", e.Answer)
				}
				return nil
			}

			printHistory(out, entries, limit, GetTerminalWidth()-24)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "entries to list, 0 for all")
	cmd.Flags().IntVar(&show, "show", 0, "print question and answer of entry N")
	return cmd
}
