// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (a *app) askCmd() *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask one question over REST and print the answer",
		Long: `Ask one question over REST and print the answer.

The question is read from stdin when no argument is given. Answers are
rendered as markdown on a terminal and printed as-is otherwise.`,
		Example: `  cauris ask "Résume le chapitre 3"
  echo "Qu'est-ce qu'une matrice inversible ?" | cauris ask`,
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read question: %w", err)
				}
				question = strings.TrimSpace(string(b))
			}
			if question == "" {
				return fmt.Errorf("no question given")
			}

			client, _, err := a.authedClient()
			if err != nil {
				return err
			}
			answer, err := client.Query(cmd.Context(), question)
			if err != nil {
				return err
			}
			a.logger.Debug("answer received", zap.Int("bytes", len(answer)))

			out := cmd.OutOrStdout()
			if raw || !IsStdoutTTY() {
				printf(out, "%s\n", answer)
				return nil
			}
			printf(out, "%s", a.renderMarkdown(answer))
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print the answer without markdown rendering")
	return cmd
}

// renderMarkdown renders content for the terminal, falling back to the
// plain text when glamour fails.
func (a *app) renderMarkdown(content string) string {
	wrap := a.cfg.UI.WordWrap
	if wrap <= 0 {
		wrap = GetTerminalWidth()
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return content + "\n"
	}
	out, err := r.Render(content)
	if err != nil {
		return content + "\n"
	}
	return out
}
