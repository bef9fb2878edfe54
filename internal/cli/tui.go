// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/caurisai/cauris-tui/internal/ui/chat"
	"github.com/caurisai/cauris-tui/internal/ui/styles"
)

func (a *app) tuiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the full-screen chat (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI(cmd)
		},
	}
}

// runTUI connects a session and hands the terminal to Bubble Tea until the
// user quits.
func (a *app) runTUI(cmd *cobra.Command) error {
	if !IsTTY() {
		return fmt.Errorf("the chat view needs a terminal; use `cauris chat --plain` or `cauris ask`")
	}

	client, token, err := a.authedClient()
	if err != nil {
		return err
	}
	st, err := a.store.Load()
	if err != nil {
		return err
	}

	mode, err := styles.ParseMode(a.cfg.UI.Theme)
	if err != nil {
		return err
	}
	if st.DarkMode != nil {
		mode = styles.ModeFor(*st.DarkMode)
	}

	ctl, err := a.newController(client)
	if err != nil {
		return err
	}
	defer ctl.Stop()

	m := chat.New(chat.Options{
		Session:        ctl,
		Theme:          styles.NewTheme(mode),
		Email:          st.UserEmail,
		MaxUploadBytes: a.cfg.MaxUploadBytes(),
		Prefs:          a.store,
		Logger:         a.logger,
	})

	if err := ctl.Start(token); err != nil {
		return err
	}
	a.logger.Info("tui started", zap.String("theme", string(mode)))

	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithContext(cmd.Context()),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	if _, err := p.Run(); err != nil && cmd.Context().Err() == nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
