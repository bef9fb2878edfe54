// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the full-screen chat view for the cauris TUI.

The view is a pure observer of a realtime session: it subscribes to the
session's snapshots and renders the latest one, and every key press that
changes something is turned into a session intent (send, new conversation,
load a history entry, upload a document). Nothing here mutates the
transcript directly.

# Layout (view.go)

	+-----------+--------------------------------------------+
	| Historique| Assistant Cauris  * Base de connaissance   |
	|           |--------------------------------------------|
	|  question |  messages (viewport)                       |
	|  question |                                            |
	|           |  [ Posez n'importe quelle question... ]    |
	+-----------+--------------------------------------------+

The sidebar is hidden on narrow terminals. The upload modal replaces the
body while open.

# Keys (keys.go)

	Enter    send / load the selected history entry / upload the typed path
	Tab      switch focus between input and history
	Ctrl+N   new conversation
	Ctrl+O   upload a PDF
	Ctrl+R   refresh history
	Ctrl+T   toggle dark mode (persisted)
	F1       help
	Ctrl+C   quit

# Usage

	m := chat.New(chat.Options{
	    Session: controller,
	    Theme:   styles.NewTheme(styles.ModeAuto),
	    Email:   state.UserEmail,
	})
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
*/
package chat
