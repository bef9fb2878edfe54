// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the cauris TUI.

# Color System (colors.go)

All colors are Lip Gloss AdaptiveColor values, so one palette serves both
terminal backgrounds:

  - Indigo - brand accent, user bubbles, selections
  - Emerald - connected status, indexed documents
  - Amber - connecting / reconnecting
  - Rose - errors, disconnected status

# Theme System (theme.go)

A Theme resolves a Mode ("auto", "dark" or "light") to a background and
builds every lipgloss style the chat view needs. "auto" asks termenv for
the terminal background; an explicit mode (the stored dark-mode
preference) wins over detection:

	theme := styles.NewTheme(styles.ModeDark)
	theme.SetSize(width, height)
	header := theme.Header.Render("Cauris AI")

Toggle flips between dark and light and rebuilds the styles in place.
*/
package styles
