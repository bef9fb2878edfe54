// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// markdown renders assistant answers with glamour. Building a renderer is
// expensive, so one is kept per (style, width) and rebuilt only when either
// changes.
type markdown struct {
	style    string
	width    int
	renderer *glamour.TermRenderer
}

// render returns content rendered for width, or content unchanged if
// glamour fails.
func (md *markdown) render(content, style string, width int) string {
	if width < 20 {
		return content
	}
	if md.renderer == nil || md.style != style || md.width != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			md.renderer = nil
			return content
		}
		md.renderer, md.style, md.width = r, style, width
	}

	out, err := md.renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}
