// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/caurisai/cauris-tui/internal/ingest"
	"github.com/caurisai/cauris-tui/internal/model"
	"github.com/caurisai/cauris-tui/internal/session"
)

// =============================================================================
// SESSION
// =============================================================================

// Session is the part of a session controller the view drives.
type Session interface {
	Snapshot() session.Snapshot
	Subscribe() (<-chan session.Snapshot, func())

	Send(text string) error
	NewConversation() error
	LoadHistoryEntry(i int) error
	RefreshHistory() error
	OpenUpload() error
	SelectDocument(doc *model.Document) error
	DismissUpload() error
}

// Preferences persists the dark-mode toggle.
type Preferences interface {
	SetDarkMode(dark bool) error
}

// =============================================================================
// MESSAGES
// =============================================================================

// SnapshotMsg carries a newly published session snapshot.
type SnapshotMsg struct {
	Snapshot session.Snapshot
}

// SessionClosedMsg signals that the session stopped publishing.
type SessionClosedMsg struct{}

// DocumentLoadedMsg carries a file picked in the upload modal, read from
// disk outside Update.
type DocumentLoadedMsg struct {
	Path string
	Doc  *model.Document
	Err  error
}

// loadDocument reads path in a command so large files do not stall the view.
func loadDocument(path string, maxBytes int64) tea.Cmd {
	return func() tea.Msg {
		doc, err := ingest.Load(path, maxBytes)
		return DocumentLoadedMsg{Path: path, Doc: doc, Err: err}
	}
}

// waitForSnapshot blocks on the subscription and turns the next snapshot
// into a message.
func waitForSnapshot(ch <-chan session.Snapshot) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return SessionClosedMsg{}
		}
		return SnapshotMsg{Snapshot: snap}
	}
}
