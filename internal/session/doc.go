// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session is the realtime session controller for the Cauris chat.
//
// A Controller owns one live chat session: the websocket connection and its
// constant-delay reconnection, the transcript and typing indicator, the
// server history cache and the document upload workflow. Everything runs on
// one event-loop goroutine; renderers only read published Snapshots and
// call intent methods.
//
// # Key Types
//
//   - Controller: event loop, intents (Start, Send, NewConversation,
//     LoadHistoryEntry, SelectDocument, DismissUpload, Stop) and Subscribe
//   - ConnectionManager: socket lifecycle driven by the pure Transition table
//   - HistorySynchronizer: full-replace history cache, newest request wins
//   - UploadWorkflow: Idle → Uploading → Success/Error state machine
//   - Clock: injectable timers for the reconnect and dismiss delays
//
// # Connection States
//
//	Connecting   --opened-->           Connected
//	Connecting   --transport error-->  Error
//	Connected    --transport error-->  Error
//	any          --closed-->           Disconnected
//	Disconnected --delay-->            Connecting
//	Error        --delay-->            Connecting
//
// # Usage
//
//	ctl := session.NewController(session.DefaultConfig(), dialer, client)
//	defer ctl.Stop()
//	if err := ctl.Start(token); errors.Is(err, session.ErrAuthMissing) {
//	    // ask the user to log in
//	}
//	snaps, cancel := ctl.Subscribe()
//	defer cancel()
//	_ = ctl.Send("Bonjour")
//	for snap := range snaps {
//	    render(snap)
//	}
package session
