// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for the chat transcript.
//
// This package defines the core domain types used throughout the application
// for representing the live conversation and the server-side history.
//
// # Key Types
//
//   - Transcript: ordered, append-only record of the session plus the typing flag
//   - Message: single immutable entry with sender, direction and send time
//   - HistoryEntry: server-persisted question/answer pair
//   - Document: file selected for ingestion
//
// # Usage
//
// Create a transcript and record an exchange:
//
//	t := model.NewTranscript()
//	t.AppendOutgoing("Bonjour")
//	t.AppendIncoming(" : Salut") // stored as "Salut"
//
// Show a past exchange from the sidebar:
//
//	t.LoadFromHistoryEntry(model.HistoryEntry{Question: "q", Answer: "a"})
package model
