// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "time"

// HistoryEntry is a server-persisted question/answer pair. Only Question and
// Answer are guaranteed; the other fields are filled when the server sends
// them.
type HistoryEntry struct {
	ID        int       `json:"id,omitempty"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	UserID    int       `json:"user_id,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// MostRecentFirst returns a reversed copy of entries as delivered by the
// server (oldest first), which is the order the sidebar shows them in.
func MostRecentFirst(entries []HistoryEntry) []HistoryEntry {
	out := make([]HistoryEntry, len(entries))
	for i, e := range entries {
		out[len(entries)-1-i] = e
	}
	return out
}
