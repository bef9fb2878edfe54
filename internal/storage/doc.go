// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists the little client state cauris keeps between
// runs: the bearer token, the signed-in e-mail and the dark-mode preference.
//
// # Key Types
//
//   - State: the persisted values
//   - StateStore: atomic JSON file at ~/.cauris/state.json (0600)
//
// # Usage
//
//	store, err := storage.NewStateStore(dir)
//	if err != nil {
//	    return err
//	}
//	token, err := store.Token() // CAURIS_TOKEN wins over the file
//
// Transcripts and the history cache are never written to disk.
package storage
