// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ingest turns local files into documents for the upload workflow.
//
// Load reads one file and sniffs its content type from the first bytes,
// so a renamed text file is not mistaken for a PDF. Watcher follows a
// directory with fsnotify and emits every PDF that settles after being
// created or rewritten, rate-limited so a bulk copy does not flood the
// ingestion service:
//
//	w, err := ingest.NewWatcher(dir, ingest.WatchOptions{RatePerSec: 1})
//	paths, err := w.Watch(ctx)
//	for p := range paths {
//	    doc, err := ingest.Load(p, maxBytes)
//	    ...
//	}
package ingest
