// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the cauris command line.
//
// Commands:
//
//	cauris                   full-screen chat (same as `cauris tui`)
//	cauris chat --plain      line-mode chat over the same session
//	cauris login | signup | logout
//	cauris ask "question"    one-shot question over REST
//	cauris history           list past questions, most recent first
//	cauris upload file.pdf   index a document
//	cauris watch [dir]       upload every PDF dropped into dir
//	cauris config show|path|init
//	cauris version
//
// Every command loads the TOML config (~/.cauris/config.toml), applies
// CAURIS_* environment overrides and logs through zap to
// ~/.cauris/cauris.log; --verbose mirrors warnings to stderr.
package cli
