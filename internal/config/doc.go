// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for cauris.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - ServerConfig: REST and websocket endpoints, timeouts
//   - SessionConfig: Reconnect delay and history refresh timeout
//   - UploadConfig: Accepted document type, success dismiss delay, watch folder
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (CAURIS_*)
//   - ~/.cauris/config.toml
//   - ~/.cauris/config.json
//   - Built-in defaults
//
// CAURIS_HOME relocates the whole ~/.cauris directory.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	wsURL, _ := cfg.RealtimeEndpoint()
//	delay := cfg.ReconnectDelay()
package config
