// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the REST client for the Cauris AI backend.
//
// It covers authentication (login, signup), chat history, one-shot
// questions and document upload. Realtime chat goes through
// internal/realtime instead.
//
// # Key Types
//
//   - Client: HTTP client with bearer auth and size-limited responses
//   - APIError: non-2xx response; errors.Is maps it to ErrUnauthorized
//     or ErrBadRequest
//
// # Usage
//
//	c := api.NewClient(cfg.Server.BaseURL).WithToken(token)
//	entries, err := c.History(ctx)
//	if errors.Is(err, api.ErrUnauthorized) {
//	    // token expired: run `cauris login`
//	}
package api
