// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package realtime is the websocket transport used by the session
// controller.
//
// It knows nothing about transcripts or reconnection; it opens one
// connection, moves text frames, and classifies how the connection ended:
// a *CloseError for an orderly close (including the server's 4003 token
// rejection), any other error for a transport failure.
//
// # Usage
//
//	d := realtime.NewWSDialer("ws://localhost:8000/api/v1/chat/ws")
//	conn, err := d.Dial(ctx, token)
//	if err != nil {
//	    return err
//	}
//	defer conn.Close()
//	_ = conn.WriteText("Bonjour")
//	reply, err := conn.ReadText()
package realtime
