// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

// =============================================================================
// CONNECTION STATE
// =============================================================================

// ConnectionState is the realtime connection's lifecycle position. The zero
// value is StateConnecting: a fresh session reports "connecting" until
// Start decides otherwise.
type ConnectionState int

const (
	StateConnecting ConnectionState = iota
	StateConnected
	StateError
	StateDisconnected
)

// String returns the state name.
func (s ConnectionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Event is something that happened to the connection.
type Event int

const (
	// EvStart is a Start call with a non-empty token.
	EvStart Event = iota
	// EvAuthMissing is a Start call without a token.
	EvAuthMissing
	// EvOpened is a completed handshake.
	EvOpened
	// EvMessage is an inbound text frame.
	EvMessage
	// EvTransportError is a failed dial or a broken socket.
	EvTransportError
	// EvClosed is an orderly closure by the peer.
	EvClosed
	// EvReconnectDue is the reconnect timer firing.
	EvReconnectDue
)

func (e Event) String() string {
	switch e {
	case EvStart:
		return "start"
	case EvAuthMissing:
		return "auth-missing"
	case EvOpened:
		return "opened"
	case EvMessage:
		return "message"
	case EvTransportError:
		return "transport-error"
	case EvClosed:
		return "closed"
	case EvReconnectDue:
		return "reconnect-due"
	default:
		return "unknown"
	}
}

// Effect is work the caller must perform after a transition, in order.
type Effect int

const (
	// EffDial opens a new connection.
	EffDial Effect = iota + 1
	// EffCloseConn releases the current connection.
	EffCloseConn
	// EffScheduleReconnect arms the reconnect timer unless one is pending.
	EffScheduleReconnect
	// EffAppendIncoming appends the inbound frame to the transcript.
	EffAppendIncoming
	// EffClearTyping clears the typing indicator.
	EffClearTyping
	// EffRefreshHistory re-fetches server history.
	EffRefreshHistory
)

func (e Effect) String() string {
	switch e {
	case EffDial:
		return "dial"
	case EffCloseConn:
		return "close-conn"
	case EffScheduleReconnect:
		return "schedule-reconnect"
	case EffAppendIncoming:
		return "append-incoming"
	case EffClearTyping:
		return "clear-typing"
	case EffRefreshHistory:
		return "refresh-history"
	default:
		return "unknown"
	}
}

// Transition is the connection state machine. It has no side effects: the
// returned effects describe what must happen next. Events that do not apply
// to the current state return the state unchanged and no effects.
func Transition(s ConnectionState, ev Event) (ConnectionState, []Effect) {
	switch ev {
	case EvStart:
		return StateConnecting, []Effect{EffDial}

	case EvAuthMissing:
		return StateDisconnected, nil

	case EvOpened:
		if s == StateConnecting {
			return StateConnected, []Effect{EffRefreshHistory}
		}

	case EvMessage:
		if s == StateConnected {
			return StateConnected, []Effect{EffAppendIncoming, EffClearTyping, EffRefreshHistory}
		}

	case EvTransportError:
		if s == StateConnecting || s == StateConnected {
			return StateError, []Effect{EffClearTyping, EffCloseConn, EffScheduleReconnect}
		}

	case EvClosed:
		return StateDisconnected, []Effect{EffClearTyping, EffCloseConn, EffScheduleReconnect}

	case EvReconnectDue:
		// Never skip Connecting on the way back, and never dial twice.
		if s == StateDisconnected || s == StateError {
			return StateConnecting, []Effect{EffDial}
		}
	}
	return s, nil
}
