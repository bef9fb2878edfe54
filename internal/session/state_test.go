// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

var allStates = []ConnectionState{StateConnecting, StateConnected, StateError, StateDisconnected}

func TestTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    ConnectionState
		ev      Event
		want    ConnectionState
		effects []Effect
	}{
		{"start from fresh", StateConnecting, EvStart, StateConnecting, []Effect{EffDial}},
		{"start without token", StateConnecting, EvAuthMissing, StateDisconnected, nil},
		{"handshake", StateConnecting, EvOpened, StateConnected, []Effect{EffRefreshHistory}},
		{"open while connected ignored", StateConnected, EvOpened, StateConnected, nil},
		{"message", StateConnected, EvMessage, StateConnected,
			[]Effect{EffAppendIncoming, EffClearTyping, EffRefreshHistory}},
		{"message while connecting ignored", StateConnecting, EvMessage, StateConnecting, nil},
		{"dial failure", StateConnecting, EvTransportError, StateError,
			[]Effect{EffClearTyping, EffCloseConn, EffScheduleReconnect}},
		{"socket failure", StateConnected, EvTransportError, StateError,
			[]Effect{EffClearTyping, EffCloseConn, EffScheduleReconnect}},
		{"error while disconnected ignored", StateDisconnected, EvTransportError, StateDisconnected, nil},
		{"closed while connected", StateConnected, EvClosed, StateDisconnected,
			[]Effect{EffClearTyping, EffCloseConn, EffScheduleReconnect}},
		{"closed after error", StateError, EvClosed, StateDisconnected,
			[]Effect{EffClearTyping, EffCloseConn, EffScheduleReconnect}},
		{"reconnect from disconnected", StateDisconnected, EvReconnectDue, StateConnecting, []Effect{EffDial}},
		{"reconnect from error", StateError, EvReconnectDue, StateConnecting, []Effect{EffDial}},
		{"reconnect while connected is a no-op", StateConnected, EvReconnectDue, StateConnected, nil},
		{"reconnect while connecting is a no-op", StateConnecting, EvReconnectDue, StateConnecting, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, effects := Transition(tt.from, tt.ev)
			assert.Equal(t, tt.want, got)
			if diff := cmp.Diff(tt.effects, effects); diff != "" {
				t.Errorf("effects mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTransition_NeverSkipsConnecting(t *testing.T) {
	events := []Event{EvStart, EvAuthMissing, EvOpened, EvMessage, EvTransportError, EvClosed, EvReconnectDue}

	for _, from := range []ConnectionState{StateDisconnected, StateError} {
		for _, ev := range events {
			got, _ := Transition(from, ev)
			assert.NotEqual(t, StateConnected, got, "%s --%s--> must not reach connected directly", from, ev)
		}
	}
}

func TestTransition_DialOnlyFromStartOrReconnect(t *testing.T) {
	for _, from := range allStates {
		for _, ev := range []Event{EvAuthMissing, EvOpened, EvMessage, EvTransportError, EvClosed} {
			_, effects := Transition(from, ev)
			assert.NotContains(t, effects, EffDial, "%s --%s--> must not dial", from, ev)
		}
	}
}

func TestConnectionState_ZeroValueIsConnecting(t *testing.T) {
	var s ConnectionState
	assert.Equal(t, StateConnecting, s)
	assert.Equal(t, "connecting", s.String())
	assert.Equal(t, "disconnected", StateDisconnected.String())
}
