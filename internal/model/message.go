// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for the chat transcript.
package model

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// SENDER / DIRECTION
// =============================================================================

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// String returns the string representation of the sender.
func (s Sender) String() string {
	return string(s)
}

// DisplayName returns a human-readable name for the sender.
func (s Sender) DisplayName() string {
	switch s {
	case SenderUser:
		return "You"
	case SenderAssistant:
		return "Cauris"
	default:
		return string(s)
	}
}

// Direction tells whether a message left or reached this client.
type Direction string

const (
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
)

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a single transcript entry. Messages are values: once created
// they are never modified, and the transcript only hands out copies.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Sender    Sender    `json:"sender"`
	Direction Direction `json:"direction"`

	// SentAt is the zero time for messages restored from history.
	SentAt time.Time `json:"sent_at,omitempty"`
}

// NewOutgoing creates a user message stamped with now.
func NewOutgoing(content string, now time.Time) Message {
	return Message{
		ID:        newID(),
		Content:   content,
		Sender:    SenderUser,
		Direction: DirectionOutgoing,
		SentAt:    now,
	}
}

// NewIncoming creates an assistant message stamped with now.
func NewIncoming(content string, now time.Time) Message {
	return Message{
		ID:        newID(),
		Content:   content,
		Sender:    SenderAssistant,
		Direction: DirectionIncoming,
		SentAt:    now,
	}
}

// HasTimestamp reports whether the message carries a send time.
func (m Message) HasTimestamp() bool {
	return !m.SentAt.IsZero()
}

// Clock returns the HH:MM label shown under a message, or "" when the
// message has no timestamp.
func (m Message) Clock() string {
	if !m.HasTimestamp() {
		return ""
	}
	return m.SentAt.Format("15:04")
}

func newID() string {
	return uuid.NewString()
}

// IsOutgoing returns true for messages typed by the user.
func (m Message) IsOutgoing() bool {
	return m.Direction == DirectionOutgoing
}
