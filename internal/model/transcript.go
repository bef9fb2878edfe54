// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"
)

// ArtifactPrefix is the marker the realtime endpoint puts in front of every
// assistant frame. It is never shown to the user.
const ArtifactPrefix = " : "

// Welcome texts seeded into a fresh transcript.
const (
	WelcomeText = "Bonjour ! Je suis Cauris AI, votre assistant académique intelligent. " +
		"Comment puis-je vous accompagner dans vos travaux aujourd'hui ?"
	ResetText = "Discussion réinitialisée. Comment puis-je vous aider ?"
)

// =============================================================================
// TRANSCRIPT
// =============================================================================

// Transcript is the ordered, user-visible record of a session. Messages are
// only ever appended; the sequence is replaced wholesale by Reset and
// LoadFromHistoryEntry. Transcript is not safe for concurrent use; the
// session controller owns it from a single goroutine.
type Transcript struct {
	messages []Message
	typing   bool
	now      func() time.Time
}

// NewTranscript returns a transcript seeded with the welcome message.
func NewTranscript() *Transcript {
	return NewTranscriptWithClock(time.Now)
}

// NewTranscriptWithClock is NewTranscript with an injectable time source.
func NewTranscriptWithClock(now func() time.Time) *Transcript {
	if now == nil {
		now = time.Now
	}
	t := &Transcript{now: now}
	t.messages = []Message{NewIncoming(WelcomeText, now())}
	return t
}

// AppendOutgoing records a message typed by the user.
func (t *Transcript) AppendOutgoing(text string) Message {
	msg := NewOutgoing(text, t.now())
	t.messages = append(t.messages, msg)
	return msg
}

// AppendIncoming records an assistant frame, stripping the protocol prefix.
func (t *Transcript) AppendIncoming(text string) Message {
	msg := NewIncoming(StripArtifact(text), t.now())
	t.messages = append(t.messages, msg)
	return msg
}

// Reset starts a new conversation: the transcript becomes a single
// synthetic welcome message and the typing flag is cleared.
func (t *Transcript) Reset() {
	t.messages = []Message{NewIncoming(ResetText, t.now())}
	t.typing = false
}

// LoadFromHistoryEntry substitutes the view with a past exchange: the
// original first message, then the question and the answer, both without
// timestamps.
func (t *Transcript) LoadFromHistoryEntry(e HistoryEntry) {
	welcome := t.first()
	t.messages = []Message{
		welcome,
		{ID: newID(), Content: e.Question, Sender: SenderUser, Direction: DirectionOutgoing},
		{ID: newID(), Content: e.Answer, Sender: SenderAssistant, Direction: DirectionIncoming},
	}
}

func (t *Transcript) first() Message {
	if len(t.messages) == 0 {
		return NewIncoming(WelcomeText, t.now())
	}
	return t.messages[0]
}

// Messages returns a copy of the sequence in render order.
func (t *Transcript) Messages() []Message {
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	return len(t.messages)
}

// Last returns the most recent message.
func (t *Transcript) Last() (Message, bool) {
	if len(t.messages) == 0 {
		return Message{}, false
	}
	return t.messages[len(t.messages)-1], true
}

// Typing reports whether an outgoing message is waiting for a reply.
func (t *Transcript) Typing() bool {
	return t.typing
}

// SetTyping sets the typing flag.
func (t *Transcript) SetTyping(v bool) {
	t.typing = v
}

// StripArtifact removes one leading ArtifactPrefix, if present.
func StripArtifact(text string) string {
	return strings.TrimPrefix(text, ArtifactPrefix)
}
