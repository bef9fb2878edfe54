// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() func() time.Time {
	t0 := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return t0.Add(time.Duration(n) * time.Second)
	}
}

// ignoreIDs drops generated IDs from transcript comparisons.
var ignoreIDs = cmpopts.IgnoreFields(Message{}, "ID", "SentAt")

// =============================================================================
// APPEND TESTS
// =============================================================================

func TestTranscript_NewHasWelcome(t *testing.T) {
	tr := NewTranscriptWithClock(fixedClock())

	msgs := tr.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, WelcomeText, msgs[0].Content)
	assert.Equal(t, SenderAssistant, msgs[0].Sender)
	assert.Equal(t, DirectionIncoming, msgs[0].Direction)
	assert.True(t, msgs[0].HasTimestamp())
	assert.False(t, tr.Typing())
}

func TestTranscript_PreservesCallOrder(t *testing.T) {
	tr := NewTranscriptWithClock(fixedClock())

	calls := []struct {
		outgoing bool
		text     string
	}{
		{true, "one"}, {false, " : two"}, {false, "three"},
		{true, "four"}, {true, "five"}, {false, " : six"},
	}
	want := []Message{{Content: WelcomeText, Sender: SenderAssistant, Direction: DirectionIncoming}}
	for _, c := range calls {
		if c.outgoing {
			tr.AppendOutgoing(c.text)
			want = append(want, Message{Content: c.text, Sender: SenderUser, Direction: DirectionOutgoing})
		} else {
			tr.AppendIncoming(c.text)
			want = append(want, Message{Content: StripArtifact(c.text), Sender: SenderAssistant, Direction: DirectionIncoming})
		}
	}

	if diff := cmp.Diff(want, tr.Messages(), ignoreIDs); diff != "" {
		t.Errorf("transcript order mismatch (-want +got):\n%s", diff)
	}
}

func TestTranscript_NoDeduplication(t *testing.T) {
	tr := NewTranscriptWithClock(fixedClock())
	tr.AppendOutgoing("same")
	tr.AppendOutgoing("same")
	tr.AppendIncoming("same")

	assert.Equal(t, 4, tr.Len())
}

func TestTranscript_MessagesReturnsCopy(t *testing.T) {
	tr := NewTranscriptWithClock(fixedClock())
	tr.AppendOutgoing("hello")

	msgs := tr.Messages()
	msgs[1].Content = "tampered"

	last, ok := tr.Last()
	require.True(t, ok)
	assert.Equal(t, "hello", last.Content)
}

func TestStripArtifact(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"prefixed", " : Salut", "Salut"},
		{"no prefix", "Salut", "Salut"},
		{"only first occurrence", " :  : Salut", " : Salut"},
		{"prefix not at start", "Salut : toi", "Salut : toi"},
		{"empty", "", ""},
		{"bare prefix", " : ", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StripArtifact(tc.in))
		})
	}
}

// =============================================================================
// RESET / HISTORY TESTS
// =============================================================================

func TestTranscript_Reset(t *testing.T) {
	tr := NewTranscriptWithClock(fixedClock())
	tr.AppendOutgoing("question")
	tr.SetTyping(true)

	tr.Reset()

	msgs := tr.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, ResetText, msgs[0].Content)
	assert.Equal(t, DirectionIncoming, msgs[0].Direction)
	assert.Equal(t, SenderAssistant, msgs[0].Sender)
	assert.True(t, msgs[0].HasTimestamp())
	assert.False(t, tr.Typing())
}

func TestTranscript_LoadFromHistoryEntry(t *testing.T) {
	tr := NewTranscriptWithClock(fixedClock())
	welcome := tr.Messages()[0]
	tr.AppendOutgoing("live question")
	tr.AppendIncoming(" : live answer")

	tr.LoadFromHistoryEntry(HistoryEntry{Question: "Qu'est-ce qu'un graphe ?", Answer: "Un ensemble de sommets."})

	msgs := tr.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, welcome, msgs[0])

	assert.Equal(t, "Qu'est-ce qu'un graphe ?", msgs[1].Content)
	assert.Equal(t, DirectionOutgoing, msgs[1].Direction)
	assert.False(t, msgs[1].HasTimestamp())

	assert.Equal(t, "Un ensemble de sommets.", msgs[2].Content)
	assert.Equal(t, DirectionIncoming, msgs[2].Direction)
	assert.Equal(t, "", msgs[2].Clock())
}

func TestTranscript_LoadKeepsWelcomeAcrossLoads(t *testing.T) {
	tr := NewTranscriptWithClock(fixedClock())
	tr.Reset()
	first := tr.Messages()[0]

	tr.LoadFromHistoryEntry(HistoryEntry{Question: "a", Answer: "b"})
	tr.LoadFromHistoryEntry(HistoryEntry{Question: "c", Answer: "d"})

	msgs := tr.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, first, msgs[0])
	assert.Equal(t, "c", msgs[1].Content)
}

func TestMostRecentFirst(t *testing.T) {
	in := []HistoryEntry{{Question: "1"}, {Question: "2"}, {Question: "3"}}

	got := MostRecentFirst(in)

	assert.Equal(t, []HistoryEntry{{Question: "3"}, {Question: "2"}, {Question: "1"}}, got)
	assert.Equal(t, "1", in[0].Question, "input must not be modified")
	assert.Empty(t, MostRecentFirst(nil))
}
