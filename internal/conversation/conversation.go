// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation holds the ordered turn log for a chat session.
//
// The model behind the responses endpoint has no native multi-turn
// memory, so the whole log is flattened into one prompt string before
// each call. Speaker labels are fixed Korean display strings (사용자 for
// the user, 어시스턴트 for the assistant); they are part of the prompt
// contract and must stay stable.
package conversation

import (
	"strings"
	"sync"

	"github.com/jeranaias/labchat/internal/util"
)

// Speaker identifies who produced a turn.
type Speaker int

const (
	// SpeakerUser is the human side of the conversation.
	SpeakerUser Speaker = iota

	// SpeakerAssistant is the model side of the conversation.
	SpeakerAssistant
)

// Fixed display labels used when rendering the prompt.
const (
	LabelUser      = "사용자"
	LabelAssistant = "어시스턴트"
)

// String returns the role identifier ("user" or "assistant").
func (s Speaker) String() string {
	if s == SpeakerAssistant {
		return "assistant"
	}
	return "user"
}

// Label returns the fixed display label for the speaker.
func (s Speaker) Label() string {
	if s == SpeakerAssistant {
		return LabelAssistant
	}
	return LabelUser
}

// Turn is a single (speaker, text) entry in the log.
type Turn struct {
	Speaker Speaker
	Text    string
}

// =============================================================================
// CONVERSATION STATE
// =============================================================================

// State is an append-only, ordered log of conversation turns. Turns are
// never reordered or deleted except by Clear.
type State struct {
	mu    sync.Mutex
	turns []Turn
}

// NewState returns an empty conversation log.
func NewState() *State {
	return &State{}
}

// AppendUser appends a user turn.
func (s *State) AppendUser(text string) {
	s.append(Turn{Speaker: SpeakerUser, Text: text})
}

// AppendAssistant appends an assistant turn.
func (s *State) AppendAssistant(text string) {
	s.append(Turn{Speaker: SpeakerAssistant, Text: text})
}

func (s *State) append(t Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, t)
}

// Clear empties the turn log. Idempotent.
func (s *State) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = nil
}

// Len returns the number of turns.
func (s *State) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

// Turns returns a copy of the turn log in insertion order.
func (s *State) Turns() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Prompt renders the log as a single-shot prompt: one "<label>: <text>"
// line per turn in insertion order, followed by a trailing assistant cue
// with no newline. Pure; no side effects.
func (s *State) Prompt() string {
	return RenderPrompt(s.Turns())
}

// Preview returns the first user turn truncated for listings, or ""
// when the log holds no user turn.
func (s *State) Preview(maxRunes int) string {
	for _, t := range s.Turns() {
		if t.Speaker == SpeakerUser && t.Text != "" {
			return util.TruncateRunes(util.OneLine(t.Text), maxRunes)
		}
	}
	return ""
}

// RenderPrompt renders an arbitrary turn sequence the same way Prompt
// does. Used to preview a prompt including a not-yet-committed turn, so
// a failed remote call leaves the log untouched.
func RenderPrompt(turns []Turn) string {
	var sb strings.Builder
	for _, t := range turns {
		sb.WriteString(t.Speaker.Label())
		sb.WriteString(": ")
		sb.WriteString(t.Text)
		sb.WriteString("\n")
	}
	sb.WriteString(LabelAssistant)
	sb.WriteString(":")
	return sb.String()
}
