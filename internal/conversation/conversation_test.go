// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import "testing"

func TestPrompt_ExactRendering(t *testing.T) {
	s := NewState()
	s.AppendUser("Hi")
	s.AppendAssistant("Hello")

	want := "사용자: Hi\n어시스턴트: Hello\n어시스턴트:"
	if got := s.Prompt(); got != want {
		t.Errorf("Prompt = %q, want %q", got, want)
	}
}

func TestPrompt_EmptyLog(t *testing.T) {
	s := NewState()

	want := "어시스턴트:"
	if got := s.Prompt(); got != want {
		t.Errorf("Prompt on empty log = %q, want %q", got, want)
	}
}

func TestPrompt_Deterministic(t *testing.T) {
	s := NewState()
	s.AppendUser("one")
	s.AppendAssistant("two")
	s.AppendUser("three")

	first := s.Prompt()
	second := s.Prompt()
	if first != second {
		t.Error("Prompt must be a pure function of the turn log")
	}
	if s.Len() != 3 {
		t.Errorf("Prompt mutated the log: Len = %d", s.Len())
	}
}

func TestClear_Idempotent(t *testing.T) {
	s := NewState()
	s.AppendUser("Hi")
	s.AppendAssistant("Hello")

	s.Clear()
	if s.Len() != 0 {
		t.Errorf("Len after Clear = %d", s.Len())
	}
	if got := s.Prompt(); got != "어시스턴트:" {
		t.Errorf("Prompt after Clear = %q", got)
	}

	s.Clear()
	if s.Len() != 0 {
		t.Error("second Clear changed state")
	}
}

func TestTurns_ReturnsCopy(t *testing.T) {
	s := NewState()
	s.AppendUser("original")

	turns := s.Turns()
	turns[0].Text = "mutated"

	if got := s.Turns()[0].Text; got != "original" {
		t.Errorf("internal log mutated through Turns copy: %q", got)
	}
}

func TestRenderPrompt_UncommittedTurn(t *testing.T) {
	s := NewState()
	s.AppendUser("Hi")
	s.AppendAssistant("Hello")

	preview := RenderPrompt(append(s.Turns(), Turn{Speaker: SpeakerUser, Text: "Again"}))
	want := "사용자: Hi\n어시스턴트: Hello\n사용자: Again\n어시스턴트:"
	if preview != want {
		t.Errorf("RenderPrompt = %q, want %q", preview, want)
	}
	if s.Len() != 2 {
		t.Errorf("preview must not commit the turn: Len = %d", s.Len())
	}
}

func TestPreview(t *testing.T) {
	s := NewState()
	if got := s.Preview(10); got != "" {
		t.Errorf("Preview on empty log = %q", got)
	}

	s.AppendUser("질문이 아주 길어서 잘려야 합니다")
	got := s.Preview(8)
	if got == "" || len([]rune(got)) > 8 {
		t.Errorf("Preview = %q, want at most 8 runes", got)
	}
}
