// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/jeranaias/labchat/internal/conversation"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "transcripts.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleTurns() []conversation.Turn {
	return []conversation.Turn{
		{Speaker: conversation.SpeakerUser, Text: "도서관은 몇 시에 열어요?"},
		{Speaker: conversation.SpeakerAssistant, Text: "오전 9시에 엽니다."},
	}
}

func TestSaveAndLoad(t *testing.T) {
	s := openTestStore(t)

	id, err := s.Save("session-1", sampleTurns())
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load(id)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.SessionID != "session-1" {
		t.Errorf("SessionID = %q", got.SessionID)
	}
	if got.Title != "도서관은 몇 시에 열어요?" {
		t.Errorf("Title = %q", got.Title)
	}
	if len(got.Turns) != 2 {
		t.Fatalf("turn count = %d", len(got.Turns))
	}
	if got.Turns[0].Speaker != "user" || got.Turns[1].Speaker != "assistant" {
		t.Errorf("speakers = %q, %q", got.Turns[0].Speaker, got.Turns[1].Speaker)
	}
	if got.Turns[1].Text != "오전 9시에 엽니다." {
		t.Errorf("turn text = %q", got.Turns[1].Text)
	}
}

func TestSave_EmptyLog(t *testing.T) {
	s := openTestStore(t)

	id, err := s.Save("session-1", nil)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load(id)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Title != "(empty)" {
		t.Errorf("Title = %q", got.Title)
	}
	if len(got.Turns) != 0 {
		t.Errorf("turn count = %d", len(got.Turns))
	}
}

func TestList_NewestFirst(t *testing.T) {
	s := openTestStore(t)

	first, _ := s.Save("session-1", sampleTurns())
	second, _ := s.Save("session-2", sampleTurns())

	list, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d", len(list))
	}
	if list[0].ID != second || list[1].ID != first {
		t.Errorf("order = %d, %d; want %d, %d", list[0].ID, list[1].ID, second, first)
	}
	if len(list[0].Turns) != 0 {
		t.Error("List must not hydrate turns")
	}
}

func TestSearch(t *testing.T) {
	s := openTestStore(t)

	match, _ := s.Save("session-1", []conversation.Turn{
		{Speaker: conversation.SpeakerUser, Text: "연체료가 얼마인가요?"},
	})
	_, _ = s.Save("session-2", []conversation.Turn{
		{Speaker: conversation.SpeakerUser, Text: "주차장 위치"},
	})

	hits, err := s.Search("연체료")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != match {
		t.Errorf("hits = %+v", hits)
	}

	none, err := s.Search("반납기한")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("unexpected hits = %+v", none)
	}
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)

	id, _ := s.Save("session-1", sampleTurns())
	if err := s.Delete(id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Load(id); !errors.Is(err, ErrTranscriptNotFound) {
		t.Errorf("Load after delete err = %v", err)
	}
	if err := s.Delete(id); !errors.Is(err, ErrTranscriptNotFound) {
		t.Errorf("second Delete err = %v", err)
	}
}
