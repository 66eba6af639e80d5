// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package rules

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// DefaultRules is the placeholder rulebook used when no file is
// configured. Operators are expected to replace it with the real text.
const DefaultRules = `여기에 국립부경대학교 도서관 규정을 복사하여 붙여넣으세요.
예: 휴관일, 대출 권수, 연장, 연체료, 열람실 이용 규칙 등...`

// promptTemplate grounds the model in the rulebook. The quoted refusal
// string is part of the bot's contract and must not change.
const promptTemplate = `너는 국립부경대학교 도서관 규정 안내 챗봇이다.
아래 [규정집] 내용을 바탕으로만 답변하고, 내용이 없으면 "규정집에 없는 내용입니다" 라고 답해라.

[규정집]
%s

[질문]
%s`

// =============================================================================
// RULEBOOK SOURCE
// =============================================================================

// Source holds the current rulebook text. Reads and reloads may happen
// concurrently.
type Source struct {
	mu   sync.RWMutex
	path string
	text string
}

// NewSource creates a source seeded with the default rulebook. When
// path is non-empty, Load reads the rulebook from it.
func NewSource(path string) *Source {
	return &Source{
		path: path,
		text: DefaultRules,
	}
}

// Path returns the configured rulebook file path, or "".
func (s *Source) Path() string {
	return s.path
}

// Load reads the rulebook file and replaces the current text. A missing
// or empty file keeps the previous text so a bad edit never blanks the
// bot mid-flight.
func (s *Source) Load() error {
	if s.path == "" {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read rulebook: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return fmt.Errorf("rulebook file %s is empty", s.path)
	}

	s.mu.Lock()
	s.text = text
	s.mu.Unlock()
	return nil
}

// Text returns the current rulebook text.
func (s *Source) Text() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.text
}

// SetText replaces the rulebook text directly. Used by tests and by
// deployments that inline the rulebook in config.
func (s *Source) SetText(text string) {
	s.mu.Lock()
	s.text = text
	s.mu.Unlock()
}

// BuildPrompt renders the grounded rules-bot prompt for a question.
func (s *Source) BuildPrompt(question string) string {
	return fmt.Sprintf(promptTemplate, s.Text(), question)
}
