// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import "testing"

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxRunes int
		want     string
	}{
		{"shorter than max", "hello", 10, "hello"},
		{"exact length", "hello", 5, "hello"},
		{"truncated with ellipsis", "hello world", 8, "hello..."},
		{"korean text", "안녕하세요 반갑습니다", 7, "안녕하세..."},
		{"zero max", "hello", 0, ""},
		{"tiny max", "hello", 2, "he"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateRunes(tt.input, tt.maxRunes)
			if got != tt.want {
				t.Errorf("TruncateRunes(%q, %d) = %q, want %q", tt.input, tt.maxRunes, got, tt.want)
			}
		})
	}
}

func TestTruncateRunesNoEllipsis(t *testing.T) {
	if got := TruncateRunesNoEllipsis("안녕하세요", 3); got != "안녕하" {
		t.Errorf("got %q, want %q", got, "안녕하")
	}
	if got := TruncateRunesNoEllipsis("abc", 5); got != "abc" {
		t.Errorf("got %q, want %q", got, "abc")
	}
}

func TestOneLine(t *testing.T) {
	if got := OneLine("a\r\nb\nc"); got != "a b c" {
		t.Errorf("got %q, want %q", got, "a b c")
	}
}
