// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package extract

import (
	"strings"
	"testing"

	"github.com/jeranaias/labchat/internal/openai"
)

func parse(t *testing.T, payload string) *openai.Response {
	t.Helper()
	resp, err := openai.ParseResponse([]byte(payload))
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	return resp
}

func TestExtract_FlattenedFieldWinsOverNestedPath(t *testing.T) {
	resp := parse(t, `{
		"output_text": "flattened",
		"output": [{"content": [{"text": "nested"}]}]
	}`)

	if got := Extract(resp); got != "flattened" {
		t.Errorf("Extract = %q, want the flattened field", got)
	}
}

func TestExtract_NestedPath(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{
			"text as plain string",
			`{"output": [{"content": [{"text": "plain answer"}]}]}`,
			"plain answer",
		},
		{
			"text carrying nested value",
			`{"output": [{"content": [{"text": {"value": "value answer"}}]}]}`,
			"value answer",
		},
		{
			"text object without value is stringified",
			`{"output": [{"content": [{"text": {"annotations": []}}]}]}`,
			`{"annotations":[]}`,
		},
		{
			"later items ignored",
			`{"output": [
				{"content": [{"text": "first"}]},
				{"content": [{"text": "second"}]}
			]}`,
			"first",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(parse(t, tt.payload))
			if got != tt.want {
				t.Errorf("Extract = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtract_Total(t *testing.T) {
	// For any input, including an empty object, Extract returns a
	// non-empty string.
	payloads := []string{
		`{}`,
		`{"output": []}`,
		`{"output": [{"content": []}]}`,
		`{"output": [{"content": [{"type": "refusal"}]}]}`,
		`{"output_text": "   "}`,
		`null`,
	}

	for _, payload := range payloads {
		got := Extract(parse(t, payload))
		if got == "" {
			t.Errorf("Extract(%s) returned empty string", payload)
		}
		if !strings.HasPrefix(got, FailureNotice) {
			t.Errorf("Extract(%s) = %q, want diagnostic fallback", payload, got)
		}
		if !strings.Contains(got, payload) && payload != `null` {
			t.Errorf("Extract(%s) = %q, want stringified payload included", payload, got)
		}
	}

	if got := Extract(nil); got == "" || !strings.HasPrefix(got, FailureNotice) {
		t.Errorf("Extract(nil) = %q, want diagnostic fallback", got)
	}
}
