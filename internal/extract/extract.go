// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package extract pulls a displayable answer string out of a
// responses-API payload.
//
// The remote schema is externally versioned and loosely typed, so
// extraction is a defensive three-tier fallback chain. Tier order is the
// contract: the flattened field is preferred, then the nested path, then
// a diagnostic stringification of the whole payload. Extract is total:
// it always returns a non-empty string and never fails.
package extract

import (
	"strings"

	"github.com/jeranaias/labchat/internal/openai"
)

// Diagnostic strings for the tier-3 fallback. These match the display
// language of the rest of the product (Korean).
const (
	// FailureNotice is the human-readable notice prepended when no
	// answer could be extracted.
	FailureNotice = "응답을 읽어오는 데 실패했어요."

	// rawPrefix labels the stringified payload that follows the notice.
	rawPrefix = "원본 응답: "
)

// Extract returns the answer text carried by resp.
//
// Rules are tried in order; the first non-empty result wins:
//  1. the flattened output_text field;
//  2. output[0].content[0].text, resolving a nested "value" when the
//     text field carries one, stringifying otherwise;
//  3. the failure notice plus the stringified raw payload.
func Extract(resp *openai.Response) string {
	if resp == nil {
		return FailureNotice + "\n" + rawPrefix + "null"
	}

	// Tier 1: flattened field.
	if strings.TrimSpace(resp.OutputText) != "" {
		return resp.OutputText
	}

	// Tier 2: first output item, first content item, text field.
	if answer := nestedText(resp); strings.TrimSpace(answer) != "" {
		return answer
	}

	// Tier 3: diagnostic stringification. Guarantees the caller always
	// receives a displayable string.
	raw := string(resp.Raw())
	if raw == "" {
		raw = "null"
	}
	return FailureNotice + "\n" + rawPrefix + raw
}

// nestedText walks output -> content -> text one step at a time,
// returning "" as soon as any step is absent or empty.
func nestedText(resp *openai.Response) string {
	if len(resp.Output) == 0 {
		return ""
	}
	content := resp.Output[0].Content
	if len(content) == 0 {
		return ""
	}
	text := content[0].Text
	if text.IsZero() {
		return ""
	}
	return text.Resolve()
}
