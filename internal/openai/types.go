// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package openai

import (
	"encoding/json"
	"fmt"
)

// =============================================================================
// CHAT COMPLETIONS
// =============================================================================

// ChatMessage represents a single message in a chat completions request.
type ChatMessage struct {
	Role    string `json:"role"`    // "user", "assistant", or "system"
	Content string `json:"content"` // The message content
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) ChatMessage {
	return ChatMessage{Role: "user", Content: content}
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(content string) ChatMessage {
	return ChatMessage{Role: "assistant", Content: content}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) ChatMessage {
	return ChatMessage{Role: "system", Content: content}
}

// ChatRequest represents a request to the chat completions endpoint.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// ChatResponse represents a response from the chat completions endpoint.
type ChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message      ChatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// GetContent returns the content of the first choice, or empty string if none.
func (r *ChatResponse) GetContent() string {
	if len(r.Choices) > 0 {
		return r.Choices[0].Message.Content
	}
	return ""
}

// =============================================================================
// RESPONSES API
// =============================================================================

// Tool configures a built-in tool for a responses API request.
// Only file_search is used here, scoped to vector store IDs.
type Tool struct {
	Type           string   `json:"type"`
	VectorStoreIDs []string `json:"vector_store_ids,omitempty"`
}

// NewFileSearchTool returns a file_search tool scoped to the given
// vector store IDs.
func NewFileSearchTool(storeIDs ...string) Tool {
	return Tool{Type: "file_search", VectorStoreIDs: storeIDs}
}

// ResponseRequest represents a request to the responses endpoint.
// Input is a single flattened prompt string.
type ResponseRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
	Tools []Tool `json:"tools,omitempty"`
}

// Response represents a responses-API payload. The schema is externally
// versioned and loosely typed, so only the fields needed for answer
// extraction are modelled; the original bytes are retained for
// diagnostic stringification.
type Response struct {
	ID         string       `json:"id"`
	Model      string       `json:"model"`
	OutputText string       `json:"output_text"`
	Output     []OutputItem `json:"output"`

	raw []byte
}

// OutputItem is one element of a response's output sequence.
type OutputItem struct {
	Type    string        `json:"type"`
	Content []ContentItem `json:"content"`
}

// ContentItem is one element of an output item's content sequence.
type ContentItem struct {
	Type string    `json:"type"`
	Text TextValue `json:"text"`
}

// ParseResponse decodes a raw responses-API payload, retaining the
// original bytes for Raw.
func ParseResponse(data []byte) (*Response, error) {
	var r Response
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	r.raw = append([]byte(nil), data...)
	return &r, nil
}

// Raw returns the original payload bytes the response was decoded from.
func (r *Response) Raw() []byte {
	return r.raw
}

// =============================================================================
// TEXT VALUE UNION
// =============================================================================

// TextValue models the loosely-typed "text" field of a content item.
// Across API versions it has appeared both as a plain JSON string and as
// an object carrying a nested "value" field; both forms are accepted and
// anything else is kept raw for stringification.
type TextValue struct {
	raw      json.RawMessage
	str      string
	isString bool
	value    json.RawMessage
	hasValue bool
}

// UnmarshalJSON implements the union decoding. It never fails: unknown
// shapes are retained raw.
func (t *TextValue) UnmarshalJSON(data []byte) error {
	t.raw = append([]byte(nil), data...)
	t.isString = false
	t.hasValue = false

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		t.str = s
		t.isString = true
		return nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err == nil {
		if v, ok := obj["value"]; ok {
			t.value = v
			t.hasValue = true
		}
	}
	return nil
}

// MarshalJSON round-trips the original wire form.
func (t TextValue) MarshalJSON() ([]byte, error) {
	if len(t.raw) == 0 {
		return []byte("null"), nil
	}
	return t.raw, nil
}

// IsZero reports whether the field was absent from the payload.
func (t TextValue) IsZero() bool {
	return len(t.raw) == 0
}

// Resolve returns the text carried by the field: the nested "value" when
// present, otherwise the plain string form, otherwise the stringified
// raw field.
func (t TextValue) Resolve() string {
	if t.hasValue {
		var s string
		if err := json.Unmarshal(t.value, &s); err == nil {
			return s
		}
		return string(t.value)
	}
	if t.isString {
		return t.str
	}
	return string(t.raw)
}

// =============================================================================
// FILES AND VECTOR STORES
// =============================================================================

// FileObject represents an uploaded file on the remote store.
type FileObject struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Purpose  string `json:"purpose"`
	Bytes    int64  `json:"bytes"`
}

// VectorStore represents a remote document index.
type VectorStore struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// apiErrorResponse represents an error response from the API.
type apiErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
