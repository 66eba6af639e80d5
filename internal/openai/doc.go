// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package openai implements the client for the hosted LLM service.
//
// The client speaks four endpoint families: chat completions, the
// responses API, file upload, and vector stores. All calls are
// synchronous and are issued exactly once: failures are surfaced
// immediately to the caller and nothing is retried client-side.
//
// # Key Types
//
//   - Client: HTTP client for the remote API
//   - ChatRequest / ChatResponse: chat completions wire types
//   - ResponseRequest / Response: responses API wire types
//   - APIError: typed remote error with HTTP status
//
// # Usage
//
// Create a client and send a chat request:
//
//	client := openai.NewClient()
//	resp, err := client.Complete(ctx, apiKey, openai.ChatRequest{
//	    Messages: []openai.ChatMessage{openai.NewUserMessage("Hello")},
//	})
//
// # Security
//
// The API credential is passed per call and never stored on the client.
// Request logging records method and path only; credentials and request
// bodies are never logged.
package openai
