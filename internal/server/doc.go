// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server exposes the page operations over an HTTP API.
//
// Clients create a session, then drive the four pages against it. The
// API credential travels in the X-Api-Key header and is held only in
// the session; it never appears in logs or storage. The session id
// travels in X-Session-Id.
//
// # Endpoints
//
//	POST   /v1/sessions                create a session
//	DELETE /v1/sessions/{id}           close a session
//	POST   /v1/pages/{selector}        ask a page (qa, chat, rules, docqa)
//	POST   /v1/pages/docqa/upload      upload a PDF (multipart "document")
//	POST   /v1/pages/docqa/destroy     destroy the document index
//	POST   /v1/pages/chat/clear        reset the conversation log
//	POST   /v1/transcripts             save the current conversation
//	GET    /v1/transcripts[?q=...]     list or search transcripts
//	GET    /v1/transcripts/{id}        load one transcript
//	DELETE /v1/transcripts/{id}        delete one transcript
//	GET    /health                     liveness probe
//	GET    /stats                      uptime, request and cache counters
//
// # Security
//
// The middleware chain applies panic recovery, request logging (method,
// path, and status only), security headers, per-IP rate limiting for
// inbound protection, and request body size caps.
package server
