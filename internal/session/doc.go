// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session ties one client's per-session state together: the
// API credential, the answer cache, the conversation log, and the
// document index lifecycle.
//
// Sessions are created through a Registry, which also expires idle
// sessions. The credential lives only in session memory; it is never
// persisted and never appears in logs.
//
// # Key Types
//
//   - Session: one client's state
//   - Registry: concurrent session map with idle expiry
package session
