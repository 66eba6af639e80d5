// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists chat transcripts in SQLite.
//
// Saving a transcript snapshots a session's conversation log; the
// in-memory log stays authoritative and is never read back into a live
// session. The store is a supplement for review and search, not part
// of the conversation semantics.
//
// # Key Types
//
//   - Store: the SQLite-backed transcript store
//   - Transcript / StoredTurn: saved rows
//
// # Security
//
// Credentials are never written to storage. Transcripts carry only the
// session id and turn text.
package storage
