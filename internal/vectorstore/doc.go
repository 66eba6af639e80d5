// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package vectorstore tracks the lifecycle of one remote document index.
//
// The lifecycle is an explicit finite-state machine:
//
//	Empty -> Creating -> Ready -> Deleting -> Empty
//
// Every failed transition returns the session to its prior stable state,
// so the machine can never get stuck: a failed create leaves Empty with
// no retained id, a failed delete leaves Ready with the id intact.
// At most one index id is held at a time, and ids are never reused
// across a destroy/create cycle (the remote service issues fresh ids).
//
// # Key Types
//
//   - IndexSession: the state machine
//   - Remote: the remote operations it drives (implemented over the
//     openai client; faked in tests)
package vectorstore
