// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package pages implements the four page operations and the router
// that selects between them.
//
// Pages share one contract: Ask(ctx, session, input) returns the
// answer text or an error. Guards run before any remote call, in
// order: blank input, then missing credential. A guard failure has no
// side effects on session state. Inbound text is NFC-normalized at
// this boundary so cache keys and prompts are stable across input
// methods.
//
// Selectors:
//
//	qa     Q&A with per-session answer caching
//	chat   multi-turn chat over a flattened prompt
//	rules  library rules bot grounded in the rulebook
//	docqa  document Q&A against the session's index
package pages
