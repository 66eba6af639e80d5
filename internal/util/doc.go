// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small string helpers shared across labchat.
//
// The helpers here are rune-aware: user text in labchat is frequently
// Korean, and byte-based truncation would corrupt multi-byte UTF-8
// sequences in previews and log lines.
package util
