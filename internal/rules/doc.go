// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package rules holds the library rulebook text behind the rules-bot
// page and builds its grounded prompt.
//
// The rulebook is plain text loaded from a file. A background watcher
// reloads it when the file changes, so operators can edit the rulebook
// without restarting the server. The prompt template instructs the
// model to answer only from the rulebook and to fall back to a fixed
// Korean refusal when the answer is not in it.
//
// # Key Types
//
//   - Source: the current rulebook text, safe for concurrent use
//   - Watcher: debounced file watcher driving reloads
package rules
