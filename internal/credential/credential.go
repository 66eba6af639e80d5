// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package credential holds the per-session API credential.
//
// The credential is opaque: it is set from user input on each request,
// lives only as long as the session, and is never persisted or logged.
// Log output uses Fingerprint or Masked instead of key material.
package credential

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrMissingCredential indicates no API credential has been supplied.
// Callers must check for this before issuing any remote call.
var ErrMissingCredential = errors.New("API credential not set")

// =============================================================================
// CREDENTIAL HOLDER
// =============================================================================

// Holder stores a single API credential for the lifetime of a session.
// No validation is performed beyond "non-empty".
type Holder struct {
	mu    sync.RWMutex
	value string
}

// NewHolder returns an empty Holder.
func NewHolder() *Holder {
	return &Holder{}
}

// Set replaces the held credential. Leading and trailing whitespace is
// trimmed; setting an empty string clears the holder.
func (h *Holder) Set(value string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.value = strings.TrimSpace(value)
}

// Get returns the held credential, or ErrMissingCredential if none is set.
func (h *Holder) Get() (string, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.value == "" {
		return "", ErrMissingCredential
	}
	return h.value, nil
}

// IsSet reports whether a non-empty credential is held.
func (h *Holder) IsSet() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.value != ""
}

// Clear discards the held credential.
func (h *Holder) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.value = ""
}

// Masked returns a display form of the credential that exposes no key
// fragments, only the length and a sha256 fingerprint.
func (h *Holder) Masked() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.value == "" {
		return "[not set]"
	}
	return fmt.Sprintf("[REDACTED, length=%d, fingerprint=%s]", len(h.value), fingerprint(h.value))
}

// Fingerprint returns a short sha256-based identifier for the credential,
// suitable for log correlation. Returns "none" when no credential is held.
func (h *Holder) Fingerprint() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.value == "" {
		return "none"
	}
	return fingerprint(h.value)
}

// Fingerprint returns the short sha256 fingerprint of an arbitrary
// credential string. Used by the answer cache to key entries without
// storing the credential in clear.
func Fingerprint(value string) string {
	if value == "" {
		return "none"
	}
	return fingerprint(value)
}

// fingerprint hashes the value and returns the first 8 hex characters.
func fingerprint(value string) string {
	h := sha256.Sum256([]byte(value))
	return hex.EncodeToString(h[:4])
}
