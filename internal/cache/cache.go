// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cache memoizes answers keyed by (credential, question) pairs.
//
// A cache hit returns the previously computed answer without invoking
// the compute function. Failed computations are never cached. The
// default cache is unbounded: it grows for the process lifetime, which
// is only correct for session-scoped, bounded-cardinality usage. Use
// NewBounded for an LRU-evicting variant.
//
// The credential is never stored in clear; entries are keyed by its
// sha256 fingerprint.
package cache

import (
	"sync"

	"github.com/jeranaias/labchat/internal/credential"
)

// ComputeFunc produces an answer for a (credential, question) pair.
// It is invoked only on a cache miss.
type ComputeFunc func(credentialValue, question string) (string, error)

// key identifies a cache entry. The credential component is the sha256
// fingerprint, not the raw value.
type key struct {
	credFingerprint string
	question        string
}

// Stats holds cache statistics.
type Stats struct {
	Hits    int
	Misses  int
	Entries int
	HitRate float64
}

// =============================================================================
// ANSWER CACHE
// =============================================================================

// AnswerCache memoizes answers for exact (credential, question) pairs.
type AnswerCache struct {
	mu         sync.Mutex
	entries    map[key]string
	maxEntries int // 0 = unbounded

	// accessOrder tracks LRU order for bounded caches. Unused when
	// maxEntries is 0.
	accessOrder []key

	hits   int
	misses int
}

// New creates an unbounded AnswerCache.
func New() *AnswerCache {
	return &AnswerCache{
		entries: make(map[key]string),
	}
}

// NewBounded creates an AnswerCache that evicts the least recently used
// entry once maxEntries is exceeded. maxEntries values below 1 fall back
// to an unbounded cache.
func NewBounded(maxEntries int) *AnswerCache {
	if maxEntries < 1 {
		return New()
	}
	return &AnswerCache{
		entries:     make(map[key]string),
		maxEntries:  maxEntries,
		accessOrder: make([]key, 0, maxEntries),
	}
}

// GetOrCompute returns the cached answer for the exact (credential,
// question) pair, or invokes compute and stores its result. On compute
// failure nothing is cached and the error propagates unchanged.
func (c *AnswerCache) GetOrCompute(credentialValue, question string, compute ComputeFunc) (string, error) {
	k := key{
		credFingerprint: credential.Fingerprint(credentialValue),
		question:        question,
	}

	c.mu.Lock()
	if answer, ok := c.entries[k]; ok {
		c.hits++
		c.touchLocked(k)
		c.mu.Unlock()
		return answer, nil
	}
	c.misses++
	c.mu.Unlock()

	// Compute outside the lock. The per-session flow is sequential, so
	// duplicate computation of the same key is not a concern here.
	answer, err := compute(credentialValue, question)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.storeLocked(k, answer)
	c.mu.Unlock()
	return answer, nil
}

// Len returns the number of cached entries.
func (c *AnswerCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear removes all entries.
func (c *AnswerCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[key]string)
	c.accessOrder = c.accessOrder[:0]
}

// GetStats returns a snapshot of cache statistics.
func (c *AnswerCache) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	hitRate := 0.0
	if total := c.hits + c.misses; total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}
	return Stats{
		Hits:    c.hits,
		Misses:  c.misses,
		Entries: len(c.entries),
		HitRate: hitRate,
	}
}

// storeLocked inserts an entry, evicting the least recently used entry
// first when the cache is bounded and full (must hold lock).
func (c *AnswerCache) storeLocked(k key, answer string) {
	if c.maxEntries > 0 {
		if _, exists := c.entries[k]; !exists {
			for len(c.entries) >= c.maxEntries && len(c.accessOrder) > 0 {
				oldest := c.accessOrder[0]
				c.accessOrder = c.accessOrder[1:]
				delete(c.entries, oldest)
			}
		}
	}
	c.entries[k] = answer
	c.touchLocked(k)
}

// touchLocked moves k to the most-recently-used position (must hold lock).
func (c *AnswerCache) touchLocked(k key) {
	if c.maxEntries == 0 {
		return
	}
	for i, existing := range c.accessOrder {
		if existing == k {
			c.accessOrder = append(c.accessOrder[:i], c.accessOrder[i+1:]...)
			break
		}
	}
	c.accessOrder = append(c.accessOrder, k)
}
