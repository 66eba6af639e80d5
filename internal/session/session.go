// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/labchat/internal/cache"
	"github.com/jeranaias/labchat/internal/conversation"
	"github.com/jeranaias/labchat/internal/credential"
	"github.com/jeranaias/labchat/internal/vectorstore"
)

// DefaultIdleTimeout is how long a session may sit idle before the
// sweeper removes it.
const DefaultIdleTimeout = 30 * time.Minute

// ErrNotFound indicates no session exists for the given id.
var ErrNotFound = errors.New("session not found")

// =============================================================================
// SESSION
// =============================================================================

// Session is one client's state. All fields are individually safe for
// concurrent use.
type Session struct {
	ID           string
	Credential   *credential.Holder
	Cache        *cache.AnswerCache
	Conversation *conversation.State
	Index        *vectorstore.IndexSession
	CreatedAt    time.Time

	mu           sync.Mutex
	lastActivity time.Time
}

// Touch records activity, deferring idle expiry.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// LastActivity returns the time of the most recent activity.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Expired reports whether the session has been idle longer than the
// timeout.
func (s *Session) Expired(timeout time.Duration) bool {
	return time.Since(s.LastActivity()) > timeout
}

// Close discards the session's local state. The remote index is left
// alone: destroying it is an explicit page operation, never a side
// effect of the session going away. The credential is cleared
// unconditionally.
func (s *Session) Close(ctx context.Context) {
	if id := s.Index.StoreID(); id != "" {
		log.Printf("SESSION_CLOSE | id=%s orphaned_index=%s", s.ID, id)
	}
	s.Credential.Clear()
	s.Conversation.Clear()
	s.Cache.Clear()
}

// =============================================================================
// REGISTRY
// =============================================================================

// Registry is a concurrent session map with idle expiry.
type Registry struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	remote      vectorstore.Remote
	cacheMax    int
	idleTimeout time.Duration
}

// NewRegistry creates a registry. cacheMax bounds each session's answer
// cache (0 means unbounded). A non-positive idleTimeout uses the
// default.
func NewRegistry(remote vectorstore.Remote, cacheMax int, idleTimeout time.Duration) *Registry {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	return &Registry{
		sessions:    make(map[string]*Session),
		remote:      remote,
		cacheMax:    cacheMax,
		idleTimeout: idleTimeout,
	}
}

// Create allocates a fresh session and returns it.
func (r *Registry) Create() *Session {
	s := &Session{
		ID:           uuid.NewString(),
		Credential:   credential.NewHolder(),
		Conversation: conversation.NewState(),
		Index:        vectorstore.NewIndexSession(r.remote, ""),
		CreatedAt:    time.Now(),
		lastActivity: time.Now(),
	}
	if r.cacheMax > 0 {
		s.Cache = cache.NewBounded(r.cacheMax)
	} else {
		s.Cache = cache.New()
	}

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()

	log.Printf("SESSION_CREATED | id=%s", s.ID)
	return s
}

// Get returns the session for an id and refreshes its activity time.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	s.Touch()
	return s, nil
}

// Delete closes and removes a session. Removing an unknown id is a
// no-op.
func (r *Registry) Delete(ctx context.Context, id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok {
		s.Close(ctx)
		log.Printf("SESSION_DELETED | id=%s", id)
	}
}

// Sessions returns a snapshot of live sessions.
func (r *Registry) Sessions() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep closes and removes idle sessions, returning how many were
// removed.
func (r *Registry) Sweep(ctx context.Context) int {
	r.mu.Lock()
	var expired []*Session
	for id, s := range r.sessions {
		if s.Expired(r.idleTimeout) {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		s.Close(ctx)
		log.Printf("SESSION_EXPIRED | id=%s idle_since=%s", s.ID, s.LastActivity().Format(time.RFC3339))
	}
	return len(expired)
}

// StartSweeper runs Sweep on the given interval until ctx is cancelled.
func (r *Registry) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Sweep(ctx)
			}
		}
	}()
}
