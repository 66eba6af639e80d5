// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
)

// State identifies where the index session is in its lifecycle.
type State int

const (
	// StateEmpty means no index exists and none is being created.
	StateEmpty State = iota

	// StateCreating means an upload/create/attach sequence is running.
	StateCreating

	// StateReady means an index id is held and queries are valid.
	StateReady

	// StateDeleting means remote deletion is in flight.
	StateDeleting
)

// String returns the state name for logs and errors.
func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateCreating:
		return "creating"
	case StateReady:
		return "ready"
	case StateDeleting:
		return "deleting"
	default:
		return "unknown"
	}
}

// Error variables for invalid lifecycle transitions.
var (
	// ErrInvalidState indicates an operation was attempted from a state
	// that does not permit it.
	ErrInvalidState = errors.New("operation not valid in current index state")

	// ErrIndexActive indicates a create was attempted while an index is
	// already held. The caller must destroy the active index first; the
	// old index is never auto-destroyed.
	ErrIndexActive = errors.New("a document index is already active")

	// ErrNoIndex indicates a query or destroy was attempted with no
	// index held.
	ErrNoIndex = errors.New("no document index is active")
)

// Remote is the set of remote operations the session drives. All
// operations are synchronous and may fail; none are retried.
type Remote interface {
	// UploadFile uploads document bytes and returns an opaque file id.
	UploadFile(ctx context.Context, apiKey, filename string, data []byte) (string, error)

	// CreateStore creates an empty index and returns its opaque id.
	CreateStore(ctx context.Context, apiKey, name string) (string, error)

	// AttachFile attaches an uploaded file to an index.
	AttachFile(ctx context.Context, apiKey, storeID, fileID string) error

	// DeleteStore requests deletion of an index.
	DeleteStore(ctx context.Context, apiKey, storeID string) error

	// QueryStore issues a retrieval-augmented call scoped to an index
	// and returns the extracted answer text.
	QueryStore(ctx context.Context, apiKey, storeID, question string) (string, error)
}

// =============================================================================
// INDEX SESSION
// =============================================================================

// IndexSession owns at most one remote document index at a time.
type IndexSession struct {
	mu      sync.Mutex
	state   State
	storeID string
	fileID  string
	remote  Remote
	name    string
}

// NewIndexSession creates an empty session backed by the given remote.
func NewIndexSession(remote Remote, name string) *IndexSession {
	if name == "" {
		name = "labchat document index"
	}
	return &IndexSession{
		state:  StateEmpty,
		remote: remote,
		name:   name,
	}
}

// State returns the current lifecycle state.
func (s *IndexSession) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// StoreID returns the held index id, or "" when none is held.
func (s *IndexSession) StoreID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storeID
}

// CreateFromDocument uploads the document, creates a new empty index,
// and attaches the uploaded file to it. Valid only from Empty. Any step
// failing leaves the session Empty with no retained id.
func (s *IndexSession) CreateFromDocument(ctx context.Context, apiKey, filename string, data []byte) error {
	s.mu.Lock()
	switch s.state {
	case StateEmpty:
		// proceed
	case StateReady:
		s.mu.Unlock()
		return fmt.Errorf("%w: destroy it before uploading a new document", ErrIndexActive)
	default:
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: cannot create while %s", ErrInvalidState, state)
	}
	s.state = StateCreating
	s.mu.Unlock()

	storeID, fileID, err := s.createRemote(ctx, apiKey, filename, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		// No partial id is retained on failure.
		s.state = StateEmpty
		s.storeID = ""
		s.fileID = ""
		return err
	}
	s.state = StateReady
	s.storeID = storeID
	s.fileID = fileID
	log.Printf("INDEX_READY | store=%s", storeID)
	return nil
}

// createRemote runs the three remote steps in order.
func (s *IndexSession) createRemote(ctx context.Context, apiKey, filename string, data []byte) (storeID, fileID string, err error) {
	fileID, err = s.remote.UploadFile(ctx, apiKey, filename, data)
	if err != nil {
		return "", "", fmt.Errorf("upload document: %w", err)
	}
	storeID, err = s.remote.CreateStore(ctx, apiKey, s.name)
	if err != nil {
		return "", "", fmt.Errorf("create index: %w", err)
	}
	if err = s.remote.AttachFile(ctx, apiKey, storeID, fileID); err != nil {
		return "", "", fmt.Errorf("attach document: %w", err)
	}
	return storeID, fileID, nil
}

// Query issues a retrieval-augmented call scoped to the held index.
// Valid only from Ready. Failure keeps the session Ready so the caller
// may retry.
func (s *IndexSession) Query(ctx context.Context, apiKey, question string) (string, error) {
	s.mu.Lock()
	if s.state != StateReady {
		state := s.state
		s.mu.Unlock()
		if state == StateEmpty {
			return "", ErrNoIndex
		}
		return "", fmt.Errorf("%w: cannot query while %s", ErrInvalidState, state)
	}
	storeID := s.storeID
	s.mu.Unlock()

	return s.remote.QueryStore(ctx, apiKey, storeID, question)
}

// Destroy requests deletion of the remote index. Valid only from Ready.
// On failure the session stays Ready and the id is retained, since the
// deletion did not happen.
func (s *IndexSession) Destroy(ctx context.Context, apiKey string) error {
	s.mu.Lock()
	if s.state != StateReady {
		state := s.state
		s.mu.Unlock()
		if state == StateEmpty {
			return ErrNoIndex
		}
		return fmt.Errorf("%w: cannot destroy while %s", ErrInvalidState, state)
	}
	storeID := s.storeID
	s.state = StateDeleting
	s.mu.Unlock()

	err := s.remote.DeleteStore(ctx, apiKey, storeID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateReady
		return fmt.Errorf("delete index: %w", err)
	}
	log.Printf("INDEX_DELETED | store=%s", storeID)
	s.state = StateEmpty
	s.storeID = ""
	s.fileID = ""
	return nil
}
