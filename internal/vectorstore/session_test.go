// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeRemote scripts per-step failures and records the call order.
type fakeRemote struct {
	calls []string

	uploadErr error
	createErr error
	attachErr error
	deleteErr error
	queryErr  error

	nextStoreNum int
}

func (f *fakeRemote) UploadFile(ctx context.Context, apiKey, filename string, data []byte) (string, error) {
	f.calls = append(f.calls, "upload")
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return "file-1", nil
}

func (f *fakeRemote) CreateStore(ctx context.Context, apiKey, name string) (string, error) {
	f.calls = append(f.calls, "create")
	if f.createErr != nil {
		return "", f.createErr
	}
	f.nextStoreNum++
	return fmt.Sprintf("vs-%d", f.nextStoreNum), nil
}

func (f *fakeRemote) AttachFile(ctx context.Context, apiKey, storeID, fileID string) error {
	f.calls = append(f.calls, "attach")
	return f.attachErr
}

func (f *fakeRemote) DeleteStore(ctx context.Context, apiKey, storeID string) error {
	f.calls = append(f.calls, "delete "+storeID)
	return f.deleteErr
}

func (f *fakeRemote) QueryStore(ctx context.Context, apiKey, storeID, question string) (string, error) {
	f.calls = append(f.calls, "query "+storeID)
	if f.queryErr != nil {
		return "", f.queryErr
	}
	return "answer", nil
}

func TestCreateFromDocument_HappyPath(t *testing.T) {
	remote := &fakeRemote{}
	s := NewIndexSession(remote, "test index")

	err := s.CreateFromDocument(context.Background(), "sk-key", "doc.pdf", []byte("data"))
	require.NoError(t, err)
	require.Equal(t, StateReady, s.State())
	require.Equal(t, "vs-1", s.StoreID())
	require.Equal(t, []string{"upload", "create", "attach"}, remote.calls)
}

func TestCreateFromDocument_UploadFailure(t *testing.T) {
	remote := &fakeRemote{uploadErr: errors.New("network down")}
	s := NewIndexSession(remote, "")

	err := s.CreateFromDocument(context.Background(), "sk-key", "doc.pdf", []byte("data"))
	require.Error(t, err)
	require.Equal(t, StateEmpty, s.State())
	require.Empty(t, s.StoreID())
	require.Equal(t, []string{"upload"}, remote.calls, "later steps must not run")
}

func TestCreateFromDocument_AttachFailure(t *testing.T) {
	remote := &fakeRemote{attachErr: errors.New("attach refused")}
	s := NewIndexSession(remote, "")

	err := s.CreateFromDocument(context.Background(), "sk-key", "doc.pdf", []byte("data"))
	require.Error(t, err)
	require.Equal(t, StateEmpty, s.State(), "attach failure returns to Empty")
	require.Empty(t, s.StoreID(), "no partial id may be retained")
}

func TestCreateFromDocument_WhileReady(t *testing.T) {
	remote := &fakeRemote{}
	s := NewIndexSession(remote, "")
	require.NoError(t, s.CreateFromDocument(context.Background(), "sk-key", "a.pdf", nil))

	err := s.CreateFromDocument(context.Background(), "sk-key", "b.pdf", nil)
	require.ErrorIs(t, err, ErrIndexActive)
	require.Equal(t, StateReady, s.State())
	require.Equal(t, "vs-1", s.StoreID(), "active index is untouched")
	require.NotContains(t, remote.calls, "delete vs-1", "old index is never auto-destroyed")
}

func TestQuery(t *testing.T) {
	remote := &fakeRemote{}
	s := NewIndexSession(remote, "")

	_, err := s.Query(context.Background(), "sk-key", "question")
	require.ErrorIs(t, err, ErrNoIndex)

	require.NoError(t, s.CreateFromDocument(context.Background(), "sk-key", "doc.pdf", nil))
	answer, err := s.Query(context.Background(), "sk-key", "question")
	require.NoError(t, err)
	require.Equal(t, "answer", answer)
	require.Contains(t, remote.calls, "query vs-1", "query must be scoped to the held id")
}

func TestQuery_FailureKeepsReady(t *testing.T) {
	remote := &fakeRemote{}
	s := NewIndexSession(remote, "")
	require.NoError(t, s.CreateFromDocument(context.Background(), "sk-key", "doc.pdf", nil))

	remote.queryErr = errors.New("rate limited")
	_, err := s.Query(context.Background(), "sk-key", "question")
	require.Error(t, err)
	require.Equal(t, StateReady, s.State(), "query failure must not change state")

	remote.queryErr = nil
	_, err = s.Query(context.Background(), "sk-key", "question")
	require.NoError(t, err)
}

func TestDestroy(t *testing.T) {
	remote := &fakeRemote{}
	s := NewIndexSession(remote, "")

	err := s.Destroy(context.Background(), "sk-key")
	require.ErrorIs(t, err, ErrNoIndex)

	require.NoError(t, s.CreateFromDocument(context.Background(), "sk-key", "doc.pdf", nil))
	require.NoError(t, s.Destroy(context.Background(), "sk-key"))
	require.Equal(t, StateEmpty, s.State())
	require.Empty(t, s.StoreID())
	require.Contains(t, remote.calls, "delete vs-1")
}

func TestDestroy_FailureKeepsIndex(t *testing.T) {
	remote := &fakeRemote{deleteErr: errors.New("service unavailable")}
	s := NewIndexSession(remote, "")
	require.NoError(t, s.CreateFromDocument(context.Background(), "sk-key", "doc.pdf", nil))

	err := s.Destroy(context.Background(), "sk-key")
	require.Error(t, err)
	require.Equal(t, StateReady, s.State(), "failed delete leaves the index usable")
	require.Equal(t, "vs-1", s.StoreID())

	// Queries still work against the retained id.
	answer, err := s.Query(context.Background(), "sk-key", "question")
	require.NoError(t, err)
	require.Equal(t, "answer", answer)

	// A retried destroy succeeds once the remote recovers.
	remote.deleteErr = nil
	require.NoError(t, s.Destroy(context.Background(), "sk-key"))
	require.Equal(t, StateEmpty, s.State())
}

func TestDestroyCreateCycle_FreshID(t *testing.T) {
	remote := &fakeRemote{}
	s := NewIndexSession(remote, "")

	require.NoError(t, s.CreateFromDocument(context.Background(), "sk-key", "a.pdf", nil))
	first := s.StoreID()
	require.NoError(t, s.Destroy(context.Background(), "sk-key"))
	require.NoError(t, s.CreateFromDocument(context.Background(), "sk-key", "b.pdf", nil))

	require.NotEqual(t, first, s.StoreID(), "ids must not be reused across cycles")
}
