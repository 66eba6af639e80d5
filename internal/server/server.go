// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/jeranaias/labchat/internal/credential"
	"github.com/jeranaias/labchat/internal/openai"
	"github.com/jeranaias/labchat/internal/pages"
	"github.com/jeranaias/labchat/internal/session"
	"github.com/jeranaias/labchat/internal/storage"
	"github.com/jeranaias/labchat/internal/vectorstore"
)

// Config holds server tunables.
type Config struct {
	RateLimitPerSec float64
	RateLimitBurst  int
	MaxBodyBytes    int64
	MaxUploadBytes  int64
}

// DefaultConfig returns server defaults.
func DefaultConfig() Config {
	return Config{
		RateLimitPerSec: 10,
		RateLimitBurst:  20,
		MaxBodyBytes:    1 << 20,
		MaxUploadBytes:  50 << 20,
	}
}

// Server exposes the page operations over HTTP.
type Server struct {
	registry *session.Registry
	router   *pages.Router
	chat     *pages.ChatPage
	docqa    *pages.DocQAPage
	store    *storage.Store
	cfg      Config

	startTime time.Time
	requests  atomic.Int64
}

// New creates a server. store may be nil; transcript endpoints then
// return 503.
func New(registry *session.Registry, router *pages.Router, chat *pages.ChatPage, docqa *pages.DocQAPage, store *storage.Store, cfg Config) *Server {
	return &Server{
		registry:  registry,
		router:    router,
		chat:      chat,
		docqa:     docqa,
		store:     store,
		cfg:       cfg,
		startTime: time.Now(),
	}
}

// Handler returns the full HTTP handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/sessions", s.handleCreateSession)
	mux.HandleFunc("DELETE /v1/sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("POST /v1/pages/{selector}", s.handleAsk)
	mux.HandleFunc("POST /v1/pages/docqa/upload", s.handleUpload)
	mux.HandleFunc("POST /v1/pages/docqa/destroy", s.handleDestroy)
	mux.HandleFunc("POST /v1/pages/chat/clear", s.handleChatClear)
	mux.HandleFunc("POST /v1/transcripts", s.handleSaveTranscript)
	mux.HandleFunc("GET /v1/transcripts", s.handleListTranscripts)
	mux.HandleFunc("GET /v1/transcripts/{id}", s.handleLoadTranscript)
	mux.HandleFunc("DELETE /v1/transcripts/{id}", s.handleDeleteTranscript)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /stats", s.handleStats)

	chain := Chain(
		RecoveryMiddleware(),
		LoggingMiddleware(log.Default()),
		SecurityHeadersMiddleware(),
		RateLimitMiddleware(NewRateLimiter(s.cfg.RateLimitPerSec, s.cfg.RateLimitBurst)),
		s.countRequests,
	)
	return chain(mux)
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		next.ServeHTTP(w, r)
	})
}

// ============================================================================
// Request / Response Shapes
// ============================================================================

type askRequest struct {
	Input string `json:"input"`
}

type askResponse struct {
	Answer string `json:"answer"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response body with the given status.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("HTTP_WRITE_ERROR | %v", err)
	}
}

// writeError maps domain errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, pages.ErrEmptyInput),
		errors.Is(err, pages.ErrUnknownPage),
		errors.Is(err, pages.ErrNotPDF),
		errors.Is(err, pages.ErrEmptyDocument):
		status = http.StatusBadRequest
	case errors.Is(err, credential.ErrMissingCredential):
		status = http.StatusUnauthorized
	case errors.Is(err, session.ErrNotFound),
		errors.Is(err, storage.ErrTranscriptNotFound):
		status = http.StatusNotFound
	case errors.Is(err, vectorstore.ErrIndexActive),
		errors.Is(err, vectorstore.ErrNoIndex),
		errors.Is(err, vectorstore.ErrInvalidState):
		status = http.StatusConflict
	case errors.Is(err, openai.ErrAuthFailed),
		errors.Is(err, openai.ErrRateLimited),
		errors.Is(err, openai.ErrNotFound),
		isAPIError(err):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func isAPIError(err error) bool {
	var apiErr *openai.APIError
	return errors.As(err, &apiErr)
}

// session resolves the session from the X-Session-Id header and applies
// an X-Api-Key header, when present, to the session credential.
func (s *Server) session(r *http.Request) (*session.Session, error) {
	id := r.Header.Get("X-Session-Id")
	if id == "" {
		return nil, fmt.Errorf("%w: missing X-Session-Id header", session.ErrNotFound)
	}
	sess, err := s.registry.Get(id)
	if err != nil {
		return nil, err
	}
	if key := r.Header.Get("X-Api-Key"); key != "" {
		sess.Credential.Set(key)
	}
	return sess, nil
}

// ============================================================================
// Session Handlers
// ============================================================================

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.registry.Create()
	writeJSON(w, http.StatusCreated, map[string]string{"session_id": sess.ID})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	s.registry.Delete(r.Context(), r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

// ============================================================================
// Page Handlers
// ============================================================================

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	page, err := s.router.Dispatch(r.PathValue("selector"))
	if err != nil {
		writeError(w, err)
		return
	}
	sess, err := s.session(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req askRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	answer, err := page.Ask(r.Context(), sess, req.Input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, askResponse{Answer: answer})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		writeError(w, fmt.Errorf("%w: %v", pages.ErrEmptyDocument, err))
		return
	}
	file, header, err := r.FormFile("document")
	if err != nil {
		writeError(w, fmt.Errorf("%w: missing document field", pages.ErrEmptyDocument))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes))
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.docqa.Upload(r.Context(), sess, header.Filename, data); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"store_id": sess.Index.StoreID(),
		"filename": header.Filename,
	})
}

func (s *Server) handleDestroy(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.docqa.Destroy(r.Context(), sess); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleChatClear(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		writeError(w, err)
		return
	}
	s.chat.Clear(sess)
	w.WriteHeader(http.StatusNoContent)
}

// ============================================================================
// Transcript Handlers
// ============================================================================

func (s *Server) transcriptStore(w http.ResponseWriter) (*storage.Store, bool) {
	if s.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "transcript storage is not configured"})
		return nil, false
	}
	return s.store, true
}

func (s *Server) handleSaveTranscript(w http.ResponseWriter, r *http.Request) {
	store, ok := s.transcriptStore(w)
	if !ok {
		return
	}
	sess, err := s.session(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := store.Save(sess.ID, sess.Conversation.Turns())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"transcript_id": id})
}

func (s *Server) handleListTranscripts(w http.ResponseWriter, r *http.Request) {
	store, ok := s.transcriptStore(w)
	if !ok {
		return
	}
	var (
		list []storage.Transcript
		err  error
	)
	if q := r.URL.Query().Get("q"); q != "" {
		list, err = store.Search(q)
	} else {
		list, err = store.List()
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transcripts": list})
}

func (s *Server) handleLoadTranscript(w http.ResponseWriter, r *http.Request) {
	store, ok := s.transcriptStore(w)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, storage.ErrTranscriptNotFound)
		return
	}
	t, err := store.Load(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTranscript(w http.ResponseWriter, r *http.Request) {
	store, ok := s.transcriptStore(w)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, storage.ErrTranscriptNotFound)
		return
	}
	if err := store.Delete(id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ============================================================================
// Health and Stats
// ============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	var hits, misses int
	for _, sess := range s.registry.Sessions() {
		st := sess.Cache.GetStats()
		hits += st.Hits
		misses += st.Misses
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"uptime":       formatUptime(time.Since(s.startTime)),
		"requests":     s.requests.Load(),
		"sessions":     s.registry.Len(),
		"cache_hits":   hits,
		"cache_misses": misses,
	})
}

// decodeJSON decodes a JSON body, enforcing the configured size cap.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed request body", pages.ErrEmptyInput)
	}
	return nil
}

// ============================================================================
// Lifecycle
// ============================================================================

// ListenAndServe runs the server until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           MaxBodyMiddleware(s.cfg.MaxUploadBytes)(s.Handler()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("SERVER_START | addr=%s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
