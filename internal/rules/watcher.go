// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package rules

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// RULEBOOK WATCHER
// =============================================================================

// Watcher reloads the rulebook when its file changes. Events are
// debounced so an editor's save sequence (truncate, write, rename)
// triggers one reload, not several.
type Watcher struct {
	src      *Source
	watcher  *fsnotify.Watcher
	debounce time.Duration
	mu       sync.Mutex
	pending  time.Time
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewWatcher creates a watcher for the source's rulebook file.
func NewWatcher(src *Source, debounce time.Duration) (*Watcher, error) {
	if src.Path() == "" {
		return nil, fmt.Errorf("rules source has no file path to watch")
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		src:      src,
		watcher:  fw,
		debounce: debounce,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Watch starts watching for rulebook changes. Editors typically replace
// the file rather than writing in place, so the parent directory is
// watched and events are filtered by name.
func (w *Watcher) Watch() error {
	dir := filepath.Dir(w.src.Path())
	if err := w.watcher.Add(dir); err != nil {
		return err
	}
	go w.processEvents()
	go w.processPending()
	return nil
}

func (w *Watcher) processEvents() {
	target := filepath.Clean(w.src.Path())
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.mu.Lock()
				w.pending = time.Now()
				w.mu.Unlock()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("RULES_WATCH_ERROR | %v", err)
		}
	}
}

func (w *Watcher) processPending() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case <-ticker.C:
			w.mu.Lock()
			due := !w.pending.IsZero() && time.Since(w.pending) >= w.debounce
			if due {
				w.pending = time.Time{}
			}
			w.mu.Unlock()

			if due {
				if err := w.src.Load(); err != nil {
					// Previous text stays in effect.
					log.Printf("RULES_RELOAD_FAILED | %v", err)
				} else {
					log.Printf("RULES_RELOADED | path=%s", w.src.Path())
				}
			}
		}
	}
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	w.cancel()
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}
