// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/labchat/internal/conversation"
	"github.com/jeranaias/labchat/internal/util"
)

// ErrTranscriptNotFound indicates no transcript exists for the id.
var ErrTranscriptNotFound = errors.New("transcript not found")

// previewRunes bounds the preview column stored with each transcript.
const previewRunes = 80

// schema holds the transcript tables. Turns cascade with their
// transcript.
const schema = `
CREATE TABLE IF NOT EXISTS transcripts (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	title      TEXT NOT NULL,
	saved_at   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS turns (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	transcript_id INTEGER NOT NULL REFERENCES transcripts(id) ON DELETE CASCADE,
	position      INTEGER NOT NULL,
	speaker       TEXT NOT NULL,
	text          TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_turns_transcript ON turns(transcript_id, position);
CREATE INDEX IF NOT EXISTS idx_transcripts_session ON transcripts(session_id);
`

// Transcript is a saved conversation snapshot.
type Transcript struct {
	ID        int64
	SessionID string
	Title     string
	SavedAt   time.Time
	Turns     []StoredTurn
}

// StoredTurn is one saved turn.
type StoredTurn struct {
	Speaker string
	Text    string
}

// =============================================================================
// STORE
// =============================================================================

// Store is a SQLite-backed transcript store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the transcript database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open transcript database: %w", err)
	}

	// SQLite supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save snapshots a conversation log under a session id and returns the
// transcript id. The title is the first user turn, truncated.
func (s *Store) Save(sessionID string, turns []conversation.Turn) (int64, error) {
	title := "(empty)"
	for _, t := range turns {
		if t.Speaker == conversation.SpeakerUser && t.Text != "" {
			title = util.TruncateRunes(util.OneLine(t.Text), previewRunes)
			break
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		"INSERT INTO transcripts (session_id, title, saved_at) VALUES (?, ?, ?)",
		sessionID, title, time.Now().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert transcript: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for i, t := range turns {
		if _, err := tx.Exec(
			"INSERT INTO turns (transcript_id, position, speaker, text) VALUES (?, ?, ?, ?)",
			id, i, t.Speaker.String(), t.Text,
		); err != nil {
			return 0, fmt.Errorf("insert turn: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// List returns transcript headers, newest first, without turns.
func (s *Store) List() ([]Transcript, error) {
	rows, err := s.db.Query(
		"SELECT id, session_id, title, saved_at FROM transcripts ORDER BY saved_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTranscripts(rows)
}

// Load returns one transcript with its turns in order.
func (s *Store) Load(id int64) (*Transcript, error) {
	var t Transcript
	var savedAt int64
	err := s.db.QueryRow(
		"SELECT id, session_id, title, saved_at FROM transcripts WHERE id = ?", id,
	).Scan(&t.ID, &t.SessionID, &t.Title, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTranscriptNotFound
	}
	if err != nil {
		return nil, err
	}
	t.SavedAt = time.Unix(savedAt, 0)

	rows, err := s.db.Query(
		"SELECT speaker, text FROM turns WHERE transcript_id = ? ORDER BY position", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var turn StoredTurn
		if err := rows.Scan(&turn.Speaker, &turn.Text); err != nil {
			return nil, err
		}
		t.Turns = append(t.Turns, turn)
	}
	return &t, rows.Err()
}

// Search returns headers of transcripts whose title or any turn text
// contains the query, newest first.
func (s *Store) Search(query string) ([]Transcript, error) {
	pattern := "%" + query + "%"
	rows, err := s.db.Query(`
		SELECT DISTINCT tr.id, tr.session_id, tr.title, tr.saved_at
		FROM transcripts tr
		LEFT JOIN turns tu ON tu.transcript_id = tr.id
		WHERE tr.title LIKE ? OR tu.text LIKE ?
		ORDER BY tr.saved_at DESC, tr.id DESC`,
		pattern, pattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTranscripts(rows)
}

// Delete removes a transcript and its turns.
func (s *Store) Delete(id int64) error {
	res, err := s.db.Exec("DELETE FROM transcripts WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTranscriptNotFound
	}
	return nil
}

func scanTranscripts(rows *sql.Rows) ([]Transcript, error) {
	var out []Transcript
	for rows.Next() {
		var t Transcript
		var savedAt int64
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Title, &savedAt); err != nil {
			return nil, err
		}
		t.SavedAt = time.Unix(savedAt, 0)
		out = append(out, t)
	}
	return out, rows.Err()
}
