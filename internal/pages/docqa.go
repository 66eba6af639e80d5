// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package pages

import (
	"context"
	"errors"
	"log"
	"path/filepath"
	"strings"

	"github.com/jeranaias/labchat/internal/session"
)

var (
	// ErrNotPDF indicates an upload whose filename is not a .pdf.
	ErrNotPDF = errors.New("only PDF documents are accepted")

	// ErrEmptyDocument indicates an upload with no content.
	ErrEmptyDocument = errors.New("document is empty")
)

// DocQAPage answers questions against the session's uploaded document.
// Upload, query, and destroy drive the session's index lifecycle; all
// lifecycle rules (one index at a time, explicit destroy) are enforced
// by the index session itself.
type DocQAPage struct{}

// NewDocQAPage creates the document-Q&A page.
func NewDocQAPage() *DocQAPage {
	return &DocQAPage{}
}

// Name returns the display name.
func (p *DocQAPage) Name() string { return "Document-Q&A" }

// Ask queries the session's document index.
func (p *DocQAPage) Ask(ctx context.Context, sess *session.Session, input string) (string, error) {
	question, err := normalizeInput(input)
	if err != nil {
		return "", err
	}
	apiKey, err := sess.Credential.Get()
	if err != nil {
		return "", err
	}
	answer, err := sess.Index.Query(ctx, apiKey, question)
	if err != nil {
		log.Printf("PAGE_ERROR | page=docqa credential=%s err=%v", sess.Credential.Fingerprint(), err)
		return "", err
	}
	return answer, nil
}

// Upload builds a fresh index from a PDF document. Rejected before any
// remote call when the filename is not a .pdf, the data is empty, or
// the credential is missing.
func (p *DocQAPage) Upload(ctx context.Context, sess *session.Session, filename string, data []byte) error {
	if strings.ToLower(filepath.Ext(filename)) != ".pdf" {
		return ErrNotPDF
	}
	if len(data) == 0 {
		return ErrEmptyDocument
	}
	apiKey, err := sess.Credential.Get()
	if err != nil {
		return err
	}
	return sess.Index.CreateFromDocument(ctx, apiKey, filename, data)
}

// Destroy deletes the session's document index.
func (p *DocQAPage) Destroy(ctx context.Context, sess *session.Session) error {
	apiKey, err := sess.Credential.Get()
	if err != nil {
		return err
	}
	return sess.Index.Destroy(ctx, apiKey)
}
