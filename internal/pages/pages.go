// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package pages

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/labchat/internal/session"
)

// Page selectors.
const (
	SelectorQA    = "qa"
	SelectorChat  = "chat"
	SelectorRules = "rules"
	SelectorDocQA = "docqa"
)

var (
	// ErrEmptyInput indicates the input was blank after trimming.
	ErrEmptyInput = errors.New("input is empty")

	// ErrUnknownPage indicates an unrecognized page selector.
	ErrUnknownPage = errors.New("unknown page")
)

// Page is one of the four page operations.
type Page interface {
	// Name returns the page's display name.
	Name() string

	// Ask runs the page operation for one input and returns the answer.
	Ask(ctx context.Context, sess *session.Session, input string) (string, error)
}

// normalizeInput NFC-normalizes and trims inbound text. Korean input
// arrives in mixed normalization forms depending on the client OS;
// normalizing here keeps cache keys and prompts stable.
func normalizeInput(input string) (string, error) {
	cleaned := strings.TrimSpace(norm.NFC.String(input))
	if cleaned == "" {
		return "", ErrEmptyInput
	}
	return cleaned, nil
}

// =============================================================================
// ROUTER
// =============================================================================

// Router maps selectors to pages.
type Router struct {
	pages map[string]Page
}

// NewRouter builds a router over a fixed page set.
func NewRouter(qa, chat, rules, docqa Page) *Router {
	return &Router{
		pages: map[string]Page{
			SelectorQA:    qa,
			SelectorChat:  chat,
			SelectorRules: rules,
			SelectorDocQA: docqa,
		},
	}
}

// Dispatch returns the page for a selector.
func (r *Router) Dispatch(selector string) (Page, error) {
	p, ok := r.pages[selector]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPage, selector)
	}
	return p, nil
}

// Selectors returns the known selector values.
func (r *Router) Selectors() []string {
	return []string{SelectorQA, SelectorChat, SelectorRules, SelectorDocQA}
}
