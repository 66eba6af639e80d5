// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package pages

import (
	"context"
	"log"

	"github.com/jeranaias/labchat/internal/extract"
	"github.com/jeranaias/labchat/internal/openai"
	"github.com/jeranaias/labchat/internal/rules"
	"github.com/jeranaias/labchat/internal/session"
)

// RulesPage answers questions grounded in the library rulebook. The
// rulebook text is shared across sessions and may be hot-reloaded.
type RulesPage struct {
	client *openai.Client
	source *rules.Source
}

// NewRulesPage creates the rules-bot page.
func NewRulesPage(client *openai.Client, source *rules.Source) *RulesPage {
	return &RulesPage{client: client, source: source}
}

// Name returns the display name.
func (p *RulesPage) Name() string { return "Rules-bot" }

// Ask wraps the question in the grounded rulebook prompt and extracts
// the answer. Stateless per call; nothing is cached or logged to the
// conversation.
func (p *RulesPage) Ask(ctx context.Context, sess *session.Session, input string) (string, error) {
	question, err := normalizeInput(input)
	if err != nil {
		return "", err
	}
	apiKey, err := sess.Credential.Get()
	if err != nil {
		return "", err
	}

	resp, err := p.client.Respond(ctx, apiKey, openai.ResponseRequest{
		Input: p.source.BuildPrompt(question),
	})
	if err != nil {
		log.Printf("PAGE_ERROR | page=rules credential=%s err=%v", sess.Credential.Fingerprint(), err)
		return "", err
	}
	return extract.Extract(resp), nil
}
