// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package pages

import (
	"context"
	"log"

	"github.com/jeranaias/labchat/internal/openai"
	"github.com/jeranaias/labchat/internal/session"
)

// qaSystemPrompt frames the single-shot Q&A call.
const qaSystemPrompt = "You are a helpful assistant."

// QAPage answers one-off questions through the chat-completions
// endpoint, with identical (credential, question) pairs served from the
// session's answer cache.
type QAPage struct {
	client *openai.Client
}

// NewQAPage creates the Q&A page.
func NewQAPage(client *openai.Client) *QAPage {
	return &QAPage{client: client}
}

// Name returns the display name.
func (p *QAPage) Name() string { return "Q&A" }

// Ask answers the question, consulting the cache first. A cache hit
// returns without any remote call; a remote failure caches nothing.
func (p *QAPage) Ask(ctx context.Context, sess *session.Session, input string) (string, error) {
	question, err := normalizeInput(input)
	if err != nil {
		return "", err
	}
	apiKey, err := sess.Credential.Get()
	if err != nil {
		return "", err
	}

	return sess.Cache.GetOrCompute(apiKey, question, func(cred, q string) (string, error) {
		resp, err := p.client.Complete(ctx, cred, openai.ChatRequest{
			Messages: []openai.ChatMessage{
				openai.NewSystemMessage(qaSystemPrompt),
				openai.NewUserMessage(q),
			},
		})
		if err != nil {
			log.Printf("PAGE_ERROR | page=qa credential=%s err=%v", sess.Credential.Fingerprint(), err)
			return "", err
		}
		return resp.GetContent(), nil
	})
}
