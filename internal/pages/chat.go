// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package pages

import (
	"context"
	"log"

	"github.com/jeranaias/labchat/internal/conversation"
	"github.com/jeranaias/labchat/internal/extract"
	"github.com/jeranaias/labchat/internal/openai"
	"github.com/jeranaias/labchat/internal/session"
)

// ChatPage carries a multi-turn conversation. The model has no native
// memory across calls, so the whole log plus the incoming turn is
// flattened into one prompt. Both turns are committed to the log only
// after the remote call succeeds, so a failure leaves no half-written
// exchange behind.
type ChatPage struct {
	client *openai.Client
}

// NewChatPage creates the chat page.
func NewChatPage(client *openai.Client) *ChatPage {
	return &ChatPage{client: client}
}

// Name returns the display name.
func (p *ChatPage) Name() string { return "Chat" }

// Ask sends the conversation with the new user turn appended and, on
// success, commits the user turn and the extracted assistant turn.
func (p *ChatPage) Ask(ctx context.Context, sess *session.Session, input string) (string, error) {
	text, err := normalizeInput(input)
	if err != nil {
		return "", err
	}
	apiKey, err := sess.Credential.Get()
	if err != nil {
		return "", err
	}

	userTurn := conversation.Turn{Speaker: conversation.SpeakerUser, Text: text}
	prompt := conversation.RenderPrompt(append(sess.Conversation.Turns(), userTurn))

	resp, err := p.client.Respond(ctx, apiKey, openai.ResponseRequest{Input: prompt})
	if err != nil {
		log.Printf("PAGE_ERROR | page=chat credential=%s err=%v", sess.Credential.Fingerprint(), err)
		return "", err
	}

	answer := extract.Extract(resp)
	sess.Conversation.AppendUser(text)
	sess.Conversation.AppendAssistant(answer)
	return answer, nil
}

// Clear resets the session's conversation log.
func (p *ChatPage) Clear(sess *session.Session) {
	sess.Conversation.Clear()
}
