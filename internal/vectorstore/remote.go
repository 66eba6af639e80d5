// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package vectorstore

import (
	"context"

	"github.com/jeranaias/labchat/internal/extract"
	"github.com/jeranaias/labchat/internal/openai"
)

// OpenAIRemote implements Remote on top of the openai client. Queries
// go through the responses endpoint with a file_search tool scoped to
// the index, and the answer is pulled out with the shared extractor.
type OpenAIRemote struct {
	client *openai.Client
}

// NewOpenAIRemote wraps an openai client as a Remote.
func NewOpenAIRemote(client *openai.Client) *OpenAIRemote {
	return &OpenAIRemote{client: client}
}

// UploadFile uploads document bytes for later attachment.
func (r *OpenAIRemote) UploadFile(ctx context.Context, apiKey, filename string, data []byte) (string, error) {
	f, err := r.client.UploadFile(ctx, apiKey, filename, data)
	if err != nil {
		return "", err
	}
	return f.ID, nil
}

// CreateStore creates an empty vector store.
func (r *OpenAIRemote) CreateStore(ctx context.Context, apiKey, name string) (string, error) {
	vs, err := r.client.CreateVectorStore(ctx, apiKey, name)
	if err != nil {
		return "", err
	}
	return vs.ID, nil
}

// AttachFile attaches an uploaded file to a vector store.
func (r *OpenAIRemote) AttachFile(ctx context.Context, apiKey, storeID, fileID string) error {
	return r.client.AttachFile(ctx, apiKey, storeID, fileID)
}

// DeleteStore deletes a vector store.
func (r *OpenAIRemote) DeleteStore(ctx context.Context, apiKey, storeID string) error {
	return r.client.DeleteVectorStore(ctx, apiKey, storeID)
}

// QueryStore asks a question grounded in the store's documents.
func (r *OpenAIRemote) QueryStore(ctx context.Context, apiKey, storeID, question string) (string, error) {
	resp, err := r.client.Respond(ctx, apiKey, openai.ResponseRequest{
		Model: r.client.Model(),
		Input: question,
		Tools: []openai.Tool{openai.NewFileSearchTool(storeID)},
	})
	if err != nil {
		return "", err
	}
	return extract.Extract(resp), nil
}
