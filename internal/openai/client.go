// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package openai

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// Configuration constants for the remote API.
const (
	// DefaultBaseURL is the base URL for the hosted LLM API.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is the model used when a request does not name one.
	DefaultModel = "gpt-5-mini"

	// DefaultTimeout is the default timeout for API requests.
	DefaultTimeout = 60 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit

	// MaxUploadSize is the maximum allowed document upload size.
	MaxUploadSize = 50 * 1024 * 1024 // 50MB limit

	// uploadPurpose is the purpose tag for uploaded documents.
	uploadPurpose = "assistants"
)

// sharedHTTPClient is reused across all requests for connection pooling.
var sharedHTTPClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	},
	Timeout: DefaultTimeout,
}

// Error variables for common remote API failures.
var (
	// ErrNotConfigured indicates no API credential was supplied.
	ErrNotConfigured = errors.New("API credential not configured")

	// ErrAuthFailed indicates authentication failed (invalid or expired key).
	ErrAuthFailed = errors.New("authentication failed")

	// ErrRateLimited indicates too many requests were made.
	ErrRateLimited = errors.New("rate limited")

	// ErrNotFound indicates the requested model or resource does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrUploadTooLarge indicates a document exceeded MaxUploadSize.
	ErrUploadTooLarge = errors.New("upload exceeds maximum size")
)

// APIError represents an error response from the remote API.
type APIError struct {
	Code    string
	Message string
	Status  int
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error [%s] (HTTP %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("API error (HTTP %d): %s", e.Status, e.Message)
}

// =============================================================================
// CLIENT
// =============================================================================

// Client is a client for the hosted LLM API. The API credential is not
// stored on the client; it is supplied per call because credentials are
// session-scoped and may change between requests.
//
// Remote calls are issued exactly once. There is no retry loop and no
// client-side throttling; every failure is surfaced to the caller.
type Client struct {
	baseURL    string
	httpClient *http.Client
	model      string
	userAgent  string
}

// NewClient creates a new client with default settings.
func NewClient() *Client {
	return &Client{
		baseURL:    DefaultBaseURL,
		httpClient: sharedHTTPClient,
		model:      DefaultModel,
		userAgent:  "labchat/0.1.0",
	}
}

// WithBaseURL sets a custom base URL for the API.
func (c *Client) WithBaseURL(url string) *Client {
	c.baseURL = strings.TrimSuffix(url, "/")
	return c
}

// WithModel sets the default model for requests that do not name one.
func (c *Client) WithModel(model string) *Client {
	if model != "" {
		c.model = model
	}
	return c
}

// WithTimeout sets the request timeout using a dedicated HTTP client.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.httpClient = &http.Client{
		Transport: sharedHTTPClient.Transport,
		Timeout:   timeout,
	}
	return c
}

// Model returns the default model.
func (c *Client) Model() string {
	return c.model
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// setHeaders sets the required headers for API requests. The credential
// goes only into the Authorization header.
func (c *Client) setHeaders(req *http.Request, apiKey string) {
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("User-Agent", c.userAgent)
}

// logRequest logs an API request without exposing sensitive data.
// Headers may carry auth and bodies may carry user text; neither is logged.
func (c *Client) logRequest(method, path string) {
	log.Printf("API_REQUEST | %s %s", method, path)
}

// readResponse reads the response body with a size limit.
func readResponse(resp *http.Response) ([]byte, error) {
	limited := io.LimitReader(resp.Body, MaxResponseSize)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// do performs a single JSON request and returns the response body.
// reqBody may be nil for bodyless requests.
func (c *Client) do(ctx context.Context, apiKey, method, path string, reqBody any) ([]byte, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}

	var bodyReader io.Reader
	if reqBody != nil {
		bodyBytes, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req, apiKey)
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logRequest(method, path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := readResponse(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, handleErrorResponse(resp.StatusCode, body)
	}
	return body, nil
}

// handleErrorResponse converts HTTP error responses to Go errors.
func handleErrorResponse(statusCode int, body []byte) error {
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		e := &APIError{
			Code:    apiErr.Error.Code,
			Message: apiErr.Error.Message,
			Status:  statusCode,
		}
		switch statusCode {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %s", ErrAuthFailed, e.Message)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrNotFound, e.Message)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s", ErrRateLimited, e.Message)
		default:
			return e
		}
	}

	// Fallback for unparseable error responses
	switch statusCode {
	case http.StatusUnauthorized:
		return ErrAuthFailed
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return &APIError{
			Message: strings.TrimSpace(string(body)),
			Status:  statusCode,
		}
	}
}

// =============================================================================
// CHAT COMPLETIONS
// =============================================================================

// Complete performs a chat completion request. The client's default
// model is used when req.Model is empty.
func (c *Client) Complete(ctx context.Context, apiKey string, req ChatRequest) (*ChatResponse, error) {
	if req.Model == "" {
		req.Model = c.model
	}

	body, err := c.do(ctx, apiKey, http.MethodPost, "/chat/completions", req)
	if err != nil {
		return nil, err
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &chatResp, nil
}

// =============================================================================
// RESPONSES API
// =============================================================================

// Respond performs a responses-API call with a single flattened prompt.
// The returned Response retains the raw payload for extraction.
func (c *Client) Respond(ctx context.Context, apiKey string, req ResponseRequest) (*Response, error) {
	if req.Model == "" {
		req.Model = c.model
	}

	body, err := c.do(ctx, apiKey, http.MethodPost, "/responses", req)
	if err != nil {
		return nil, err
	}
	return ParseResponse(body)
}

// =============================================================================
// FILES
// =============================================================================

// UploadFile uploads a document to the remote file store and returns the
// created file object. The purpose is fixed to "assistants".
func (c *Client) UploadFile(ctx context.Context, apiKey, filename string, data []byte) (*FileObject, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	if int64(len(data)) > MaxUploadSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrUploadTooLarge, len(data))
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("purpose", uploadPurpose); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req, apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	c.logRequest(http.MethodPost, "/files")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := readResponse(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, handleErrorResponse(resp.StatusCode, body)
	}

	var file FileObject
	if err := json.Unmarshal(body, &file); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &file, nil
}

// =============================================================================
// VECTOR STORES
// =============================================================================

// CreateVectorStore creates a new empty vector store with the given name.
func (c *Client) CreateVectorStore(ctx context.Context, apiKey, name string) (*VectorStore, error) {
	reqBody := struct {
		Name string `json:"name"`
	}{Name: name}

	body, err := c.do(ctx, apiKey, http.MethodPost, "/vector_stores", reqBody)
	if err != nil {
		return nil, err
	}

	var store VectorStore
	if err := json.Unmarshal(body, &store); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &store, nil
}

// AttachFile attaches an uploaded file to a vector store.
func (c *Client) AttachFile(ctx context.Context, apiKey, storeID, fileID string) error {
	reqBody := struct {
		FileID string `json:"file_id"`
	}{FileID: fileID}

	_, err := c.do(ctx, apiKey, http.MethodPost, "/vector_stores/"+storeID+"/files", reqBody)
	return err
}

// DeleteVectorStore requests deletion of a vector store.
func (c *Client) DeleteVectorStore(ctx context.Context, apiKey, storeID string) error {
	_, err := c.do(ctx, apiKey, http.MethodDelete, "/vector_stores/"+storeID, nil)
	return err
}
