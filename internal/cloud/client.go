// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nogoodai/msise-ise-5901/internal/util"
)

// Configuration constants.
const (
	// DefaultTimeout is the default timeout for API requests.
	DefaultTimeout = 120 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	// SECURITY: Response size limit prevents memory exhaustion attacks.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit

	// maxErrorWidth bounds raw error bodies quoted in error messages.
	maxErrorWidth = 200

	userAgent = "llmscan/1.0"
)

// Error variables for common API errors.
var (
	// ErrNotConfigured indicates the API key is not set.
	ErrNotConfigured = errors.New("API key not configured")

	// ErrAuthFailed indicates authentication failed (invalid or expired API key).
	ErrAuthFailed = errors.New("authentication failed")

	// ErrRateLimited indicates too many requests were made.
	ErrRateLimited = errors.New("rate limited")

	// ErrModelNotFound indicates the requested model does not exist.
	ErrModelNotFound = errors.New("model not found")

	// ErrInsufficientCredits indicates the account has insufficient credits.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrEmptyResponse indicates a 2xx response that carried no choices.
	ErrEmptyResponse = errors.New("response contained no choices")

	// ErrMalformedResponse indicates a 2xx response that could not be decoded.
	ErrMalformedResponse = errors.New("malformed response")
)

// APIError represents a non-2xx response from a provider.
type APIError struct {
	Provider string
	Code     string
	Message  string
	Status   int
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s error [%s] (HTTP %d): %s", e.Provider, e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("%s error (HTTP %d): %s", e.Provider, e.Status, e.Message)
}

// ChatMessage represents a single message in a chat conversation.
type ChatMessage struct {
	Role    string `json:"role"`    // "user", "assistant", or "system"
	Content string `json:"content"` // The message content
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) ChatMessage {
	return ChatMessage{Role: "user", Content: content}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) ChatMessage {
	return ChatMessage{Role: "system", Content: content}
}

// ChatRequest represents a request to the chat completions endpoint.
// Temperature is always sent so that 0 reaches the provider.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// ChatResponse represents a response from the chat completions endpoint.
type ChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []Choice `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Choice is one completion alternative.
type Choice struct {
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// GetContent returns the content of the first choice, or empty string if none.
func (r *ChatResponse) GetContent() string {
	if len(r.Choices) > 0 {
		return r.Choices[0].Message.Content
	}
	return ""
}

// apiErrorResponse represents an error response from the API. Most
// providers use an object under "error"; some send a bare string.
type apiErrorResponse struct {
	Error json.RawMessage `json:"error"`
}

type apiErrorBody struct {
	Code    json.RawMessage `json:"code"`
	Type    string          `json:"type"`
	Message string          `json:"message"`
}

// Config configures a Client or AnthropicClient.
type Config struct {
	// Name labels the provider in errors and traces (e.g. "openai").
	Name string

	// BaseURL is the API root, e.g. https://api.openai.com/v1.
	BaseURL string

	// APIKey is sent as a bearer token (OpenAI format) or x-api-key
	// (Anthropic). Empty means no auth header.
	APIKey string

	// RequireKey makes Chat fail with ErrNotConfigured when APIKey is empty.
	RequireKey bool

	// Timeout bounds a whole request. Zero selects DefaultTimeout.
	Timeout time.Duration

	// Logger receives request/response trace lines (nil = discard).
	Logger *log.Logger

	// HTTPClient overrides the transport; Timeout is ignored when set.
	HTTPClient *http.Client
}

// base holds what both wire formats share.
type base struct {
	name       string
	baseURL    string
	apiKey     string
	requireKey bool
	httpClient *http.Client
	logger     *log.Logger
}

func newBase(cfg Config) base {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return base{
		name:       cfg.Name,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		requireKey: cfg.RequireKey,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Client is an OpenAI-compatible chat completions client.
//
// The Client is safe for concurrent use.
type Client struct {
	base
}

// NewClient creates a new OpenAI-compatible client.
func NewClient(cfg Config) *Client {
	if cfg.Name == "" {
		cfg.Name = "openai"
	}
	return &Client{base: newBase(cfg)}
}

// Name returns the provider label.
func (c *Client) Name() string { return c.name }

// IsConfigured reports whether the client can make authenticated requests.
func (c *Client) IsConfigured() bool {
	return !c.requireKey || c.apiKey != ""
}

// =============================================================================
// Request/Response Logging (without sensitive data)
// =============================================================================

// logRequest logs an API request without exposing sensitive data.
// Headers and bodies are never logged.
func (b *base) logRequest(req *http.Request, requestID string) {
	b.logger.Printf("API Request: %s %s [%s]", req.Method, req.URL.Path, requestID)
}

// logResponse logs an API response with duration.
func (b *base) logResponse(resp *http.Response, duration time.Duration, requestID string) {
	b.logger.Printf("API Response: %s (%v) [%s]", resp.Status, duration.Round(time.Millisecond), requestID)
}

// setHeaders sets the required headers for OpenAI-format requests.
func (c *Client) setHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
}

// Chat performs a single chat completion request. There is no retry.
func (c *Client) Chat(ctx context.Context, reqBody ChatRequest) (*ChatResponse, error) {
	if !c.IsConfigured() {
		return nil, fmt.Errorf("%s: %w", c.name, ErrNotConfigured)
	}
	reqBody.Stream = false

	body, status, err := c.post(ctx, "/chat/completions", reqBody, c.setHeaders)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, c.handleErrorResponse(status, body)
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}
	return &chatResp, nil
}

// post marshals payload, sends it to path and returns the size-limited
// body with the status code. Transport failures come back unwrapped so
// callers can classify them with errors.Is / errors.As.
func (b *base) post(ctx context.Context, path string, payload any, setHeaders func(*http.Request)) ([]byte, int, error) {
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	setHeaders(req)
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	b.logRequest(req, requestID)
	start := time.Now()
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	b.logResponse(resp, time.Since(start), requestID)

	body, err := readResponse(resp)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

// readResponse reads the response body with size limits to prevent memory exhaustion.
func readResponse(resp *http.Response) ([]byte, error) {
	// Read one byte past the limit so an exactly-10MB body is still accepted.
	limitedReader := io.LimitReader(resp.Body, MaxResponseSize+1)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("%w: response exceeded maximum size of %d bytes", ErrMalformedResponse, MaxResponseSize)
	}

	return body, nil
}

// handleErrorResponse converts HTTP error responses to appropriate Go errors.
func (b *base) handleErrorResponse(statusCode int, body []byte) error {
	apiErr := &APIError{Provider: b.name, Status: statusCode}
	apiErr.Code, apiErr.Message = parseErrorBody(body)
	if apiErr.Message == "" {
		apiErr.Message = util.TruncateWidth(string(body), maxErrorWidth)
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(statusCode)
	}

	// Map to specific error types, keeping the APIError in the chain.
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %w", ErrAuthFailed, apiErr)
	case http.StatusPaymentRequired:
		return fmt.Errorf("%w: %w", ErrInsufficientCredits, apiErr)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %w", ErrModelNotFound, apiErr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", ErrRateLimited, apiErr)
	default:
		return apiErr
	}
}

// parseErrorBody extracts code and message from the common error shapes:
// {"error":{"code":..,"message":..}}, {"error":"text"} and
// {"type":"error","error":{"type":..,"message":..}}.
func parseErrorBody(body []byte) (code, message string) {
	var envelope apiErrorResponse
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Error) == 0 {
		return "", ""
	}

	var text string
	if err := json.Unmarshal(envelope.Error, &text); err == nil {
		return "", text
	}

	var detail apiErrorBody
	if err := json.Unmarshal(envelope.Error, &detail); err != nil {
		return "", ""
	}
	code = detail.Type
	if len(detail.Code) > 0 && string(detail.Code) != "null" {
		var s string
		if json.Unmarshal(detail.Code, &s) == nil {
			code = s
		} else {
			code = string(detail.Code)
		}
	}
	return code, detail.Message
}
