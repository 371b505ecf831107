// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const (
	// AnthropicVersion is the Messages API version header value.
	AnthropicVersion = "2023-06-01"

	// DefaultAnthropicMaxTokens is used when the request leaves MaxTokens
	// unset; the Messages API requires the field.
	DefaultAnthropicMaxTokens = 4096
)

// anthropicRequest is the Messages API request body. System messages are
// lifted out of the conversation into the top-level system field.
type anthropicRequest struct {
	Model       string        `json:"model"`
	System      string        `json:"system,omitempty"`
	Messages    []ChatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type anthropicResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// AnthropicClient is a client for the Anthropic Messages API.
//
// The AnthropicClient is safe for concurrent use.
type AnthropicClient struct {
	base
}

// NewAnthropicClient creates a new Anthropic client.
func NewAnthropicClient(cfg Config) *AnthropicClient {
	if cfg.Name == "" {
		cfg.Name = "anthropic"
	}
	cfg.RequireKey = true
	return &AnthropicClient{base: newBase(cfg)}
}

// Name returns the provider label.
func (c *AnthropicClient) Name() string { return c.name }

func (c *AnthropicClient) setHeaders(req *http.Request) {
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", AnthropicVersion)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
}

// Chat sends req to the Messages API and returns the reply in the same
// shape as an OpenAI-format response, with all text blocks concatenated
// into a single choice.
func (c *AnthropicClient) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%s: %w", c.name, ErrNotConfigured)
	}

	payload := anthropicRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	if payload.MaxTokens <= 0 {
		payload.MaxTokens = DefaultAnthropicMaxTokens
	}
	var system []string
	for _, m := range req.Messages {
		if m.Role == "system" {
			system = append(system, m.Content)
			continue
		}
		payload.Messages = append(payload.Messages, m)
	}
	payload.System = strings.Join(system, "\n\n")

	body, status, err := c.post(ctx, "/messages", payload, c.setHeaders)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, c.handleErrorResponse(status, body)
	}

	var msg anthropicResponse
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	var text strings.Builder
	blocks := 0
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
			blocks++
		}
	}
	if blocks == 0 {
		return nil, ErrEmptyResponse
	}

	return &ChatResponse{
		ID:    msg.ID,
		Model: msg.Model,
		Choices: []Choice{{
			Message:      ChatMessage{Role: "assistant", Content: text.String()},
			FinishReason: msg.StopReason,
		}},
	}, nil
}
