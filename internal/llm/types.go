// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package llm

import "strings"

// Message is one turn of a conversation.
type Message struct {
	Role    string
	Content string
}

// SystemMessage creates a system message.
func SystemMessage(content string) Message {
	return Message{Role: "system", Content: content}
}

// UserMessage creates a user message.
func UserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

// Request is a completion request addressed by model reference.
type Request struct {
	// Model is "provider:model" or a bare model name.
	Model    string
	Messages []Message
	// Temperature is always forwarded, including 0.
	Temperature float64
	// MaxTokens caps the completion (0 = provider default).
	MaxTokens int
}

// ProviderRequest is a Request after routing: Model holds only the part
// the provider understands.
type ProviderRequest struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// ParseModel splits a model reference at the first ":". A reference without
// ":" yields an empty provider and the whole string as the model.
func ParseModel(ref string) (provider, model string) {
	provider, model, found := strings.Cut(ref, ":")
	if !found {
		return "", ref
	}
	return provider, model
}
