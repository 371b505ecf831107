// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud provides HTTP clients for hosted LLM APIs.
//
// Two wire formats are supported: the OpenAI chat completions format, which
// OpenAI, xAI, OpenRouter, Groq, Mistral and Google's compatibility endpoint
// all accept, and the Anthropic Messages format.
//
// # Key Types
//
//   - Client: OpenAI-compatible chat completions client
//   - AnthropicClient: Anthropic Messages API client
//   - APIError: non-2xx response carrying provider status and message
//
// # Usage
//
//	client := cloud.NewClient(cloud.Config{
//	    Name:    "openai",
//	    BaseURL: "https://api.openai.com/v1",
//	    APIKey:  os.Getenv("OPENAI_API_KEY"),
//	})
//	resp, err := client.Chat(ctx, cloud.ChatRequest{
//	    Model:    "gpt-4o",
//	    Messages: []cloud.ChatMessage{cloud.NewUserMessage("Hello")},
//	})
//
// # Security
//
// API keys are never logged. Trace lines carry only method, path, status,
// duration and a request ID.
package cloud
