// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for a local Ollama server.
//
// Only the non-streaming /api/chat endpoint is used: one request, one
// complete response. Model references of the form "ollama:<model>" are
// routed here by the llm package.
//
// # Key Types
//
//   - Client: HTTP client for the Ollama API
//   - ChatRequest / ChatResponse: /api/chat wire types
//   - ClientError: categorized failure (not running, timeout, model missing)
//
// # Usage
//
//	client := ollama.NewClientWithConfig(&ollama.ClientConfig{
//	    BaseURL: "http://127.0.0.1:11434",
//	    Timeout: 100 * time.Minute,
//	})
//	resp, err := client.Chat(ctx, "llama3:8b", []ollama.Message{
//	    ollama.NewSystemMessage("You are a Terraform expert."),
//	    ollama.NewUserMessage("Fix this module."),
//	}, &ollama.Options{Temperature: ollama.Float(0.7)})
package ollama
