// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package llm routes chat completions to the provider named in a model
// reference.
//
// A model reference is "provider:model" or a bare "model". The provider
// part selects an entry from the configuration's provider table; a bare
// reference uses the configured default provider. Everything after the
// first ":" is passed to the provider unchanged, so "ollama:llama3:8b"
// asks Ollama for "llama3:8b".
//
// # Key Types
//
//   - Client: resolves references and performs one completion per call
//   - Provider: a single backend (OpenAI-compatible, Anthropic, Ollama)
//   - ErrorKind: coarse failure category reported by KindOf
//
// # Usage
//
//	client := llm.NewClient(cfg, llm.WithLogger(logger))
//	text, err := client.Complete(ctx, llm.Request{
//	    Model:       "openai:gpt-4o",
//	    Messages:    []llm.Message{llm.SystemMessage(sys), llm.UserMessage(usr)},
//	    Temperature: 0.7,
//	})
//	if err != nil {
//	    fmt.Fprintf(os.Stderr, "Error: %v (%s)\n", err, llm.KindOf(err))
//	}
package llm
