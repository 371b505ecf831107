// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package llm

import (
	"context"
	"fmt"
	"log"

	"github.com/nogoodai/msise-ise-5901/internal/cloud"
	"github.com/nogoodai/msise-ise-5901/internal/config"
	"github.com/nogoodai/msise-ise-5901/internal/ollama"
)

// Provider is one completion backend.
type Provider interface {
	// Name returns the provider label used in model references.
	Name() string
	// Complete performs exactly one request and returns the raw completion.
	Complete(ctx context.Context, req ProviderRequest) (string, error)
}

// NewProvider builds the adapter for a configured provider entry.
func NewProvider(name string, pc config.ProviderConfig, logger *log.Logger) (Provider, error) {
	cloudCfg := cloud.Config{
		Name:    name,
		BaseURL: pc.BaseURL,
		APIKey:  pc.Key(),
		Timeout: pc.Timeout(),
		Logger:  logger,
		// A declared key source must yield a key.
		RequireKey: pc.APIKey != "" || pc.APIKeyEnv != "",
	}

	switch pc.Kind {
	case config.KindOpenAI, "":
		return &OpenAIProvider{client: cloud.NewClient(cloudCfg)}, nil
	case config.KindAnthropic:
		return &AnthropicProvider{client: cloud.NewAnthropicClient(cloudCfg)}, nil
	case config.KindOllama:
		return &OllamaProvider{
			name: name,
			client: ollama.NewClientWithConfig(&ollama.ClientConfig{
				BaseURL: pc.BaseURL,
				Timeout: pc.Timeout(),
				Logger:  logger,
			}),
		}, nil
	default:
		return nil, fmt.Errorf("%w %q for provider %s", ErrUnsupportedKind, pc.Kind, name)
	}
}

func toCloudMessages(messages []Message) []cloud.ChatMessage {
	out := make([]cloud.ChatMessage, len(messages))
	for i, m := range messages {
		out[i] = cloud.ChatMessage{Role: m.Role, Content: m.Content}
	}
	return out
}

// OpenAIProvider speaks the OpenAI chat completions format.
type OpenAIProvider struct {
	client *cloud.Client
}

// Name implements Provider.
func (p *OpenAIProvider) Name() string { return p.client.Name() }

// Complete implements Provider.
func (p *OpenAIProvider) Complete(ctx context.Context, req ProviderRequest) (string, error) {
	resp, err := p.client.Chat(ctx, cloud.ChatRequest{
		Model:       req.Model,
		Messages:    toCloudMessages(req.Messages),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	return resp.GetContent(), nil
}

// AnthropicProvider speaks the Anthropic Messages format.
type AnthropicProvider struct {
	client *cloud.AnthropicClient
}

// Name implements Provider.
func (p *AnthropicProvider) Name() string { return p.client.Name() }

// Complete implements Provider.
func (p *AnthropicProvider) Complete(ctx context.Context, req ProviderRequest) (string, error) {
	resp, err := p.client.Chat(ctx, cloud.ChatRequest{
		Model:       req.Model,
		Messages:    toCloudMessages(req.Messages),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	return resp.GetContent(), nil
}

// OllamaProvider talks to a local Ollama server.
type OllamaProvider struct {
	name   string
	client *ollama.Client
}

// Name implements Provider.
func (p *OllamaProvider) Name() string { return p.name }

// Complete implements Provider.
func (p *OllamaProvider) Complete(ctx context.Context, req ProviderRequest) (string, error) {
	messages := make([]ollama.Message, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = ollama.Message{Role: m.Role, Content: m.Content}
	}

	resp, err := p.client.Chat(ctx, req.Model, messages, &ollama.Options{
		Temperature: ollama.Float(req.Temperature),
		NumPredict:  req.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	return resp.Message.Content, nil
}
