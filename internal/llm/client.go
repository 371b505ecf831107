// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package llm

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	"github.com/nogoodai/msise-ise-5901/internal/config"
)

// Client resolves model references to providers and performs completions.
//
// The Client is safe for concurrent use. Providers are built on first use
// and reused afterwards.
type Client struct {
	cfg    *config.Config
	logger *log.Logger

	mu        sync.Mutex
	providers map[string]Provider
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger that receives request/response traces.
func WithLogger(logger *log.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithProvider registers p under name, replacing any configured entry.
func WithProvider(name string, p Provider) Option {
	return func(c *Client) {
		c.providers[strings.ToLower(name)] = p
	}
}

// NewClient creates a Client over cfg. A nil cfg uses config.Default().
func NewClient(cfg *config.Config, opts ...Option) *Client {
	if cfg == nil {
		cfg = config.Default()
	}
	c := &Client{
		cfg:       cfg,
		logger:    log.New(io.Discard, "", 0),
		providers: make(map[string]Provider),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Resolve returns the provider and provider-local model name for ref.
func (c *Client) Resolve(ref string) (Provider, string, error) {
	name, model := ParseModel(ref)
	if name == "" {
		name = c.cfg.DefaultProvider
	}
	name = strings.ToLower(name)
	if model == "" {
		return nil, "", fmt.Errorf("%w in %q", ErrEmptyModel, ref)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.providers[name]; ok {
		return p, model, nil
	}

	pc, ok := c.cfg.Provider(name)
	if !ok {
		return nil, "", fmt.Errorf("%w %q (known: %s)", ErrUnknownProvider, name, strings.Join(c.cfg.ProviderNames(), ", "))
	}
	p, err := NewProvider(name, pc, c.logger)
	if err != nil {
		return nil, "", err
	}
	c.providers[name] = p
	return p, model, nil
}

// Complete performs one completion for req and returns the raw text.
// There is no retry; the caller sees the first failure.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	p, model, err := c.Resolve(req.Model)
	if err != nil {
		return "", err
	}
	return p.Complete(ctx, ProviderRequest{
		Model:       model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
}
