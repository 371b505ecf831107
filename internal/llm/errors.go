// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package llm

import (
	"context"
	"errors"
	"net"
	"net/url"

	"github.com/nogoodai/msise-ise-5901/internal/cloud"
	"github.com/nogoodai/msise-ise-5901/internal/ollama"
)

// Sentinel errors.
var (
	// ErrUnknownProvider indicates a model reference whose provider prefix
	// is not in the configuration.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrEmptyModel indicates a model reference with no model name.
	ErrEmptyModel = errors.New("empty model name")

	// ErrUnsupportedKind indicates a provider entry with an unknown kind.
	ErrUnsupportedKind = errors.New("unsupported provider kind")

	// ErrNotConfigured indicates a provider whose API key is missing.
	ErrNotConfigured = cloud.ErrNotConfigured

	// ErrEmptyResponse indicates a response with no completion.
	ErrEmptyResponse = cloud.ErrEmptyResponse
)

// ErrorKind categorizes completion failures.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindConfig
	KindTransport
	KindTimeout
	KindAuth
	KindProvider
	KindMalformed
)

// String returns the human-readable name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindTransport:
		return "transport"
	case KindTimeout:
		return "timeout"
	case KindAuth:
		return "auth"
	case KindProvider:
		return "provider"
	case KindMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// KindOf classifies err. It returns KindUnknown for nil.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}

	switch {
	case errors.Is(err, ErrUnknownProvider),
		errors.Is(err, ErrEmptyModel),
		errors.Is(err, ErrUnsupportedKind),
		errors.Is(err, cloud.ErrNotConfigured):
		return KindConfig
	case errors.Is(err, cloud.ErrAuthFailed):
		return KindAuth
	case errors.Is(err, cloud.ErrEmptyResponse),
		errors.Is(err, cloud.ErrMalformedResponse):
		return KindMalformed
	}

	var apiErr *cloud.APIError
	if errors.As(err, &apiErr) {
		return KindProvider
	}

	var ollamaErr *ollama.ClientError
	if errors.As(err, &ollamaErr) {
		switch ollamaErr.Type {
		case ollama.ErrTypeTimeout:
			return KindTimeout
		case ollama.ErrTypeNotRunning, ollama.ErrTypeConnection:
			return KindTransport
		case ollama.ErrTypeInvalidResponse:
			return KindMalformed
		default:
			return KindProvider
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) || errors.Is(err, context.Canceled) {
		return KindTransport
	}
	return KindUnknown
}
