// Package providers implements transport.ProviderAdapter for the supported
// LLM APIs. Each adapter owns one provider's request body shape,
// authentication scheme and error format.
package providers

import (
	"errors"
	"fmt"

	"github.com/ahrav/go-ragscore/internal/llm/configuration"
	llmerrors "github.com/ahrav/go-ragscore/internal/llm/errors"
	"github.com/ahrav/go-ragscore/internal/llm/transport"
)

// Supported LLM provider identifiers.
// These constants must match the provider names used in configuration.
const (
	ProviderOpenAI    = "openai"    // OpenAI GPT models
	ProviderAnthropic = "anthropic" // Anthropic Claude models
	ProviderGoogle    = "google"    // Google Gemini models
)

// ErrMalformedResponse indicates a 200 response whose body could not be decoded.
var ErrMalformedResponse = errors.New("malformed provider response")

// NewRouter creates a router with configured provider adapters.
func NewRouter(configs map[string]configuration.ProviderConfig) (transport.Router, error) {
	adapters := make(map[string]transport.ProviderAdapter, len(configs))

	for name, cfg := range configs {
		var adapter transport.ProviderAdapter
		switch name {
		case ProviderOpenAI:
			adapter = NewOpenAIAdapter(cfg)
		case ProviderAnthropic:
			adapter = NewAnthropicAdapter(cfg)
		case ProviderGoogle:
			adapter = NewGoogleAdapter(cfg)
		default:
			return nil, fmt.Errorf("%w: %s", llmerrors.ErrUnknownProvider, name)
		}
		adapters[name] = adapter
	}

	return &router{adapters: adapters}, nil
}

type router struct {
	adapters map[string]transport.ProviderAdapter
}

// Pick selects the adapter for the given provider name.
func (r *router) Pick(provider, _ string) (transport.ProviderAdapter, error) {
	adapter, ok := r.adapters[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", llmerrors.ErrUnknownProvider, provider)
	}
	return adapter, nil
}

// providerError builds a ProviderError, falling back to the raw body when the
// provider's structured error could not be decoded.
func providerError(provider string, statusCode int, message, code string, body []byte) error {
	if message == "" {
		message = string(body)
	}
	return &llmerrors.ProviderError{
		Provider:   provider,
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
		Type:       llmerrors.ClassifyErrorType(statusCode, code),
	}
}
