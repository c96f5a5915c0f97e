package configuration

import (
	"time"
)

// HTTP and connection constants.
const (
	DefaultHTTPTimeoutSeconds = 30
)

// Judge request constants. G-Eval answers with a single digit, so the
// completion budget is small and sampling is deterministic.
const (
	DefaultProvider    = "google"
	DefaultModel       = "gemini-1.5-pro"
	DefaultMaxTokens   = 256
	DefaultTemperature = 0.0
)

// Rate limiting constants.
const (
	DefaultTokensPerSecond = 10
	DefaultBurstSize       = 20
)

// Cache constants.
const (
	DefaultCacheTTL = 24 * time.Hour
)

// DefaultConfig returns a configuration with sensible defaults for all three
// providers. API keys are read from the conventional environment variables.
func DefaultConfig() *Config {
	return &Config{
		HTTPTimeout: DefaultHTTPTimeoutSeconds * time.Second,
		Provider:    DefaultProvider,
		Model:       DefaultModel,
		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultTemperature,
		Providers: map[string]ProviderConfig{
			"openai":    {Endpoint: "https://api.openai.com/v1", APIKeyEnv: "OPENAI_API_KEY"},
			"anthropic": {Endpoint: "https://api.anthropic.com/v1", APIKeyEnv: "ANTHROPIC_API_KEY"},
			"google":    {Endpoint: "https://generativelanguage.googleapis.com/v1beta", APIKeyEnv: "GOOGLE_API_KEY"},
		},
		RateLimit: RateLimitConfig{
			Enabled:         true,
			TokensPerSecond: DefaultTokensPerSecond,
			BurstSize:       DefaultBurstSize,
		},
		Cache: CacheConfig{
			Enabled: false,
			TTL:     DefaultCacheTTL,
		},
		Observability: ObservabilityConfig{
			LogLevel:      "info",
			RedactPrompts: true,
		},
	}
}
