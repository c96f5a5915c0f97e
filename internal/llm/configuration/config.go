// Package configuration holds the LLM client configuration and its defaults.
package configuration

import (
	"fmt"
	"net/http"
	"os"
	"time"

	llmerrors "github.com/ahrav/go-ragscore/internal/llm/errors"
)

// Config holds configuration for the LLM client used by judge evaluators.
type Config struct {
	// HTTP client configuration
	HTTPTimeout time.Duration `yaml:"http_timeout" json:"http_timeout"`
	HTTPClient  *http.Client  `yaml:"-" json:"-"`

	// Default routing for judge requests.
	Provider    string  `yaml:"provider" json:"provider"`
	Model       string  `yaml:"model" json:"model"`
	MaxTokens   int     `yaml:"max_tokens" json:"max_tokens"`
	Temperature float64 `yaml:"temperature" json:"temperature"`

	// Provider configurations keyed by provider name.
	Providers map[string]ProviderConfig `yaml:"providers" json:"providers"`

	RateLimit     RateLimitConfig     `yaml:"rate_limit" json:"rate_limit"`
	Cache         CacheConfig         `yaml:"cache" json:"cache"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// ProviderConfig holds provider-specific configuration and authentication.
type ProviderConfig struct {
	Endpoint  string            `yaml:"endpoint" json:"endpoint"`
	APIKey    string            `yaml:"-" json:"-"` // Sensitive, not serialized
	APIKeyEnv string            `yaml:"api_key_env" json:"api_key_env"`
	Timeout   time.Duration     `yaml:"timeout" json:"timeout"`
	Headers   map[string]string `yaml:"headers" json:"headers"`
}

// RateLimitConfig configures the per provider/model token bucket.
// Requests wait for a token rather than failing.
type RateLimitConfig struct {
	Enabled         bool    `yaml:"enabled" json:"enabled"`
	TokensPerSecond float64 `yaml:"tokens_per_second" json:"tokens_per_second"`
	BurstSize       int     `yaml:"burst_size" json:"burst_size"`
}

// CacheConfig controls Redis-based response caching.
type CacheConfig struct {
	Enabled       bool          `yaml:"enabled" json:"enabled"`
	TTL           time.Duration `yaml:"ttl" json:"ttl"`
	RedisAddr     string        `yaml:"redis_addr" json:"redis_addr"`
	RedisPassword string        `yaml:"-" json:"-"` // Sensitive field excluded from serialization.
	RedisDB       int           `yaml:"redis_db" json:"redis_db"`
}

// ObservabilityConfig controls request logging.
type ObservabilityConfig struct {
	LogLevel      string `yaml:"log_level" json:"log_level"`
	RedactPrompts bool   `yaml:"redact_prompts" json:"redact_prompts"`
}

// ResolveAPIKeys fills APIKey from the environment for every provider that
// names an api_key_env and has no key yet.
func (c *Config) ResolveAPIKeys() {
	for name, p := range c.Providers {
		if p.APIKey == "" && p.APIKeyEnv != "" {
			p.APIKey = os.Getenv(p.APIKeyEnv)
			c.Providers[name] = p
		}
	}
}

// Validate checks that the default provider is configured with credentials.
func (c *Config) Validate() error {
	if c.Provider == "" || c.Model == "" {
		return fmt.Errorf("%w: provider and model are required", llmerrors.ErrInvalidConfig)
	}
	p, ok := c.Providers[c.Provider]
	if !ok {
		return fmt.Errorf("%w: %s", llmerrors.ErrUnknownProvider, c.Provider)
	}
	if p.APIKey == "" {
		return fmt.Errorf("%w: provider %s (set %s)", llmerrors.ErrMissingAPIKey, c.Provider, p.APIKeyEnv)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("%w: max_tokens must be positive", llmerrors.ErrInvalidConfig)
	}
	return nil
}
