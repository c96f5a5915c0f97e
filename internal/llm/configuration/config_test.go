package configuration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmerrors "github.com/ahrav/go-ragscore/internal/llm/errors"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, DefaultProvider, cfg.Provider)
	assert.Equal(t, DefaultModel, cfg.Model)
	assert.Len(t, cfg.Providers, 3)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, DefaultCacheTTL, cfg.Cache.TTL)
}

func TestConfig_ResolveAndValidate(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "secret")

	cfg := DefaultConfig()
	require.ErrorIs(t, cfg.Validate(), llmerrors.ErrMissingAPIKey)

	cfg.ResolveAPIKeys()
	assert.Equal(t, "secret", cfg.Providers["google"].APIKey)
	require.NoError(t, cfg.Validate())

	cfg.Provider = "mistral"
	require.ErrorIs(t, cfg.Validate(), llmerrors.ErrUnknownProvider)

	cfg.Provider = "google"
	cfg.MaxTokens = 0
	require.ErrorIs(t, cfg.Validate(), llmerrors.ErrInvalidConfig)
}
