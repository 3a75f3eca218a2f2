package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.Addr())
	assert.Equal(t, "https://oauth.platform.hanzo.ai", cfg.CallbackBaseURL)
	assert.Equal(t, "10m0s", cfg.StateTTL.String())
	assert.Equal(t, "5m0s", cfg.SweepInterval.String())
	assert.Equal(t, "30s", cfg.UpstreamTimeout.String())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("CALLBACK_BASE_URL", "https://oauth.example.com///")
	t.Setenv("STATE_TTL", "1m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr())
	// Trailing slashes are stripped so callback URLs join cleanly
	assert.Equal(t, "https://oauth.example.com", cfg.CallbackBaseURL)
	assert.Equal(t, "1m0s", cfg.StateTTL.String())
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Setenv("STATE_TTL", "soon")

	_, err := Load()
	assert.Error(t, err)
}
