package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelforge/internal/errors"
)

func TestLoadRequiresTokenProxy(t *testing.T) {
	t.Setenv("TOKEN_PROXY_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TOKEN_PROXY_URL", "https://proxy.example/token")
	t.Setenv("REGIONS", "")
	t.Setenv("COMPLETION_MODEL", "")
	t.Setenv("PORT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://proxy.example/token", cfg.Auth.ProxyEndpoint)
	assert.Equal(t, "gemini-2.5-pro", cfg.AI.CompletionModel)
	assert.Equal(t, "gemini-2.0-flash", cfg.AI.FallbackModel)
	assert.Equal(t, []string{"us-central1", "us-east5", "europe-west1"}, cfg.AI.Regions)
	assert.Equal(t, "8080", cfg.Server.Port)
}

func TestLoadParsesRegionList(t *testing.T) {
	t.Setenv("TOKEN_PROXY_URL", "https://proxy.example/token")
	t.Setenv("REGIONS", "us-west1, europe-north1 ,,asia-east1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"us-west1", "europe-north1", "asia-east1"}, cfg.AI.Regions)
}
