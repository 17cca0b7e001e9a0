package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("OPENROUTER_BASE_URL", "")
	t.Setenv("OPENROUTER_HTTP_TIMEOUT", "")
	os.Unsetenv("OPENROUTER_BASE_URL")
	os.Unsetenv("OPENROUTER_HTTP_TIMEOUT")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 60*time.Second, cfg.ProbeTimeout)
	assert.Equal(t, "config/models.config.json", cfg.ModelsConfig)
	assert.Equal(t, "model_validation_report.json", cfg.ReportPath)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("OPENROUTER_BASE_URL", "http://localhost:9999/api/v1/")
	t.Setenv("OPENROUTER_PROBE_TIMEOUT", "5s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9999/api/v1", cfg.BaseURL, "trailing slash is trimmed")
	assert.Equal(t, 5*time.Second, cfg.ProbeTimeout)
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("OPENROUTER_HTTP_TIMEOUT", "soon")

	_, err := Load()
	assert.Error(t, err)
}

func TestResolveAPIKey(t *testing.T) {
	t.Run("from environment", func(t *testing.T) {
		t.Setenv(APIKeyEnvVar, "sk-or-env")

		key, err := ResolveAPIKey(filepath.Join(t.TempDir(), ".env"))
		require.NoError(t, err)
		assert.Equal(t, "sk-or-env", key)
	})

	t.Run("from dotenv file", func(t *testing.T) {
		t.Setenv(APIKeyEnvVar, "")
		envPath := filepath.Join(t.TempDir(), ".env")
		content := "# comment\nOTHER=1\nOPENROUTER_API_KEY=\"sk-or-file\"\n"
		require.NoError(t, os.WriteFile(envPath, []byte(content), 0600))

		key, err := ResolveAPIKey(envPath)
		require.NoError(t, err)
		assert.Equal(t, "sk-or-file", key)
	})

	t.Run("missing everywhere", func(t *testing.T) {
		t.Setenv(APIKeyEnvVar, "")

		_, err := ResolveAPIKey(filepath.Join(t.TempDir(), "does-not-exist.env"))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrCredentialMissing)
	})
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "sk-or-v1-abcdef...", MaskKey("sk-or-v1-abcdefghijklmnop"))
	assert.Equal(t, "*****", MaskKey("short"))
}
