package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValidOnceKeyed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.APIKey = "test-key"
	require.NoError(t, cfg.Validate())
}

func TestDefaultConfigRejectsMissingBackend(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.Validate()
	require.Error(t, err)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().LLM.Model, cfg.LLM.Model)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "caro.toml")

	cfg := DefaultConfig()
	cfg.LLM.Model = "gemini-2.5-pro"
	cfg.Safety.Floor = "strict"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-pro", loaded.LLM.Model)
	assert.Equal(t, "strict", loaded.Safety.Floor)
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "caro.toml")
	require.NoError(t, os.WriteFile(path, []byte("this is not [ valid toml"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestTimeoutHelpersFallBackOnUnparseable(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, defaultTimeoutFallback, cfg.GetLLMTimeout())
	assert.Equal(t, defaultTimeoutFallback, cfg.GetExecutionTimeout())
}
