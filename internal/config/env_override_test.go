package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvOverrides_LLM(t *testing.T) {
	t.Run("CARO_API_KEY sets provider if empty", func(t *testing.T) {
		t.Setenv("CARO_API_KEY", "generic-key")

		cfg := &Config{}
		cfg.applyEnvOverrides()

		assert.Equal(t, "generic-key", cfg.LLM.APIKey)
		assert.Equal(t, "gemini", cfg.LLM.RemoteProvider)
	})

	t.Run("CARO_API_KEY does not override existing provider", func(t *testing.T) {
		t.Setenv("CARO_API_KEY", "generic-key")

		cfg := &Config{LLM: LLMConfig{RemoteProvider: "openai"}}
		cfg.applyEnvOverrides()

		assert.Equal(t, "generic-key", cfg.LLM.APIKey)
		assert.Equal(t, "openai", cfg.LLM.RemoteProvider)
	})

	t.Run("CARO_GEMINI_API_KEY overrides provider", func(t *testing.T) {
		t.Setenv("CARO_GEMINI_API_KEY", "gem-key")

		cfg := &Config{LLM: LLMConfig{RemoteProvider: "openai"}}
		cfg.applyEnvOverrides()

		assert.Equal(t, "gem-key", cfg.LLM.APIKey)
		assert.Equal(t, "gemini", cfg.LLM.RemoteProvider)
	})

	t.Run("precedence: CARO_OPENAI_API_KEY wins over CARO_GEMINI_API_KEY", func(t *testing.T) {
		t.Setenv("CARO_GEMINI_API_KEY", "gem-key")
		t.Setenv("CARO_OPENAI_API_KEY", "oa-key")

		cfg := &Config{}
		cfg.applyEnvOverrides()

		assert.Equal(t, "oa-key", cfg.LLM.APIKey)
		assert.Equal(t, "openai", cfg.LLM.RemoteProvider)
	})

	t.Run("CARO_OLLAMA_URL switches provider to ollama", func(t *testing.T) {
		t.Setenv("CARO_OLLAMA_URL", "http://localhost:11434")

		cfg := &Config{}
		cfg.applyEnvOverrides()

		assert.Equal(t, "http://localhost:11434", cfg.LLM.BaseURL)
		assert.Equal(t, "ollama", cfg.LLM.RemoteProvider)
	})

	t.Run("CARO_LOCAL_MODEL_ID enables the local engine", func(t *testing.T) {
		t.Setenv("CARO_LOCAL_MODEL_ID", "tinyllama-1.1b")

		cfg := &Config{}
		cfg.applyEnvOverrides()

		assert.Equal(t, "tinyllama-1.1b", cfg.LLM.LocalModelID)
		assert.True(t, cfg.LLM.LocalEnabled)
	})
}

func TestEnvOverrides_CacheAndSafety(t *testing.T) {
	t.Run("CARO_CACHE_DIR", func(t *testing.T) {
		t.Setenv("CARO_CACHE_DIR", "/tmp/caro-cache")

		cfg := &Config{}
		cfg.applyEnvOverrides()

		assert.Equal(t, "/tmp/caro-cache", cfg.Cache.Dir)
	})

	t.Run("CARO_SAFETY_FLOOR", func(t *testing.T) {
		t.Setenv("CARO_SAFETY_FLOOR", "strict")

		cfg := &Config{}
		cfg.applyEnvOverrides()

		assert.Equal(t, "strict", cfg.Safety.Floor)
	})

	t.Run("CARO_LOG_LEVEL enables logging", func(t *testing.T) {
		t.Setenv("CARO_LOG_LEVEL", "debug")

		cfg := &Config{}
		cfg.applyEnvOverrides()

		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.True(t, cfg.Logging.Enabled)
	})
}
