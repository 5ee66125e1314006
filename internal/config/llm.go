package config

// LLMConfig configures the local and remote language-model backends used by
// the engine router's LocalLLMEngine/RemoteLLMEngine.
type LLMConfig struct {
	// RemoteProvider selects the hosted backend: "gemini", "openai", or
	// "ollama" (self-hosted, treated as remote-shaped but usually localhost).
	RemoteProvider string `toml:"remote_provider"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	BaseURL        string `toml:"base_url"`
	Timeout        string `toml:"timeout"`

	// LocalModelID names the on-device model the ModelCache should resolve;
	// empty disables the local-llm engine entirely.
	LocalModelID string `toml:"local_model_id"`
	LocalEnabled bool   `toml:"local_enabled"`
}

// ValidRemoteProviders lists the supported remote backend identifiers.
var ValidRemoteProviders = []string{"gemini", "openai", "ollama"}
