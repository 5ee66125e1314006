// Package config loads caro's layered configuration: compiled defaults,
// merged with a TOML document from the platform config directory, overridden
// by CARO_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/wildcard/caro/internal/logging"
)

// Config holds all of caro's configuration.
type Config struct {
	LLM          LLMConfig          `toml:"llm"`
	Execution    ExecutionConfig    `toml:"execution"`
	Safety       SafetyConfig       `toml:"safety"`
	Cache        CacheConfig        `toml:"cache"`
	Logging      LoggingConfig      `toml:"logging"`
	Orchestrator OrchestratorConfig `toml:"orchestrator"`
}

// DefaultConfig returns caro's compiled-in defaults.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			RemoteProvider: "gemini",
			Model:          "gemini-2.0-flash",
			Timeout:        "30s",
			LocalEnabled:   false,
		},
		Execution: ExecutionConfig{
			AllowedBinaries: []string{
				"ls", "cat", "grep", "find", "cp", "mv", "mkdir", "rm",
				"tar", "gzip", "chmod", "chown", "df", "du", "ps", "kill",
				"git", "curl", "wget", "ssh", "rsync",
			},
			DefaultTimeout:   "30s",
			TerminationGrace: "2s",
			WorkingDirectory: ".",
			AllowedEnvVars:   []string{"PATH", "HOME", "USER", "LANG", "TERM"},
			MaxOutputBytes:   1 << 20, // 1MiB
			MaxMemoryMB:      512,
			RequireConfirm:   true,
			AutoApproveSafe:  false,
		},
		Safety: SafetyConfig{
			Floor:                    "moderate",
			BlockCritical:            true,
			RequireConfirmHigh:       true,
			ManPageValidationEnabled: false,
		},
		Cache: CacheConfig{
			Dir:                 defaultCacheDir(),
			ModelCacheMaxBytes:  4 << 30, // 4GiB
			ManPageTTL:          "720h",  // 30 days
			ManPageWatchEnabled: true,
		},
		Logging: LoggingConfig{
			Enabled: false,
			Level:   "info",
			JSON:    false,
		},
		Orchestrator: OrchestratorConfig{
			MaxRetries:             2,
			ConfidenceThreshold:    0.6,
			ClarificationThreshold: 0.35,
			CrossPlatformDefault:   false,
		},
	}
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "caro")
	}
	return ".caro-cache"
}

// DefaultConfigPath returns the platform-conventional location of caro's
// single TOML config document.
func DefaultConfigPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "caro", "config.toml")
	}
	return ".caro.toml"
}

// DefaultTemplatesOverrideDir returns the per-user prompt template override
// directory.
func DefaultTemplatesOverrideDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "caro", "templates")
	}
	return ".caro-templates"
}

// Load reads configuration from a TOML file, falling back to defaults when
// the file does not exist, then layers CARO_* environment overrides on top.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	logging.Get(logging.CategoryBoot).Debug("loading config from %s", path)

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			logging.Get(logging.CategoryBoot).Info("config file not found, using defaults: %s", path)
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("stat config: %w", err)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		logging.Get(logging.CategoryBoot).Error("failed to parse config file %s: %v", path, err)
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	logging.Get(logging.CategoryBoot).Info("config loaded: provider=%s model=%s", cfg.LLM.RemoteProvider, cfg.LLM.Model)
	return cfg, nil
}

// Save writes configuration to a TOML file, creating parent directories as
// needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open config for write: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}

// applyEnvOverrides layers CARO_* environment variables over the loaded
// config: the first match in each chain wins, later calls in the same
// chain never clobber an earlier hit.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("CARO_OPENAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.RemoteProvider = "openai"
	} else if key := os.Getenv("CARO_GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.RemoteProvider = "gemini"
	} else if key := os.Getenv("CARO_API_KEY"); key != "" {
		c.LLM.APIKey = key
		if c.LLM.RemoteProvider == "" {
			c.LLM.RemoteProvider = "gemini"
		}
	}

	if url := os.Getenv("CARO_OLLAMA_URL"); url != "" {
		c.LLM.BaseURL = url
		c.LLM.RemoteProvider = "ollama"
	}

	if dir := os.Getenv("CARO_CACHE_DIR"); dir != "" {
		c.Cache.Dir = dir
	}
	if floor := os.Getenv("CARO_SAFETY_FLOOR"); floor != "" {
		c.Safety.Floor = floor
	}
	if level := os.Getenv("CARO_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
		c.Logging.Enabled = true
	}
	if model := os.Getenv("CARO_LOCAL_MODEL_ID"); model != "" {
		c.LLM.LocalModelID = model
		c.LLM.LocalEnabled = true
	}
}

// defaultTimeoutFallback is used when a configured duration string fails to
// parse, so a bad config value degrades gracefully instead of panicking.
const defaultTimeoutFallback = 30 * time.Second

// GetLLMTimeout returns the LLM call timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return defaultTimeoutFallback
	}
	return d
}

// GetExecutionTimeout returns the default execution timeout as a duration.
func (c *Config) GetExecutionTimeout() time.Duration {
	d, err := time.ParseDuration(c.Execution.DefaultTimeout)
	if err != nil {
		return defaultTimeoutFallback
	}
	return d
}

// GetTerminationGrace returns the post-SIGTERM grace period as a duration
// before the executor escalates to a forceful kill.
func (c *Config) GetTerminationGrace() time.Duration {
	d, err := time.ParseDuration(c.Execution.TerminationGrace)
	if err != nil {
		return 2 * time.Second
	}
	return d
}

// GetManPageTTL returns the man-page cache TTL as a duration.
func (c *Config) GetManPageTTL() time.Duration {
	d, err := time.ParseDuration(c.Cache.ManPageTTL)
	if err != nil {
		return 30 * 24 * time.Hour
	}
	return d
}

// Validate checks the remote provider, the safety floor, and that some LLM
// backend is configured. DefaultConfig alone does not pass: it carries no
// API key, so a key, CARO_OLLAMA_URL, or a local model must be supplied.
func (c *Config) Validate() error {
	validProvider := false
	for _, p := range ValidRemoteProviders {
		if c.LLM.RemoteProvider == p {
			validProvider = true
			break
		}
	}
	if !validProvider {
		return fmt.Errorf("invalid llm.remote_provider: %s (valid: %v)", c.LLM.RemoteProvider, ValidRemoteProviders)
	}

	validFloor := false
	for _, f := range ValidSafetyFloors {
		if c.Safety.Floor == f {
			validFloor = true
			break
		}
	}
	if !validFloor {
		return fmt.Errorf("invalid safety.floor: %s (valid: %v)", c.Safety.Floor, ValidSafetyFloors)
	}

	if c.LLM.RemoteProvider != "ollama" && c.LLM.APIKey == "" && !c.LLM.LocalEnabled {
		return fmt.Errorf("no LLM backend configured: set an API key, CARO_OLLAMA_URL, or enable a local model")
	}

	return nil
}
