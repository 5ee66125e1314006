package config

// LoggingConfig drives internal/logging's Initialize call.
type LoggingConfig struct {
	Enabled bool   `toml:"enabled"`
	Level   string `toml:"level"`
	JSON    bool   `toml:"json"`
}
