package config

// ExecutionConfig bounds what the SecureExecutor is allowed to run and how.
type ExecutionConfig struct {
	AllowedBinaries  []string `toml:"allowed_binaries"`
	DefaultTimeout   string   `toml:"default_timeout"`
	TerminationGrace string   `toml:"termination_grace"`
	WorkingDirectory string   `toml:"working_directory"`
	AllowedEnvVars   []string `toml:"allowed_env_vars"`

	MaxOutputBytes  int64 `toml:"max_output_bytes"`
	MaxMemoryMB     int   `toml:"max_memory_mb"`
	RequireConfirm  bool  `toml:"require_confirm"`
	AutoApproveSafe bool  `toml:"auto_approve_safe"`
}
