package config

// CacheConfig locates and bounds the on-disk caches (model artifacts and
// man-page index).
type CacheConfig struct {
	Dir                 string `toml:"dir"`
	ModelCacheMaxBytes  int64  `toml:"model_cache_max_bytes"`
	ManPageTTL          string `toml:"manpage_ttl"`
	ManPageWatchEnabled bool   `toml:"manpage_watch_enabled"`
}

// OrchestratorConfig tunes the generate/validate/clarify state machine.
type OrchestratorConfig struct {
	MaxRetries             int     `toml:"max_retries"`
	ConfidenceThreshold    float64 `toml:"confidence_threshold"`
	ClarificationThreshold float64 `toml:"clarification_threshold"`
	CrossPlatformDefault   bool    `toml:"cross_platform_default"`
}
