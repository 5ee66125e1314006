package config

// SafetyConfig tunes the risk validator's thresholds and gating behavior.
type SafetyConfig struct {
	// Floor is the minimum confirmation posture: "strict", "moderate", or
	// "permissive" (model.SafetyFloor).
	Floor string `toml:"floor"`

	BlockCritical      bool `toml:"block_critical"`
	RequireConfirmHigh bool `toml:"require_confirm_high"`

	// ManPageValidationEnabled gates structural checks against the man-page
	// cache (unsupported-flag detection). Off by default; when on, the CLI
	// builds the cache at startup before handing it to the validator.
	ManPageValidationEnabled bool `toml:"manpage_validation_enabled"`
}

// ValidSafetyFloors lists the accepted SafetyConfig.Floor values.
var ValidSafetyFloors = []string{"strict", "moderate", "permissive"}
