package validator

import (
	"regexp"

	"github.com/wildcard/caro/internal/model"
)

// Tag names one of the risk taxonomy categories.
type Tag string

const (
	TagFilesystemDestruction Tag = "filesystem-destruction"
	TagPrivilegeEscalation   Tag = "privilege-escalation"
	TagResourceBomb          Tag = "resource-bomb"
	TagNetworkExfiltration   Tag = "network-exfiltration"
	TagRawDeviceWrite        Tag = "raw-device-write"
	TagCredentialHandling    Tag = "credential-handling"
	TagElevatedSubstitution  Tag = "elevated-command-substitution"
	TagDangerousFind         Tag = "dangerous-find"
	TagSystemPathPermission  Tag = "system-path-permission"
)

// Rule is one compiled safety pattern.
type Rule struct {
	ID          string
	Pattern     *regexp.Regexp
	Tag         Tag
	BaseRisk    model.RiskLevel
	Critical    bool // always classifies critical regardless of context
	Alternative string
	AltDesc     string
}

// DefaultRules is the compiled, built-in pattern set. It intentionally
// favors precision over recall for the handful of taxonomy tags named
// explicitly; ManPageCache-driven structural checks (rules.go's sibling
// manpage.go) catch what regex alone cannot.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:       "rm-rf-root",
			Pattern:  regexp.MustCompile(`\brm\s+(-\w*[rf]\w*\s+)+(/|/\*|/etc\b|/boot\b|/bin\b|/usr\b)`),
			Tag:      TagFilesystemDestruction,
			BaseRisk: model.RiskCritical,
			Critical: true,
			AltDesc:  "scope the recursive delete to a specific path",
		},
		{
			ID:          "rm-recursive",
			Pattern:     regexp.MustCompile(`\brm\s+(-\w*r\w*|--recursive)\b`),
			Tag:         TagFilesystemDestruction,
			BaseRisk:    model.RiskHigh,
			Alternative: "rm -i",
			AltDesc:     "use -i to confirm each deletion",
		},
		{
			ID:          "dd-to-device",
			Pattern:     regexp.MustCompile(`\bdd\s+[^|]*\bof=/dev/`),
			Tag:         TagRawDeviceWrite,
			BaseRisk:    model.RiskCritical,
			Critical:    true,
			AltDesc:     "double-check the target device path before writing",
		},
		{
			ID:          "fork-bomb",
			Pattern:     regexp.MustCompile(`:\(\)\s*\{\s*:\s*\|\s*:\s*&\s*\}\s*;\s*:`),
			Tag:         TagResourceBomb,
			BaseRisk:    model.RiskCritical,
			Critical:    true,
			AltDesc:     "this pattern has no safe alternative; it should never run",
		},
		{
			ID:          "sudo-elevated",
			Pattern:     regexp.MustCompile(`\b(sudo|doas)\b`),
			Tag:         TagPrivilegeEscalation,
			BaseRisk:    model.RiskModerate,
			AltDesc:     "confirm the elevated command is scoped to what is needed",
		},
		{
			ID:          "chmod-system-path",
			Pattern:     regexp.MustCompile(`\b(chmod|chown)\s+[^\s]+\s+(/etc|/boot|/bin|/usr|/var|/)\b`),
			Tag:         TagSystemPathPermission,
			BaseRisk:    model.RiskHigh,
			AltDesc:     "avoid changing ownership or mode of system directories",
		},
		{
			ID:          "find-delete",
			Pattern:     regexp.MustCompile(`\bfind\s+.*-delete\b`),
			Tag:         TagDangerousFind,
			BaseRisk:    model.RiskHigh,
			Alternative: "find {{path}} -maxdepth 1 -delete",
			AltDesc:     "add -maxdepth to bound the search before deleting",
		},
		{
			ID:          "find-exec-rm",
			Pattern:     regexp.MustCompile(`\bfind\s+.*-exec\s+rm\b`),
			Tag:         TagDangerousFind,
			BaseRisk:    model.RiskHigh,
			AltDesc:     "preview matches with -print before switching -exec to rm",
		},
		{
			ID:          "curl-pipe-shell",
			Pattern:     regexp.MustCompile(`\b(curl|wget)\b[^|]*\|\s*(sudo\s+)?(sh|bash|zsh)\b`),
			Tag:         TagNetworkExfiltration,
			BaseRisk:    model.RiskHigh,
			AltDesc:     "download the script first and review it before executing",
		},
		{
			ID:          "nc-reverse-shell",
			Pattern:     regexp.MustCompile(`\bnc\s+.*-e\s`),
			Tag:         TagNetworkExfiltration,
			BaseRisk:    model.RiskHigh,
			AltDesc:     "remove the -e flag unless a reverse shell is genuinely intended",
		},
		{
			ID:          "cat-private-key",
			Pattern:     regexp.MustCompile(`\bcat\b[^|]*(id_rsa|id_ed25519|\.pem|\.ppk)\b`),
			Tag:         TagCredentialHandling,
			BaseRisk:    model.RiskModerate,
			AltDesc:     "avoid printing private key material to the terminal",
		},
		{
			ID:          "elevated-substitution",
			Pattern:     regexp.MustCompile(`\bsudo\s+\w+\s+.*\$\(`),
			Tag:         TagElevatedSubstitution,
			BaseRisk:    model.RiskHigh,
			AltDesc:     "resolve command substitution before passing it to sudo",
		},
	}
}
