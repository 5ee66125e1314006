package enginerouter

import (
	"regexp"

	"github.com/wildcard/caro/internal/model"
)

func mustCompile(pattern string) *regexp.Regexp {
	return regexp.MustCompile(pattern)
}

// DefaultRules is the compiled, built-in pattern set for the zero-priority
// RulesEngine: the handful of everyday phrasings common enough to resolve
// without ever calling an LLM ("template lookup" tier).
// NewPrivateRulesEngine starts from an empty slice and grows only through
// explicit user confirmation of a mined LearnedPattern.
func DefaultRules() []CommandRule {
	return []CommandRule{
		{
			ID:       "list-files",
			Pattern:  mustCompile(`(?i)^(?:list|show)(?: me)? (?:the )?files(?: in (?P<path>\S+))?$`),
			Template: "ls -la {{path}}",
			RiskHint: model.RiskSafe,
			Defaults: map[string]string{"path": "."},
		},
		{
			ID:       "disk-usage",
			Pattern:  mustCompile(`(?i)^(?:show|check) disk (?:usage|space)(?: (?:for|in|on) (?P<path>\S+))?$`),
			Template: "df -h {{path}}",
			RiskHint: model.RiskSafe,
			Defaults: map[string]string{"path": "/"},
		},
		{
			ID:       "dir-size",
			Pattern:  mustCompile(`(?i)^(?:how big is|show the size of) (?P<path>\S+)$`),
			Template: "du -sh {{path}}",
			RiskHint: model.RiskSafe,
		},
		{
			ID:       "find-large-files",
			Pattern:  mustCompile(`(?i)^find (?:the )?(?:largest|biggest) files(?: in (?P<path>\S+))?$`),
			Template: "find {{path}} -type f -exec du -h {} + | sort -rh | head -20",
			RiskHint: model.RiskSafe,
			Defaults: map[string]string{"path": "."},
		},
		{
			ID:       "process-list",
			Pattern:  mustCompile(`(?i)^(?:list|show) (?:all )?(?:running )?processes$`),
			Template: "ps aux",
			RiskHint: model.RiskSafe,
		},
		{
			ID:       "count-lines",
			Pattern:  mustCompile(`(?i)^count (?:the )?lines(?: in)? (?P<path>\S+)$`),
			Template: "wc -l {{path}}",
			RiskHint: model.RiskSafe,
		},
		{
			ID:       "grep-recursive",
			Pattern:  mustCompile(`(?i)^(?:search|find)(?: for)? "(?P<needle>[^"]+)" in (?P<path>\S+)$`),
			Template: `grep -rn "{{needle}}" {{path}}`,
			RiskHint: model.RiskSafe,
		},
		{
			ID:       "tar-create",
			Pattern:  mustCompile(`(?i)^(?:compress|archive|tar up) (?P<path>\S+)$`),
			Template: "tar -czf {{path}}.tar.gz {{path}}",
			RiskHint: model.RiskModerate,
		},
		{
			ID:       "remove-directory",
			Pattern:  mustCompile(`(?i)^(?:remove|delete) (?:the )?directory (?P<path>\S+)$`),
			Template: "rm -ri {{path}}",
			RiskHint: model.RiskModerate,
		},
	}
}
