package validator

import "github.com/wildcard/caro/internal/model"

// ToolLookup is the narrow read interface the validator needs from a
// man-page cache: whether a flag is known-supported or explicitly
// forbidden for a given tool on the current platform. internal/manpage's
// ManPageCache implements this.
type ToolLookup interface {
	Lookup(tool string) (model.ToolInfo, bool)
}

// structuralWarnings checks argv flags against tool for known/forbidden
// flags, returning warnings, an extra risk contribution for
// unknown/forbidden flags on destructive tools, and whether any warning was
// produced at all. That last value tells the orchestrator the command is
// structurally repairable (a platform/flag mismatch caught against the
// man-page cache, not a risk-pattern match) and should be fed back to the
// generating engine for another attempt rather than presented as final.
func structuralWarnings(lookup ToolLookup, segments []model.ParsedSegment) ([]string, model.RiskLevel, bool) {
	if lookup == nil {
		return nil, model.RiskSafe, false
	}

	var warnings []string
	extra := model.RiskSafe

	for _, seg := range segments {
		if len(seg.Argv) == 0 {
			continue
		}
		tool := seg.Argv[0]
		info, ok := lookup.Lookup(tool)
		if !ok {
			continue
		}
		for _, arg := range seg.Argv[1:] {
			if !looksLikeFlag(arg) {
				continue
			}
			if _, forbidden := info.ForbiddenFlags[arg]; forbidden {
				warnings = append(warnings, tool+" "+arg+" is a forbidden flag for this tool")
				if extra < model.RiskHigh {
					extra = model.RiskHigh
				}
				continue
			}
			if len(info.SupportedFlags) == 0 {
				continue
			}
			if _, known := info.SupportedFlags[arg]; !known {
				warnings = append(warnings, tool+" "+arg+" is not a recognized flag")
				if isDestructiveTool(tool) && extra < model.RiskModerate {
					extra = model.RiskModerate
				}
			}
		}
	}
	return warnings, extra, len(warnings) > 0
}

func looksLikeFlag(arg string) bool {
	return len(arg) > 0 && arg[0] == '-'
}

func isDestructiveTool(tool string) bool {
	switch tool {
	case "rm", "dd", "mkfs", "chmod", "chown", "shred", "find":
		return true
	}
	return false
}
