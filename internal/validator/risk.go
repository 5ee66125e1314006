package validator

import (
	"regexp"
	"strings"

	"github.com/wildcard/caro/internal/model"
)

var rootTargetPattern = regexp.MustCompile(`(^|\s)(/|/\*|/etc|/boot|/bin|/usr|/var|/root)(\s|/?$)`)

// escalate applies the multipliers that are not already baked into a
// rule's base risk: a root target, absence of a path
// filter on a destructive tool invocation, and an elevated context. A
// rule's own BaseRisk already accounts for the pattern it matched (e.g.
// "rm -rf" itself is High); escalate only raises it further when the
// invocation's surrounding shape compounds the danger. Escalation alone
// can never produce RiskCritical — that classification is reserved for an
// explicit Critical rule match, per the "critical iff a critical pattern
// matched" invariant — so the result is capped at RiskHigh regardless of
// how many multipliers apply.
func escalate(base model.RiskLevel, command string, segments []model.ParsedSegment) model.RiskLevel {
	risk := base
	if risk >= model.RiskCritical {
		return risk
	}

	if rootTargetPattern.MatchString(command) {
		risk = bump(risk)
	}

	for _, seg := range segments {
		if len(seg.Argv) == 0 {
			continue
		}
		tool := seg.Argv[0]
		if !isDestructiveTool(tool) {
			continue
		}
		if !hasPathFilter(tool, seg.Argv) {
			risk = bump(risk)
		}
	}

	if strings.Contains(command, "sudo ") || strings.Contains(command, "doas ") {
		risk = bump(risk)
	}

	return risk
}

// bump raises r by one level, capped at RiskHigh: escalation multipliers
// may never promote a command all the way to RiskCritical on their own.
func bump(r model.RiskLevel) model.RiskLevel {
	if r < model.RiskHigh {
		return r + 1
	}
	return r
}

// hasPathFilter reports whether the invocation names a concrete,
// non-root path argument rather than operating on everything below a
// bare mount point.
func hasPathFilter(tool string, argv []string) bool {
	for _, a := range argv[1:] {
		if looksLikeFlag(a) {
			continue
		}
		if a == "/" || a == "/*" {
			return false
		}
		return true
	}
	return false
}
