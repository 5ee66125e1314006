package orchestrator

import (
	"fmt"
	"strings"

	"github.com/wildcard/caro/internal/model"
)

// BuildFeedback produces the structured enrichment appended to the next
// prompt as req.ValidatorNotes: the specific rule id that failed, a
// platform-appropriate suggested correction, and one or two worked
// examples.
func BuildFeedback(gen model.GeneratedCommand, result model.ValidationResult) string {
	if len(result.Matched) == 0 && len(result.Warnings) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("The previous attempt was rejected by the safety validator.\n")

	for _, m := range result.Matched {
		fmt.Fprintf(&b, "- rule %q flagged this command (%s, risk=%s)\n", m.RuleID, m.Tag, m.BaseRisk)
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(&b, "- warning: %s\n", w)
	}

	if len(result.Alternatives) > 0 {
		b.WriteString("Worked examples of a safer form:\n")
		limit := len(result.Alternatives)
		if limit > 2 {
			limit = 2
		}
		for _, alt := range result.Alternatives[:limit] {
			fmt.Fprintf(&b, "  %s -> %s\n", alt.Description, alt.Command)
		}
	}

	fmt.Fprintf(&b, "The rejected command was: %s\n", gen.Command)
	b.WriteString("Generate a corrected command that avoids the flagged pattern(s).")
	return b.String()
}
