// Package validator classifies a candidate command into the four-level
// risk taxonomy and decides whether it must be blocked, confirmed, or
// passed, per the safety pipeline: lex & tokenize, pattern match, structural
// checks against a man-page cache, risk composition, and alternatives.
package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wildcard/caro/internal/model"
)

// ErrMalformedCommand wraps a structural validation failure (e.g.
// unbalanced quoting) — distinct from a genuine risk-based block, this is
// the "recoverable" failure the orchestrator feeds back to the generator
// for another attempt rather than surfacing as a terminal stop.
var ErrMalformedCommand = fmt.Errorf("command failed structural validation")

// Decision is the confirmation posture the caller must enforce for a risk
// level under a given safety floor.
type Decision int

const (
	DecisionPass Decision = iota
	DecisionConfirmOnce
	DecisionConfirmTwice
	DecisionBlock
)

// Validator classifies candidate commands. It holds no per-call mutable
// state, so Validate is safe for concurrent use and idempotent: the same
// (command, shell, platform) tuple always yields byte-identical output.
type Validator struct {
	rules  []Rule
	lookup ToolLookup
}

// New constructs a Validator over the given rule set. Pass nil lookup to
// skip structural man-page checks (e.g. in offline/cross-platform modes
// before a ManPageCache has been built for the target).
func New(rules []Rule, lookup ToolLookup) *Validator {
	return &Validator{rules: rules, lookup: lookup}
}

// Validate runs the full pipeline over commandLine and returns the
// composed ValidationResult. shell and floor are accepted for interface
// symmetry with the (command, shell, platform) triple callers route on;
// the current rule set does not vary behavior by shell.
func (v *Validator) Validate(commandLine string, shell model.Shell, floor model.SafetyFloor) (model.ValidationResult, error) {
	segments, quoteMask, err := tokenizeWithQuoteMask(commandLine)
	if err != nil {
		return model.ValidationResult{
			Risk:     model.RiskHigh,
			Blocked:  true,
			Warnings: []string{"failed to tokenize command: " + err.Error()},
		}, fmt.Errorf("%w: %v", ErrMalformedCommand, err)
	}

	var matched []model.MatchedPattern
	risk := model.RiskSafe
	criticalHit := false
	altByRule := map[string]Rule{}

	for _, rule := range v.rules {
		for _, loc := range rule.Pattern.FindAllStringIndex(commandLine, -1) {
			if insideSingleQuotes(quoteMask, loc[0]) {
				continue
			}
			matched = append(matched, model.MatchedPattern{
				RuleID:   rule.ID,
				Tag:      string(rule.Tag),
				Start:    loc[0],
				End:      loc[1],
				BaseRisk: rule.BaseRisk,
			})
			altByRule[rule.ID] = rule
			if rule.Critical {
				criticalHit = true
			}
			if rule.BaseRisk > risk {
				risk = rule.BaseRisk
			}
		}
	}

	warnings, structuralExtra, structuralIssue := structuralWarnings(v.lookup, segments)
	if structuralExtra > risk {
		risk = structuralExtra
	}

	if !criticalHit {
		risk = escalate(risk, commandLine, segments)
	}

	alternatives := buildAlternatives(altByRule, commandLine)

	return model.ValidationResult{
		Risk:            risk,
		Blocked:         risk == model.RiskCritical,
		Matched:         matched,
		Warnings:        warnings,
		StructuralIssue: structuralIssue,
		Alternatives:    alternatives,
		Structure:       segments,
	}, nil
}

// Decide maps a risk level and safety floor to a confirmation posture.
func Decide(risk model.RiskLevel, floor model.SafetyFloor) Decision {
	switch risk {
	case model.RiskCritical:
		return DecisionBlock
	case model.RiskHigh:
		switch floor {
		case model.SafetyStrict:
			return DecisionBlock
		case model.SafetyPermissive:
			return DecisionConfirmOnce
		default:
			return DecisionConfirmTwice
		}
	case model.RiskModerate:
		if floor == model.SafetyPermissive {
			return DecisionPass
		}
		return DecisionConfirmOnce
	default:
		return DecisionPass
	}
}

func insideSingleQuotes(mask []bool, offset int) bool {
	if offset < 0 || offset >= len(mask) {
		return false
	}
	return mask[offset]
}

func buildAlternatives(byRule map[string]Rule, commandLine string) []model.Alternative {
	if len(byRule) == 0 {
		return nil
	}
	ids := make([]string, 0, len(byRule))
	for id := range byRule {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	alts := make([]model.Alternative, 0, len(byRule))
	for _, id := range ids {
		rule := byRule[id]
		if rule.AltDesc == "" {
			continue
		}
		cmd := commandLine
		if rule.Alternative != "" {
			cmd = substituteSaferForm(commandLine, rule)
		}
		alts = append(alts, model.Alternative{Description: rule.AltDesc, Command: cmd})
	}
	return alts
}

// substituteSaferForm applies a rule's templated safer form. Most rules
// only carry an AltDesc (a recommendation to the user); the few with an
// Alternative template rewrite the command's leading binary invocation.
func substituteSaferForm(commandLine string, rule Rule) string {
	switch rule.ID {
	case "rm-recursive":
		return strings.Replace(commandLine, "rm ", "rm -i ", 1)
	default:
		return commandLine
	}
}
