package enginerouter

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/wildcard/caro/internal/model"
)

// CommandRule is one compiled entry in a RulesEngine: a pattern that, on
// match, instantiates a command template from named captures and defaults.
type CommandRule struct {
	ID       string
	Pattern  *regexp.Regexp
	Template string
	RiskHint model.RiskLevel
	Defaults map[string]string
}

// Instantiate fills Template's {{name}} placeholders from the pattern's
// named captures, falling back to Defaults for unmatched names.
func (r CommandRule) Instantiate(text string) (string, bool) {
	match := r.Pattern.FindStringSubmatch(text)
	if match == nil {
		return "", false
	}

	values := map[string]string{}
	for k, v := range r.Defaults {
		values[k] = v
	}
	for i, name := range r.Pattern.SubexpNames() {
		if i == 0 || name == "" {
			continue
		}
		if match[i] != "" {
			values[name] = match[i]
		}
	}

	out := r.Template
	for k, v := range values {
		out = strings.ReplaceAll(out, "{{"+k+"}}", v)
	}
	return out, true
}

// RulesEngine deterministically maps known natural-language phrasings to a
// command via a priority-ordered, non-overlapping pattern set. It never
// calls an LLM, so confidence is always 1.0 and latency is sub-millisecond.
type RulesEngine struct {
	id       model.EngineID
	priority uint8
	rules    []CommandRule
}

// NewRulesEngine constructs the static, compiled-in RulesEngine.
func NewRulesEngine(rules []CommandRule) *RulesEngine {
	return &RulesEngine{id: model.EngineRules, priority: 0, rules: rules}
}

// NewPrivateRulesEngine constructs a RulesEngine over a per-user rule store
// (learned patterns promoted from corrections); same matching semantics,
// different priority and provenance.
func NewPrivateRulesEngine(rules []CommandRule) *RulesEngine {
	return &RulesEngine{id: model.EnginePrivateRules, priority: 1, rules: rules}
}

func (e *RulesEngine) ID() model.EngineID { return e.id }
func (e *RulesEngine) Priority() uint8     { return e.priority }

func (e *RulesEngine) CanHandle(req *model.CommandRequest) bool {
	for _, rule := range e.rules {
		if rule.Pattern.MatchString(req.OriginalText) {
			return true
		}
	}
	return false
}

// Rules exposes the compiled rule set (read-only use, e.g. by tests or a
// learned-pattern promotion flow that needs to detect overlap).
func (e *RulesEngine) Rules() []CommandRule { return e.rules }

// TryGenerate matches req.OriginalText against the compiled rule set and
// instantiates the first hit's template. ctx is unused: rule matching never
// blocks.
func (e *RulesEngine) TryGenerate(_ context.Context, req *model.CommandRequest) (model.GeneratedCommand, error) {
	start := time.Now()
	for _, rule := range e.rules {
		if cmd, ok := rule.Instantiate(req.OriginalText); ok {
			return model.GeneratedCommand{
				Command:    cmd,
				Backend:    e.id,
				Confidence: 1.0,
				Latency:    time.Since(start),
			}, nil
		}
	}
	return model.GeneratedCommand{}, &EngineFailure{Kind: FailureNoMatch, Engine: e.id, Reason: "no rule matched"}
}

// ValidateNonOverlapping checks that no two rules in the same priority tier
// match the same probe string, keeping the compiled regex set complete and
// non-overlapping. Intended for startup self-checks and tests.
func ValidateNonOverlapping(rules []CommandRule, probes []string) error {
	for _, probe := range probes {
		matched := ""
		for _, rule := range rules {
			if rule.Pattern.MatchString(probe) {
				if matched != "" {
					return fmt.Errorf("rules %s and %s both match %q", matched, rule.ID, probe)
				}
				matched = rule.ID
			}
		}
	}
	return nil
}
