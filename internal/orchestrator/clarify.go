package orchestrator

import "github.com/wildcard/caro/internal/model"

// ClarificationQuestion is one closed-form question with an explicit
// option set and default.
type ClarificationQuestion struct {
	Prompt  string
	Options []string
	Default string
	Factor  AmbiguityFactor
}

// BuildQuestions emits one closed-form question per factor an Analysis
// identified, at most four. A factor with no question template is skipped
// rather than padding the list with a generic question a later retry
// could not disambiguate anyway, so a single-factor Analysis yields a
// single question and an Analysis with no factors yields none.
func BuildQuestions(a Analysis) []ClarificationQuestion {
	var qs []ClarificationQuestion

	for _, f := range a.Factors {
		switch f {
		case FactorMissingTarget:
			qs = append(qs, ClarificationQuestion{
				Prompt:  "Which path or target should this apply to?",
				Options: []string{"current directory", "a specific file or folder"},
				Default: "current directory",
				Factor:  f,
			})
		case FactorUnscopedDestructive:
			qs = append(qs, ClarificationQuestion{
				Prompt:  "Should this be scoped to a subdirectory, or do you mean the whole target?",
				Options: []string{"scope to a subdirectory", "the whole target"},
				Default: "scope to a subdirectory",
				Factor:  f,
			})
		case FactorVagueVerb:
			qs = append(qs, ClarificationQuestion{
				Prompt:  "What specifically should happen (e.g. remove build artifacts, fix permissions, reformat code)?",
				Options: []string{"remove build artifacts", "fix permissions", "reformat code", "something else"},
				Default: "remove build artifacts",
				Factor:  f,
			})
		case FactorUnderspecifiedSelector:
			qs = append(qs, ClarificationQuestion{
				Prompt:  "Which files does that selector refer to?",
				Options: []string{"all files in the target", "files matching a pattern"},
				Default: "all files in the target",
				Factor:  f,
			})
		}
		if len(qs) >= 4 {
			break
		}
	}

	if len(qs) > 4 {
		qs = qs[:4]
	}
	return qs
}

// ApplyAnswers merges closed-form answers into req as Clarification
// records; orchestrator.Run calls this after the user responds.
func ApplyAnswers(req *model.CommandRequest, questions []ClarificationQuestion, answers []string) {
	for i, q := range questions {
		answer := q.Default
		if i < len(answers) && answers[i] != "" {
			answer = answers[i]
		}
		req.Clarifications = append(req.Clarifications, model.Clarification{
			Question: q.Prompt,
			Answer:   answer,
		})
	}
}
