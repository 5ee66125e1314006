package main

import (
	"github.com/wildcard/caro/internal/manpage"
	"github.com/wildcard/caro/internal/model"
	"github.com/wildcard/caro/internal/platform"
	"github.com/wildcard/caro/internal/prompt"
)

func commonToolNames() []string { return manpage.CommonTools }

// variablesFor builds the prompt template substitution set for req, per
//{os, unix_flavor, shell, tools, user_input,
// clarifications, validator_feedback} contract.
func variablesFor(req *model.CommandRequest, fp platform.Fingerprint) prompt.Variables {
	clar := make([]string, 0, len(req.Clarifications))
	for _, c := range req.Clarifications {
		clar = append(clar, c.Question+" -> "+c.Answer)
	}
	return prompt.Variables{
		OS:                fp.OS,
		UnixFlavor:        string(fp.Flavor),
		Shell:             string(req.TargetShell),
		Tools:             commonToolNames(),
		UserInput:         req.OriginalText,
		Clarifications:    clar,
		ValidatorFeedback: req.ValidatorNotes,
	}
}
