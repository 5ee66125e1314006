package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/wildcard/caro/internal/model"
	"github.com/wildcard/caro/internal/orchestrator"
)

// jsonResult is the --output json shape: additive evolution only, so new
// fields must always be optional to a consumer that doesn't know about
// them yet.
type jsonResult struct {
	Command      string              `json:"command"`
	Explanation  string              `json:"explanation"`
	Risk         string              `json:"risk"`
	Confidence   float64             `json:"confidence"`
	Backend      string              `json:"backend"`
	Warnings     []string            `json:"warnings"`
	Alternatives []model.Alternative `json:"alternatives"`
	ExitCode     *int                `json:"exit_code,omitempty"`
	Stdout       *string             `json:"stdout,omitempty"`
	Stderr       *string             `json:"stderr,omitempty"`
	DurationMs   *int64              `json:"duration_ms,omitempty"`
	Reason       string              `json:"reason,omitempty"`
}

func writeResult(w io.Writer, format string, outcome orchestrator.Outcome, exec *model.ExecutionResult) error {
	if format == "json" {
		return writeJSONResult(w, outcome, exec)
	}
	return writeTextResult(w, outcome, exec)
}

func writeJSONResult(w io.Writer, outcome orchestrator.Outcome, exec *model.ExecutionResult) error {
	res := jsonResult{
		Command:      outcome.Generated.Command,
		Explanation:  outcome.Generated.Explanation,
		Risk:         outcome.Validation.Risk.String(),
		Confidence:   outcome.Confidence,
		Backend:      string(outcome.Generated.Backend),
		Warnings:     outcome.Validation.Warnings,
		Alternatives: outcome.Validation.Alternatives,
		Reason:       outcome.Reason,
	}
	if res.Warnings == nil {
		res.Warnings = []string{}
	}
	if res.Alternatives == nil {
		res.Alternatives = []model.Alternative{}
	}
	if exec != nil {
		code := exec.ExitCode
		res.ExitCode = &code
		res.Stdout = &exec.Stdout
		res.Stderr = &exec.Stderr
		ms := exec.WallTime.Milliseconds()
		res.DurationMs = &ms
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func writeTextResult(w io.Writer, outcome orchestrator.Outcome, exec *model.ExecutionResult) error {
	if outcome.Status == orchestrator.StatusBlocked && outcome.Generated.Command == "" {
		fmt.Fprintf(w, "No command could be generated: %s\n", outcome.Reason)
		return nil
	}

	fmt.Fprintf(w, "$ %s\n", outcome.Generated.Command)
	if outcome.Generated.Explanation != "" {
		fmt.Fprintf(w, "  %s\n", outcome.Generated.Explanation)
	}
	fmt.Fprintf(w, "risk=%s confidence=%.2f backend=%s\n",
		outcome.Validation.Risk.String(), outcome.Confidence, outcome.Generated.Backend)

	for _, warn := range outcome.Validation.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
	for _, alt := range outcome.Validation.Alternatives {
		fmt.Fprintf(w, "alternative (%s): %s\n", alt.Description, alt.Command)
	}
	if outcome.Reason != "" {
		fmt.Fprintf(w, "%s\n", outcome.Reason)
	}

	if exec != nil {
		fmt.Fprintf(w, "--- exit=%d duration=%s ---\n", exec.ExitCode, exec.WallTime)
		if exec.Stdout != "" {
			fmt.Fprint(w, exec.Stdout)
			if exec.Stdout[len(exec.Stdout)-1] != '\n' {
				fmt.Fprintln(w)
			}
		}
		if exec.Stderr != "" {
			fmt.Fprint(w, exec.Stderr)
		}
	}
	return nil
}
