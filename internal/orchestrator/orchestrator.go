// Package orchestrator drives a raw user prompt through the ambiguity
// analyzer, the engine router, and the safety validator, retrying with
// progressively richer context until a command clears or attempts are
// exhausted.
package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/wildcard/caro/internal/enginerouter"
	"github.com/wildcard/caro/internal/logging"
	"github.com/wildcard/caro/internal/model"
	"github.com/wildcard/caro/internal/validator"
)

// ErrInterrupted is returned by a ClarificationFunc when the user cancels
// out of a clarification prompt. Run collapses back to a fresh Start on
// this error rather than treating it as a failure.
var ErrInterrupted = errors.New("orchestrator: clarification interrupted by user")

// Status is the terminal state Run reached for one request.
type Status int

const (
	StatusPresent Status = iota
	StatusPresentConsent
	StatusBlocked
	StatusInterrupted
)

func (s Status) String() string {
	switch s {
	case StatusPresent:
		return "present"
	case StatusPresentConsent:
		return "present-consent"
	case StatusBlocked:
		return "blocked"
	case StatusInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// Outcome is the result of running a CommandRequest through the full
// orchestrator state machine.
type Outcome struct {
	Status     Status
	Request    *model.CommandRequest
	Generated  model.GeneratedCommand
	Validation model.ValidationResult
	Decision   validator.Decision
	Confidence float64
	Reason     string
}

// ClarificationFunc receives the questions BuildQuestions produced for an
// Analyze result, alongside the request, so an interactive caller can
// prompt the user; it returns one answer per question.
type ClarificationFunc func(ctx context.Context, req *model.CommandRequest, questions []ClarificationQuestion) ([]string, error)

// Config tunes the orchestrator's retry and clarification policy.
type Config struct {
	MaxAttempts          int  // total attempts including the first; default 3
	OfferOptionalClarify bool // ask on the 0.3-0.7 band, not just >=0.7
}

// DefaultConfig returns the default retry and clarification policy.
func DefaultConfig() Config {
	return Config{MaxAttempts: 3, OfferOptionalClarify: true}
}

// Orchestrator wires the engine router and safety validator into the
// Start->Analyze->[Clarify]->Generate->Validate state machine.
type Orchestrator struct {
	router *enginerouter.Router
	val    *validator.Validator
	cfg    Config
}

// New constructs an Orchestrator. router and val must be non-nil.
func New(router *enginerouter.Router, val *validator.Validator, cfg Config) *Orchestrator {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	return &Orchestrator{router: router, val: val, cfg: cfg}
}

// Run drives req through the full state machine, calling clarify at most
// once per invocation when the ambiguity analyzer asks for it. clarify may
// be nil, in which case mandatory clarification is skipped and the
// request proceeds to Generate as-is (useful for non-interactive callers
// that have already resolved ambiguity upstream, e.g. --yes batch mode).
func (o *Orchestrator) Run(ctx context.Context, req *model.CommandRequest, clarify ClarificationFunc) (Outcome, error) {
	log := logging.Get(logging.CategoryOrchestrator)

	analysis := Analyze(req.OriginalText)
	resolvedAmbiguity := 1.0 - analysis.Score

	needsClarify := analysis.RequiresClarification() ||
		(o.cfg.OfferOptionalClarify && analysis.PermitsOptionalClarification())

	if needsClarify && clarify != nil {
		questions := BuildQuestions(analysis)
		if len(questions) > 0 {
			answers, err := clarify(ctx, req, questions)
			if err != nil {
				if errors.Is(err, ErrInterrupted) {
					log.Info("clarification interrupted for request %s", req.ID)
					return Outcome{Status: StatusInterrupted, Request: req}, nil
				}
				return Outcome{}, fmt.Errorf("clarification: %w", err)
			}
			ApplyAnswers(req, questions, answers)
			resolvedAmbiguity = 1.0
		}
	}

	for {
		if ctx.Err() != nil {
			return Outcome{}, ctx.Err()
		}

		req.MarkRouted()
		gen, err := o.router.Route(ctx, req)
		if err != nil {
			log.Warn("request %s: all engines failed: %v", req.ID, err)
			return Outcome{
				Status:  StatusBlocked,
				Request: req,
				Reason:  fmt.Sprintf("no engine could generate a command: %v", err),
			}, nil
		}

		result, verr := o.val.Validate(gen.Command, req.TargetShell, req.SafetyFloor)

		if verr != nil {
			// recoverable-fail: a structural/tokenization failure, not a
			// risk-based block. Feed it back and retry until attempts run
			// out, feeding the validator's notes back into the next generation.
			if !errors.Is(verr, validator.ErrMalformedCommand) {
				return Outcome{}, fmt.Errorf("validate: %w", verr)
			}
			if req.Attempt >= o.cfg.MaxAttempts {
				log.Warn("request %s: attempts exhausted after malformed output", req.ID)
				return Outcome{
					Status:     StatusBlocked,
					Request:    req,
					Generated:  gen,
					Validation: result,
					Reason:     "generation attempts exhausted after repeated malformed output",
				}, nil
			}
			notes := BuildFeedback(gen, result)
			req = req.WithEnrichment(notes)
			log.Debug("request %s: malformed output, retrying as attempt %d", req.ID, req.Attempt)
			continue
		}

		if result.StructuralIssue && req.Attempt < o.cfg.MaxAttempts {
			// recoverable-fail: the man-page cache flagged an unsupported or
			// forbidden flag, not a risk-pattern match. Feed the specific
			// flag and a safer alternative back to the generating engine
			// rather than presenting or confirming a command we already
			// know is wrong for this platform.
			notes := BuildFeedback(gen, result)
			req = req.WithEnrichment(notes)
			log.Debug("request %s: structural flag issue, retrying as attempt %d", req.ID, req.Attempt)
			continue
		}

		decision := validator.Decide(result.Risk, req.SafetyFloor)

		switch decision {
		case validator.DecisionBlock:
			log.Info("request %s: blocked at risk=%s", req.ID, result.Risk)
			return Outcome{
				Status:     StatusBlocked,
				Request:    req,
				Generated:  gen,
				Validation: result,
				Decision:   decision,
				Reason:     "command classified " + result.Risk.String() + " and is blocked under the configured safety floor",
			}, nil

		case validator.DecisionPass:
			confidence := computeConfidence(result, resolvedAmbiguity, req)
			return Outcome{
				Status:     StatusPresent,
				Request:    req,
				Generated:  gen,
				Validation: result,
				Decision:   decision,
				Confidence: confidence,
			}, nil

		default: // DecisionConfirmOnce, DecisionConfirmTwice
			confidence := computeConfidence(result, resolvedAmbiguity, req)
			return Outcome{
				Status:     StatusPresentConsent,
				Request:    req,
				Generated:  gen,
				Validation: result,
				Decision:   decision,
				Confidence: confidence,
			}, nil
		}
	}
}

// computeConfidence applies a weighted formula:
// 0.4*validation + 0.3*ambiguity_resolved + 0.2*platform_compat + 0.1*safety_margin.
func computeConfidence(result model.ValidationResult, ambiguityResolved float64, req *model.CommandRequest) float64 {
	validationScore := 1.0 - float64(result.Risk)/float64(model.RiskCritical)

	platformCompat := 1.0
	if req.CrossPlatform {
		platformCompat = 0.7
	}

	safetyMargin := 1.0 - float64(result.Risk)/float64(model.RiskCritical)

	confidence := 0.4*validationScore + 0.3*ambiguityResolved + 0.2*platformCompat + 0.1*safetyMargin
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return confidence
}
