// Package enginerouter consults command-generation backends in priority
// order and returns the first successful GeneratedCommand.
package enginerouter

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wildcard/caro/internal/logging"
	"github.com/wildcard/caro/internal/model"
)

// FailureKind classifies why an engine declined or failed to produce a
// command.
type FailureKind string

const (
	FailureNoMatch        FailureKind = "no_match"
	FailureUnavailable    FailureKind = "unavailable"
	FailureMalformed      FailureKind = "malformed"
	FailureTimeout        FailureKind = "timeout"
	FailureInferenceError FailureKind = "inference_error"
)

// EngineFailure is the error type try_generate returns for a declined or
// failed attempt.
type EngineFailure struct {
	Kind   FailureKind
	Engine model.EngineID
	Reason string
}

func (f *EngineFailure) Error() string {
	return fmt.Sprintf("%s: %s (%s)", f.Engine, f.Reason, f.Kind)
}

// Engine is one pluggable command-generation backend.
type Engine interface {
	ID() model.EngineID
	Priority() uint8
	CanHandle(req *model.CommandRequest) bool
	TryGenerate(ctx context.Context, req *model.CommandRequest) (model.GeneratedCommand, error)
}

// AllEnginesFailedError carries every engine's failure reason when no
// engine could produce a command.
type AllEnginesFailedError struct {
	Failures []EngineFailure
}

func (e *AllEnginesFailedError) Error() string {
	return fmt.Sprintf("all %d engines failed", len(e.Failures))
}

type registration struct {
	engine    Engine
	coolUntil time.Time
}

// Router consults registered engines in ascending priority order
// (Rules=0, PrivateRules=1, LocalLLM=2, RemoteLLM=3 by convention), returning
// the first successful GeneratedCommand.
type Router struct {
	mu       sync.Mutex
	engines  []*registration
	coolDown time.Duration
}

// New constructs a Router. coolDown is how long a Timeout'd engine is
// skipped before being retried (spec: short cool-down on Timeout).
func New(coolDown time.Duration) *Router {
	if coolDown <= 0 {
		coolDown = 10 * time.Second
	}
	return &Router{coolDown: coolDown}
}

// Register adds an engine to the chain. Duplicate (priority,id) pairs are
// rejected at startup.
func (r *Router) Register(e Engine) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, reg := range r.engines {
		if reg.engine.Priority() == e.Priority() && reg.engine.ID() == e.ID() {
			return fmt.Errorf("duplicate engine registration: priority=%d id=%s", e.Priority(), e.ID())
		}
	}

	r.engines = append(r.engines, &registration{engine: e})
	sort.SliceStable(r.engines, func(i, j int) bool {
		pi, pj := r.engines[i].engine.Priority(), r.engines[j].engine.Priority()
		if pi != pj {
			return pi < pj
		}
		return r.engines[i].engine.ID() < r.engines[j].engine.ID()
	})
	return nil
}

// Route tries each registered engine in priority order and returns the
// first success, or AllEnginesFailedError carrying every reason.
func (r *Router) Route(ctx context.Context, req *model.CommandRequest) (model.GeneratedCommand, error) {
	log := logging.Get(logging.CategoryRouter)

	r.mu.Lock()
	snapshot := make([]*registration, len(r.engines))
	copy(snapshot, r.engines)
	r.mu.Unlock()

	var failures []EngineFailure
	now := time.Now()

	for _, reg := range snapshot {
		e := reg.engine

		if reg.coolUntil.After(now) {
			log.Debug("skipping %s: cooling down until %s", e.ID(), reg.coolUntil)
			failures = append(failures, EngineFailure{Kind: FailureUnavailable, Engine: e.ID(), Reason: "cooling down"})
			continue
		}

		if !e.CanHandle(req) {
			failures = append(failures, EngineFailure{Kind: FailureNoMatch, Engine: e.ID(), Reason: "declined to handle this request"})
			continue
		}

		gen, err := e.TryGenerate(ctx, req)
		if err == nil {
			if verr := gen.Validate(); verr != nil {
				log.Warn("%s produced an invalid GeneratedCommand: %v", e.ID(), verr)
				failures = append(failures, EngineFailure{Kind: FailureMalformed, Engine: e.ID(), Reason: verr.Error()})
				continue
			}
			log.Info("%s generated command in %s (confidence=%.2f)", e.ID(), gen.Latency, gen.Confidence)
			return gen, nil
		}

		var ef *EngineFailure
		if errors.As(err, &ef) {
			failures = append(failures, *ef)
			if ef.Kind == FailureTimeout {
				r.coolDownEngine(e.ID(), now.Add(r.coolDown))
			}
			if ef.Kind == FailureMalformed || ef.Kind == FailureInferenceError {
				log.Warn("%s: %s", e.ID(), ef.Reason)
			}
			continue
		}

		failures = append(failures, EngineFailure{Kind: FailureInferenceError, Engine: e.ID(), Reason: err.Error()})
	}

	return model.GeneratedCommand{}, &AllEnginesFailedError{Failures: failures}
}

func (r *Router) coolDownEngine(id model.EngineID, until time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, reg := range r.engines {
		if reg.engine.ID() == id {
			reg.coolUntil = until
		}
	}
}
