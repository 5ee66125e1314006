package enginerouter

import (
	"context"
	"fmt"
	"time"

	"github.com/wildcard/caro/internal/logging"
	"github.com/wildcard/caro/internal/model"
	"github.com/wildcard/caro/internal/modelcache"
)

// Generator is the minimal on-device inference contract a LocalLLMEngine
// drives once it has resolved a verified model artifact. A real backend
// (e.g. a CGo llama.cpp binding) implements this; tests use a stub.
type Generator interface {
	Generate(ctx context.Context, artifactPath, prompt string) (string, error)
}

// LocalLLMEngine resolves an on-device model artifact through modelcache,
// then drives an in-process Generator to produce a reply, subject to the
// same two-pass JSON parsing contract as the remote engines.
type LocalLLMEngine struct {
	cache       *modelcache.Cache
	generator   Generator
	modelID     string
	variant     string
	promptBuild func(req *model.CommandRequest) string
}

// NewLocalLLMEngine constructs a LocalLLMEngine bound to one (modelID,
// variant) pair in the cache's registry.
func NewLocalLLMEngine(cache *modelcache.Cache, generator Generator, modelID, variant string, promptBuild func(*model.CommandRequest) string) *LocalLLMEngine {
	return &LocalLLMEngine{
		cache:       cache,
		generator:   generator,
		modelID:     modelID,
		variant:     variant,
		promptBuild: promptBuild,
	}
}

func (e *LocalLLMEngine) ID() model.EngineID { return model.EngineLocalLLM }
func (e *LocalLLMEngine) Priority() uint8    { return 2 }

// CanHandle is unconditional: availability is discovered inside TryGenerate
// when the artifact fails to resolve, which is reported as Unavailable
// rather than silently skipped.
func (e *LocalLLMEngine) CanHandle(req *model.CommandRequest) bool { return true }

func (e *LocalLLMEngine) TryGenerate(ctx context.Context, req *model.CommandRequest) (model.GeneratedCommand, error) {
	log := logging.Get(logging.CategoryRouter)

	artifact, err := e.cache.Get(ctx, e.modelID, e.variant)
	if err != nil {
		return model.GeneratedCommand{}, &EngineFailure{Kind: FailureUnavailable, Engine: e.ID(), Reason: fmt.Sprintf("model artifact unavailable: %v", err)}
	}

	release := e.cache.Acquire(e.modelID, e.variant)
	defer release()

	prompt := e.promptBuild(req)

	start := time.Now()
	raw, err := e.generator.Generate(ctx, artifact.Path, prompt)
	latency := time.Since(start)
	if err != nil {
		return model.GeneratedCommand{}, &EngineFailure{Kind: FailureInferenceError, Engine: e.ID(), Reason: err.Error()}
	}

	reply, perr := parseLLMReply(raw)
	if perr != nil {
		log.Warn("local-llm reply failed to parse: %v", perr)
		return model.GeneratedCommand{}, &EngineFailure{Kind: FailureMalformed, Engine: e.ID(), Reason: perr.Error()}
	}

	confidence := reply.Confidence
	if confidence <= 0 {
		confidence = 0.6
	}
	if confidence > 1 {
		confidence = 1
	}

	return model.GeneratedCommand{
		Command:     reply.Cmd,
		Explanation: reply.Explanation,
		Backend:     e.ID(),
		Confidence:  confidence,
		Latency:     latency,
	}, nil
}
