package main

import (
	"context"
	"fmt"
	"regexp"

	"github.com/wildcard/caro/internal/config"
	"github.com/wildcard/caro/internal/enginerouter"
	"github.com/wildcard/caro/internal/logging"
	"github.com/wildcard/caro/internal/model"
	"github.com/wildcard/caro/internal/platform"
	"github.com/wildcard/caro/internal/prompt"
)

// phraseToPattern turns a mined LearnedPattern's literal phrase into an
// exact-match regex for CommandRule.Pattern. The miner stages the raw
// phrase rather than a generalized pattern; promoting it exactly (rather
// than attempting automatic generalization) keeps a confirmed correction
// from silently widening to phrasings the user never approved.
func phraseToPattern(phrase string) *regexp.Regexp {
	return regexp.MustCompile("(?i)^" + regexp.QuoteMeta(phrase) + "$")
}

// registerLLMEngines wires the remote LLM engine (Gemini, or the
// OpenAI/Ollama-compatible client) into router; no local LLM engine is
// registered here. The engine gets a promptBuild closure over promptStore
// that renders the "base" template on attempts 1 and 2 and switches to the
// "detailed" template from attempt 3 on, the last of the default three
// attempts.
func registerLLMEngines(ctx context.Context, router *enginerouter.Router, cfg *config.Config, promptStore *prompt.Store, fp platform.Fingerprint) error {
	build := func(req *model.CommandRequest) string {
		v := variablesFor(req, fp)
		name := "base"
		if req.Attempt >= 3 {
			name = "detailed"
		}
		flavor := string(fp.Flavor)
		rendered, err := promptStore.RenderFor(flavor, name, v)
		if err != nil {
			rendered, _ = promptStore.RenderFor("default", name, v)
		}
		return rendered
	}

	if flagOffline {
		return nil
	}

	var errs []error

	if cfg.LLM.RemoteProvider == "ollama" || cfg.LLM.APIKey != "" {
		switch cfg.LLM.RemoteProvider {
		case "gemini":
			engine, err := enginerouter.NewGeminiRemoteLLMEngine(ctx, cfg.LLM.APIKey, resolveModel(cfg), build)
			if err != nil {
				errs = append(errs, fmt.Errorf("gemini engine: %w", err))
			} else if err := router.Register(engine); err != nil {
				errs = append(errs, err)
			}
		default:
			engine := enginerouter.NewRemoteLLMEngine(nil, nil, cfg.LLM.BaseURL, cfg.LLM.APIKey, resolveModel(cfg), build)
			if err := router.Register(engine); err != nil {
				errs = append(errs, err)
			}
		}
	}

	if len(errs) > 0 {
		logging.Get(logging.CategoryRouter).Warn("%d llm engine(s) failed to register", len(errs))
		return errs[0]
	}
	return nil
}

func resolveModel(cfg *config.Config) string {
	if flagModel != "" {
		return flagModel
	}
	return cfg.LLM.Model
}
