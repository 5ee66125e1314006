package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/wildcard/caro/internal/config"
	"github.com/wildcard/caro/internal/enginerouter"
	"github.com/wildcard/caro/internal/executor"
	"github.com/wildcard/caro/internal/logging"
	"github.com/wildcard/caro/internal/manpage"
	"github.com/wildcard/caro/internal/memory"
	"github.com/wildcard/caro/internal/model"
	"github.com/wildcard/caro/internal/orchestrator"
	"github.com/wildcard/caro/internal/platform"
	"github.com/wildcard/caro/internal/prompt"
	"github.com/wildcard/caro/internal/validator"
)

// app bundles the wired components a single invocation needs. Built once
// in runCaro, torn down with close() on every return path.
type app struct {
	cfg      *config.Config
	fp       platform.Fingerprint
	orch     *orchestrator.Orchestrator
	exec     *executor.SecureExecutor
	mem      *memory.Store
	miner    *memory.Miner
	manCache *manpage.Cache
}

func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	fp := platform.Current()

	manCache := manpage.New(fp)
	if cfg.Safety.ManPageValidationEnabled {
		manCache.Build(ctx, nil)
	}

	var lookup validator.ToolLookup
	if cfg.Safety.ManPageValidationEnabled {
		lookup = manCache
	}
	val := validator.New(validator.DefaultRules(), lookup)

	promptStore := prompt.NewStore()
	if err := promptStore.LoadBuiltins(); err != nil {
		return nil, fmt.Errorf("load built-in prompt templates: %w", err)
	}
	if err := promptStore.LoadDir(resolveTemplatesOverrideDir()); err != nil {
		return nil, fmt.Errorf("load template overrides: %w", err)
	}

	router := enginerouter.New(10 * time.Second)
	if err := router.Register(enginerouter.NewRulesEngine(enginerouter.DefaultRules())); err != nil {
		return nil, err
	}

	creds := memory.NewFileCredentialStore(filepath.Join(filepath.Dir(resolveConfigPath()), "history.key"))
	memStore, merr := memory.Open(filepath.Join(cfg.Cache.Dir, "history.db"), creds, validator.DefaultRules())
	var miner *memory.Miner
	if merr != nil {
		logging.Get(logging.CategoryMemory).Warn("history/memory disabled: %v", merr)
		memStore = nil
	} else {
		miner = memory.NewMiner(memStore)
		if rules, err := privateRulesFromConfirmed(ctx, miner); err == nil && len(rules) > 0 {
			if err := router.Register(enginerouter.NewPrivateRulesEngine(rules)); err != nil {
				logging.Get(logging.CategoryMemory).Warn("register private rules engine: %v", err)
			}
		}
	}

	if err := registerLLMEngines(ctx, router, cfg, promptStore, fp); err != nil {
		logging.Get(logging.CategoryRouter).Warn("llm engine registration incomplete: %v", err)
	}

	orchCfg := orchestrator.Config{
		MaxAttempts:          cfg.Orchestrator.MaxRetries + 1,
		OfferOptionalClarify: true,
	}
	orch := orchestrator.New(router, val, orchCfg)

	return &app{
		cfg:      cfg,
		fp:       fp,
		orch:     orch,
		exec:     executor.New(cfg.Execution),
		mem:      memStore,
		miner:    miner,
		manCache: manCache,
	}, nil
}

// privateRulesFromConfirmed converts every already-confirmed learning
// candidate into a CommandRule, so a prior session's confirmed corrections
// keep taking effect across restarts without re-confirming them.
func privateRulesFromConfirmed(ctx context.Context, miner *memory.Miner) ([]enginerouter.CommandRule, error) {
	confirmed, err := miner.Candidates(ctx, "confirmed")
	if err != nil {
		return nil, err
	}
	rules := make([]enginerouter.CommandRule, 0, len(confirmed))
	for _, c := range confirmed {
		rules = append(rules, enginerouter.CommandRule{
			ID:       c.ID,
			Pattern:  phraseToPattern(c.Phrase),
			Template: c.CorrectedCommand,
			RiskHint: model.RiskModerate,
		})
	}
	return rules, nil
}

func (a *app) close() {
	if a.miner != nil {
		a.miner.Stop()
	}
	if a.mem != nil {
		_ = a.mem.Close()
	}
	if a.manCache != nil {
		a.manCache.Stop()
	}
}
