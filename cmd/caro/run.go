package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wildcard/caro/internal/config"
	"github.com/wildcard/caro/internal/logging"
	"github.com/wildcard/caro/internal/model"
	"github.com/wildcard/caro/internal/orchestrator"
	"github.com/wildcard/caro/internal/validator"
)

func runCaro(cmd *cobra.Command, args []string) error {
	if flagTUI {
		return exitWith(exitUserError, fmt.Errorf("--tui is not implemented by this build; run without --tui"))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return exitWith(exitConfigError, err)
	}
	applyFlagOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return exitWith(exitConfigError, err)
	}
	if err := logging.Initialize(cfg.Cache.Dir, cfg.Logging.Enabled, cfg.Logging.Level, cfg.Logging.JSON); err != nil {
		console.Sugar().Warnf("file logging disabled: %v", err)
	}

	if flagShowConfig {
		return showConfig(cmd, cfg)
	}

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return exitWith(exitConfigError, err)
	}
	defer a.close()

	if flagPurgeHistory {
		return purgeHistory(ctx, cmd, a)
	}

	if len(args) == 0 {
		return exitWith(exitUserError, fmt.Errorf("a natural-language prompt is required"))
	}

	if a.miner != nil {
		a.miner.Start(ctx)
	}

	shell := model.Shell(flagShell)
	if shell == "" {
		shell = model.Shell(a.fp.Shell)
	}
	if !model.ValidShell(shell) {
		shell = model.ShellBash
	}
	floor := model.SafetyFloor(flagSafety)
	if floor == "" {
		floor = model.SafetyFloor(cfg.Safety.Floor)
	}

	req, err := model.NewCommandRequest(newRequestID(), args[0], shell, floor, a.fp)
	if err != nil {
		return exitWith(exitUserError, err)
	}

	var clarify orchestrator.ClarificationFunc
	if !flagYes {
		clarify = interactiveClarify
	}

	outcome, err := a.orch.Run(ctx, req, clarify)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return exitWith(exitInterrupted, fmt.Errorf("interrupted"))
		}
		return exitWith(exitBackendError, err)
	}

	switch outcome.Status {
	case orchestrator.StatusInterrupted:
		return exitWith(exitInterrupted, fmt.Errorf("clarification interrupted"))
	case orchestrator.StatusBlocked:
		_ = writeResult(os.Stdout, flagOutput, outcome, nil)
		appendHistory(ctx, a, outcome, nil, "")
		code := exitUserError
		if outcome.Generated.Command == "" {
			// No engine produced a command at all.
			code = exitBackendError
		}
		return exitWith(code, fmt.Errorf("%s", outcome.Reason))
	case orchestrator.StatusPresentConsent:
		if !flagYes && !confirmProceed(outcome.Decision) {
			_ = writeResult(os.Stdout, flagOutput, outcome, nil)
			appendHistory(ctx, a, outcome, nil, "")
			return exitWith(exitUserError, fmt.Errorf("user declined to proceed"))
		}
	}

	var execResult *model.ExecutionResult
	if flagExec || flagDryRun {
		execCtx := model.ExecutionContext{
			WorkingDirectory: cfg.Execution.WorkingDirectory,
			DryRun:           flagDryRun,
		}
		execResult, err = a.exec.Execute(ctx, outcome.Generated.Command, req.TargetShell, execCtx)
		if err != nil {
			_ = writeResult(os.Stdout, flagOutput, outcome, execResult)
			return exitWith(exitUserError, err)
		}
	}

	if err := writeResult(os.Stdout, flagOutput, outcome, execResult); err != nil {
		return exitWith(exitUserError, err)
	}
	appendHistory(ctx, a, outcome, execResult, "")

	if execResult != nil {
		if execResult.Killed {
			return exitWith(exitExecTimeout, fmt.Errorf("%s", execResult.KillReason))
		}
		if execResult.ExitCode != 0 {
			return exitWith(execResult.ExitCode, fmt.Errorf("command exited %d", execResult.ExitCode))
		}
	}
	return nil
}

func applyFlagOverrides(cfg *config.Config) {
	if flagSafety != "" {
		cfg.Safety.Floor = flagSafety
	}
	if flagModel != "" {
		cfg.LLM.Model = flagModel
	}
	if flagVerbose {
		cfg.Logging.Enabled = true
		cfg.Logging.Level = "debug"
	}
}

func newRequestID() string {
	return fmt.Sprintf("req-%d", os.Getpid())
}

// interactiveClarify prompts on stdin for each closed-form question,
// offering the listed options and falling back to the default on a bare
// Enter. A bare "q" or EOF is treated as user-initiated cancellation.
func interactiveClarify(ctx context.Context, req *model.CommandRequest, questions []orchestrator.ClarificationQuestion) ([]string, error) {
	reader := bufio.NewReader(os.Stdin)
	answers := make([]string, 0, len(questions))
	for _, q := range questions {
		fmt.Fprintf(os.Stderr, "%s", q.Prompt)
		if len(q.Options) > 0 {
			fmt.Fprintf(os.Stderr, " [%s]", strings.Join(q.Options, " / "))
		}
		fmt.Fprintf(os.Stderr, " (default: %s, q to cancel): ", q.Default)

		line, err := reader.ReadString('\n')
		if err != nil {
			return nil, orchestrator.ErrInterrupted
		}
		line = strings.TrimSpace(line)
		if line == "q" {
			return nil, orchestrator.ErrInterrupted
		}
		if line == "" {
			line = q.Default
		}
		answers = append(answers, line)
	}
	return answers, nil
}

// confirmProceed asks once, or twice for DecisionConfirmTwice, matching
// the escalating confirmation posture for high-risk commands.
func confirmProceed(decision validator.Decision) bool {
	rounds := 1
	if decision == validator.DecisionConfirmTwice {
		rounds = 2
	}
	reader := bufio.NewReader(os.Stdin)
	for i := 0; i < rounds; i++ {
		fmt.Fprintf(os.Stderr, "Proceed? [y/N]: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return false
		}
		if strings.TrimSpace(strings.ToLower(line)) != "y" {
			return false
		}
	}
	return true
}

func showConfig(cmd *cobra.Command, cfg *config.Config) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(cfg)
}

func purgeHistory(ctx context.Context, cmd *cobra.Command, a *app) error {
	if a.mem == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "history is not enabled; nothing to purge")
		return nil
	}
	if err := a.mem.PurgeAll(ctx); err != nil {
		return exitWith(exitConfigError, err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "history purged")
	return nil
}

func appendHistory(ctx context.Context, a *app, outcome orchestrator.Outcome, exec *model.ExecutionResult, userEdit string) {
	if a.mem == nil || outcome.Request == nil {
		return
	}
	if _, err := a.mem.Append(ctx, *outcome.Request, outcome.Generated, outcome.Validation, exec, userEdit); err != nil {
		console.Sugar().Warnf("failed to record history: %v", err)
	}
}
