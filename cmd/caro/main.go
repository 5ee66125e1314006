// Package main implements caro, a natural-language-to-shell-command CLI
// assistant. The whole surface lives on one command: a positional prompt
// plus flags that steer generation, safety, and execution.
//
// File index:
//   - main.go       - entry point, rootCmd, global flags, init()
//   - wiring.go     - builds the validator/router/orchestrator/memory stack from config
//   - run.go        - the generate -> validate -> [confirm] -> [execute] flow
//   - output.go     - text/JSON result rendering
//   - promptdata.go - Variables construction for prompt rendering
//   - llmengines.go - LLM engine registration and the promptBuild closure
//   - exitcode.go   - exit-code-carrying error type
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wildcard/caro/internal/config"
	"github.com/wildcard/caro/internal/logging"
)

var (
	flagShell        string
	flagSafety       string
	flagOutput       string
	flagDryRun       bool
	flagExec         bool
	flagYes          bool
	flagBackend      string
	flagModel        string
	flagOffline      bool
	flagTUI          bool
	flagShowConfig   bool
	flagPurgeHistory bool

	flagVerbose    bool
	flagConfigPath string

	console *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "caro [prompt]",
	Short: "Translate natural language into a shell command, safely",
	Long: `caro turns a plain-English request into a concrete shell command.

It routes the request through a chain of generation backends (deterministic
rules, learned per-user patterns, an on-device model, a remote LLM), runs
the result through a risk validator before ever showing it to you, and —
only with your consent — executes it.`,
	Args: cobra.MaximumNArgs(1),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		console, err = logging.NewConsole(flagVerbose)
		if err != nil {
			return exitWith(exitConfigError, fmt.Errorf("initialize console logger: %w", err))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if console != nil {
			_ = console.Sync()
		}
		logging.CloseAll()
	},
	RunE: runCaro,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "path to config.toml (default: platform config dir)")

	rootCmd.Flags().StringVar(&flagShell, "shell", "", "target shell: sh|bash|zsh|fish|posix (default: detected)")
	rootCmd.Flags().StringVar(&flagSafety, "safety", "", "safety floor: strict|moderate|permissive (default: configured)")
	rootCmd.Flags().StringVar(&flagOutput, "output", "text", "output format: text|json")
	rootCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "preview execution without running anything")
	rootCmd.Flags().BoolVar(&flagExec, "exec", false, "execute the generated command after validation")
	rootCmd.Flags().BoolVar(&flagYes, "yes", false, "skip interactive confirmation prompts")
	rootCmd.Flags().StringVar(&flagBackend, "backend", "", "engine id (not implemented by this build; every registered engine is consulted)")
	rootCmd.Flags().StringVar(&flagModel, "model", "", "override the configured model id")
	rootCmd.Flags().BoolVar(&flagOffline, "offline", false, "never contact a remote backend or fetch a model")
	rootCmd.Flags().BoolVar(&flagTUI, "tui", false, "open the terminal UI (not implemented by this build)")
	rootCmd.Flags().BoolVar(&flagShowConfig, "show-config", false, "print the effective configuration and exit")
	rootCmd.Flags().BoolVar(&flagPurgeHistory, "purge-history", false, "delete all stored history and exit")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		code := exitUserError
		var ee *exitError
		if asExitError(err, &ee) {
			code = ee.code
			err = ee.err
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(code)
	}
}

func asExitError(err error, target **exitError) bool {
	for err != nil {
		if ee, ok := err.(*exitError); ok {
			*target = ee
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func resolveConfigPath() string {
	if flagConfigPath != "" {
		return flagConfigPath
	}
	return config.DefaultConfigPath()
}

func resolveTemplatesOverrideDir() string {
	return filepath.Join(filepath.Dir(resolveConfigPath()), "templates")
}
