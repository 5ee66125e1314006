// Package executor runs a command that the safety validator has cleared,
// under an optional confirmation gate, capturing output and proposing
// rollback hints. It never spawns a process itself for dry-run requests.
package executor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/wildcard/caro/internal/config"
	"github.com/wildcard/caro/internal/logging"
	"github.com/wildcard/caro/internal/model"
)

// PreviewResult is the output of Preview: the canonical command as it would
// be spawned, with no process started.
type PreviewResult struct {
	CanonicalCommand string
	Shell            model.Shell
	WorkingDirectory string
}

// AuditEventType categorizes one execution lifecycle event.
type AuditEventType string

const (
	AuditEventStart    AuditEventType = "start"
	AuditEventComplete AuditEventType = "complete"
	AuditEventKilled   AuditEventType = "killed"
	AuditEventError    AuditEventType = "error"
)

// AuditEvent is emitted for every execution lifecycle transition, for the
// on-disk audit trail.
type AuditEvent struct {
	Type      AuditEventType
	Timestamp time.Time
	Command   string
	Result    *model.ExecutionResult
}

// SecureExecutor runs a single validated shell command directly on the host
// with no sandboxing beyond environment allow-listing and resource caps.
type SecureExecutor struct {
	mu            sync.RWMutex
	cfg           config.ExecutionConfig
	auditCallback func(AuditEvent)
}

// New constructs a SecureExecutor bound to the given execution config.
func New(cfg config.ExecutionConfig) *SecureExecutor {
	return &SecureExecutor{cfg: cfg}
}

// SetAuditCallback registers a callback invoked for every lifecycle event.
func (e *SecureExecutor) SetAuditCallback(cb func(AuditEvent)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.auditCallback = cb
}

func (e *SecureExecutor) emit(ev AuditEvent) {
	e.mu.RLock()
	cb := e.auditCallback
	e.mu.RUnlock()
	if cb != nil {
		cb(ev)
	}
}

func shellBinary(shell model.Shell) string {
	switch shell {
	case model.ShellFish:
		return "fish"
	case model.ShellZsh:
		return "zsh"
	case model.ShellSh, model.ShellPosix:
		return "sh"
	default:
		return "bash"
	}
}

// Preview lexes and returns the command as it would be spawned, without
// running anything.
func (e *SecureExecutor) Preview(commandLine string, shell model.Shell, execCtx model.ExecutionContext) PreviewResult {
	wd := execCtx.WorkingDirectory
	if wd == "" {
		wd = e.cfg.WorkingDirectory
	}
	return PreviewResult{
		CanonicalCommand: strings.TrimSpace(commandLine),
		Shell:            shell,
		WorkingDirectory: wd,
	}
}

// Execute runs commandLine under shell -c, honoring execCtx.DryRun by
// returning a synthesized result without spawning a process.
func (e *SecureExecutor) Execute(ctx context.Context, commandLine string, shell model.Shell, execCtx model.ExecutionContext) (*model.ExecutionResult, error) {
	timer := logging.StartTimer(logging.CategoryExecutor, "execute")
	defer timer.Stop()

	if execCtx.DryRun {
		return e.dryRun(commandLine, execCtx), nil
	}

	timeout := execCtx.Timeout
	if timeout <= 0 {
		timeout = parseDurationOr(e.cfg.DefaultTimeout, 30*time.Second)
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, shellBinary(shell), "-c", commandLine)
	cmd.Dir = workingDir(e.cfg, execCtx)
	cmd.Env = buildEnvironment(e.cfg.AllowedEnvVars, execCtx)
	applyPlatformAttrs(cmd)
	applyCancelPolicy(cmd, parseDurationOr(e.cfg.TerminationGrace, 2*time.Second))

	if execCtx.StdinPolicy != "inherit" {
		cmd.Stdin = nil
	}

	maxOutput := e.cfg.MaxOutputBytes
	if maxOutput <= 0 {
		maxOutput = 1 << 20
	}
	var stdoutBuf, stderrBuf bytes.Buffer
	stdoutLW := &limitedWriter{w: &stdoutBuf, max: maxOutput}
	stderrLW := &limitedWriter{w: &stderrBuf, max: maxOutput}
	cmd.Stdout = stdoutLW
	cmd.Stderr = stderrLW

	e.emit(AuditEvent{Type: AuditEventStart, Timestamp: time.Now(), Command: commandLine})

	started := time.Now()
	err := cmd.Run()
	wallTime := time.Since(started)

	result := &model.ExecutionResult{
		Stdout:    stdoutBuf.String(),
		Stderr:    stderrBuf.String(),
		Truncated: stdoutLW.truncated || stderrLW.truncated,
		WallTime:  wallTime,
		ExitCode:  -1,
	}

	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			result.Killed = true
			result.KillReason = fmt.Sprintf("timeout after %s", timeout)
			e.emit(AuditEvent{Type: AuditEventKilled, Timestamp: time.Now(), Command: commandLine, Result: result})
		} else if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			e.emit(AuditEvent{Type: AuditEventError, Timestamp: time.Now(), Command: commandLine, Result: result})
			return result, fmt.Errorf("spawn failed: %w", err)
		}
	} else {
		result.ExitCode = 0
	}

	result.RollbackHint = rollbackHintFor(commandLine)
	e.emit(AuditEvent{Type: AuditEventComplete, Timestamp: time.Now(), Command: commandLine, Result: result})
	return result, nil
}

func (e *SecureExecutor) dryRun(commandLine string, execCtx model.ExecutionContext) *model.ExecutionResult {
	wd := workingDir(e.cfg, execCtx)
	return &model.ExecutionResult{
		ExitCode: 0,
		Stdout:   fmt.Sprintf("[dry-run] would execute in %s:\n  %s", wd, strings.TrimSpace(commandLine)),
	}
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return fallback
}

func workingDir(cfg config.ExecutionConfig, execCtx model.ExecutionContext) string {
	if execCtx.WorkingDirectory != "" {
		return execCtx.WorkingDirectory
	}
	if cfg.WorkingDirectory != "" {
		return cfg.WorkingDirectory
	}
	return "."
}

func buildEnvironment(allowlist []string, execCtx model.ExecutionContext) []string {
	keys := allowlist
	if len(execCtx.EnvAllowlist) > 0 {
		keys = execCtx.EnvAllowlist
	}
	env := make([]string, 0, len(keys))
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			env = append(env, k+"="+v)
		}
	}
	return env
}
