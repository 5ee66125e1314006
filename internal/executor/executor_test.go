package executor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildcard/caro/internal/config"
	"github.com/wildcard/caro/internal/model"
)

func testConfig() config.ExecutionConfig {
	return config.ExecutionConfig{
		AllowedEnvVars:   []string{"PATH"},
		DefaultTimeout:   "5s",
		WorkingDirectory: ".",
		MaxOutputBytes:   1 << 16,
	}
}

func TestPreviewDoesNotSpawn(t *testing.T) {
	e := New(testConfig())
	p := e.Preview("echo hello", model.ShellBash, model.ExecutionContext{})
	assert.Equal(t, "echo hello", p.CanonicalCommand)
	assert.Equal(t, model.ShellBash, p.Shell)
}

func TestExecuteDryRunDoesNotSpawn(t *testing.T) {
	e := New(testConfig())
	result, err := e.Execute(context.Background(), "rm -rf /", model.ShellBash, model.ExecutionContext{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.Contains(t, result.Stdout, "dry-run")
}

func TestExecuteCapturesStdoutAndExitCode(t *testing.T) {
	e := New(testConfig())
	result, err := e.Execute(context.Background(), "echo hi", model.ShellBash, model.ExecutionContext{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.Contains(t, result.Stdout, "hi")
}

func TestExecuteNonZeroExit(t *testing.T) {
	e := New(testConfig())
	result, err := e.Execute(context.Background(), "exit 7", model.ShellBash, model.ExecutionContext{})
	require.NoError(t, err)
	assert.Equal(t, 7, result.ExitCode)
}

func TestExecuteTimeoutKillsAndReportsKilled(t *testing.T) {
	e := New(testConfig())
	result, err := e.Execute(context.Background(), "sleep 5", model.ShellBash, model.ExecutionContext{Timeout: 100 * time.Millisecond})
	require.NoError(t, err)
	assert.True(t, result.Killed)
	assert.Contains(t, result.KillReason, "timeout")
}

func TestExecuteEmitsAuditEvents(t *testing.T) {
	e := New(testConfig())
	var events []AuditEventType
	e.SetAuditCallback(func(ev AuditEvent) { events = append(events, ev.Type) })

	_, err := e.Execute(context.Background(), "echo hi", model.ShellBash, model.ExecutionContext{})
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, AuditEventStart, events[0])
	assert.Equal(t, AuditEventComplete, events[1])
}

func TestRollbackHintForDestructiveCommands(t *testing.T) {
	assert.Contains(t, rollbackHintFor("rm -rf ./build"), "version control")
	assert.Contains(t, rollbackHintFor("git reset --hard HEAD~1"), "reflog")
	assert.Empty(t, rollbackHintFor("ls -la"))
}
