//go:build windows

package executor

import (
	"os/exec"
	"syscall"
	"time"
)

// applyPlatformAttrs hides the console window for the spawned shell.
// Windows has no process-group equivalent to SIGKILL-the-tree; context
// cancellation kills the immediate child only.
func applyPlatformAttrs(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{HideWindow: true}
}

// applyCancelPolicy gives the child grace before exec's default forceful
// kill on context expiry. Windows has no SIGTERM; os.Process.Kill is the
// only signal exec.Cmd's default Cancel can send, so this only adds the
// grace period, not a polite-then-forceful signal sequence.
func applyCancelPolicy(cmd *exec.Cmd, grace time.Duration) {
	cmd.WaitDelay = grace
}
