//go:build !windows

package executor

import (
	"os/exec"
	"syscall"
	"time"
)

// applyPlatformAttrs puts the child in its own process group so a timeout
// can kill the whole tree, not just the shell.
func applyPlatformAttrs(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// applyCancelPolicy makes context expiry send SIGTERM to the whole process
// group (so a shell's grandchildren go down with it) and gives the group
// grace before exec escalates to SIGKILL via WaitDelay.
func applyCancelPolicy(cmd *exec.Cmd, grace time.Duration) {
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
	}
	cmd.WaitDelay = grace
}
