//go:build unix

package engine

import (
	"os/exec"
	"syscall"
)

// setProcessGroup places the child in its own process group so that
// killProcessGroup reaches the engine and every worker it forked.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}

// killProcessGroup forcibly terminates the child's entire process group.
func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	// Negative PID targets the process group.
	_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
}

// setDetached creates a new session for the child, detaching it from the
// controlling terminal so it outlives the orchestrator.
func setDetached(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}
}
