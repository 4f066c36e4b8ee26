//go:build windows

package engine

import "os/exec"

// Process groups are a Unix concept; on Windows only the direct child is
// managed.

func setProcessGroup(cmd *exec.Cmd) {}

func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	_ = cmd.Process.Kill()
}

func setDetached(cmd *exec.Cmd) {}
