package engine

import (
	"os/exec"

	simerrors "github.com/rimuru/simpipe/internal/errors"
)

// StartDetached launches a process in its own session and releases it, so it
// keeps running after the orchestrator exits. Output is discarded; there is
// no contract on the process's exit status. Used for the fire-and-forget
// post-processing step.
func StartDetached(command string, args []string, dir string) error {
	cmd := exec.Command(command, args...)
	cmd.Dir = dir
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	setDetached(cmd)

	if err := cmd.Start(); err != nil {
		return simerrors.Wrapf(err, "failed to start %s", command)
	}
	if err := cmd.Process.Release(); err != nil {
		return simerrors.Wrap(err, "failed to release background process")
	}
	return nil
}
