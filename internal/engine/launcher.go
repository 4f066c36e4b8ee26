// Package engine abstracts launching the external simulation engine so the
// rest of the pipeline never touches os/exec directly. Tests substitute a
// scripted fake; production code uses ExecLauncher.
package engine

import (
	"context"
	"io"
	"os/exec"
	"time"

	simerrors "github.com/rimuru/simpipe/internal/errors"
	"github.com/rimuru/simpipe/internal/logging"
)

// Spec describes one external process launch. Output receives the process's
// combined stdout and stderr. A zero Timeout means no limit.
type Spec struct {
	Command string
	Args    []string
	Dir     string
	Output  io.Writer
	Timeout time.Duration
}

// Launcher runs an external process to completion and reports its exit code.
// A nonzero exit code is returned with a nil error; the error return is
// reserved for launch failures, timeouts, and cancellation.
type Launcher interface {
	Launch(ctx context.Context, spec Spec) (int, error)
}

// ExecLauncher launches real processes. Each process runs in its own process
// group so a timeout can terminate the engine together with any workers it
// forked.
type ExecLauncher struct {
	logger *logging.Logger
}

// NewExecLauncher creates an ExecLauncher
func NewExecLauncher(logger *logging.Logger) *ExecLauncher {
	return &ExecLauncher{logger: logger}
}

// Launch runs the process synchronously. On timeout the whole process group
// is killed and the error wraps ErrTimeout; on context cancellation the group
// is killed and the context's error is returned.
func (l *ExecLauncher) Launch(ctx context.Context, spec Spec) (int, error) {
	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, spec.Timeout,
			simerrors.Wrapf(simerrors.ErrTimeout, "exceeded %s limit", spec.Timeout))
		defer cancel()
	}

	cmd := exec.Command(spec.Command, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Stdout = spec.Output
	cmd.Stderr = spec.Output
	setProcessGroup(cmd)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return -1, simerrors.Wrapf(err, "failed to launch %s", spec.Command)
	}

	l.logger.Debug("process launched",
		"command", spec.Command, "pid", cmd.Process.Pid, "dir", spec.Dir)

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case <-ctx.Done():
		killProcessGroup(cmd)
		<-done // reap the killed process

		cause := context.Cause(ctx)
		l.logger.Warn("process terminated",
			"command", spec.Command, "pid", cmd.Process.Pid,
			"after", time.Since(start).Round(time.Second), "cause", cause)
		return -1, cause

	case err := <-done:
		if err != nil {
			if exitErr, ok := err.(*exec.ExitError); ok {
				// Nonzero exit is a normal result, not an error.
				return exitErr.ExitCode(), nil
			}
			return -1, simerrors.Wrapf(err, "waiting on %s", spec.Command)
		}
		return 0, nil
	}
}
