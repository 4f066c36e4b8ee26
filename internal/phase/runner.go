package phase

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rimuru/simpipe/internal/engine"
	simerrors "github.com/rimuru/simpipe/internal/errors"
	"github.com/rimuru/simpipe/internal/logging"
	"github.com/rimuru/simpipe/internal/resource"
)

// fixedFlags are passed to every engine invocation: progress goes to the
// combined output stream (which the runner redirects to the stage log) and
// the engine's own log file is suppressed.
var fixedFlags = []string{"-echo", "screen", "-log", "none"}

// EngineSettings describes how to invoke the external engine. A zero Timeout
// means no limit.
type EngineSettings struct {
	Binary    string
	ExtraArgs []string
	Timeout   time.Duration
}

// Runner executes one stage as a synchronous external engine process.
type Runner struct {
	launcher engine.Launcher
	settings EngineSettings
	logger   *logging.Logger
}

// NewRunner creates a Runner backed by the given launcher.
func NewRunner(launcher engine.Launcher, settings EngineSettings, logger *logging.Logger) *Runner {
	return &Runner{launcher: launcher, settings: settings, logger: logger}
}

// Run executes the phase and blocks until the engine exits. The engine's
// combined output is redirected to the stage log, overwriting any prior
// content. Exit 0 maps to Completed and any nonzero exit to Failed; neither
// sets Err. Err is reserved for stage-level faults: a missing input script
// (checked before launch, so no log file is produced), a timeout, or a
// failure to launch at all.
func (r *Runner) Run(ctx context.Context, p Phase, profile resource.Profile) Result {
	log := r.logger.WithPhase(p.Name)

	if _, err := os.Stat(p.InputPath); err != nil {
		log.Error("input script missing", "path", p.InputPath)
		return Result{
			Status: StatusFailed,
			Err: simerrors.NewPhaseError(p.ID, p.Name,
				simerrors.Wrapf(simerrors.ErrMissingInput, "%s", p.InputPath)),
		}
	}

	if err := os.MkdirAll(p.OutputDir, 0755); err != nil {
		return Result{
			Status: StatusFailed,
			Err:    simerrors.NewPhaseError(p.ID, p.Name, simerrors.Wrap(err, "creating output dir")),
		}
	}
	if err := os.MkdirAll(filepath.Dir(p.LogPath), 0755); err != nil {
		return Result{
			Status: StatusFailed,
			Err:    simerrors.NewPhaseError(p.ID, p.Name, simerrors.Wrap(err, "creating log dir")),
		}
	}

	logFile, err := os.OpenFile(p.LogPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return Result{
			Status: StatusFailed,
			Err:    simerrors.NewPhaseError(p.ID, p.Name, simerrors.Wrap(err, "opening stage log")),
		}
	}
	defer logFile.Close()

	args := r.buildArgs(p, profile)
	log.Info("launching engine",
		"binary", r.settings.Binary, "devices", profile.Count, "kind", profile.Kind,
		"log", p.LogPath)

	start := time.Now()
	exitCode, launchErr := r.launcher.Launch(ctx, engine.Spec{
		Command: r.settings.Binary,
		Args:    args,
		Dir:     p.OutputDir,
		Output:  logFile,
		Timeout: r.settings.Timeout,
	})
	duration := time.Since(start)

	result := Result{
		ExitCode: exitCode,
		LogPath:  p.LogPath,
		Duration: duration,
	}

	switch {
	case launchErr != nil:
		log.Error("engine did not complete", "error", launchErr, "duration", duration)
		result.Status = StatusFailed
		result.Err = simerrors.NewPhaseError(p.ID, p.Name, launchErr)
	case exitCode == 0:
		log.Info("engine completed", "duration", duration)
		result.Status = StatusCompleted
	default:
		log.Warn("engine failed", "exit_code", exitCode, "duration", duration)
		result.Status = StatusFailed
	}
	return result
}

// buildArgs merges the fixed flags, the parallelism flags derived from the
// resource profile, any configured extras, and the input script.
func (r *Runner) buildArgs(p Phase, profile resource.Profile) []string {
	args := make([]string, 0, len(fixedFlags)+len(r.settings.ExtraArgs)+7)
	args = append(args, fixedFlags...)
	args = append(args, parallelismFlags(profile)...)
	args = append(args, r.settings.ExtraArgs...)
	args = append(args, "-in", p.InputPath)
	return args
}

// parallelismFlags sizes the engine's internal parallelism from the detected
// devices: the GPU suffix package when devices are present, OpenMP otherwise.
func parallelismFlags(profile resource.Profile) []string {
	n := strconv.Itoa(profile.Count)
	if profile.Kind == resource.KindGPU {
		return []string{"-sf", "gpu", "-pk", "gpu", n}
	}
	return []string{"-sf", "omp", "-pk", "omp", n}
}
