// Package pipeline drives the stage sequence: detect resources once, scrub
// stale handoff artifacts, run each stage in order, stage its artifact, and
// stop at the first failure. The summary report is produced no matter how
// far the run progressed.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rimuru/simpipe/internal/artifact"
	"github.com/rimuru/simpipe/internal/config"
	simerrors "github.com/rimuru/simpipe/internal/errors"
	"github.com/rimuru/simpipe/internal/logging"
	"github.com/rimuru/simpipe/internal/phase"
	"github.com/rimuru/simpipe/internal/report"
	"github.com/rimuru/simpipe/internal/resource"
)

// OverallStatus is the run-level outcome.
type OverallStatus string

const (
	OverallNotStarted OverallStatus = "not_started"
	OverallCompleted  OverallStatus = "completed"
	OverallAborted    OverallStatus = "aborted"
)

// Run is the record of one pipeline invocation. It lives only for that
// invocation; what persists are the stage logs, the staged artifacts, and
// the summary report.
type Run struct {
	Profile   resource.Profile
	Outcomes  []report.PhaseOutcome
	Records   []artifact.Record
	Overall   OverallStatus
	AbortedAt int // phase id of the first failure, 0 otherwise
	StartedAt time.Time
	EndedAt   time.Time
	// Err is the first fatal error, used to derive the process exit code.
	// Nil when every stage completed.
	Err error
}

// Detector yields the resource profile for the run.
type Detector interface {
	Detect() resource.Profile
}

// Runner executes one stage.
type Runner interface {
	Run(ctx context.Context, p phase.Phase, profile resource.Profile) phase.Result
}

// Controller sequences the stages.
type Controller struct {
	cfg      *config.Config
	phases   []phase.Phase
	detector Detector
	runner   Runner
	handoff  *artifact.Handoff
	reporter *report.Reporter
	logger   *logging.Logger

	// startDetached launches the post-processing program; injectable so
	// tests observe the call without spawning anything.
	startDetached func(command string, args []string, dir string) error
}

// Params collects the controller's collaborators.
type Params struct {
	Config   *config.Config
	Phases   []phase.Phase
	Detector Detector
	Runner   Runner
	Handoff  *artifact.Handoff
	Reporter *report.Reporter
	Logger   *logging.Logger
	// StartDetached may be nil; the real detached launcher is used then.
	StartDetached func(command string, args []string, dir string) error
}

// New creates a Controller.
func New(p Params) *Controller {
	return &Controller{
		cfg:           p.Config,
		phases:        p.Phases,
		detector:      p.Detector,
		runner:        p.Runner,
		handoff:       p.Handoff,
		reporter:      p.Reporter,
		logger:        p.Logger,
		startDetached: p.StartDetached,
	}
}

// Run executes all stages in order. The state machine is a flat loop: each
// step either advances to the next stage or records the abort and stops.
func (c *Controller) Run(ctx context.Context) *Run {
	return c.run(ctx, c.phases, true)
}

// run is the shared loop. full selects whole-pipeline behavior: the pre-run
// scrub and the post-processing hook apply only to full runs.
func (c *Controller) run(ctx context.Context, phases []phase.Phase, full bool) *Run {
	run := &Run{
		Profile:   c.detector.Detect(),
		Overall:   OverallNotStarted,
		StartedAt: time.Now(),
	}

	run.Outcomes = make([]report.PhaseOutcome, len(phases))
	for i, p := range phases {
		run.Outcomes[i] = report.PhaseOutcome{Phase: p, Status: phase.StatusNotRun}
	}

	defer func() {
		run.EndedAt = time.Now()
		// Single-stage runs leave the last full run's report in place.
		if full {
			c.writeSummary(run)
		}
	}()

	// A restart must never observe leftovers from a previous attempt: every
	// declared artifact is scrubbed, and so is every stage log, so the report
	// cannot attribute a previous run's log to a stage this run never reached.
	if full {
		if err := c.handoff.Scrub(c.phases); err != nil {
			c.logger.Error("pre-run scrub failed", "error", err)
			run.Err = err
			return run
		}
		if err := c.scrubStageLogs(); err != nil {
			c.logger.Error("pre-run scrub failed", "error", err)
			run.Err = err
			return run
		}
	}

	for i, p := range phases {
		outcome := &run.Outcomes[i]
		run.Overall = OverallAborted
		run.AbortedAt = p.ID

		outcome.Status = phase.StatusRunning
		result := c.runner.Run(ctx, p, run.Profile)
		outcome.Status = result.Status
		outcome.ExitCode = result.ExitCode
		outcome.Duration = result.Duration
		outcome.Failure = failureDescription(result.Err)

		if result.Status != phase.StatusCompleted {
			run.Err = result.Err
			if run.Err == nil {
				run.Err = simerrors.NewPhaseError(p.ID, p.Name,
					simerrors.Wrapf(simerrors.ErrProcessFailure, "exit code %d", result.ExitCode))
			}
			c.logger.Error("pipeline aborted", "phase", p.Name, "error", run.Err)
			return run
		}

		if p.HasArtifact() {
			record, err := c.handoff.Stage(p, nextPhaseID(c.phases, p.ID))
			if err != nil {
				// The stage itself succeeded; the run still aborts.
				outcome.Failure = failureDescription(err)
				run.Err = err
				c.logger.Error("pipeline aborted", "phase", p.Name, "error", err)
				return run
			}
			run.Records = append(run.Records, record)
		}
	}

	run.Overall = OverallCompleted
	run.AbortedAt = 0
	if full {
		c.postProcess(phases[len(phases)-1])
	}
	return run
}

// RunStage executes a single stage by id, including its artifact handoff.
// The pre-run scrub is skipped so earlier stages' staged artifacts stay
// available as this stage's input, and the last full run's summary report
// is left untouched.
func (c *Controller) RunStage(ctx context.Context, id int) (*Run, error) {
	for _, p := range c.phases {
		if p.ID == id {
			return c.run(ctx, []phase.Phase{p}, false), nil
		}
	}
	return nil, fmt.Errorf("no phase with id %d", id)
}

// scrubStageLogs removes the stage logs left behind by a previous run.
func (c *Controller) scrubStageLogs() error {
	for _, p := range c.phases {
		if err := os.Remove(p.LogPath); err != nil && !os.IsNotExist(err) {
			return simerrors.Wrapf(err, "removing stale log for %s", p.Name)
		}
	}
	return nil
}

// nextPhaseID returns the id of the phase after the given one in the full
// table, 0 when it is the last.
func nextPhaseID(phases []phase.Phase, id int) int {
	for i, p := range phases {
		if p.ID == id && i+1 < len(phases) {
			return phases[i+1].ID
		}
	}
	return 0
}

// failureDescription extracts the cause message for the report, without the
// phase prefix the report section already carries.
func failureDescription(err error) string {
	if err == nil {
		return ""
	}
	var phaseErr *simerrors.PhaseError
	if simerrors.As(err, &phaseErr) {
		return phaseErr.Cause.Error()
	}
	return err.Error()
}

// writeSummary produces the report. Best-effort: failures are logged and do
// not change the run's outcome.
func (c *Controller) writeSummary(run *Run) {
	info := report.RunInfo{
		StartedAt: run.StartedAt,
		EndedAt:   run.EndedAt,
		Overall:   overallLine(run),
		Profile:   run.Profile,
	}
	if err := c.reporter.Write(info, run.Outcomes); err != nil {
		c.logger.Error("failed to write summary report", "error", err)
	}
}

// overallLine renders the run status for the report header, naming the
// first failed stage when the run aborted.
func overallLine(run *Run) string {
	switch run.Overall {
	case OverallCompleted:
		return "Completed"
	case OverallAborted:
		for _, o := range run.Outcomes {
			if o.Phase.ID == run.AbortedAt {
				return fmt.Sprintf("Aborted at phase %d (%s)", o.Phase.ID, o.Phase.Name)
			}
		}
		return fmt.Sprintf("Aborted at phase %d", run.AbortedAt)
	default:
		return "NotStarted"
	}
}

// postProcess launches the analysis program when the trigger artifact exists
// in the final stage's output directory. Fire-and-forget: the program's exit
// status is nobody's concern, and its absence is not an error.
func (c *Controller) postProcess(last phase.Phase) {
	pp := c.cfg.PostProcess
	if !pp.Enabled {
		return
	}

	trigger := filepath.Join(last.OutputDir, pp.TriggerArtifact)
	if _, err := os.Stat(trigger); err != nil {
		c.logger.Debug("post-processing skipped",
			"trigger", trigger, "reason", "artifact absent")
		return
	}

	c.logger.Info("launching post-processing",
		"command", pp.Command, "script", pp.Script, "dir", last.OutputDir)
	if err := c.launchDetached(pp.Command, []string{pp.Script}, last.OutputDir); err != nil {
		c.logger.Warn("post-processing launch failed", "error", err)
	}
}

func (c *Controller) launchDetached(command string, args []string, dir string) error {
	if c.startDetached != nil {
		return c.startDetached(command, args, dir)
	}
	return defaultStartDetached(command, args, dir)
}
