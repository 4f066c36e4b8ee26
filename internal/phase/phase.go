// Package phase defines the stage model of the simulation pipeline and the
// runner that executes a single stage as an external engine process.
package phase

import (
	"time"
)

// Status is the lifecycle state of a single pipeline stage.
type Status string

const (
	StatusNotRun    Status = "not_run"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Artifact describes the output file a stage must produce for the next
// stage to consume. Path is absolute, inside the stage's output directory.
type Artifact struct {
	Name string
	Path string
}

// Phase is one ordered unit of engine execution. Phases execute strictly in
// ascending ID order; the order is fixed at configuration time.
//
// All paths are absolute by the time a Phase reaches the runner.
type Phase struct {
	ID        int
	Name      string
	InputPath string
	LogPath   string
	OutputDir string
	// Artifact is nil for stages that hand nothing to a successor
	// (the final stage).
	Artifact *Artifact
}

// HasArtifact reports whether the phase declares a produced artifact.
func (p *Phase) HasArtifact() bool {
	return p.Artifact != nil
}

// Result is the outcome of running one stage. A nonzero engine exit is a
// normal result value (StatusFailed), not a Go error; Err is set only for
// orchestrator-level failures such as a missing input script or a timeout.
type Result struct {
	Status   Status
	ExitCode int
	LogPath  string
	Duration time.Duration
	Err      error
}
