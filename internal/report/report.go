// Package report produces the aggregate text summary of a pipeline run.
// The report records two independent per-stage signals: the exit status the
// controller observed, and a marker scan of the stage's log. The two can
// legitimately disagree; the report presents both under distinct labels and
// flags the discrepancy instead of reconciling them.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rimuru/simpipe/internal/logging"
	"github.com/rimuru/simpipe/internal/logscan"
	"github.com/rimuru/simpipe/internal/phase"
	"github.com/rimuru/simpipe/internal/resource"
)

// PhaseOutcome is the controller's record of one stage, as input to the
// report. The reporter never trusts it for the log-scan side.
type PhaseOutcome struct {
	Phase    phase.Phase
	Status   phase.Status
	ExitCode int
	Duration time.Duration
	// Failure describes a stage-level fault (missing input, timeout, failed
	// handoff) when one occurred; empty for a plain nonzero exit.
	Failure string
}

// RunInfo carries run-level metadata for the report header.
type RunInfo struct {
	StartedAt time.Time
	EndedAt   time.Time
	Overall   string
	Profile   resource.Profile
}

// Reporter writes the summary report.
type Reporter struct {
	path   string
	logger *logging.Logger
}

// New creates a Reporter that writes to the given file path.
func New(path string, logger *logging.Logger) *Reporter {
	return &Reporter{path: path, logger: logger}
}

// Path returns the report file location.
func (r *Reporter) Path() string {
	return r.path
}

// Generate builds the report text: a run header followed by one section per
// phase in phase order. Log scanning happens here, independently of the
// outcomes' own status records.
func (r *Reporter) Generate(run RunInfo, outcomes []PhaseOutcome) string {
	var sb strings.Builder

	sb.WriteString("simpipe run summary\n")
	sb.WriteString(fmt.Sprintf("generated: %s\n", time.Now().Format(time.RFC3339)))
	if !run.StartedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("run: %s to %s (%s)\n",
			run.StartedAt.Format(time.RFC3339),
			run.EndedAt.Format(time.RFC3339),
			run.EndedAt.Sub(run.StartedAt).Round(time.Second)))
	}
	sb.WriteString(fmt.Sprintf("devices: %d %s\n", run.Profile.Count, run.Profile.Kind))
	sb.WriteString(fmt.Sprintf("overall: %s\n", run.Overall))

	for _, outcome := range outcomes {
		sb.WriteString("\n")
		r.writeSection(&sb, outcome)
	}

	return sb.String()
}

// writeSection renders one phase section.
func (r *Reporter) writeSection(sb *strings.Builder, outcome PhaseOutcome) {
	p := outcome.Phase
	fmt.Fprintf(sb, "=== Phase %d: %s ===\n", p.ID, p.Name)

	exitVerdict := exitStatusLine(outcome)
	fmt.Fprintf(sb, "exit status: %s\n", exitVerdict)

	scanVerdict, scan := r.scanLog(p)
	fmt.Fprintf(sb, "log scan:    %s\n", scanVerdict)

	if signalsDisagree(outcome.Status, scanVerdict) {
		sb.WriteString("NOTE: status signals disagree\n")
	}

	if outcome.Duration > 0 {
		fmt.Fprintf(sb, "duration: %s\n", outcome.Duration.Round(time.Second))
	}

	if len(scan.Metrics) > 0 {
		sb.WriteString("metrics:\n")
		for _, m := range scan.Metrics {
			fmt.Fprintf(sb, "  %s: %s\n", m.Label, m.Line)
		}
	}
}

// exitStatusLine renders the controller-side signal.
func exitStatusLine(outcome PhaseOutcome) string {
	switch outcome.Status {
	case phase.StatusCompleted:
		return "completed (exit code 0)"
	case phase.StatusFailed:
		if outcome.Failure != "" {
			return fmt.Sprintf("failed (%s)", outcome.Failure)
		}
		return fmt.Sprintf("failed (exit code %d)", outcome.ExitCode)
	case phase.StatusNotRun:
		return "not run"
	case phase.StatusRunning:
		// The controller died mid-stage before recording an exit.
		return "interrupted (no exit recorded)"
	default:
		// Regenerated reports have no controller record to draw on.
		return "not recorded"
	}
}

// scanLog computes the log-scan signal for one phase. A missing log means
// the stage never ran; otherwise the marker scan decides.
func (r *Reporter) scanLog(p phase.Phase) (string, logscan.ScanResult) {
	if _, err := os.Stat(p.LogPath); err != nil {
		return "not run (no log)", logscan.ScanResult{}
	}

	scan, err := logscan.ScanFile(p.LogPath, logscan.TableFor(p.Name))
	if err != nil {
		r.logger.Warn("log scan failed", "phase", p.Name, "error", err)
		return "unreadable", logscan.ScanResult{}
	}

	if scan.Failed() {
		return fmt.Sprintf("failed (marker %q found)", scan.FatalMarker), scan
	}
	return "completed", scan
}

// signalsDisagree reports whether the two independent per-stage signals
// reached opposite verdicts. Sections where either side says the stage never
// ran carry no flag; there is only one real signal to report.
func signalsDisagree(exitStatus phase.Status, scanVerdict string) bool {
	scanCompleted := scanVerdict == "completed"
	scanFailed := strings.HasPrefix(scanVerdict, "failed")

	switch exitStatus {
	case phase.StatusCompleted:
		return scanFailed
	case phase.StatusFailed:
		return scanCompleted
	default:
		return false
	}
}

// Write renders and writes the report. Report generation is best-effort: the
// caller logs a returned error but never lets it change the run's outcome.
func (r *Reporter) Write(run RunInfo, outcomes []PhaseOutcome) error {
	text := r.Generate(run, outcomes)

	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	if err := os.WriteFile(r.path, []byte(text), 0644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	r.logger.Info("summary report written", "path", r.path)
	return nil
}
