// Package errors provides the error taxonomy for the simpipe pipeline.
// It defines sentinel errors for each failure kind the orchestrator
// distinguishes, a PhaseError type that carries stage context, and the
// mapping from failure kind to process exit code.
//
// The taxonomy mirrors how the pipeline treats failures:
//
//   - ErrMissingInput: a stage's input script is absent; the stage aborts
//     before any engine process is launched.
//   - ErrProcessFailure: the engine exited nonzero; the remaining chain stops.
//   - ErrMissingArtifact: the engine exited 0 but its declared artifact never
//     appeared at the expected path.
//   - ErrHandoffIO: copying an artifact to the shared handoff location failed.
//   - ErrTimeout: the engine exceeded its per-stage timeout and was killed.
//   - ErrWorkspaceLocked: another simpipe run holds the workspace lock.
//
// Report-write failures are deliberately absent: they are logged and do not
// affect the run outcome.
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions so callers can import only this package.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Sentinel errors for the pipeline failure taxonomy.
var (
	// ErrMissingInput indicates a stage's input script does not exist.
	ErrMissingInput = New("input script not found")
	// ErrProcessFailure indicates the engine process exited nonzero.
	ErrProcessFailure = New("engine process failed")
	// ErrMissingArtifact indicates a completed stage's declared artifact is absent.
	ErrMissingArtifact = New("declared artifact missing after successful stage")
	// ErrHandoffIO indicates the artifact copy to the handoff location failed.
	ErrHandoffIO = New("artifact handoff failed")
	// ErrTimeout indicates the engine exceeded the per-stage timeout.
	ErrTimeout = New("engine process timed out")
	// ErrWorkspaceLocked indicates another run owns the workspace lock.
	ErrWorkspaceLocked = New("workspace is locked by another run")
)

// Exit codes reported by the simpipe process. Zero means every stage
// completed; each failure kind maps to its own nonzero code so scripts
// wrapping the pipeline can distinguish the failing stage's nature.
const (
	ExitOK              = 0
	ExitFailure         = 1
	ExitMissingInput    = 2
	ExitProcessFailure  = 3
	ExitMissingArtifact = 4
	ExitHandoffIO       = 5
	ExitTimeout         = 6
	ExitLocked          = 7
)

// PhaseError wraps a failure with the stage it occurred in.
//
// Example:
//
//	err := errors.NewPhaseError(2, "discharge", errors.ErrProcessFailure)
//	fmt.Println(err) // "phase 2 (discharge): engine process failed"
type PhaseError struct {
	ID    int
	Name  string
	Cause error
}

// NewPhaseError creates a PhaseError for the given stage.
func NewPhaseError(id int, name string, cause error) *PhaseError {
	return &PhaseError{ID: id, Name: name, Cause: cause}
}

// Error returns the formatted error message.
func (e *PhaseError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("phase %d (%s): %v", e.ID, e.Name, e.Cause)
	}
	return fmt.Sprintf("phase %d: %v", e.ID, e.Cause)
}

// Unwrap returns the underlying failure.
func (e *PhaseError) Unwrap() error {
	return e.Cause
}

// ExitCode maps an error to the simpipe process exit code. A nil error maps
// to ExitOK; errors outside the taxonomy map to the generic ExitFailure.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case Is(err, ErrMissingInput):
		return ExitMissingInput
	case Is(err, ErrProcessFailure):
		return ExitProcessFailure
	case Is(err, ErrMissingArtifact):
		return ExitMissingArtifact
	case Is(err, ErrHandoffIO):
		return ExitHandoffIO
	case Is(err, ErrTimeout):
		return ExitTimeout
	case Is(err, ErrWorkspaceLocked):
		return ExitLocked
	default:
		return ExitFailure
	}
}

// Wrap wraps an error with additional context message.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
