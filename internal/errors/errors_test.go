package errors

import (
	"fmt"
	"testing"
)

func TestPhaseError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *PhaseError
		want string
	}{
		{
			name: "with phase name",
			err:  NewPhaseError(2, "discharge", ErrProcessFailure),
			want: "phase 2 (discharge): engine process failed",
		},
		{
			name: "without phase name",
			err:  NewPhaseError(3, "", ErrMissingArtifact),
			want: "phase 3: declared artifact missing after successful stage",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPhaseError_Unwrap(t *testing.T) {
	err := NewPhaseError(1, "equilibration", ErrMissingInput)

	if !Is(err, ErrMissingInput) {
		t.Error("Is(err, ErrMissingInput) = false, want true")
	}
	if Is(err, ErrProcessFailure) {
		t.Error("Is(err, ErrProcessFailure) = true, want false")
	}

	var phaseErr *PhaseError
	if !As(err, &phaseErr) {
		t.Fatal("As() failed to extract *PhaseError")
	}
	if phaseErr.ID != 1 {
		t.Errorf("ID = %d, want 1", phaseErr.ID)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"missing input", ErrMissingInput, ExitMissingInput},
		{"process failure", ErrProcessFailure, ExitProcessFailure},
		{"missing artifact", ErrMissingArtifact, ExitMissingArtifact},
		{"handoff io", ErrHandoffIO, ExitHandoffIO},
		{"timeout", ErrTimeout, ExitTimeout},
		{"locked", ErrWorkspaceLocked, ExitLocked},
		{"unknown", New("boom"), ExitFailure},
		{"wrapped in phase error", NewPhaseError(2, "discharge", ErrTimeout), ExitTimeout},
		{"wrapped with context", Wrap(ErrHandoffIO, "staging restart.phase1"), ExitHandoffIO},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "context") != nil {
		t.Error("Wrap(nil) should return nil")
	}

	wrapped := Wrapf(ErrMissingInput, "phase %d", 4)
	want := fmt.Sprintf("phase 4: %v", ErrMissingInput)
	if wrapped.Error() != want {
		t.Errorf("Wrapf() = %q, want %q", wrapped.Error(), want)
	}
	if !Is(wrapped, ErrMissingInput) {
		t.Error("wrapped error should match ErrMissingInput")
	}
}
