// Package artifact validates and relocates the files stages hand to their
// successors. Artifacts are copied byte-for-byte into a shared handoff
// directory; the stage's own output is never moved, so it stays available
// for inspection after the run.
package artifact

import (
	"io"
	"os"
	"path/filepath"

	simerrors "github.com/rimuru/simpipe/internal/errors"
	"github.com/rimuru/simpipe/internal/logging"
	"github.com/rimuru/simpipe/internal/phase"
)

// Record documents one artifact handoff. Created only when the source phase
// completed and declared an artifact.
type Record struct {
	SourcePhase int
	// DestPhase is the phase that will consume the artifact, 0 when the
	// source is the last phase.
	DestPhase    int
	ArtifactPath string // staged copy inside the handoff directory
	Copied       bool
}

// Handoff stages artifacts into a shared directory.
type Handoff struct {
	dir    string
	logger *logging.Logger
}

// NewHandoff creates a Handoff rooted at dir.
func NewHandoff(dir string, logger *logging.Logger) *Handoff {
	return &Handoff{dir: dir, logger: logger}
}

// Dir returns the handoff directory.
func (h *Handoff) Dir() string {
	return h.dir
}

// Stage validates that the phase's declared artifact exists and copies it
// into the handoff directory. A missing artifact after a successful stage is
// the distinct ErrMissingArtifact inconsistency; a failed copy is ErrHandoffIO.
// Phases declaring no artifact stage nothing and return a zero Record.
func (h *Handoff) Stage(p phase.Phase, destPhase int) (Record, error) {
	if !p.HasArtifact() {
		return Record{}, nil
	}

	if _, err := os.Stat(p.Artifact.Path); err != nil {
		h.logger.Error("artifact missing after successful stage",
			"phase", p.Name, "artifact", p.Artifact.Name, "path", p.Artifact.Path)
		return Record{}, simerrors.NewPhaseError(p.ID, p.Name,
			simerrors.Wrapf(simerrors.ErrMissingArtifact, "%s", p.Artifact.Path))
	}

	if err := os.MkdirAll(h.dir, 0755); err != nil {
		return Record{}, simerrors.NewPhaseError(p.ID, p.Name,
			simerrors.Wrapf(simerrors.ErrHandoffIO, "creating handoff dir: %v", err))
	}

	dest := filepath.Join(h.dir, p.Artifact.Name)
	if err := copyFile(p.Artifact.Path, dest); err != nil {
		return Record{}, simerrors.NewPhaseError(p.ID, p.Name,
			simerrors.Wrapf(simerrors.ErrHandoffIO, "copying %s: %v", p.Artifact.Name, err))
	}

	h.logger.Info("artifact staged",
		"phase", p.Name, "artifact", p.Artifact.Name, "dest", dest)

	return Record{
		SourcePhase:  p.ID,
		DestPhase:    destPhase,
		ArtifactPath: dest,
		Copied:       true,
	}, nil
}

// Scrub removes every declared artifact's staged copy from the handoff
// directory so no phase can observe a leftover from a previous attempt.
// Absent files are not an error; running Scrub twice is equivalent to
// running it once.
func (h *Handoff) Scrub(phases []phase.Phase) error {
	for _, p := range phases {
		if !p.HasArtifact() {
			continue
		}
		staged := filepath.Join(h.dir, p.Artifact.Name)
		if err := os.Remove(staged); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return simerrors.Wrapf(simerrors.ErrHandoffIO, "scrubbing %s: %v", staged, err)
		}
		h.logger.Debug("stale artifact removed", "path", staged)
	}
	return nil
}

// copyFile duplicates src at dest byte-for-byte, truncating any existing
// file, and syncs the copy to disk before returning.
func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
