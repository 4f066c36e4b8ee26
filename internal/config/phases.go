package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/rimuru/simpipe/internal/phase"
)

// phaseFile is the on-disk shape of a phases.yaml stage-table override.
type phaseFile struct {
	Phases []phaseEntry `yaml:"phases"`
}

// phaseEntry describes one stage. Input and OutputDir are relative to the
// workspace root; Log is relative to the log directory; the artifact path is
// relative to the stage's output directory.
type phaseEntry struct {
	ID        int            `yaml:"id"`
	Name      string         `yaml:"name"`
	Input     string         `yaml:"input"`
	Log       string         `yaml:"log"`
	OutputDir string         `yaml:"output_dir"`
	Artifact  *artifactEntry `yaml:"artifact"`
}

type artifactEntry struct {
	Name string `yaml:"name"`
	// Path defaults to Name when omitted
	Path string `yaml:"path"`
}

// defaultPhaseEntries returns the built-in four-stage nanoparticle pipeline:
// workpiece equilibration, discharge/ablation, quench/nucleation, and particle
// growth/analysis. The first three stages hand a restart file to their
// successor; the final stage leaves only analysis output behind.
func defaultPhaseEntries() []phaseEntry {
	names := []string{"equilibration", "discharge", "quench", "growth"}

	entries := make([]phaseEntry, 0, len(names))
	for i, name := range names {
		id := i + 1
		e := phaseEntry{
			ID:        id,
			Name:      name,
			Input:     filepath.Join(fmt.Sprintf("phase%d", id), fmt.Sprintf("in.phase%d", id)),
			Log:       fmt.Sprintf("phase%d.log", id),
			OutputDir: filepath.Join(fmt.Sprintf("phase%d", id), "output"),
		}
		if id < len(names) {
			e.Artifact = &artifactEntry{Name: fmt.Sprintf("restart.phase%d", id)}
		}
		entries = append(entries, e)
	}
	return entries
}

// Phases returns the ordered stage table with every path resolved to an
// absolute location. The built-in table is used unless paths.phases_file
// points at a YAML override.
func (c *Config) Phases() ([]phase.Phase, error) {
	entries := defaultPhaseEntries()

	if c.Paths.PhasesFile != "" {
		loaded, err := loadPhaseFile(c.Paths.PhasesFile)
		if err != nil {
			return nil, err
		}
		entries = loaded
	}

	if err := validatePhaseEntries(entries); err != nil {
		return nil, err
	}

	workspace := c.Paths.ResolveWorkspaceDir()
	logDir := c.Paths.ResolveLogDir()

	phases := make([]phase.Phase, 0, len(entries))
	for _, e := range entries {
		outputDir := filepath.Join(workspace, e.OutputDir)
		p := phase.Phase{
			ID:        e.ID,
			Name:      e.Name,
			InputPath: filepath.Join(workspace, e.Input),
			LogPath:   filepath.Join(logDir, e.Log),
			OutputDir: outputDir,
		}
		if e.Artifact != nil {
			relPath := e.Artifact.Path
			if relPath == "" {
				relPath = e.Artifact.Name
			}
			p.Artifact = &phase.Artifact{
				Name: e.Artifact.Name,
				Path: filepath.Join(outputDir, relPath),
			}
		}
		phases = append(phases, p)
	}

	return phases, nil
}

// loadPhaseFile parses a phases.yaml stage-table override
func loadPhaseFile(path string) ([]phaseEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read phases file %s: %w", path, err)
	}

	var file phaseFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse phases file %s: %w", path, err)
	}
	if len(file.Phases) == 0 {
		return nil, fmt.Errorf("phases file %s declares no phases", path)
	}

	return file.Phases, nil
}

// validatePhaseEntries checks the stage table for structural problems:
// duplicate or non-positive ids, missing names or inputs, and artifacts
// without a name. Entries must already be in ascending id order; the table
// defines the execution order and is never reordered at runtime.
func validatePhaseEntries(entries []phaseEntry) error {
	if len(entries) == 0 {
		return fmt.Errorf("phase table is empty")
	}

	if !sort.SliceIsSorted(entries, func(i, j int) bool {
		return entries[i].ID < entries[j].ID
	}) {
		return fmt.Errorf("phase table must be in ascending id order")
	}

	seen := make(map[int]bool, len(entries))
	for _, e := range entries {
		if e.ID <= 0 {
			return fmt.Errorf("phase %q: id must be positive, got %d", e.Name, e.ID)
		}
		if seen[e.ID] {
			return fmt.Errorf("duplicate phase id %d", e.ID)
		}
		seen[e.ID] = true

		if e.Name == "" {
			return fmt.Errorf("phase %d: name is required", e.ID)
		}
		if e.Input == "" {
			return fmt.Errorf("phase %d (%s): input is required", e.ID, e.Name)
		}
		if e.Log == "" {
			return fmt.Errorf("phase %d (%s): log is required", e.ID, e.Name)
		}
		if e.OutputDir == "" {
			return fmt.Errorf("phase %d (%s): output_dir is required", e.ID, e.Name)
		}
		if e.Artifact != nil && e.Artifact.Name == "" {
			return fmt.Errorf("phase %d (%s): artifact name is required", e.ID, e.Name)
		}
	}

	return nil
}
