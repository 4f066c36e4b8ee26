package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPhases_DefaultTable(t *testing.T) {
	cfg := Default()
	cfg.Paths.WorkspaceDir = t.TempDir()

	phases, err := cfg.Phases()
	if err != nil {
		t.Fatalf("Phases() error = %v", err)
	}

	if len(phases) != 4 {
		t.Fatalf("len(phases) = %d, want 4", len(phases))
	}

	wantNames := []string{"equilibration", "discharge", "quench", "growth"}
	for i, p := range phases {
		if p.ID != i+1 {
			t.Errorf("phases[%d].ID = %d, want %d", i, p.ID, i+1)
		}
		if p.Name != wantNames[i] {
			t.Errorf("phases[%d].Name = %q, want %q", i, p.Name, wantNames[i])
		}
		if !filepath.IsAbs(p.InputPath) {
			t.Errorf("phases[%d].InputPath = %q, want absolute", i, p.InputPath)
		}
		if !filepath.IsAbs(p.LogPath) {
			t.Errorf("phases[%d].LogPath = %q, want absolute", i, p.LogPath)
		}
	}

	// First three stages hand a restart file forward; the final stage does not.
	for i := 0; i < 3; i++ {
		if phases[i].Artifact == nil {
			t.Fatalf("phases[%d].Artifact = nil, want declared artifact", i)
		}
		wantName := "restart.phase" + string(rune('1'+i))
		if phases[i].Artifact.Name != wantName {
			t.Errorf("phases[%d].Artifact.Name = %q, want %q", i, phases[i].Artifact.Name, wantName)
		}
		if !strings.HasPrefix(phases[i].Artifact.Path, phases[i].OutputDir) {
			t.Errorf("phases[%d].Artifact.Path = %q, want under output dir %q",
				i, phases[i].Artifact.Path, phases[i].OutputDir)
		}
	}
	if phases[3].Artifact != nil {
		t.Error("phases[3].Artifact should be nil for the final stage")
	}
}

func TestPhases_FileOverride(t *testing.T) {
	dir := t.TempDir()
	phasesPath := filepath.Join(dir, "phases.yaml")

	content := `phases:
  - id: 1
    name: melt
    input: melt/in.melt
    log: melt.log
    output_dir: melt/output
    artifact:
      name: restart.melt
      path: checkpoints/restart.melt
  - id: 2
    name: cool
    input: cool/in.cool
    log: cool.log
    output_dir: cool/output
`
	if err := os.WriteFile(phasesPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write phases file: %v", err)
	}

	cfg := Default()
	cfg.Paths.WorkspaceDir = dir
	cfg.Paths.PhasesFile = phasesPath

	phases, err := cfg.Phases()
	if err != nil {
		t.Fatalf("Phases() error = %v", err)
	}
	if len(phases) != 2 {
		t.Fatalf("len(phases) = %d, want 2", len(phases))
	}

	if phases[0].Name != "melt" {
		t.Errorf("phases[0].Name = %q, want %q", phases[0].Name, "melt")
	}
	wantArtifact := filepath.Join(dir, "melt", "output", "checkpoints", "restart.melt")
	if phases[0].Artifact == nil || phases[0].Artifact.Path != wantArtifact {
		t.Errorf("phases[0].Artifact = %+v, want path %q", phases[0].Artifact, wantArtifact)
	}
	if phases[1].Artifact != nil {
		t.Error("phases[1].Artifact should be nil when not declared")
	}
}

func TestPhases_FileErrors(t *testing.T) {
	dir := t.TempDir()

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
		return path
	}

	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{
			name:    "missing file",
			path:    filepath.Join(dir, "nope.yaml"),
			wantErr: "failed to read",
		},
		{
			name:    "malformed yaml",
			path:    write("bad.yaml", "phases: [\n"),
			wantErr: "failed to parse",
		},
		{
			name:    "empty table",
			path:    write("empty.yaml", "phases: []\n"),
			wantErr: "no phases",
		},
		{
			name: "duplicate ids",
			path: write("dup.yaml", `phases:
  - {id: 1, name: a, input: a/in, log: a.log, output_dir: a/out}
  - {id: 1, name: b, input: b/in, log: b.log, output_dir: b/out}
`),
			wantErr: "duplicate phase id",
		},
		{
			name: "out of order",
			path: write("order.yaml", `phases:
  - {id: 2, name: b, input: b/in, log: b.log, output_dir: b/out}
  - {id: 1, name: a, input: a/in, log: a.log, output_dir: a/out}
`),
			wantErr: "ascending id order",
		},
		{
			name: "missing input",
			path: write("noinput.yaml", `phases:
  - {id: 1, name: a, log: a.log, output_dir: a/out}
`),
			wantErr: "input is required",
		},
		{
			name: "artifact without name",
			path: write("noname.yaml", `phases:
  - {id: 1, name: a, input: a/in, log: a.log, output_dir: a/out, artifact: {path: x}}
`),
			wantErr: "artifact name is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Paths.WorkspaceDir = dir
			cfg.Paths.PhasesFile = tt.path

			_, err := cfg.Phases()
			if err == nil {
				t.Fatal("Phases() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Phases() error = %q, want substring %q", err.Error(), tt.wantErr)
			}
		})
	}
}
