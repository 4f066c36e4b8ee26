package config

import (
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/rimuru/simpipe/internal/phase"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Engine.Binary != "lmp" {
		t.Errorf("Engine.Binary = %q, want %q", cfg.Engine.Binary, "lmp")
	}
	if cfg.Engine.TimeoutMinutes != 0 {
		t.Errorf("Engine.TimeoutMinutes = %d, want 0", cfg.Engine.TimeoutMinutes)
	}
	if !cfg.PostProcess.Enabled {
		t.Error("PostProcess.Enabled = false, want true")
	}
	if cfg.PostProcess.TriggerArtifact != "particle_size_dist.dat" {
		t.Errorf("PostProcess.TriggerArtifact = %q, want %q",
			cfg.PostProcess.TriggerArtifact, "particle_size_dist.dat")
	}
	if cfg.Report.FileName != "summary_report.txt" {
		t.Errorf("Report.FileName = %q, want %q", cfg.Report.FileName, "summary_report.txt")
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		t.Errorf("Default() config has validation errors: %v", ValidationErrors(errs))
	}
}

func TestLoad_WithDefaults(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	SetDefaults()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Engine.Binary != "lmp" {
		t.Errorf("Engine.Binary = %q, want %q", cfg.Engine.Binary, "lmp")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
}

func TestLoad_InvalidValue(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	SetDefaults()
	viper.Set("engine.timeout_minutes", -5)

	if _, err := Load(); err == nil {
		t.Error("Load() with negative timeout should return an error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{
			name:      "empty engine binary",
			mutate:    func(c *Config) { c.Engine.Binary = "  " },
			wantField: "engine.binary",
		},
		{
			name:      "negative max devices",
			mutate:    func(c *Config) { c.Resources.MaxDevices = -1 },
			wantField: "resources.max_devices",
		},
		{
			name:      "bad log level",
			mutate:    func(c *Config) { c.Logging.Level = "verbose" },
			wantField: "logging.level",
		},
		{
			name:      "report name is a path",
			mutate:    func(c *Config) { c.Report.FileName = "run/report.txt" },
			wantField: "report.file_name",
		},
		{
			name:      "dashboard refresh too fast",
			mutate:    func(c *Config) { c.Dashboard.RefreshMs = 10 },
			wantField: "dashboard.refresh_ms",
		},
		{
			name:      "null byte in workspace path",
			mutate:    func(c *Config) { c.Paths.WorkspaceDir = "bad\x00path" },
			wantField: "paths.workspace_dir",
		},
		{
			name:      "empty postprocess command",
			mutate:    func(c *Config) { c.PostProcess.Command = "" },
			wantField: "postprocess.command",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			errs := cfg.Validate()
			if len(errs) == 0 {
				t.Fatal("Validate() returned no errors, want at least one")
			}
			found := false
			for _, e := range errs {
				if e.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("Validate() errors = %v, want error on field %q",
					ValidationErrors(errs), tt.wantField)
			}
		})
	}
}

func TestValidate_DisabledPostProcessSkipsChecks(t *testing.T) {
	cfg := Default()
	cfg.PostProcess.Enabled = false
	cfg.PostProcess.Command = ""
	cfg.PostProcess.TriggerArtifact = ""

	if errs := cfg.Validate(); len(errs) > 0 {
		t.Errorf("Validate() = %v, want no errors when postprocess disabled",
			ValidationErrors(errs))
	}
}

func TestPathResolution(t *testing.T) {
	cfg := Default()
	cfg.Paths.WorkspaceDir = t.TempDir()

	handoff := cfg.Paths.ResolveHandoffDir()
	if handoff != filepath.Join(cfg.Paths.WorkspaceDir, "handoff") {
		t.Errorf("ResolveHandoffDir() = %q, want handoff under workspace", handoff)
	}

	cfg.Paths.HandoffDir = "staging"
	handoff = cfg.Paths.ResolveHandoffDir()
	if handoff != filepath.Join(cfg.Paths.WorkspaceDir, "staging") {
		t.Errorf("ResolveHandoffDir() = %q, want relative path under workspace", handoff)
	}

	cfg.Paths.HandoffDir = "/mnt/shared/handoff"
	if got := cfg.Paths.ResolveHandoffDir(); got != "/mnt/shared/handoff" {
		t.Errorf("ResolveHandoffDir() = %q, want absolute path kept as-is", got)
	}

	if got := cfg.Paths.ResolveLogDir(); got != filepath.Join(cfg.Paths.WorkspaceDir, "logs") {
		t.Errorf("ResolveLogDir() = %q, want logs under workspace", got)
	}
	if got := cfg.Paths.ResolveRunDir(); got != filepath.Join(cfg.Paths.WorkspaceDir, "run") {
		t.Errorf("ResolveRunDir() = %q, want run under workspace", got)
	}
}

func TestEngineTimeout(t *testing.T) {
	e := EngineConfig{TimeoutMinutes: 90}
	if got := e.Timeout().Minutes(); got != 90 {
		t.Errorf("Timeout() = %v minutes, want 90", got)
	}

	e.TimeoutMinutes = 0
	if e.Timeout() != 0 {
		t.Errorf("Timeout() = %v, want 0 (disabled)", e.Timeout())
	}
}

func TestEngineSettings(t *testing.T) {
	e := EngineConfig{
		Binary:         "/opt/lammps/bin/lmp",
		ExtraArgs:      []string{"-var", "seed", "42"},
		TimeoutMinutes: 45,
	}

	want := phase.EngineSettings{
		Binary:    "/opt/lammps/bin/lmp",
		ExtraArgs: []string{"-var", "seed", "42"},
		Timeout:   45 * time.Minute,
	}
	if got := e.Settings(); !reflect.DeepEqual(got, want) {
		t.Errorf("Settings() = %+v, want %+v", got, want)
	}
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		{Field: "engine.binary", Value: "", Message: "cannot be empty"},
		{Field: "logging.level", Value: "verbose", Message: "must be one of: debug, info, warn, error"},
	}

	msg := errs.Error()
	if !strings.Contains(msg, "2 validation errors") {
		t.Errorf("Error() = %q, want count prefix", msg)
	}
	if !strings.Contains(msg, "engine.binary") {
		t.Errorf("Error() = %q, want field names included", msg)
	}

	single := ValidationErrors{errs[0]}
	if strings.Contains(single.Error(), "validation errors") {
		t.Errorf("single error should not carry a count prefix: %q", single.Error())
	}
}
