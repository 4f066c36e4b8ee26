// Package config holds the complete simpipe configuration. A single Config
// value is constructed once per invocation and threaded explicitly to every
// component; nothing in the repository reads paths from package-level state.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/rimuru/simpipe/internal/phase"
	"github.com/rimuru/simpipe/internal/resource"
)

// Config represents the complete simpipe configuration
type Config struct {
	Paths       PathsConfig       `mapstructure:"paths"`
	Engine      EngineConfig      `mapstructure:"engine"`
	Resources   ResourcesConfig   `mapstructure:"resources"`
	PostProcess PostProcessConfig `mapstructure:"postprocess"`
	Report      ReportConfig      `mapstructure:"report"`
	Dashboard   DashboardConfig   `mapstructure:"dashboard"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// PathsConfig controls where the pipeline reads and writes
type PathsConfig struct {
	// WorkspaceDir is the root directory holding the per-stage directories
	// (phase1..phaseN). Defaults to the current directory.
	// Supports ~ for home directory expansion.
	WorkspaceDir string `mapstructure:"workspace_dir"`
	// HandoffDir is the shared location stage artifacts are copied to for the
	// next stage to consume. If empty, defaults to "handoff" under the
	// workspace. Overridable via SIMPIPE_PATHS_HANDOFF_DIR for reference runs
	// against a separate artifact store.
	HandoffDir string `mapstructure:"handoff_dir"`
	// LogDir is where per-stage engine logs are written.
	// If empty, defaults to "logs" under the workspace.
	LogDir string `mapstructure:"log_dir"`
	// RunDir holds run-scoped files: the orchestrator's debug log, the lock
	// file, and the summary report. If empty, defaults to "run" under the
	// workspace.
	RunDir string `mapstructure:"run_dir"`
	// PhasesFile is an optional YAML file overriding the built-in stage
	// table. Empty means use the built-in four-stage pipeline.
	PhasesFile string `mapstructure:"phases_file"`
}

// EngineConfig controls how the external simulation engine is invoked
type EngineConfig struct {
	// Binary is the engine executable name or path (default: "lmp")
	Binary string `mapstructure:"binary"`
	// ExtraArgs are appended to every engine invocation after the fixed and
	// parallelism flags, before -in
	ExtraArgs []string `mapstructure:"extra_args"`
	// TimeoutMinutes is the per-stage wall-clock limit in minutes. When the
	// limit is exceeded the engine's process group is terminated and the
	// stage fails with a timeout. 0 disables the limit.
	TimeoutMinutes int `mapstructure:"timeout_minutes"`
}

// ResourcesConfig controls compute-device detection
type ResourcesConfig struct {
	// ForceCPU skips device detection entirely and runs the engine with the
	// CPU fallback profile (default: false)
	ForceCPU bool `mapstructure:"force_cpu"`
	// MaxDevices caps the detected device count, 0 = use all detected
	MaxDevices int `mapstructure:"max_devices"`
}

// PostProcessConfig controls the optional fire-and-forget analysis step
// launched after a fully completed run
type PostProcessConfig struct {
	// Enabled controls whether post-processing is attempted at all (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Command is the interpreter or program to launch (default: "python3")
	Command string `mapstructure:"command"`
	// Script is the argument passed to Command (default: "py_phase4.py")
	Script string `mapstructure:"script"`
	// TriggerArtifact is the file that must exist in the final stage's output
	// directory for post-processing to launch (default: "particle_size_dist.dat")
	TriggerArtifact string `mapstructure:"trigger_artifact"`
}

// ReportConfig controls the aggregate summary report
type ReportConfig struct {
	// FileName is the report file name inside the run directory
	// (default: "summary_report.txt")
	FileName string `mapstructure:"file_name"`
}

// DashboardConfig controls the live terminal dashboard
type DashboardConfig struct {
	// RefreshMs is the fallback poll interval in milliseconds for log
	// re-scans when no filesystem event arrives (default: 2000)
	RefreshMs int `mapstructure:"refresh_ms"`
}

// LoggingConfig controls the orchestrator's own debug logging
type LoggingConfig struct {
	// Enabled controls whether debug logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			WorkspaceDir: ".",
			HandoffDir:   "", // Empty means use default: {workspace}/handoff
			LogDir:       "", // Empty means use default: {workspace}/logs
			RunDir:       "", // Empty means use default: {workspace}/run
			PhasesFile:   "",
		},
		Engine: EngineConfig{
			Binary:         "lmp",
			ExtraArgs:      []string{},
			TimeoutMinutes: 0, // Disabled by default (engine runs can take days)
		},
		Resources: ResourcesConfig{
			ForceCPU:   false,
			MaxDevices: 0, // No cap by default
		},
		PostProcess: PostProcessConfig{
			Enabled:         true,
			Command:         "python3",
			Script:          "py_phase4.py",
			TriggerArtifact: "particle_size_dist.dat",
		},
		Report: ReportConfig{
			FileName: "summary_report.txt",
		},
		Dashboard: DashboardConfig{
			RefreshMs: 2000,
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
		},
	}
}

// Timeout returns the per-stage timeout as a time.Duration (0 means disabled)
func (e *EngineConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutMinutes) * time.Minute
}

// Settings converts the engine configuration into the runner's invocation
// settings.
func (e *EngineConfig) Settings() phase.EngineSettings {
	return phase.EngineSettings{
		Binary:    e.Binary,
		ExtraArgs: e.ExtraArgs,
		Timeout:   e.Timeout(),
	}
}

// Options converts the resources configuration into the detector's options.
func (r *ResourcesConfig) Options() resource.Options {
	return resource.Options{
		ForceCPU:   r.ForceCPU,
		MaxDevices: r.MaxDevices,
	}
}

// RefreshInterval returns the dashboard poll interval as a time.Duration
func (d *DashboardConfig) RefreshInterval() time.Duration {
	return time.Duration(d.RefreshMs) * time.Millisecond
}

// ResolveWorkspaceDir returns the absolute workspace root.
// Supports ~ expansion; a relative path is resolved against the process's
// working directory.
func (p *PathsConfig) ResolveWorkspaceDir() string {
	path := p.WorkspaceDir
	if path == "" {
		path = "."
	}
	path = expandHome(path)
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

// ResolveHandoffDir returns the absolute handoff directory
func (p *PathsConfig) ResolveHandoffDir() string {
	return p.resolveUnderWorkspace(p.HandoffDir, "handoff")
}

// ResolveLogDir returns the absolute stage-log directory
func (p *PathsConfig) ResolveLogDir() string {
	return p.resolveUnderWorkspace(p.LogDir, "logs")
}

// ResolveRunDir returns the absolute run directory
func (p *PathsConfig) ResolveRunDir() string {
	return p.resolveUnderWorkspace(p.RunDir, "run")
}

// resolveUnderWorkspace resolves a configured path, defaulting to
// {workspace}/{defaultName} when unset. A relative configured path is
// resolved against the workspace root, not the process working directory.
func (p *PathsConfig) resolveUnderWorkspace(configured, defaultName string) string {
	if configured == "" {
		return filepath.Join(p.ResolveWorkspaceDir(), defaultName)
	}
	path := expandHome(configured)
	if !filepath.IsAbs(path) {
		path = filepath.Join(p.ResolveWorkspaceDir(), path)
	}
	return path
}

// expandHome expands a leading ~ to the user's home directory
func expandHome(path string) string {
	if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			return home
		}
		return path
	}
	if len(path) > 1 && path[0] == '~' && path[1] == filepath.Separator {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Paths defaults
	viper.SetDefault("paths.workspace_dir", defaults.Paths.WorkspaceDir)
	viper.SetDefault("paths.handoff_dir", defaults.Paths.HandoffDir)
	viper.SetDefault("paths.log_dir", defaults.Paths.LogDir)
	viper.SetDefault("paths.run_dir", defaults.Paths.RunDir)
	viper.SetDefault("paths.phases_file", defaults.Paths.PhasesFile)

	// Engine defaults
	viper.SetDefault("engine.binary", defaults.Engine.Binary)
	viper.SetDefault("engine.extra_args", defaults.Engine.ExtraArgs)
	viper.SetDefault("engine.timeout_minutes", defaults.Engine.TimeoutMinutes)

	// Resources defaults
	viper.SetDefault("resources.force_cpu", defaults.Resources.ForceCPU)
	viper.SetDefault("resources.max_devices", defaults.Resources.MaxDevices)

	// PostProcess defaults
	viper.SetDefault("postprocess.enabled", defaults.PostProcess.Enabled)
	viper.SetDefault("postprocess.command", defaults.PostProcess.Command)
	viper.SetDefault("postprocess.script", defaults.PostProcess.Script)
	viper.SetDefault("postprocess.trigger_artifact", defaults.PostProcess.TriggerArtifact)

	// Report defaults
	viper.SetDefault("report.file_name", defaults.Report.FileName)

	// Dashboard defaults
	viper.SetDefault("dashboard.refresh_ms", defaults.Dashboard.RefreshMs)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Validate the configuration
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "simpipe")
	}
	// Fall back to ~/.config/simpipe
	home, err := os.UserHomeDir()
	if err != nil {
		return ".simpipe"
	}
	return filepath.Join(home, ".config", "simpipe")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
