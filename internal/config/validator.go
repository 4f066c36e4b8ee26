package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "engine.timeout_minutes")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validatePaths()...)
	errors = append(errors, c.validateEngine()...)
	errors = append(errors, c.validateResources()...)
	errors = append(errors, c.validatePostProcess()...)
	errors = append(errors, c.validateReport()...)
	errors = append(errors, c.validateDashboard()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

// validatePaths validates the PathsConfig
func (c *Config) validatePaths() []ValidationError {
	var errors []ValidationError

	fields := []struct {
		name  string
		value string
	}{
		{"paths.workspace_dir", c.Paths.WorkspaceDir},
		{"paths.handoff_dir", c.Paths.HandoffDir},
		{"paths.log_dir", c.Paths.LogDir},
		{"paths.run_dir", c.Paths.RunDir},
		{"paths.phases_file", c.Paths.PhasesFile},
	}

	const maxPathLength = 4096
	for _, f := range fields {
		if strings.ContainsRune(f.value, '\x00') {
			errors = append(errors, ValidationError{
				Field:   f.name,
				Value:   f.value,
				Message: "path contains invalid null character",
			})
		}
		if len(f.value) > maxPathLength {
			errors = append(errors, ValidationError{
				Field:   f.name,
				Value:   f.value,
				Message: fmt.Sprintf("path exceeds maximum length of %d characters", maxPathLength),
			})
		}
	}

	return errors
}

// validateEngine validates the EngineConfig
func (c *Config) validateEngine() []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(c.Engine.Binary) == "" {
		errors = append(errors, ValidationError{
			Field:   "engine.binary",
			Value:   c.Engine.Binary,
			Message: "cannot be empty",
		})
	}

	// Timeout validation (0 means disabled, which is valid; negative is invalid)
	if c.Engine.TimeoutMinutes < 0 {
		errors = append(errors, ValidationError{
			Field:   "engine.timeout_minutes",
			Value:   c.Engine.TimeoutMinutes,
			Message: "must be non-negative (0 disables timeout)",
		})
	}

	return errors
}

// validateResources validates the ResourcesConfig
func (c *Config) validateResources() []ValidationError {
	var errors []ValidationError

	if c.Resources.MaxDevices < 0 {
		errors = append(errors, ValidationError{
			Field:   "resources.max_devices",
			Value:   c.Resources.MaxDevices,
			Message: "must be non-negative (0 disables the cap)",
		})
	}

	return errors
}

// validatePostProcess validates the PostProcessConfig
func (c *Config) validatePostProcess() []ValidationError {
	var errors []ValidationError

	if !c.PostProcess.Enabled {
		return errors
	}

	if strings.TrimSpace(c.PostProcess.Command) == "" {
		errors = append(errors, ValidationError{
			Field:   "postprocess.command",
			Value:   c.PostProcess.Command,
			Message: "cannot be empty when postprocess is enabled",
		})
	}
	if strings.TrimSpace(c.PostProcess.TriggerArtifact) == "" {
		errors = append(errors, ValidationError{
			Field:   "postprocess.trigger_artifact",
			Value:   c.PostProcess.TriggerArtifact,
			Message: "cannot be empty when postprocess is enabled",
		})
	}

	return errors
}

// validateReport validates the ReportConfig
func (c *Config) validateReport() []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(c.Report.FileName) == "" {
		errors = append(errors, ValidationError{
			Field:   "report.file_name",
			Value:   c.Report.FileName,
			Message: "cannot be empty",
		})
	} else if strings.ContainsRune(c.Report.FileName, '/') {
		errors = append(errors, ValidationError{
			Field:   "report.file_name",
			Value:   c.Report.FileName,
			Message: "must be a bare file name, not a path",
		})
	}

	return errors
}

// validateDashboard validates the DashboardConfig
func (c *Config) validateDashboard() []ValidationError {
	var errors []ValidationError

	const minRefreshMs = 100
	const maxRefreshMs = 60000
	if c.Dashboard.RefreshMs < minRefreshMs {
		errors = append(errors, ValidationError{
			Field:   "dashboard.refresh_ms",
			Value:   c.Dashboard.RefreshMs,
			Message: fmt.Sprintf("must be at least %dms", minRefreshMs),
		})
	}
	if c.Dashboard.RefreshMs > maxRefreshMs {
		errors = append(errors, ValidationError{
			Field:   "dashboard.refresh_ms",
			Value:   c.Dashboard.RefreshMs,
			Message: fmt.Sprintf("exceeds maximum of %dms", maxRefreshMs),
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}
