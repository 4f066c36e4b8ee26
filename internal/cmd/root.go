// Package cmd defines the simpipe command tree.
package cmd

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rimuru/simpipe/internal/artifact"
	"github.com/rimuru/simpipe/internal/config"
	"github.com/rimuru/simpipe/internal/engine"
	"github.com/rimuru/simpipe/internal/logging"
	"github.com/rimuru/simpipe/internal/phase"
	"github.com/rimuru/simpipe/internal/pipeline"
	"github.com/rimuru/simpipe/internal/report"
	"github.com/rimuru/simpipe/internal/resource"
)

var rootCmd = &cobra.Command{
	Use:   "simpipe",
	Short: "Staged molecular-dynamics pipeline orchestrator",
	Long: `Simpipe drives a fixed sequence of external simulation engine runs:
each stage consumes the restart artifact its predecessor produced, and the
run ends with an aggregate summary report extracted from the stage logs.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/simpipe/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))

	rootCmd.PersistentFlags().StringP("workspace", "w", "", "workspace root holding the stage directories")
	_ = viper.BindPFlag("paths.workspace_dir", rootCmd.PersistentFlags().Lookup("workspace"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("SIMPIPE")
	// Replace dots with underscores for nested keys in env vars
	// e.g., SIMPIPE_PATHS_HANDOFF_DIR for paths.handoff_dir
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

// newLogger creates the run logger, or a no-op logger when debug logging is
// disabled.
func newLogger(cfg *config.Config) (*logging.Logger, error) {
	if !cfg.Logging.Enabled {
		return logging.NopLogger(), nil
	}
	return logging.NewLogger(cfg.Paths.ResolveRunDir(), strings.ToUpper(cfg.Logging.Level))
}

// reportPath is where the summary report lives for this configuration.
func reportPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.ResolveRunDir(), cfg.Report.FileName)
}

// buildController wires the pipeline's collaborators from configuration.
func buildController(cfg *config.Config, phases []phase.Phase, logger *logging.Logger) *pipeline.Controller {
	launcher := engine.NewExecLauncher(logger)
	return pipeline.New(pipeline.Params{
		Config:   cfg,
		Phases:   phases,
		Detector: resource.NewDetector(cfg.Resources.Options(), logger),
		Runner:   phase.NewRunner(launcher, cfg.Engine.Settings(), logger),
		Handoff:  artifact.NewHandoff(cfg.Paths.ResolveHandoffDir(), logger),
		Reporter: report.New(reportPath(cfg), logger),
		Logger:   logger,
	})
}
