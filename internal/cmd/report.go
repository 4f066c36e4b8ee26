package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rimuru/simpipe/internal/config"
	"github.com/rimuru/simpipe/internal/report"
	"github.com/rimuru/simpipe/internal/resource"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Regenerate the summary report from the stage logs",
	Long: `Report rescans the stage logs and rewrites the summary report.
Only the log-scan signal is available after the fact; the exit status
recorded during a run is reported as "not recorded".`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer logger.Close()

		phases, err := cfg.Phases()
		if err != nil {
			return err
		}

		outcomes := make([]report.PhaseOutcome, len(phases))
		for i, p := range phases {
			outcomes[i] = report.PhaseOutcome{Phase: p}
		}

		r := report.New(reportPath(cfg), logger)
		info := report.RunInfo{
			EndedAt: time.Now(),
			Overall: "Regenerated from logs",
			Profile: resource.NewDetector(cfg.Resources.Options(), logger).Detect(),
		}

		fmt.Print(r.Generate(info, outcomes))
		if err := r.Write(info, outcomes); err != nil {
			// Best-effort, same as during a run.
			logger.Error("failed to write summary report", "error", err)
		}
		return nil
	},
}

var resourcesCmd = &cobra.Command{
	Use:   "resources",
	Short: "Print the detected compute device profile",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer logger.Close()

		profile := resource.NewDetector(cfg.Resources.Options(), logger).Detect()
		fmt.Printf("devices: %d (%s)\n", profile.Count, profile.Kind)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(resourcesCmd)
}
