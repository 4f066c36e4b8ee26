package cmd

import (
	"github.com/spf13/cobra"

	"github.com/rimuru/simpipe/internal/config"
	"github.com/rimuru/simpipe/internal/dashboard"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Live terminal view of the pipeline's progress",
	Long: `Dashboard tails the stage logs and shows each stage's progress,
the extracted metric lines, and whether a run currently holds the workspace
lock. It is read-only and can run alongside or after a pipeline run.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		phases, err := cfg.Phases()
		if err != nil {
			return err
		}

		return dashboard.Run(cfg, phases)
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}
