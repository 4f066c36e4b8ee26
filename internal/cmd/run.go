package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rimuru/simpipe/internal/config"
	"github.com/rimuru/simpipe/internal/pipeline"
	"github.com/rimuru/simpipe/internal/runlock"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run all pipeline stages in order",
	Long: `Run detects compute devices, scrubs stale handoff artifacts, then
executes every stage in order. The first failing stage aborts the chain; the
summary report is written regardless of how far the run progressed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(true, func(ctx context.Context, ctrl *pipeline.Controller) (*pipeline.Run, error) {
			return ctrl.Run(ctx), nil
		})
	},
}

var stageCmd = &cobra.Command{
	Use:   "stage <n>",
	Short: "Run a single pipeline stage",
	Long: `Stage runs one stage by its id, including its artifact handoff.
The pre-run scrub is skipped so artifacts staged by earlier invocations
remain available as input, and the last full run's summary report is
left in place.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid stage id %q", args[0])
		}
		return runPipeline(false, func(ctx context.Context, ctrl *pipeline.Controller) (*pipeline.Run, error) {
			return ctrl.RunStage(ctx, id)
		})
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(stageCmd)
}

// runPipeline performs the shared setup around a pipeline invocation: config,
// logging, the workspace lock, and outcome printing. The invoke callback
// decides whether the whole pipeline or a single stage runs; only full runs
// produce a summary report.
func runPipeline(full bool, invoke func(context.Context, *pipeline.Controller) (*pipeline.Run, error)) error {
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

	workspace := cfg.Paths.ResolveWorkspaceDir()
	lock, err := runlock.Acquire(cfg.Paths.ResolveRunDir(), workspace, logger)
	if err != nil {
		return err
	}
	defer lock.Release()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run, err := invoke(ctx, buildController(cfg, phases, logger))
	if err != nil {
		return err
	}

	summary := ""
	if full {
		summary = reportPath(cfg)
	}
	printRunOutcome(run, summary)
	return run.Err
}

// printRunOutcome writes a short human summary to stdout; the full detail is
// in the report file. An empty reportPath means no report was written.
func printRunOutcome(run *pipeline.Run, reportPath string) {
	switch run.Overall {
	case pipeline.OverallCompleted:
		fmt.Printf("pipeline completed: %d stage(s) in %s\n",
			len(run.Outcomes), run.EndedAt.Sub(run.StartedAt).Round(time.Second))
	case pipeline.OverallAborted:
		fmt.Printf("pipeline aborted at phase %d: %v\n", run.AbortedAt, run.Err)
	default:
		fmt.Printf("pipeline did not start: %v\n", run.Err)
	}
	if reportPath != "" {
		fmt.Printf("summary report: %s\n", reportPath)
	}
}
