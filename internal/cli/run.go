// internal/cli/run.go
package bayesbatch

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mwiater/bayesbatch/internal/logging"
	"github.com/mwiater/bayesbatch/internal/pipeline"
	"github.com/mwiater/bayesbatch/internal/providerfactory"
	"github.com/mwiater/bayesbatch/internal/providers"
	"github.com/mwiater/bayesbatch/internal/providers/openai"
)

var (
	runName  string
	taskName string
)

// runCmd represents the 'run' command, which executes one task of a run.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a task (send, resend_failed, resend_invalid, retrieve, finalize) for a run",
	Long: `The 'run' command executes one task of a run. It is meant to be invoked
repeatedly, e.g. by a scheduler: every task picks up the run's state from disk.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTask(cmd, runName, taskName)
	},
}

func init() {
	runCmd.Flags().StringVarP(&runName, "run", "r", "", "run name, as configured under 'runs'")
	runCmd.Flags().StringVarP(&taskName, "task", "t", "", "task: "+strings.Join(pipeline.Tasks, ", "))
	_ = runCmd.MarkFlagRequired("run")
	_ = runCmd.MarkFlagRequired("task")
	rootCmd.AddCommand(runCmd)
}

// newProvider is swapped out in tests.
var newProvider = func(task string) (providers.BatchProvider, error) {
	if task == pipeline.TaskStatus {
		return offlineProvider{}, nil
	}
	return providerfactory.NewBatchProvider(getConfig(), os.Getenv(openai.APIKeyEnv))
}

func runTask(cmd *cobra.Command, run, task string) error {
	cfg := getConfig()
	if !pipeline.ValidTask(task) {
		return fmt.Errorf("invalid task %q (valid: %s)", task, strings.Join(pipeline.Tasks, ", "))
	}
	if _, err := cfg.RunSettings(run); err != nil {
		return err
	}
	if err := logging.Init(cfg.RunLogPath(run), cfg.Debug); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logging.Close()

	provider, err := newProvider(task)
	if err != nil {
		return err
	}
	summary, err := pipeline.Run(cmd.Context(), cfg, run, task, provider)
	if saved, mErr := providerfactory.SaveMetrics(provider, cfg.MetricsPath(run)); mErr != nil {
		logging.LogWarn("could not save metrics: %v", mErr)
	} else if saved {
		logging.LogDebug("metrics saved to %s", cfg.MetricsPath(run))
	}
	if err != nil {
		logging.LogError("task %s failed for run %s: %v", task, run, err)
		return err
	}
	printSummary(cmd.OutOrStdout(), summary)
	return nil
}
