// internal/cli/show_jobs.go
package bayesbatch

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mwiater/bayesbatch/internal/pipeline"
)

var showJobsVerbose bool

// showJobsCmd implements 'show jobs', which lists the persisted state of every
// job in a run.
var showJobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Show the jobs of a run and their last known status",
	Long: `Show the jobs of a run and the status recorded in each job's info file.
Nothing is fetched; run the 'retrieve' task to refresh statuses.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()
		summary, err := pipeline.Run(cmd.Context(), cfg, runName, pipeline.TaskStatus, offlineProvider{})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		printHeader(out, summary)
		printJobs(out, summary.Jobs, showJobsVerbose)
		fmt.Fprintf(out, "All jobs completed: %v\n", summary.AllCompleted)
		return nil
	},
}

func init() {
	showJobsCmd.Flags().StringVarP(&runName, "run", "r", "", "run name, as configured under 'runs'")
	showJobsCmd.Flags().BoolVarP(&showJobsVerbose, "verbose", "v", false, "dump the full info record of each job")
	_ = showJobsCmd.MarkFlagRequired("run")
	showCmd.AddCommand(showJobsCmd)
}
