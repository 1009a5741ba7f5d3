// internal/cli/show_tasks.go
package bayesbatch

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/mwiater/bayesbatch/internal/pipeline"
)

var taskDescriptions = map[string]string{
	pipeline.TaskSend:          "build the run's specifications, write one job per model and submit it",
	pipeline.TaskResendFailed:  "resubmit jobs whose batch failed, expired or was cancelled",
	pipeline.TaskResendInvalid: "resubmit the rows whose final answer could not be parsed",
	pipeline.TaskRetrieve:      "refresh batch statuses, download output and merge responses",
	pipeline.TaskFinalize:      "retrieve, then write the stacked and pivoted result tables",
	pipeline.TaskStatus:        "report the persisted status of every job without contacting the API",
}

// showTasksCmd implements 'show tasks', which lists the tasks 'run' accepts.
var showTasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List the tasks accepted by 'run'",
	Run: func(cmd *cobra.Command, args []string) {
		printTasks(cmd.OutOrStdout())
	},
}

func init() {
	showCmd.AddCommand(showTasksCmd)
}

func printTasks(out io.Writer) {
	nameStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	descStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("242"))

	width := 0
	for _, task := range pipeline.Tasks {
		if len(task) > width {
			width = len(task)
		}
	}
	for _, task := range pipeline.Tasks {
		pad := strings.Repeat(" ", width-len(task)+2)
		fmt.Fprintf(out, "%s%s%s\n", nameStyle.Render(task), pad, descStyle.Render(taskDescriptions[task]))
	}
}
