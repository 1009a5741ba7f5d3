// internal/cli/summary.go
package bayesbatch

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/k0kubun/pp"

	"github.com/mwiater/bayesbatch/internal/batch"
	"github.com/mwiater/bayesbatch/internal/pipeline"
	"github.com/mwiater/bayesbatch/internal/providers"
)

var (
	completedStatus = color.New(color.FgGreen).SprintFunc()
	pendingStatus   = color.New(color.FgYellow).SprintFunc()
	failedStatus    = color.New(color.FgRed).SprintFunc()
	unsentStatus    = color.New(color.FgHiBlack).SprintFunc()

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57")).Padding(0, 1)
	nodeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
)

// colorStatus renders a batch status in the colour of its lifecycle state.
func colorStatus(status string) string {
	switch {
	case status == "":
		return unsentStatus("not sent")
	case status == providers.StatusCompleted:
		return completedStatus(status)
	case providers.IsPending(status):
		return pendingStatus(status)
	default:
		return failedStatus(status)
	}
}

func printHeader(out io.Writer, s pipeline.Summary) {
	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("run %s · task %s", s.Run, s.Task)))
}

// printSummary reports the outcome of a task.
func printSummary(out io.Writer, s pipeline.Summary) {
	printHeader(out, s)
	switch s.Task {
	case pipeline.TaskSend, pipeline.TaskResendInvalid:
		if s.Task == pipeline.TaskResendInvalid {
			fmt.Fprintf(out, "Invalid final answers: %d\n", s.Invalid)
		}
		models := make([]string, 0, len(s.Generated))
		for model := range s.Generated {
			models = append(models, model)
		}
		sort.Strings(models)
		for _, model := range models {
			fmt.Fprintf(out, "  %s %s\n", nodeStyle.Render(s.Generated[model].ID), pendingStatus("sent"))
		}
	case pipeline.TaskResendFailed:
		fmt.Fprintf(out, "Resent %d job(s)\n", len(s.Resent))
		for _, job := range s.Resent {
			fmt.Fprintf(out, "  %s\n", nodeStyle.Render(job.ID))
		}
	case pipeline.TaskRetrieve, pipeline.TaskFinalize:
		printStatuses(out, s.Statuses)
		fmt.Fprintf(out, "Merged rows: %d\n", s.Merged)
		if s.Task == pipeline.TaskFinalize {
			fmt.Fprintf(out, "Final answers: %d (invalid: %d)\n", s.Final, s.Invalid)
			fmt.Fprintf(out, "All jobs completed: %v\n", s.AllCompleted)
			for _, f := range s.Files {
				fmt.Fprintf(out, "  %s\n", f)
			}
		}
	case pipeline.TaskStatus:
		printJobs(out, s.Jobs, false)
		fmt.Fprintf(out, "All jobs completed: %v\n", s.AllCompleted)
	}
}

func printStatuses(out io.Writer, statuses map[string]string) {
	ids := make([]string, 0, len(statuses))
	for id := range statuses {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(out, "  %s %s\n", nodeStyle.Render(id), colorStatus(statuses[id]))
	}
}

// printJobs lists every job with its persisted status. Verbose output dumps
// the full info record.
func printJobs(out io.Writer, jobs []batch.JobStatus, verbose bool) {
	if len(jobs) == 0 {
		fmt.Fprintln(out, "No jobs found.")
		return
	}
	width := 0
	for _, js := range jobs {
		if len(js.Job.ID) > width {
			width = len(js.Job.ID)
		}
	}
	for _, js := range jobs {
		status, batchID, counts := "", "", ""
		if js.Info != nil {
			status, batchID = js.Info.Status, js.Info.ID
			if rc := js.Info.RequestCounts; rc != nil {
				counts = fmt.Sprintf(" %d/%d done, %d failed", rc.Completed, rc.Total, rc.Failed)
			}
		}
		fmt.Fprintf(out, "  %s%s  %s %s%s\n", nodeStyle.Render(js.Job.ID), strings.Repeat(" ", width-len(js.Job.ID)), colorStatus(status), batchID, counts)
		if verbose && js.Info != nil {
			_, _ = pp.Fprintln(out, *js.Info)
		}
	}
}
