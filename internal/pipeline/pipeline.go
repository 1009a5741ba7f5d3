// Package pipeline runs one task of a run: it builds the specification table,
// drives the batch manager and writes the aggregated result tables.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mwiater/bayesbatch/internal/appconfig"
	"github.com/mwiater/bayesbatch/internal/batch"
	"github.com/mwiater/bayesbatch/internal/experiment"
	"github.com/mwiater/bayesbatch/internal/logging"
	"github.com/mwiater/bayesbatch/internal/providers"
	"github.com/mwiater/bayesbatch/internal/results"
	"github.com/mwiater/bayesbatch/internal/specs"
	"github.com/mwiater/bayesbatch/internal/util"
)

// Task names accepted by Run.
const (
	TaskSend          = "send"
	TaskResendFailed  = "resend_failed"
	TaskResendInvalid = "resend_invalid"
	TaskRetrieve      = "retrieve"
	TaskFinalize      = "finalize"
	TaskStatus        = "status"
)

// Tasks lists the task names in the order they are usually run.
var Tasks = []string{TaskSend, TaskResendFailed, TaskResendInvalid, TaskRetrieve, TaskFinalize, TaskStatus}

// Run-level output names.
const (
	StackedCSVFile     = "results_stacked.csv"
	StackedParquetFile = "results_stacked.parquet"
	FinalDir           = "final"
)

// Summary reports what a task did.
type Summary struct {
	Run  string
	Task string
	// Generated maps model to the jobs created by send or resend_invalid.
	Generated map[string]batch.Job
	Resent    []batch.Job
	// Statuses maps job id to the status after retrieve or finalize.
	Statuses     map[string]string
	Jobs         []batch.JobStatus
	Merged       int
	Final        int
	Invalid      int
	Files        []string
	AllCompleted bool
}

// ValidTask reports whether task is a known task name.
func ValidTask(task string) bool {
	for _, t := range Tasks {
		if t == task {
			return true
		}
	}
	return false
}

// NewManager builds the batch manager of a run from the configuration.
func NewManager(cfg *appconfig.Config, runName string, provider providers.BatchProvider) (*batch.Manager, error) {
	return batch.NewManager(batch.Options{
		Run:              runName,
		Dir:              cfg.RunDir(runName),
		Provider:         provider,
		Endpoint:         cfg.RequestEndpoint(),
		CompletionWindow: cfg.Window(),
		MaxRequests:      cfg.BatchCeiling(),
	})
}

// Run executes task for runName.
func Run(ctx context.Context, cfg *appconfig.Config, runName, task string, provider providers.BatchProvider) (Summary, error) {
	if cfg == nil {
		return Summary{}, fmt.Errorf("config is nil")
	}
	if !ValidTask(task) {
		return Summary{}, fmt.Errorf("unknown task %q (valid: %s)", task, strings.Join(Tasks, ", "))
	}
	settings, err := cfg.RunSettings(runName)
	if err != nil {
		return Summary{}, err
	}
	mgr, err := NewManager(cfg, runName, provider)
	if err != nil {
		return Summary{}, err
	}
	logging.LogEvent("RUN_NAME: %s, TASK_NAME: %s.", runName, task)

	summary := Summary{Run: runName, Task: task}
	switch task {
	case TaskSend:
		table, err := BuildSpecs(cfg, settings)
		if err != nil {
			return summary, err
		}
		summary.Generated, err = generateAndSend(ctx, mgr, table)
		return summary, err

	case TaskResendFailed:
		if _, err := mgr.LoadJobs(); err != nil {
			return summary, err
		}
		summary.Resent, err = mgr.ResendFailedJobs(ctx)
		return summary, err

	case TaskResendInvalid:
		table, err := invalidSpecs(cfg, runName)
		if err != nil {
			return summary, err
		}
		summary.Invalid = table.Len()
		if table.Len() == 0 {
			logging.LogEvent("Run %s has no invalid final answers; nothing to resend", runName)
			return summary, nil
		}
		summary.Generated, err = generateAndSend(ctx, mgr, table)
		return summary, err

	case TaskRetrieve:
		merged, statuses, err := retrieve(ctx, mgr)
		summary.Statuses = statuses
		summary.Merged = len(merged)
		return summary, err

	case TaskFinalize:
		return finalize(ctx, cfg, mgr, summary)

	case TaskStatus:
		if _, err := mgr.LoadJobs(); err != nil {
			return summary, err
		}
		summary.Jobs, err = mgr.Statuses()
		if err != nil {
			return summary, err
		}
		summary.AllCompleted, err = mgr.AllCompleted()
		return summary, err
	}
	return summary, nil
}

// BuildSpecs expands the designs of a run's domain into its specification table.
func BuildSpecs(cfg *appconfig.Config, settings appconfig.Run) (specs.Table, error) {
	domain, err := specs.ParseDomain(settings.Domain)
	if err != nil {
		return specs.Table{}, err
	}
	designs, err := specs.LoadDesigns(cfg.DesignsFile())
	if err != nil {
		return specs.Table{}, err
	}
	rows, err := designs.DesignRows(domain)
	if err != nil {
		return specs.Table{}, err
	}
	design := specs.Table{Rows: rows}
	if settings.State != "" {
		design = design.Filter(specs.ParamState, settings.State)
	}
	if design.Len() == 0 {
		return specs.Table{}, fmt.Errorf("no %s designs match the run", domain)
	}

	instructions := make([]specs.Instruction, 0, len(cfg.InstructionNames()))
	for _, name := range cfg.InstructionNames() {
		in, err := specs.ParseInstruction(name)
		if err != nil {
			return specs.Table{}, err
		}
		instructions = append(instructions, in)
	}
	lower, upper := cfg.TemperatureBounds()
	return specs.Expand(design.Rows, specs.ExpandOptions{
		Models:           cfg.ModelNames(),
		Instructions:     instructions,
		Seeds:            cfg.SeedValues(),
		TemperatureLower: lower,
		TemperatureUpper: upper,
	}, experiment.PromptFor)
}

func generateAndSend(ctx context.Context, mgr *batch.Manager, table specs.Table) (map[string]batch.Job, error) {
	jobs, err := mgr.GenerateBatchFiles(table)
	if err != nil {
		return jobs, err
	}
	if err := mgr.SendBatches(ctx); err != nil {
		return jobs, err
	}
	return jobs, nil
}

func invalidSpecs(cfg *appconfig.Config, runName string) (specs.Table, error) {
	stacked, err := results.ReadStackedCSVFile(filepath.Join(cfg.RunDir(runName), StackedCSVFile))
	if err != nil {
		return specs.Table{}, fmt.Errorf("read stacked results (run finalize first): %w", err)
	}
	return results.Invalid(results.Final(stacked)), nil
}

func retrieve(ctx context.Context, mgr *batch.Manager) ([]batch.Result, map[string]string, error) {
	if _, err := mgr.LoadJobs(); err != nil {
		return nil, nil, err
	}
	statuses, err := mgr.RetrieveBatches(ctx)
	if err != nil {
		return nil, statuses, err
	}
	merged, err := mgr.ProcessResponses()
	return merged, statuses, err
}

func finalize(ctx context.Context, cfg *appconfig.Config, mgr *batch.Manager, summary Summary) (Summary, error) {
	merged, statuses, err := retrieve(ctx, mgr)
	summary.Statuses = statuses
	summary.Merged = len(merged)
	if err != nil {
		return summary, err
	}
	if len(merged) == 0 {
		logging.LogWarn("Run %s has no processed responses yet", mgr.Run())
		return summary, nil
	}

	stacked, err := results.Stack(merged)
	if err != nil {
		return summary, err
	}
	csvPath := filepath.Join(mgr.Dir(), StackedCSVFile)
	parquetPath := filepath.Join(mgr.Dir(), StackedParquetFile)
	if err := results.WriteStackedFiles(csvPath, parquetPath, stacked); err != nil {
		return summary, err
	}
	summary.Files = append(summary.Files, csvPath, parquetPath)

	final := results.Final(stacked)
	summary.Final = len(final)
	summary.Invalid = results.Invalid(final).Len()
	tables, err := results.Pivot(final, cfg.GroupColumn())
	if err != nil {
		return summary, err
	}
	finalDir := filepath.Join(mgr.Dir(), FinalDir)
	for _, t := range tables {
		name := util.Slugify(t.Group)
		if name == "" {
			name = util.Slugify(mgr.Run())
		}
		paths, err := results.WriteTableFiles(finalDir, name, t)
		summary.Files = append(summary.Files, paths...)
		if err != nil {
			return summary, err
		}
	}

	summary.AllCompleted, err = mgr.AllCompleted()
	if err != nil {
		return summary, err
	}
	if summary.AllCompleted {
		logging.LogEvent("Run %s finalized: all jobs completed", mgr.Run())
	} else {
		logging.LogWarn("Run %s finalized with unfinished jobs; results are partial", mgr.Run())
	}
	logging.LogEvent("Run %s: %d merged rows, %d final answers, %d invalid", mgr.Run(), summary.Merged, summary.Final, summary.Invalid)
	return summary, nil
}
