package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mwiater/bayesbatch/internal/logging"
	"github.com/mwiater/bayesbatch/internal/providers"
	"github.com/mwiater/bayesbatch/internal/specs"
	"github.com/mwiater/bayesbatch/internal/util"
)

// DefaultMaxRequests is the remote ceiling on requests in one batch.
const DefaultMaxRequests = 50000

// Options configures a Manager.
type Options struct {
	Run              string
	Dir              string
	Provider         providers.BatchProvider
	Endpoint         string
	CompletionWindow string
	MaxRequests      int
	// Clock stamps new job directories. Defaults to time.Now.
	Clock func() time.Time
}

// Manager drives the jobs of one run. It holds the jobs it created or loaded
// in directory-name order.
type Manager struct {
	run         string
	dir         string
	provider    providers.BatchProvider
	endpoint    string
	window      string
	maxRequests int
	clock       func() time.Time
	jobs        []Job
}

// NewManager validates opts and returns a Manager with no jobs.
func NewManager(opts Options) (*Manager, error) {
	if strings.TrimSpace(opts.Run) == "" {
		return nil, errors.New("run name is required")
	}
	if strings.TrimSpace(opts.Dir) == "" {
		return nil, errors.New("run directory is required")
	}
	if opts.Provider == nil {
		return nil, errors.New("batch provider is required")
	}
	m := &Manager{
		run:         opts.Run,
		dir:         opts.Dir,
		provider:    opts.Provider,
		endpoint:    opts.Endpoint,
		window:      opts.CompletionWindow,
		maxRequests: opts.MaxRequests,
		clock:       opts.Clock,
	}
	if m.endpoint == "" {
		m.endpoint = "/v1/chat/completions"
	}
	if m.window == "" {
		m.window = "24h"
	}
	if m.maxRequests <= 0 {
		m.maxRequests = DefaultMaxRequests
	}
	if m.clock == nil {
		m.clock = time.Now
	}
	return m, nil
}

// Run returns the run name.
func (m *Manager) Run() string { return m.run }

// Dir returns the run directory.
func (m *Manager) Dir() string { return m.dir }

// Jobs returns a copy of the held jobs.
func (m *Manager) Jobs() []Job {
	return append([]Job(nil), m.jobs...)
}

func (m *Manager) addJob(job Job) {
	m.jobs = append(m.jobs, job)
	sort.Slice(m.jobs, func(i, j int) bool { return m.jobs[i].ID < m.jobs[j].ID })
}

// GenerateBatchFiles creates one job per distinct model of table. Every
// partition is checked against the row ceiling before any directory is
// created, so a capacity failure leaves the run untouched.
func (m *Manager) GenerateBatchFiles(table specs.Table) (map[string]Job, error) {
	if table.Len() == 0 {
		return nil, errors.New("specification table is empty")
	}
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("invalid specification table: %w", err)
	}

	parts := table.PartitionByModel()
	models := table.Models()
	slugs := make(map[string]string, len(models))
	for _, model := range models {
		if n := parts[model].Len(); n > m.maxRequests {
			return nil, fmt.Errorf("%w: model %s has %d rows, limit is %d", ErrCapacityExceeded, model, n, m.maxRequests)
		}
		slug := util.Slugify(model)
		if slug == "" {
			return nil, fmt.Errorf("model %q has no usable job name", model)
		}
		if other, ok := slugs[slug]; ok {
			return nil, fmt.Errorf("models %q and %q share the job name %q", other, model, slug)
		}
		slugs[slug] = model
	}

	type jobFiles struct{ specs, requests []byte }
	encoded := make(map[string]jobFiles, len(models))
	for _, model := range models {
		specsCSV, err := specs.EncodeCSV(parts[model])
		if err != nil {
			return nil, fmt.Errorf("encode specs for %s: %w", model, err)
		}
		requests, err := EncodeRequests(parts[model], m.endpoint)
		if err != nil {
			return nil, fmt.Errorf("build requests for %s: %w", model, err)
		}
		encoded[model] = jobFiles{specs: specsCSV, requests: requests}
	}

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run directory: %w", err)
	}
	stamp := util.Timestamp(m.clock())
	created := make(map[string]Job, len(models))
	for _, model := range models {
		id := jobPrefix + util.Slugify(model) + jobSep + stamp
		job, _ := newJob(m.run, m.dir, id)
		if err := os.Mkdir(job.Dir, 0o755); err != nil {
			return created, fmt.Errorf("create job directory %s: %w", job.ID, err)
		}
		files := encoded[model]
		if err := util.WriteReadOnly(job.Path(SpecsFile), files.specs); err != nil {
			return created, fmt.Errorf("write specs for %s: %w", job.ID, err)
		}
		if err := util.WriteReadOnly(job.Path(RequestsFile), files.requests); err != nil {
			return created, fmt.Errorf("write requests for %s: %w", job.ID, err)
		}
		m.addJob(job)
		created[model] = job
		logging.LogEvent("Generated job %s with %d requests for model %s", job.ID, parts[model].Len(), model)
	}
	return created, nil
}

// SendBatches submits every held job.
func (m *Manager) SendBatches(ctx context.Context) error {
	for _, job := range m.jobs {
		if _, err := m.SendOneBatch(ctx, job); err != nil {
			return err
		}
	}
	return nil
}

// SendOneBatch uploads the job's request file, creates a remote batch over it
// and persists the returned handle. Calling it again creates a new batch.
func (m *Manager) SendOneBatch(ctx context.Context, job Job) (providers.Batch, error) {
	content, err := os.ReadFile(job.Path(RequestsFile))
	if err != nil {
		return providers.Batch{}, fmt.Errorf("read requests for %s: %w", job.ID, err)
	}
	file, err := m.provider.Upload(ctx, job.ID+".jsonl", content, providers.PurposeBatch)
	if err != nil {
		return providers.Batch{}, fmt.Errorf("upload requests for %s: %w", job.ID, err)
	}
	batch, err := m.provider.SubmitBatch(ctx, file.ID, m.endpoint, m.window)
	if err != nil {
		return providers.Batch{}, fmt.Errorf("create batch for %s: %w", job.ID, err)
	}
	if err := job.WriteInfo(batch); err != nil {
		return providers.Batch{}, err
	}
	logging.LogEvent("Sent job %s as batch %s (status %s)", job.ID, batch.ID, batch.Status)
	return batch, nil
}

// LoadJobs replaces the held jobs with the job directories found in the run
// directory, sorted by name.
func (m *Manager) LoadJobs() ([]Job, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("scan run directory: %w", err)
	}
	var jobs []Job
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if job, ok := newJob(m.run, m.dir, entry.Name()); ok {
			jobs = append(jobs, job)
		}
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].ID < jobs[j].ID })
	m.jobs = jobs
	logging.LogEvent("Loaded %d jobs for run %s", len(jobs), m.run)
	return m.Jobs(), nil
}
