// Package batch manages the lifecycle of remote batch jobs for one run: it
// partitions a specification table per model, persists request files, submits
// them, tracks their status and joins retrieved responses back onto the specs.
//
// The run directory is the only state. Every operation can be re-invoked after
// a crash; read-only artifacts short-circuit work that is already done.
package batch

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mwiater/bayesbatch/internal/providers"
	"github.com/mwiater/bayesbatch/internal/util"
)

var (
	// ErrCapacityExceeded is returned when a model partition exceeds the batch row ceiling.
	ErrCapacityExceeded = errors.New("batch capacity exceeded")
	// ErrSchemaConflict is returned when specs already carry response-derived columns.
	ErrSchemaConflict = errors.New("specs already contain response columns")
	// ErrMissingArtifact is returned when a required job file is absent.
	ErrMissingArtifact = errors.New("missing job artifact")
)

// File names inside a job directory.
const (
	SpecsFile     = "specs.csv"
	RequestsFile  = "requests.jsonl"
	InfoFile      = "info.json"
	ResponsesFile = "responses.jsonl"
	ResultsFile   = "results.csv"

	jobPrefix = "job__"
	jobSep    = "__"
)

// Job is one per-model partition of a run, persisted as a directory.
type Job struct {
	ID    string // directory name: job__<model-slug>__<timestamp>
	Run   string
	Dir   string
	Model string // model slug taken from the directory name
}

func newJob(run, runDir, id string) (Job, bool) {
	if !strings.HasPrefix(id, jobPrefix) {
		return Job{}, false
	}
	rest := strings.TrimPrefix(id, jobPrefix)
	cut := strings.LastIndex(rest, jobSep)
	if cut <= 0 {
		return Job{}, false
	}
	return Job{ID: id, Run: run, Dir: filepath.Join(runDir, id), Model: rest[:cut]}, true
}

// Path returns the location of a file inside the job directory.
func (j Job) Path(name string) string {
	return filepath.Join(j.Dir, name)
}

// HasFile reports whether the named job file exists.
func (j Job) HasFile(name string) (bool, error) {
	return util.FileExists(j.Path(name))
}

// ReadInfo loads the persisted remote handle. A job that was never submitted
// yields an error wrapping ErrMissingArtifact.
func (j Job) ReadInfo() (providers.Batch, error) {
	raw, err := os.ReadFile(j.Path(InfoFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return providers.Batch{}, fmt.Errorf("%w: %s", ErrMissingArtifact, j.Path(InfoFile))
		}
		return providers.Batch{}, fmt.Errorf("read info for %s: %w", j.ID, err)
	}
	var info providers.Batch
	if err := json.Unmarshal(raw, &info); err != nil {
		return providers.Batch{}, fmt.Errorf("parse info for %s: %w", j.ID, err)
	}
	return info, nil
}

// WriteInfo overwrites the persisted remote handle.
func (j Job) WriteInfo(info providers.Batch) error {
	raw, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("encode info for %s: %w", j.ID, err)
	}
	if err := util.WriteFile(j.Path(InfoFile), append(raw, '\n')); err != nil {
		return fmt.Errorf("write info for %s: %w", j.ID, err)
	}
	return nil
}
