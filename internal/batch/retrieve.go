package batch

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/mwiater/bayesbatch/internal/logging"
	"github.com/mwiater/bayesbatch/internal/providers"
	"github.com/mwiater/bayesbatch/internal/util"
)

// RetrieveBatches advances every held job and returns the status of each by
// job id. A failing job does not stop the others; all failures are returned
// together.
func (m *Manager) RetrieveBatches(ctx context.Context) (map[string]string, error) {
	statuses := make(map[string]string, len(m.jobs))
	var errs *multierror.Error
	for _, job := range m.jobs {
		status, err := m.RetrieveOneBatch(ctx, job)
		if status != "" {
			statuses[job.ID] = status
		}
		if err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return statuses, errs.ErrorOrNil()
}

// RetrieveOneBatch advances the job's state machine by one step:
//
//   - pending (validating, in_progress, finalizing): refresh the remote
//     handle; once completed, download the output verbatim to responses.jsonl.
//     A batch whose requests all failed has only an error file; its lines
//     become the responses, so every row parses as missing.
//   - completed: nothing to do.
//   - anything else: reported as is for manual follow-up.
//
// It returns the job's status after the step.
func (m *Manager) RetrieveOneBatch(ctx context.Context, job Job) (string, error) {
	info, err := job.ReadInfo()
	if err != nil {
		return "", err
	}

	switch {
	case info.Status == providers.StatusCompleted:
		stored, err := job.HasFile(ResponsesFile)
		if err != nil {
			return info.Status, err
		}
		if !stored {
			logging.LogError("Job %s is %s but has no stored responses; resend_failed will resubmit it", job.ID, info.Status)
		} else {
			logging.LogEvent("Job %s is already %s", job.ID, info.Status)
		}
		return info.Status, nil
	case !providers.IsPending(info.Status):
		logging.LogError("Job %s has status %q", job.ID, info.Status)
		return info.Status, nil
	}

	fresh, err := m.provider.BatchStatus(ctx, info.ID)
	if err != nil {
		return info.Status, fmt.Errorf("refresh batch %s for %s: %w", info.ID, job.ID, err)
	}

	switch {
	case providers.IsPending(fresh.Status):
		logging.LogEvent("Job %s is %s", job.ID, fresh.Status)
	case fresh.Status == providers.StatusCompleted:
		// The output is stored before the info record so that a completed
		// status on disk always comes with its responses.
		stored, err := m.storeResponses(ctx, job, fresh)
		if err != nil {
			return info.Status, err
		}
		if stored {
			logging.LogEvent("Job %s completed; responses stored", job.ID)
		} else {
			logging.LogError("Job %s completed without an output or error file; resend_failed will resubmit it", job.ID)
		}
	case providers.IsKnown(fresh.Status):
		logging.LogError("Job %s moved to %s", job.ID, fresh.Status)
	default:
		logging.LogWarn("Job %s moved to unrecognized status %q", job.ID, fresh.Status)
	}

	if err := job.WriteInfo(fresh); err != nil {
		return info.Status, err
	}
	return fresh.Status, nil
}

// storeResponses downloads the batch output, or the error file when there is
// no output, to responses.jsonl. It reports whether responses are on disk.
func (m *Manager) storeResponses(ctx context.Context, job Job, batch providers.Batch) (bool, error) {
	exists, err := job.HasFile(ResponsesFile)
	if err != nil || exists {
		return exists, err
	}
	fileID := batch.OutputFileID
	if fileID == "" {
		if batch.ErrorFileID == "" {
			return false, nil
		}
		logging.LogWarn("Batch %s of job %s has no output file; storing its error file", batch.ID, job.ID)
		fileID = batch.ErrorFileID
	}
	content, err := m.provider.FetchContent(ctx, fileID)
	if err != nil {
		return false, fmt.Errorf("fetch output of %s: %w", job.ID, err)
	}
	if err := util.WriteReadOnly(job.Path(ResponsesFile), content); err != nil {
		return false, fmt.Errorf("write responses for %s: %w", job.ID, err)
	}
	return true, nil
}

// usable reports whether a job's batch is completed with stored responses or
// still pending, that is, whether it must not be resubmitted.
func (j Job) usable(info providers.Batch) (bool, error) {
	if info.Status != providers.StatusCompleted {
		return providers.IsPending(info.Status), nil
	}
	return j.HasFile(ResponsesFile)
}

// ResendFailedJobs resubmits every held job that is neither completed nor
// pending. A job that was never submitted counts as failed, and so does a
// completed job whose batch left nothing to store.
func (m *Manager) ResendFailedJobs(ctx context.Context) ([]Job, error) {
	var resent []Job
	for _, job := range m.jobs {
		info, err := job.ReadInfo()
		switch {
		case errors.Is(err, ErrMissingArtifact):
			logging.LogWarn("Job %s was never submitted; sending it", job.ID)
		case err != nil:
			return resent, err
		default:
			ok, err := job.usable(info)
			if err != nil {
				return resent, err
			}
			if ok {
				continue
			}
			logging.LogEvent("Resending job %s (status %q)", job.ID, info.Status)
		}
		if _, err := m.SendOneBatch(ctx, job); err != nil {
			return resent, err
		}
		resent = append(resent, job)
	}
	return resent, nil
}

// AllCompleted reloads the run's jobs and reports whether there is at least
// one and every one of them is completed.
func (m *Manager) AllCompleted() (bool, error) {
	jobs, err := m.LoadJobs()
	if err != nil {
		return false, err
	}
	if len(jobs) == 0 {
		return false, nil
	}
	for _, job := range jobs {
		info, err := job.ReadInfo()
		if errors.Is(err, ErrMissingArtifact) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if info.Status != providers.StatusCompleted {
			return false, nil
		}
		if ok, err := job.HasFile(ResponsesFile); err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// JobStatus is the persisted state of one job.
type JobStatus struct {
	Job  Job
	Info *providers.Batch // nil when the job was never submitted
}

// Statuses reports the persisted info of every held job without contacting the remote API.
func (m *Manager) Statuses() ([]JobStatus, error) {
	out := make([]JobStatus, 0, len(m.jobs))
	for _, job := range m.jobs {
		info, err := job.ReadInfo()
		switch {
		case errors.Is(err, ErrMissingArtifact):
			out = append(out, JobStatus{Job: job})
		case err != nil:
			return nil, err
		default:
			out = append(out, JobStatus{Job: job, Info: &info})
		}
	}
	return out, nil
}
