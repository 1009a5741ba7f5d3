// internal/providers/provider.go

// Package providers defines the interface for submitting batch jobs to a remote
// model API. It provides a common abstraction over uploading request files,
// creating batches, polling their status and downloading their output,
// regardless of the underlying provider implementation.
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
)

// Batch status vocabulary. Statuses outside this list are passed through
// unchanged; the failure vocabulary is open-ended.
const (
	StatusValidating = "validating"
	StatusInProgress = "in_progress"
	StatusFinalizing = "finalizing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusExpired    = "expired"
	StatusCancelling = "cancelling"
	StatusCancelled  = "cancelled"
)

// PurposeBatch marks an uploaded file as batch input.
const PurposeBatch = "batch"

// IsPending reports whether a batch is still moving towards completion.
func IsPending(status string) bool {
	switch status {
	case StatusValidating, StatusInProgress, StatusFinalizing:
		return true
	}
	return false
}

// IsKnown reports whether status belongs to the documented vocabulary.
func IsKnown(status string) bool {
	switch status {
	case StatusValidating, StatusInProgress, StatusFinalizing, StatusCompleted,
		StatusFailed, StatusExpired, StatusCancelling, StatusCancelled:
		return true
	}
	return false
}

// RequestCounts summarizes the progress of a batch.
type RequestCounts struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// Batch is the remote handle of a submitted batch. It round-trips through
// info.json, so fields the client does not model are kept in Extra as raw
// JSON text.
type Batch struct {
	ID               string            `json:"id"`
	Object           string            `json:"object,omitempty"`
	Endpoint         string            `json:"endpoint,omitempty"`
	InputFileID      string            `json:"input_file_id,omitempty"`
	CompletionWindow string            `json:"completion_window,omitempty"`
	Status           string            `json:"status"`
	OutputFileID     string            `json:"output_file_id,omitempty"`
	ErrorFileID      string            `json:"error_file_id,omitempty"`
	CreatedAt        int64             `json:"created_at,omitempty"`
	RequestCounts    *RequestCounts    `json:"request_counts,omitempty"`
	Extra            map[string]string `json:"-"`
}

var batchFields = map[string]struct{}{
	"id": {}, "object": {}, "endpoint": {}, "input_file_id": {}, "completion_window": {},
	"status": {}, "output_file_id": {}, "error_file_id": {}, "created_at": {}, "request_counts": {},
}

type batchAlias Batch

// UnmarshalJSON decodes the modelled fields and keeps every other field in Extra.
func (b *Batch) UnmarshalJSON(data []byte) error {
	var alias batchAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	extra, err := extraFields(data, batchFields)
	if err != nil {
		return err
	}
	*b = Batch(alias)
	b.Extra = extra
	return nil
}

// MarshalJSON writes the modelled fields followed by the preserved extras.
func (b Batch) MarshalJSON() ([]byte, error) {
	return withExtra(batchAlias(b), b.Extra, batchFields)
}

// FileRef is the remote handle of an uploaded file.
type FileRef struct {
	ID        string            `json:"id"`
	Object    string            `json:"object,omitempty"`
	Bytes     int64             `json:"bytes,omitempty"`
	Filename  string            `json:"filename,omitempty"`
	Purpose   string            `json:"purpose,omitempty"`
	CreatedAt int64             `json:"created_at,omitempty"`
	Extra     map[string]string `json:"-"`
}

var fileFields = map[string]struct{}{
	"id": {}, "object": {}, "bytes": {}, "filename": {}, "purpose": {}, "created_at": {},
}

type fileAlias FileRef

// UnmarshalJSON decodes the modelled fields and keeps every other field in Extra.
func (f *FileRef) UnmarshalJSON(data []byte) error {
	var alias fileAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	extra, err := extraFields(data, fileFields)
	if err != nil {
		return err
	}
	*f = FileRef(alias)
	f.Extra = extra
	return nil
}

// MarshalJSON writes the modelled fields followed by the preserved extras.
func (f FileRef) MarshalJSON() ([]byte, error) {
	return withExtra(fileAlias(f), f.Extra, fileFields)
}

func extraFields(data []byte, known map[string]struct{}) (map[string]string, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	var extra map[string]string
	for k, v := range raw {
		if _, ok := known[k]; ok {
			continue
		}
		if extra == nil {
			extra = make(map[string]string)
		}
		extra[k] = string(v)
	}
	return extra, nil
}

func withExtra(v any, extra map[string]string, known map[string]struct{}) ([]byte, error) {
	base, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if len(extra) == 0 {
		return base, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(base, &fields); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, ok := known[k]; ok {
			continue
		}
		if !json.Valid([]byte(extra[k])) {
			return nil, fmt.Errorf("extra field %q is not valid JSON", k)
		}
		fields[k] = json.RawMessage(extra[k])
	}
	return json.Marshal(fields)
}

// BatchProvider is the interface a remote batch API must implement.
type BatchProvider interface {
	// Upload stores a JSONL request file remotely for the given purpose.
	Upload(ctx context.Context, filename string, content []byte, purpose string) (FileRef, error)
	// SubmitBatch creates a batch over an uploaded request file.
	SubmitBatch(ctx context.Context, inputFileID, endpoint, completionWindow string) (Batch, error)
	// BatchStatus refreshes the remote handle of a batch.
	BatchStatus(ctx context.Context, batchID string) (Batch, error)
	// FetchContent downloads the raw content of a remote file.
	FetchContent(ctx context.Context, fileID string) ([]byte, error)
}
