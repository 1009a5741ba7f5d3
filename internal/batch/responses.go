package batch

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/mwiater/bayesbatch/internal/logging"
	"github.com/mwiater/bayesbatch/internal/specs"
	"github.com/mwiater/bayesbatch/internal/util"
)

// Response-derived column names added to the specs by ProcessOneResponse.
const (
	ColBatchID         = "batch_id"
	ColRequestID       = "request_id"
	ColCreatedAt       = "created_at"
	ColTextualResponse = "textual_response"
)

// ResponseColumns lists the response-derived columns in output order.
var ResponseColumns = []string{ColBatchID, ColRequestID, ColCreatedAt, ColTextualResponse}

// Response is one model answer from a batch output file.
type Response struct {
	CustomID  string
	BatchID   string
	RequestID string
	CreatedAt int64
	Text      string
}

// Result is a specification row joined with its response, if any.
type Result struct {
	Row      specs.Row
	Response *Response
}

type outputLine struct {
	ID       string `json:"id"`
	CustomID string `json:"custom_id"`
	Response *struct {
		StatusCode int    `json:"status_code"`
		RequestID  string `json:"request_id"`
		Body       struct {
			ID      string `json:"id"`
			Created int64  `json:"created"`
			Choices []struct {
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
			} `json:"choices"`
		} `json:"body"`
	} `json:"response"`
	Error json.RawMessage `json:"error"`
}

// ParseResponses decodes a batch output file. Lines for failed requests
// produce a Response with empty text.
func ParseResponses(r io.Reader) ([]Response, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	var out []Response
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var parsed outputLine
		if err := json.Unmarshal(line, &parsed); err != nil {
			return nil, fmt.Errorf("response line %d: %w", lineNo, err)
		}
		resp := Response{CustomID: parsed.CustomID, BatchID: parsed.ID}
		if len(parsed.Error) > 0 && string(parsed.Error) != "null" {
			logging.LogWarn("Request %s failed: %s", parsed.CustomID, util.TruncateRunes(string(parsed.Error), 200))
		}
		if parsed.Response != nil {
			resp.RequestID = parsed.Response.RequestID
			if resp.RequestID == "" {
				resp.RequestID = parsed.Response.Body.ID
			}
			resp.CreatedAt = parsed.Response.Body.Created
			if len(parsed.Response.Body.Choices) > 0 {
				resp.Text = parsed.Response.Body.Choices[0].Message.Content
			}
		}
		out = append(out, resp)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Join left-joins responses onto the table by custom id. Rows without a
// response keep a nil Response.
func Join(table specs.Table, responses []Response) ([]Result, error) {
	for _, col := range ResponseColumns {
		if table.HasColumn(col) {
			return nil, fmt.Errorf("%w: column %q", ErrSchemaConflict, col)
		}
	}
	results := make([]Result, table.Len())
	for i, row := range table.Rows {
		results[i].Row = row
	}
	for _, resp := range responses {
		idx, err := RowIndex(resp.CustomID)
		if err != nil {
			return nil, err
		}
		if idx >= len(results) {
			return nil, fmt.Errorf("custom id %s is beyond the %d specs rows", resp.CustomID, len(results))
		}
		if results[idx].Response != nil {
			return nil, fmt.Errorf("duplicate response for %s", resp.CustomID)
		}
		r := resp
		results[idx].Response = &r
	}
	return results, nil
}

// ProcessResponses merges every ready job and concatenates the results in job order.
func (m *Manager) ProcessResponses() ([]Result, error) {
	var all []Result
	for _, job := range m.jobs {
		results, ready, err := m.ProcessOneResponse(job)
		if err != nil {
			return nil, err
		}
		if ready {
			all = append(all, results...)
		}
	}
	return all, nil
}

// ProcessOneResponse joins a job's responses onto its specs and writes
// results.csv. It reports ready=false when the job has no responses yet. An
// existing results file is returned as written.
func (m *Manager) ProcessOneResponse(job Job) ([]Result, bool, error) {
	hasResponses, err := job.HasFile(ResponsesFile)
	if err != nil {
		return nil, false, err
	}
	if !hasResponses {
		logging.LogEvent("Job %s has no responses yet", job.ID)
		return nil, false, nil
	}

	hasResults, err := job.HasFile(ResultsFile)
	if err != nil {
		return nil, false, err
	}
	if hasResults {
		results, err := ReadResultsFile(job.Path(ResultsFile))
		if err != nil {
			return nil, false, err
		}
		return results, true, nil
	}

	table, err := specs.ReadCSVFile(job.Path(SpecsFile))
	if err != nil {
		return nil, false, fmt.Errorf("read specs for %s: %w", job.ID, err)
	}
	f, err := os.Open(job.Path(ResponsesFile))
	if err != nil {
		return nil, false, fmt.Errorf("open responses for %s: %w", job.ID, err)
	}
	responses, err := ParseResponses(f)
	_ = f.Close()
	if err != nil {
		return nil, false, fmt.Errorf("parse responses for %s: %w", job.ID, err)
	}
	results, err := Join(table, responses)
	if err != nil {
		return nil, false, fmt.Errorf("join responses for %s: %w", job.ID, err)
	}

	encoded, err := EncodeResults(results)
	if err != nil {
		return nil, false, err
	}
	if err := util.WriteReadOnly(job.Path(ResultsFile), encoded); err != nil {
		return nil, false, fmt.Errorf("write results for %s: %w", job.ID, err)
	}
	logging.LogEvent("Job %s processed: %d rows, %d responses", job.ID, len(results), len(responses))
	// Decode what was written so a later memoized read returns the same table.
	written, err := ReadResults(bytes.NewReader(encoded))
	if err != nil {
		return nil, false, err
	}
	return written, true, nil
}

// ResultColumns returns the specs columns followed by the response columns.
func ResultColumns(results []Result) []string {
	table := specs.Table{Rows: make([]specs.Row, len(results))}
	for i, r := range results {
		table.Rows[i] = r.Row
	}
	return append(table.Columns(), ResponseColumns...)
}

// Value returns a specs or response column of the result.
func (r Result) Value(col string) (string, bool) {
	switch col {
	case ColBatchID, ColRequestID, ColCreatedAt, ColTextualResponse:
		if r.Response == nil {
			return "", true
		}
		switch col {
		case ColBatchID:
			return r.Response.BatchID, true
		case ColRequestID:
			return r.Response.RequestID, true
		case ColCreatedAt:
			return strconv.FormatInt(r.Response.CreatedAt, 10), true
		default:
			return r.Response.Text, true
		}
	}
	return r.Row.Value(col)
}

// EncodeResults renders results as CSV with a header row.
func EncodeResults(results []Result) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	cols := ResultColumns(results)
	if err := w.Write(cols); err != nil {
		return nil, err
	}
	for _, r := range results {
		rec := make([]string, len(cols))
		for i, col := range cols {
			rec[i], _ = r.Value(col)
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ResultFromFields splits a record into its specs row and response. The
// response is nil when no response column carries a value.
func ResultFromFields(fields map[string]string) (Result, error) {
	rowFields := make(map[string]string, len(fields))
	var resp Response
	answered := false
	for col, v := range fields {
		switch col {
		case ColBatchID:
			resp.BatchID = v
		case ColRequestID:
			resp.RequestID = v
		case ColTextualResponse:
			resp.Text = v
		case ColCreatedAt:
			if v != "" {
				created, err := strconv.ParseInt(v, 10, 64)
				if err != nil {
					return Result{}, fmt.Errorf("parse created_at %q: %w", v, err)
				}
				resp.CreatedAt = created
			}
		default:
			rowFields[col] = v
			continue
		}
		if v != "" {
			answered = true
		}
	}
	row, err := specs.FromFields(rowFields)
	if err != nil {
		return Result{}, err
	}
	out := Result{Row: row}
	if answered {
		out.Response = &resp
	}
	return out, nil
}

// ReadResults parses a results table written by EncodeResults.
func ReadResults(r io.Reader) ([]Result, error) {
	_, records, err := specs.ReadRecords(r)
	if err != nil {
		return nil, err
	}
	out := make([]Result, 0, len(records))
	for i, fields := range records {
		res, err := ResultFromFields(fields)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out = append(out, res)
	}
	return out, nil
}

// ReadResultsFile reads a results table from disk.
func ReadResultsFile(path string) ([]Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	results, err := ReadResults(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return results, nil
}
