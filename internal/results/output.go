package results

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/mwiater/bayesbatch/internal/batch"
	"github.com/mwiater/bayesbatch/internal/parsing"
	"github.com/mwiater/bayesbatch/internal/specs"
	"github.com/mwiater/bayesbatch/internal/util"
)

func writeCSV(w io.Writer, header []string, records [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(records); err != nil {
		return err
	}
	return cw.Error()
}

// WriteStackedCSV writes every row with its result and derived columns.
func WriteStackedCSV(w io.Writer, rows []Row) error {
	cols := StackedColumns(rows)
	records := make([][]string, len(rows))
	for i, r := range rows {
		rec := make([]string, len(cols))
		for j, col := range cols {
			rec[j], _ = r.Value(col)
		}
		records[i] = rec
	}
	return writeCSV(w, cols, records)
}

// ReadStackedCSV parses a table written by WriteStackedCSV.
func ReadStackedCSV(r io.Reader) ([]Row, error) {
	_, records, err := specs.ReadRecords(r)
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(records))
	for i, fields := range records {
		row, err := rowFromFields(fields)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ReadStackedCSVFile reads a stacked table from disk.
func ReadStackedCSVFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rows, err := ReadStackedCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows, nil
}

func rowFromFields(fields map[string]string) (Row, error) {
	var row Row
	rest := make(map[string]string, len(fields))
	for col, v := range fields {
		var err error
		switch col {
		case ColProcessedResponse:
			row.Processed, err = parsing.ParseAnswer(v)
		case ColPosteriorProb:
			if v != "" {
				var p float64
				p, err = strconv.ParseFloat(v, 64)
				row.PosteriorProb = &p
			}
		case ColQueryIdx:
			row.QueryIdx, err = atoiOrZero(v)
		case ColQueryTotalCount:
			row.QueryTotalCount, err = atoiOrZero(v)
		default:
			rest[col] = v
		}
		if err != nil {
			return Row{}, fmt.Errorf("column %s: %w", col, err)
		}
	}
	res, err := batch.ResultFromFields(rest)
	if err != nil {
		return Row{}, err
	}
	row.Result = res
	return row, nil
}

func atoiOrZero(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

type stackedRecord struct {
	Experiment        string   `parquet:"name=experiment,type=BYTE_ARRAY,convertedtype=UTF8"`
	Domain            string   `parquet:"name=domain,type=BYTE_ARRAY,convertedtype=UTF8"`
	SubjectID         string   `parquet:"name=subject_id,type=BYTE_ARRAY,convertedtype=UTF8"`
	SubjectUUID       string   `parquet:"name=subject_uuid,type=BYTE_ARRAY,convertedtype=UTF8"`
	TrialID           string   `parquet:"name=trial_id,type=BYTE_ARRAY,convertedtype=UTF8"`
	Model             string   `parquet:"name=model,type=BYTE_ARRAY,convertedtype=UTF8"`
	Instruction       string   `parquet:"name=instruction,type=BYTE_ARRAY,convertedtype=UTF8"`
	Temperature       float64  `parquet:"name=temperature,type=DOUBLE"`
	Seed              *int64   `parquet:"name=seed,type=INT64,repetitiontype=OPTIONAL"`
	Prompt            string   `parquet:"name=prompt,type=BYTE_ARRAY,convertedtype=UTF8"`
	Params            string   `parquet:"name=params,type=BYTE_ARRAY,convertedtype=UTF8"`
	BatchID           string   `parquet:"name=batch_id,type=BYTE_ARRAY,convertedtype=UTF8"`
	RequestID         string   `parquet:"name=request_id,type=BYTE_ARRAY,convertedtype=UTF8"`
	CreatedAt         *int64   `parquet:"name=created_at,type=INT64,repetitiontype=OPTIONAL"`
	TextualResponse   string   `parquet:"name=textual_response,type=BYTE_ARRAY,convertedtype=UTF8"`
	ProcessedResponse *float64 `parquet:"name=processed_response,type=DOUBLE,repetitiontype=OPTIONAL"`
	PosteriorProb     *float64 `parquet:"name=posterior_prob,type=DOUBLE,repetitiontype=OPTIONAL"`
	QueryIdx          int64    `parquet:"name=query_idx,type=INT64"`
	QueryTotalCount   int64    `parquet:"name=query_total_count,type=INT64"`
}

func newStackedRecord(r Row) (stackedRecord, error) {
	params, err := json.Marshal(r.Row.Params)
	if err != nil {
		return stackedRecord{}, err
	}
	rec := stackedRecord{
		Experiment:      r.Row.Experiment,
		Domain:          string(r.Row.Domain),
		SubjectID:       r.Row.SubjectID,
		SubjectUUID:     r.Row.SubjectUUID,
		TrialID:         r.Row.TrialID,
		Model:           r.Row.Model,
		Instruction:     string(r.Row.Instruction),
		Temperature:     r.Row.Temperature,
		Seed:            r.Row.Seed,
		Prompt:          r.Row.Prompt,
		Params:          string(params),
		PosteriorProb:   r.PosteriorProb,
		QueryIdx:        int64(r.QueryIdx),
		QueryTotalCount: int64(r.QueryTotalCount),
	}
	if r.Response != nil {
		created := r.Response.CreatedAt
		rec.BatchID = r.Response.BatchID
		rec.RequestID = r.Response.RequestID
		rec.CreatedAt = &created
		rec.TextualResponse = r.Response.Text
	}
	if v, ok := r.Processed.Float(); ok {
		rec.ProcessedResponse = &v
	}
	return rec, nil
}

// WriteStackedParquet writes the stacked rows as a SNAPPY-compressed parquet
// file. Design params are stored as one JSON object column.
func WriteStackedParquet(w io.Writer, rows []Row) (err error) {
	pw, err := writer.NewParquetWriterFromWriter(w, new(stackedRecord), 4)
	if err != nil {
		return fmt.Errorf("create parquet writer: %w", err)
	}
	// Write and WriteStop can panic on internal encoder errors.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parquet writer panicked: %v", r)
		}
	}()
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for i, r := range rows {
		rec, err := newStackedRecord(r)
		if err == nil {
			err = pw.Write(rec)
		}
		if err != nil {
			_ = pw.WriteStop()
			return fmt.Errorf("write parquet row %d: %w", i, err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("finish parquet file: %w", err)
	}
	return nil
}

// WriteStackedFiles writes the stacked rows as CSV and parquet.
func WriteStackedFiles(csvPath, parquetPath string, rows []Row) error {
	var buf bytes.Buffer
	if err := WriteStackedCSV(&buf, rows); err != nil {
		return err
	}
	if err := util.WriteFile(csvPath, buf.Bytes()); err != nil {
		return err
	}
	buf.Reset()
	if err := WriteStackedParquet(&buf, rows); err != nil {
		return err
	}
	return util.WriteFile(parquetPath, buf.Bytes())
}

// WriteWide writes the index columns followed by one column per subject id.
func WriteWide(w io.Writer, t WideTable) error {
	header := append([]string(nil), t.IndexColumns...)
	for _, s := range t.Subjects {
		header = append(header, s.ID)
	}
	records := make([][]string, len(t.Index))
	for i := range t.Index {
		records[i] = append(append([]string(nil), t.Index[i]...), t.Cells[i]...)
	}
	return writeCSV(w, header, records)
}

// WriteMatrix writes only the answer cells under their column positions.
func WriteMatrix(w io.Writer, t WideTable) error {
	header := make([]string, len(t.Subjects))
	for i := range header {
		header[i] = strconv.Itoa(i)
	}
	return writeCSV(w, header, t.Cells)
}

// WriteSubjects writes the subject metadata of each matrix column.
func WriteSubjects(w io.Writer, t WideTable) error {
	records := make([][]string, len(t.Subjects))
	for i, s := range t.Subjects {
		records[i] = []string{strconv.Itoa(i), s.ID, s.UUID, s.Temperature}
	}
	return writeCSV(w, []string{"column", specs.ColSubjectID, specs.ColSubjectUUID, specs.ColTemperature}, records)
}

// WriteTableFiles writes <name>_wide.csv, <name>_matrix.csv and
// <name>_subjects.csv into dir and returns their paths.
func WriteTableFiles(dir, name string, t WideTable) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	writers := []struct {
		suffix string
		write  func(io.Writer, WideTable) error
	}{
		{"wide", WriteWide},
		{"matrix", WriteMatrix},
		{"subjects", WriteSubjects},
	}
	paths := make([]string, 0, len(writers))
	for _, out := range writers {
		var buf bytes.Buffer
		if err := out.write(&buf, t); err != nil {
			return paths, fmt.Errorf("%s table %s: %w", out.suffix, name, err)
		}
		path := filepath.Join(dir, name+"_"+out.suffix+".csv")
		if err := util.WriteFile(path, buf.Bytes()); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
