package specs

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// EncodeCSV renders the table with a header row.
func EncodeCSV(t Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteCSV writes the table with a header row.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	cols := t.Columns()
	if err := cw.Write(cols); err != nil {
		return err
	}
	for _, r := range t.Rows {
		if err := cw.Write(r.Record(cols)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadRecords reads a CSV with a header row into one field map per record.
func ReadRecords(r io.Reader) ([]string, []map[string]string, error) {
	rdr := csv.NewReader(r)
	header, err := rdr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var out []map[string]string
	for {
		rec, err := rdr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		fields := make(map[string]string, len(header))
		for i, col := range header {
			fields[col] = rec[i]
		}
		out = append(out, fields)
	}
	return header, out, nil
}

// ReadCSV parses a table written by WriteCSV. Columns that are not core
// columns are read back as params, so the round trip is lossless.
func ReadCSV(r io.Reader) (Table, error) {
	_, records, err := ReadRecords(r)
	if err != nil {
		return Table{}, err
	}
	t := Table{Rows: make([]Row, 0, len(records))}
	for i, fields := range records {
		row, err := FromFields(fields)
		if err != nil {
			return Table{}, fmt.Errorf("row %d: %w", i, err)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// ReadCSVFile reads a table from disk.
func ReadCSVFile(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return Table{}, err
	}
	defer f.Close()
	t, err := ReadCSV(f)
	if err != nil {
		return Table{}, fmt.Errorf("read %s: %w", path, err)
	}
	return t, nil
}
