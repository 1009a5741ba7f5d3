package results

import (
	"fmt"
	"strings"

	"github.com/mwiater/bayesbatch/internal/batch"
	"github.com/mwiater/bayesbatch/internal/specs"
)

// Subject is one column of a wide table.
type Subject struct {
	ID          string
	UUID        string
	Temperature string
}

// WideTable holds processed answers with one row per trial configuration and
// one column per subject.
type WideTable struct {
	// Group is the grouping column value the table was built from. Empty when
	// the rows were not grouped.
	Group        string
	IndexColumns []string
	Subjects     []Subject
	Index        [][]string
	// Cells is indexed [row][subject]; missing answers render as "".
	Cells [][]string
}

// pivotExcluded are the columns that never identify a wide row: the subject
// columns, the pivoted value, and per-query response data.
var pivotExcluded = map[string]bool{
	specs.ColSubjectID:       true,
	specs.ColSubjectUUID:     true,
	specs.ColTemperature:     true,
	specs.ColPrompt:          true,
	ColProcessedResponse:     true,
	ColQueryIdx:              true,
	ColQueryTotalCount:       true,
	batch.ColBatchID:         true,
	batch.ColRequestID:       true,
	batch.ColCreatedAt:       true,
	batch.ColTextualResponse: true,
}

// Pivot reshapes final rows into wide tables, one per distinct value of the
// groupBy column in first-seen order. An empty groupBy yields a single table.
func Pivot(final []Row, groupBy string) ([]WideTable, error) {
	if len(final) == 0 {
		return nil, nil
	}
	var order []string
	groups := make(map[string][]Row)
	for _, r := range final {
		key := ""
		if groupBy != "" {
			v, ok := r.Value(groupBy)
			if !ok {
				return nil, fmt.Errorf("group column %q not found", groupBy)
			}
			key = v
		}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], r)
	}

	tables := make([]WideTable, 0, len(order))
	for _, key := range order {
		t, err := pivotGroup(groups[key])
		if err != nil {
			return nil, fmt.Errorf("group %q: %w", key, err)
		}
		t.Group = key
		tables = append(tables, t)
	}
	return tables, nil
}

func pivotGroup(rows []Row) (WideTable, error) {
	var t WideTable
	for _, col := range StackedColumns(rows) {
		if !pivotExcluded[col] {
			t.IndexColumns = append(t.IndexColumns, col)
		}
	}

	subjectPos := make(map[string]int)
	rowPos := make(map[string]int)
	type cell struct{ row, subject int }
	filled := make(map[cell]bool)
	for _, r := range rows {
		sp, ok := subjectPos[r.Row.SubjectID]
		if !ok {
			sp = len(t.Subjects)
			subjectPos[r.Row.SubjectID] = sp
			temp, _ := r.Value(specs.ColTemperature)
			t.Subjects = append(t.Subjects, Subject{ID: r.Row.SubjectID, UUID: r.Row.SubjectUUID, Temperature: temp})
			for i := range t.Cells {
				t.Cells[i] = append(t.Cells[i], "")
			}
		}

		index := make([]string, len(t.IndexColumns))
		for i, col := range t.IndexColumns {
			index[i], _ = r.Value(col)
		}
		key := strings.Join(index, "\x1f")
		rp, ok := rowPos[key]
		if !ok {
			rp = len(t.Index)
			rowPos[key] = rp
			t.Index = append(t.Index, index)
			t.Cells = append(t.Cells, make([]string, len(t.Subjects)))
		}

		if filled[cell{rp, sp}] {
			return WideTable{}, fmt.Errorf("duplicate entry for subject %s at %v", r.Row.SubjectID, index)
		}
		filled[cell{rp, sp}] = true
		t.Cells[rp][sp] = r.Processed.String()
	}
	return t, nil
}
