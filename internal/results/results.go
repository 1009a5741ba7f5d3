// Package results turns merged batch responses into typed, scored tables:
// the stacked table of every query, the final answer per query group, and
// wide per-subject pivots.
package results

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/mwiater/bayesbatch/internal/batch"
	"github.com/mwiater/bayesbatch/internal/experiment"
	"github.com/mwiater/bayesbatch/internal/parsing"
	"github.com/mwiater/bayesbatch/internal/specs"
)

// Derived column names.
const (
	ColProcessedResponse = "processed_response"
	ColPosteriorProb     = "posterior_prob"
	ColQueryIdx          = "query_idx"
	ColQueryTotalCount   = "query_total_count"
)

// DerivedColumns lists the columns Stack adds, in output order.
var DerivedColumns = []string{ColProcessedResponse, ColPosteriorProb, ColQueryIdx, ColQueryTotalCount}

// Row is a merged result with its parsed answer and benchmark.
type Row struct {
	batch.Result
	Processed parsing.Answer
	// PosteriorProb is the normative probability of the "A" state.
	PosteriorProb *float64
	// QueryIdx counts the answered queries of the row's group up to and
	// including this row. QueryTotalCount is the group's final count.
	QueryIdx        int
	QueryTotalCount int
}

// Value returns a derived, response or specs column of the row.
func (r Row) Value(col string) (string, bool) {
	switch col {
	case ColProcessedResponse:
		return r.Processed.String(), true
	case ColPosteriorProb:
		if r.PosteriorProb == nil {
			return "", true
		}
		return strconv.FormatFloat(*r.PosteriorProb, 'f', -1, 64), true
	case ColQueryIdx:
		return strconv.Itoa(r.QueryIdx), true
	case ColQueryTotalCount:
		return strconv.Itoa(r.QueryTotalCount), true
	}
	return r.Result.Value(col)
}

// Stack parses every response with its domain's parser, attaches the
// posterior and numbers the answered queries of each query group in row order.
func Stack(merged []batch.Result) ([]Row, error) {
	rows := make([]Row, len(merged))
	counts := make(map[specs.QueryKey]int)
	for i, res := range merged {
		domain, err := experiment.ForRow(res.Row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		text := ""
		if res.Response != nil {
			text = res.Response.Text
		}
		row := Row{Result: res, Processed: domain.Parse(text)}

		p, err := domain.Posterior(res.Row)
		if err != nil {
			return nil, fmt.Errorf("row %d (%s, %s): posterior: %w", i, res.Row.SubjectID, res.Row.TrialID, err)
		}
		row.PosteriorProb = &p

		key := res.Row.Key()
		if !row.Processed.IsMissing() {
			counts[key]++
		}
		row.QueryIdx = counts[key]
		rows[i] = row
	}
	for i := range rows {
		rows[i].QueryTotalCount = counts[rows[i].Row.Key()]
	}
	return rows, nil
}

// Final keeps one row per query group: among the rows whose query index
// equals the group total, the last answered one, or the last row when none
// of the group was answered. Row order is preserved.
func Final(rows []Row) []Row {
	chosen := make(map[specs.QueryKey]int)
	for i, r := range rows {
		if r.QueryIdx != r.QueryTotalCount {
			continue
		}
		key := r.Row.Key()
		prev, ok := chosen[key]
		if !ok || !r.Processed.IsMissing() || rows[prev].Processed.IsMissing() {
			chosen[key] = i
		}
	}
	idx := make([]int, 0, len(chosen))
	for _, i := range chosen {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	out := make([]Row, len(idx))
	for j, i := range idx {
		out[j] = rows[i]
	}
	return out
}

// Invalid returns the specification rows of the final rows that have no
// usable answer, stripped of every response and derived column.
func Invalid(final []Row) specs.Table {
	var table specs.Table
	for _, r := range final {
		if r.Processed.IsMissing() {
			table.Rows = append(table.Rows, r.Row.Clone())
		}
	}
	return table
}

// Results unwraps the merged results of rows.
func Results(rows []Row) []batch.Result {
	out := make([]batch.Result, len(rows))
	for i, r := range rows {
		out[i] = r.Result
	}
	return out
}

// StackedColumns returns the result columns followed by the derived columns.
func StackedColumns(rows []Row) []string {
	return append(batch.ResultColumns(Results(rows)), DerivedColumns...)
}
