package specs

import (
	"fmt"
	"sort"

	"github.com/hashicorp/go-multierror"
)

// Table is an ordered specification table. Row order defines request indices.
type Table struct {
	Rows []Row
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// Columns returns the core columns followed by the sorted union of param names.
func (t Table) Columns() []string {
	seen := make(map[string]struct{})
	var params []string
	for _, r := range t.Rows {
		for _, k := range r.ParamNames() {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			params = append(params, k)
		}
	}
	sort.Strings(params)
	cols := make([]string, 0, len(CoreColumns)+len(params))
	cols = append(cols, CoreColumns...)
	return append(cols, params...)
}

// HasColumn reports whether name is a column of the table.
func (t Table) HasColumn(name string) bool {
	for _, c := range CoreColumns {
		if c == name {
			return true
		}
	}
	for _, r := range t.Rows {
		if _, ok := r.Params[name]; ok {
			return true
		}
	}
	return false
}

// Validate checks every row and returns all problems found.
func (t Table) Validate() error {
	var result *multierror.Error
	seen := make(map[QueryKey]int, len(t.Rows))
	for i, r := range t.Rows {
		if r.Model == "" {
			result = multierror.Append(result, fmt.Errorf("row %d: model is empty", i))
		}
		if r.Instruction != InstructionReasoning && r.Instruction != InstructionNoReasoning {
			result = multierror.Append(result, fmt.Errorf("row %d: invalid instruction %q", i, r.Instruction))
		}
		if r.Prompt == "" {
			result = multierror.Append(result, fmt.Errorf("row %d: prompt is empty", i))
		}
		key := r.Key()
		if prev, ok := seen[key]; ok {
			result = multierror.Append(result, fmt.Errorf("row %d duplicates row %d (%s / %s / %s)", i, prev, r.SubjectID, r.TrialID, r.Model))
			continue
		}
		seen[key] = i
	}
	return result.ErrorOrNil()
}

// Models returns the distinct model names in sorted order.
func (t Table) Models() []string {
	seen := make(map[string]struct{})
	var models []string
	for _, r := range t.Rows {
		if _, ok := seen[r.Model]; ok {
			continue
		}
		seen[r.Model] = struct{}{}
		models = append(models, r.Model)
	}
	sort.Strings(models)
	return models
}

// PartitionByModel splits the table per model, preserving row order.
func (t Table) PartitionByModel() map[string]Table {
	parts := make(map[string]Table)
	for _, r := range t.Rows {
		p := parts[r.Model]
		p.Rows = append(p.Rows, r)
		parts[r.Model] = p
	}
	return parts
}

// Filter keeps the rows whose column equals value.
func (t Table) Filter(column, value string) Table {
	var out Table
	for _, r := range t.Rows {
		if v, ok := r.Value(column); ok && v == value {
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}
