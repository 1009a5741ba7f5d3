// Package specs holds the specification table: one row per planned model
// query, with the experiment design fields that produced its prompt.
package specs

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Domain names an experiment family. It selects the prompt template, the
// response parser and the posterior formula.
type Domain string

const (
	DomainCage Domain = "eg"
	DomainUrn  Domain = "hs"
)

// ParseDomain validates a domain name.
func ParseDomain(s string) (Domain, error) {
	switch d := Domain(strings.ToLower(strings.TrimSpace(s))); d {
	case DomainCage, DomainUrn:
		return d, nil
	default:
		return "", fmt.Errorf("unknown domain %q (want %q or %q)", s, DomainCage, DomainUrn)
	}
}

// Instruction controls whether the model is invited to show its reasoning.
type Instruction string

const (
	InstructionReasoning   Instruction = "reasoning"
	InstructionNoReasoning Instruction = "no_reasoning"
)

// ParseInstruction accepts the canonical names and the older spaced spelling.
func ParseInstruction(s string) (Instruction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "reasoning":
		return InstructionReasoning, nil
	case "no_reasoning", "no reasoning":
		return InstructionNoReasoning, nil
	default:
		return "", fmt.Errorf("unknown instruction %q", s)
	}
}

// Core column names, in output order.
const (
	ColExperiment  = "experiment"
	ColDomain      = "domain"
	ColSubjectID   = "subject_id"
	ColSubjectUUID = "subject_uuid"
	ColTrialID     = "trial_id"
	ColModel       = "model"
	ColInstruction = "instruction"
	ColTemperature = "temperature"
	ColSeed        = "seed"
	ColPrompt      = "prompt"
)

// CoreColumns lists the columns every specification table carries.
var CoreColumns = []string{
	ColExperiment, ColDomain, ColSubjectID, ColSubjectUUID, ColTrialID,
	ColModel, ColInstruction, ColTemperature, ColSeed, ColPrompt,
}

// Row is one planned model query.
type Row struct {
	Experiment  string
	Domain      Domain
	SubjectID   string
	SubjectUUID string
	TrialID     string
	Model       string
	Instruction Instruction
	Temperature float64
	Seed        *int64
	Prompt      string
	// Params holds the domain-specific design fields as written in the table.
	Params map[string]string
}

// QueryKey identifies a query group: repeated queries of one configuration.
type QueryKey struct {
	SubjectID   string
	TrialID     string
	Model       string
	Instruction Instruction
	Seed        string
}

// Key returns the row's query group.
func (r Row) Key() QueryKey {
	return QueryKey{
		SubjectID:   r.SubjectID,
		TrialID:     r.TrialID,
		Model:       r.Model,
		Instruction: r.Instruction,
		Seed:        r.seedString(),
	}
}

func (r Row) seedString() string {
	if r.Seed == nil {
		return ""
	}
	return strconv.FormatInt(*r.Seed, 10)
}

// Clone returns a deep copy of the row.
func (r Row) Clone() Row {
	out := r
	if r.Seed != nil {
		seed := *r.Seed
		out.Seed = &seed
	}
	out.Params = make(map[string]string, len(r.Params))
	for k, v := range r.Params {
		out.Params[k] = v
	}
	return out
}

// Value returns the value of a core column or design param.
func (r Row) Value(col string) (string, bool) {
	switch col {
	case ColExperiment:
		return r.Experiment, true
	case ColDomain:
		return string(r.Domain), true
	case ColSubjectID:
		return r.SubjectID, true
	case ColSubjectUUID:
		return r.SubjectUUID, true
	case ColTrialID:
		return r.TrialID, true
	case ColModel:
		return r.Model, true
	case ColInstruction:
		return string(r.Instruction), true
	case ColTemperature:
		return strconv.FormatFloat(r.Temperature, 'f', -1, 64), true
	case ColSeed:
		return r.seedString(), true
	case ColPrompt:
		return r.Prompt, true
	}
	v, ok := r.Params[col]
	return v, ok
}

// ParamNames returns the sorted design param names of the row.
func (r Row) ParamNames() []string {
	names := make([]string, 0, len(r.Params))
	for k := range r.Params {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Record renders the row under the given header. Absent params render as "".
func (r Row) Record(columns []string) []string {
	rec := make([]string, len(columns))
	for i, col := range columns {
		rec[i], _ = r.Value(col)
	}
	return rec
}

// FromFields builds a row from column/value pairs. Core columns are parsed;
// every other column becomes a design param.
func FromFields(fields map[string]string) (Row, error) {
	row := Row{Params: make(map[string]string)}
	for col, v := range fields {
		switch col {
		case ColExperiment:
			row.Experiment = v
		case ColDomain:
			if v == "" {
				continue
			}
			d, err := ParseDomain(v)
			if err != nil {
				return Row{}, err
			}
			row.Domain = d
		case ColSubjectID:
			row.SubjectID = v
		case ColSubjectUUID:
			row.SubjectUUID = v
		case ColTrialID:
			row.TrialID = v
		case ColModel:
			row.Model = v
		case ColInstruction:
			if v == "" {
				continue
			}
			ins, err := ParseInstruction(v)
			if err != nil {
				return Row{}, err
			}
			row.Instruction = ins
		case ColTemperature:
			if v == "" {
				continue
			}
			temp, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return Row{}, fmt.Errorf("parse temperature %q: %w", v, err)
			}
			row.Temperature = temp
		case ColSeed:
			if v == "" {
				continue
			}
			seed, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return Row{}, fmt.Errorf("parse seed %q: %w", v, err)
			}
			row.Seed = &seed
		case ColPrompt:
			row.Prompt = v
		default:
			row.Params[col] = v
		}
	}
	return row, nil
}
