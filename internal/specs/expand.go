package specs

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand/v2"
)

// PromptFunc renders the prompt of a fully parameterized row.
type PromptFunc func(Row) (string, error)

// ExpandOptions are the model-side factors crossed with every design row.
type ExpandOptions struct {
	Models           []string
	Instructions     []Instruction
	Seeds            []int64 // empty means requests carry no seed
	TemperatureLower float64
	TemperatureUpper float64
}

// Expand crosses design rows with models, instructions and seeds (in that
// nesting order), assigns each subject its temperature and renders prompts.
func Expand(design []Row, opts ExpandOptions, prompt PromptFunc) (Table, error) {
	if len(opts.Models) == 0 {
		return Table{}, errors.New("at least one model is required")
	}
	if len(opts.Instructions) == 0 {
		return Table{}, errors.New("at least one instruction is required")
	}
	if opts.TemperatureUpper < opts.TemperatureLower {
		return Table{}, fmt.Errorf("temperature bounds inverted: [%v, %v]", opts.TemperatureLower, opts.TemperatureUpper)
	}
	seeds := make([]*int64, 0, len(opts.Seeds))
	for i := range opts.Seeds {
		seeds = append(seeds, &opts.Seeds[i])
	}
	if len(seeds) == 0 {
		seeds = []*int64{nil}
	}

	out := Table{Rows: make([]Row, 0, len(design)*len(opts.Models)*len(opts.Instructions)*len(seeds))}
	for _, base := range design {
		temperature := SubjectTemperature(base.SubjectID, opts.TemperatureLower, opts.TemperatureUpper)
		for _, model := range opts.Models {
			for _, instruction := range opts.Instructions {
				for _, seed := range seeds {
					row := base.Clone()
					row.Model = model
					row.Instruction = instruction
					row.Temperature = temperature
					if seed != nil {
						s := *seed
						row.Seed = &s
					}
					text, err := prompt(row)
					if err != nil {
						return Table{}, fmt.Errorf("prompt for %s / %s: %w", row.SubjectID, row.TrialID, err)
					}
					row.Prompt = text
					out.Rows = append(out.Rows, row)
				}
			}
		}
	}
	return out, nil
}

// SubjectTemperature draws a temperature uniformly from [lower, upper) using
// a generator seeded by the subject's UUID, so a subject always gets the same value.
func SubjectTemperature(subjectID string, lower, upper float64) float64 {
	u := SubjectUUID(subjectID)
	rng := rand.New(rand.NewPCG(binary.BigEndian.Uint64(u[:8]), binary.BigEndian.Uint64(u[8:])))
	return lower + (upper-lower)*rng.Float64()
}
