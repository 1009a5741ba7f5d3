// Package experiment binds each experiment domain to its prompt template,
// response parser and Bayesian benchmark.
package experiment

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/mwiater/bayesbatch/internal/parsing"
	"github.com/mwiater/bayesbatch/internal/posterior"
	"github.com/mwiater/bayesbatch/internal/prompts"
	"github.com/mwiater/bayesbatch/internal/specs"
)

// Domain is one experiment family.
type Domain interface {
	Name() specs.Domain
	// Prompt renders the text sent to the model for a fully specified row.
	Prompt(row specs.Row) (string, error)
	// Parse extracts the answer from a model reply. Unusable replies are missing.
	Parse(text string) parsing.Answer
	// Posterior is the Bayesian probability of the "A" state given the row's evidence.
	Posterior(row specs.Row) (float64, error)
}

var registry = map[specs.Domain]Domain{
	specs.DomainCage: cageDomain{},
	specs.DomainUrn:  urnDomain{},
}

// ForName returns the registered domain.
func ForName(name specs.Domain) (Domain, error) {
	d, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("no experiment domain %q", name)
	}
	return d, nil
}

// ForRow resolves the domain a row belongs to.
func ForRow(row specs.Row) (Domain, error) {
	return ForName(row.Domain)
}

// decodeParams fills out from the row's string-valued design fields.
func decodeParams(params map[string]string, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(params); err != nil {
		return fmt.Errorf("decode design params: %w", err)
	}
	return nil
}

type cageDomain struct{}

func (cageDomain) Name() specs.Domain { return specs.DomainCage }

func (cageDomain) design(row specs.Row) (prompts.Cage, error) {
	var c prompts.Cage
	err := decodeParams(row.Params, &c)
	return c, err
}

func (d cageDomain) Prompt(row specs.Row) (string, error) {
	c, err := d.design(row)
	if err != nil {
		return "", err
	}
	return prompts.CagePrompt(c, row.Instruction)
}

func (cageDomain) Parse(text string) parsing.Answer {
	return parsing.ParseBinaryChoice(text)
}

func (d cageDomain) Posterior(row specs.Row) (float64, error) {
	c, err := d.design(row)
	if err != nil {
		return 0, err
	}
	return posterior.CagePosterior(posterior.Cage{
		NBalls:            c.NBalls,
		CageABallsMarkedN: c.CageABallsMarkedN,
		CageBBallsMarkedN: c.CageBBallsMarkedN,
		PriorSides:        c.NBallsPriorCage,
		PriorA:            c.Priors,
		Draws:             c.NDrawsFromCage,
		MarkedNDrawn:      c.NDraws,
	})
}

// urnDesign extends the prompt fields with the dark-ball count.
type urnDesign struct {
	prompts.Urn `mapstructure:",squash"`
	Dark        int `mapstructure:"ndraws"`
}

type urnDomain struct{}

func (urnDomain) Name() specs.Domain { return specs.DomainUrn }

func (urnDomain) design(row specs.Row) (urnDesign, error) {
	var u urnDesign
	err := decodeParams(row.Params, &u)
	return u, err
}

func (d urnDomain) Prompt(row specs.Row) (string, error) {
	u, err := d.design(row)
	if err != nil {
		return "", err
	}
	return prompts.UrnPrompt(u.Urn, row.Instruction)
}

func (urnDomain) Parse(text string) parsing.Answer {
	return parsing.ParseProbability(text)
}

func (d urnDomain) Posterior(row specs.Row) (float64, error) {
	u, err := d.design(row)
	if err != nil {
		return 0, err
	}
	return posterior.UrnPosterior(u.PriorLabel, u.NDrawsFromCage, u.Dark)
}

// PromptFor is a specs.PromptFunc dispatching on the row's domain.
func PromptFor(row specs.Row) (string, error) {
	d, err := ForRow(row)
	if err != nil {
		return "", err
	}
	return d.Prompt(row)
}
