package specs

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Design param names. The spelling follows the published data sets.
const (
	ParamState             = "state"
	ParamPay               = "pay"
	ParamNBalls            = "nballs"
	ParamNDrawsFromCage    = "ndraws_from_cage"
	ParamCageABallsMarkedN = "cage_A_balls_marked_N"
	ParamCageBBallsMarkedN = "cage_B_balls_marked_N"
	ParamNBallsPriorCage   = "nballs_prior_cage"
	ParamPriors            = "priors"
	ParamNDraws            = "ndraws"
	ParamNSubjects         = "nsubjects"
	ParamNTrials           = "ntrials"

	ParamRound         = "round"
	ParamPriorLabel    = "prior_label"
	ParamPrior         = "prior"
	ParamOutcome       = "outcome"
	ParamOutcomeExpand = "outcome_expand"
)

// noObservation marks a subject that sat out a round.
const noObservation = "*"

var subjectNamespace = uuid.NewMD5(uuid.NameSpaceURL, []byte("bayesbatch/subject"))

// Designs is the experiment design file.
type Designs struct {
	Cage []CageExperiment `yaml:"eg"`
	Urn  []UrnSheet       `yaml:"hs"`
}

// CageExperiment is one El-Gamal and Grether session. Every subject sees
// every trial.
type CageExperiment struct {
	Name              string      `yaml:"name"`
	State             string      `yaml:"state"`
	Pay               int         `yaml:"pay"`
	NBalls            int         `yaml:"nballs"`
	NDrawsFromCage    int         `yaml:"ndraws_from_cage"`
	CageABallsMarkedN int         `yaml:"cage_a_balls_marked_n"`
	CageBBallsMarkedN int         `yaml:"cage_b_balls_marked_n"`
	NBallsPriorCage   int         `yaml:"nballs_prior_cage"`
	NSubjects         int         `yaml:"nsubjects"`
	Trials            []CageTrial `yaml:"trials"`
}

// CageTrial is the prior threshold and observed "N" count of one trial.
type CageTrial struct {
	Priors int `yaml:"priors"`
	NDraws int `yaml:"ndraws"`
}

// UrnSheet is one Holt and Smith session.
type UrnSheet struct {
	Name   string     `yaml:"name"`
	Rounds []UrnRound `yaml:"rounds"`
}

// UrnRound holds the prior and, per subject (1-based position), the drawn
// sequence of D (dark) and L (light) balls.
type UrnRound struct {
	Round    int      `yaml:"round"`
	Prior    string   `yaml:"prior"`
	Outcomes []string `yaml:"outcomes"`
}

// LoadDesigns reads a design file.
func LoadDesigns(path string) (Designs, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Designs{}, fmt.Errorf("read designs: %w", err)
	}
	var d Designs
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return Designs{}, fmt.Errorf("parse designs %s: %w", path, err)
	}
	return d, nil
}

// SubjectUUID derives a stable identifier from a subject id.
func SubjectUUID(subjectID string) uuid.UUID {
	return uuid.NewMD5(subjectNamespace, []byte(subjectID))
}

// DesignRows returns one row per subject and trial of the domain. Model,
// instruction, seed, temperature and prompt are left for Expand.
func (d Designs) DesignRows(domain Domain) ([]Row, error) {
	switch domain {
	case DomainCage:
		return d.cageRows()
	case DomainUrn:
		return d.urnRows()
	default:
		return nil, fmt.Errorf("unknown domain %q", domain)
	}
}

func (d Designs) cageRows() ([]Row, error) {
	var rows []Row
	for _, exp := range d.Cage {
		if exp.NSubjects <= 0 || len(exp.Trials) == 0 {
			return nil, fmt.Errorf("experiment %q needs subjects and trials", exp.Name)
		}
		for s := 1; s <= exp.NSubjects; s++ {
			subjectID := fmt.Sprintf("%s - Subject %d", exp.Name, s)
			for t, trial := range exp.Trials {
				rows = append(rows, Row{
					Experiment:  exp.Name,
					Domain:      DomainCage,
					SubjectID:   subjectID,
					SubjectUUID: SubjectUUID(subjectID).String(),
					TrialID:     fmt.Sprintf("%s - Trial %d", exp.Name, t+1),
					Params: map[string]string{
						ParamState:             exp.State,
						ParamPay:               strconv.Itoa(exp.Pay),
						ParamNBalls:            strconv.Itoa(exp.NBalls),
						ParamNDrawsFromCage:    strconv.Itoa(exp.NDrawsFromCage),
						ParamCageABallsMarkedN: strconv.Itoa(exp.CageABallsMarkedN),
						ParamCageBBallsMarkedN: strconv.Itoa(exp.CageBBallsMarkedN),
						ParamNBallsPriorCage:   strconv.Itoa(exp.NBallsPriorCage),
						ParamPriors:            strconv.Itoa(trial.Priors),
						ParamNDraws:            strconv.Itoa(trial.NDraws),
						ParamNSubjects:         strconv.Itoa(exp.NSubjects),
						ParamNTrials:           strconv.Itoa(len(exp.Trials)),
					},
				})
			}
		}
	}
	return rows, nil
}

var priorValues = map[string]string{
	"1/2": "0.50",
	"2/3": "0.67",
}

func (d Designs) urnRows() ([]Row, error) {
	var rows []Row
	for _, sheet := range d.Urn {
		nSubjects := 0
		for _, r := range sheet.Rounds {
			if len(r.Outcomes) > nSubjects {
				nSubjects = len(r.Outcomes)
			}
		}
		for s := 1; s <= nSubjects; s++ {
			subjectID := fmt.Sprintf("%s - id %d", sheet.Name, s)
			for _, round := range sheet.Rounds {
				if s > len(round.Outcomes) {
					continue
				}
				outcome := strings.ToUpper(strings.ReplaceAll(round.Outcomes[s-1], " ", ""))
				if outcome == noObservation || outcome == "" {
					continue
				}
				if strings.Trim(outcome, "DL") != "" {
					return nil, fmt.Errorf("sheet %q round %d subject %d: invalid outcome %q", sheet.Name, round.Round, s, outcome)
				}
				label := strings.ReplaceAll(round.Prior, " ", "")
				prior, ok := priorValues[label]
				if !ok {
					return nil, fmt.Errorf("sheet %q round %d: unsupported prior %q", sheet.Name, round.Round, round.Prior)
				}
				rows = append(rows, Row{
					Experiment:  sheet.Name,
					Domain:      DomainUrn,
					SubjectID:   subjectID,
					SubjectUUID: SubjectUUID(subjectID).String(),
					TrialID:     fmt.Sprintf("%s - Round %d", sheet.Name, round.Round),
					Params: map[string]string{
						ParamRound:          strconv.Itoa(round.Round),
						ParamPriorLabel:     label,
						ParamPrior:          prior,
						ParamOutcome:        outcome,
						ParamNDrawsFromCage: strconv.Itoa(len(outcome)),
						ParamNDraws:         strconv.Itoa(strings.Count(outcome, "D")),
						ParamOutcomeExpand:  expandOutcome(outcome),
					},
				})
			}
		}
	}
	return rows, nil
}

// expandOutcome spells a D/L sequence out, e.g. "DL" -> "Dark, Light".
func expandOutcome(outcome string) string {
	words := make([]string, 0, len(outcome))
	for _, c := range outcome {
		if c == 'D' {
			words = append(words, "Dark")
		} else {
			words = append(words, "Light")
		}
	}
	return strings.Join(words, ", ")
}
