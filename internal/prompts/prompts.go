// Package prompts renders the experiment instructions sent to the model.
// The wording reproduces the instructions read by the human subjects of the
// original laboratory sessions and must not be edited casually.
package prompts

import (
	"fmt"
	"strings"

	"github.com/mwiater/bayesbatch/internal/specs"
)

// Cage holds the El-Gamal and Grether design fields of one trial.
type Cage struct {
	Pay               int `mapstructure:"pay"`
	NBalls            int `mapstructure:"nballs"`
	NDrawsFromCage    int `mapstructure:"ndraws_from_cage"`
	CageABallsMarkedN int `mapstructure:"cage_A_balls_marked_N"`
	CageBBallsMarkedN int `mapstructure:"cage_B_balls_marked_N"`
	NBallsPriorCage   int `mapstructure:"nballs_prior_cage"`
	Priors            int `mapstructure:"priors"`
	NDraws            int `mapstructure:"ndraws"`
}

// Urn holds the Holt and Smith design fields of one round.
type Urn struct {
	PriorLabel     string `mapstructure:"prior_label"`
	NDrawsFromCage int    `mapstructure:"ndraws_from_cage"`
	Outcome        string `mapstructure:"outcome"`
	OutcomeExpand  string `mapstructure:"outcome_expand"`
}

const (
	cageIntroPaid   = "You are participating in a decision-making experiment, where you can earn money based on the number of correct decisions you make."
	cageIntroUnpaid = "You are participating in a decision-making experiment."

	cageReasoning = "\n" +
		"YOU ARE WELCOME TO ALSO DESCRIBE YOUR REASONING, BROKEN INTO SEPARATE STEPS, TO EXPLAIN HOW YOU ARRIVED AT YOUR FINAL ANSWER. \n" +
		"Please state your answer in the following format at the end.\n" +
		"\"Final answer: Cage A.\" or \"Final answer: Cage B.\".\n"
	cageNoReasoning = "\n" +
		"PLEASE JUST REPORT YOU FINAL ANSWER AND DO NOT PROVIDE ANY REASONING AS TO HOW YOU ARRIVED AT YOUR FINAL ANSWER. \n" +
		"Please state your answer in the following format.\n" +
		"\"Final answer: Cage A.\" or \"Final answer: Cage B.\".\n"
)

// CagePrompt renders the bingo cage task.
func CagePrompt(c Cage, instruction specs.Instruction) (string, error) {
	var intro string
	switch c.Pay {
	case 1:
		intro = cageIntroPaid
	case 0:
		intro = cageIntroUnpaid
	default:
		return "", fmt.Errorf("invalid pay value %d", c.Pay)
	}
	if c.Priors < 0 || c.Priors > c.NBallsPriorCage {
		return "", fmt.Errorf("priors %d outside die of %d sides", c.Priors, c.NBallsPriorCage)
	}
	if c.NDraws < 0 || c.NDraws > c.NDrawsFromCage {
		return "", fmt.Errorf("ndraws %d outside %d draws", c.NDraws, c.NDrawsFromCage)
	}
	closing, err := pick(instruction, cageReasoning, cageNoReasoning)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(intro)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "There are two identical bingo cages, Cage A and Cage B, each containing %d balls. "+
		"Cage A contains %d balls labeled \"N\" and %d balls labeled \"G\", while Cage B contains %d balls labeled \"N\" and %d balls labeled \"G\".\n\n",
		c.NBalls, c.CageABallsMarkedN, c.NBalls-c.CageABallsMarkedN, c.CageBBallsMarkedN, c.NBalls-c.CageBBallsMarkedN)
	fmt.Fprintf(&b, "A %d-sided die is used to determine which of the two cages will be used to generate draws. "+
		"If a random roll of the die shows 1 through %d, I will use Cage A; if it shows %d through %d, I will use Cage B. "+
		"You will not know the outcome of the roll of the die or which cage I use.\n\n",
		c.NBallsPriorCage, c.Priors, c.Priors+1, c.NBallsPriorCage)
	b.WriteString("Once a cage is chosen at random based on the roll of the die, it is used to generate draws with replacement.\n\n")
	fmt.Fprintf(&b, "I have drawn a total of %d balls with replacement. The result is %d \"N\" balls and %d \"G\" balls.\n",
		c.NDrawsFromCage, c.NDraws, c.NDrawsFromCage-c.NDraws)
	b.WriteString("After observing this outcome, which cage do you think generated the observations? Your decision is correct if the balls were drawn from that cage.\n")
	b.WriteString(closing)
	return b.String(), nil
}

const (
	urnIntro = "This is an experiment in the economics of decision making. Various agencies have provided funds for the experiment. " +
		"Your earnings will depend partly on your decisions and partly on chance. If you are careful and make good decisions, " +
		"you may earn a considerable amount of money, which will be paid to you, privately, in cash, at the end of the experiment. " +
		"In addition to the money that you earn during the experiment, you will also receive $6. This payment is to compensate you for showing up today."

	urnReasoning = "\n" +
		"YOU ARE WELCOME TO ALSO DESCRIBE YOUR REASONING, BROKEN INTO SEPARATE STEPS, TO EXPLAIN HOW YOU ARRIVED AT YOUR FINAL ANSWER P. \n" +
		"Please state your answer in the following format at the end.\n" +
		"Final answer: [your P value here].\n"
	urnNoReasoning = "\n" +
		"PLEASE JUST REPORT P AND DO NOT PROVIDE ANY REASONING AS TO HOW YOU ARRIVED AT THE VALUE P. \n" +
		"Please state your answer in the following format.\n" +
		"Final answer: [your P value here].\n"
)

// urnThresholds maps the prior label to the highest die face that selects urn A.
var urnThresholds = map[string]int{
	"1/2": 3,
	"2/3": 4,
}

// UrnPrompt renders the urn task and its payment rule.
func UrnPrompt(u Urn, instruction specs.Instruction) (string, error) {
	threshold, ok := urnThresholds[u.PriorLabel]
	if !ok {
		return "", fmt.Errorf("invalid prior value %q", u.PriorLabel)
	}
	if u.NDrawsFromCage < 1 {
		return "", fmt.Errorf("ndraws_from_cage must be positive, got %d", u.NDrawsFromCage)
	}
	if len(u.Outcome) != u.NDrawsFromCage {
		return "", fmt.Errorf("outcome %q does not have %d draws", u.Outcome, u.NDrawsFromCage)
	}
	closing, err := pick(instruction, urnReasoning, urnNoReasoning)
	if err != nil {
		return "", err
	}

	sample := "1 ball"
	replacement := ""
	if u.NDrawsFromCage > 1 {
		sample = fmt.Sprintf("%d balls", u.NDrawsFromCage)
		replacement = " with replacement"
	}
	draws := strings.Join(strings.Split(u.Outcome, ""), ", ")

	var b strings.Builder
	b.WriteString(urnIntro)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "This experiment involves two stages. In stage 1 we will show you some information including the result of a drawing of %s%s from one of two possible cages, "+
		"each containing different numbers of light and dark balls. Then at the start of stage 2 you will report a number P between 0 and 1. "+
		"After your report, we will draw a random number U that is equally likely to be any number between 0 and 1. "+
		"Your payoff from this experiment will either be $1000 or $0 depending on your report P and the random number U.\n\n", sample, replacement)
	fmt.Fprintf(&b, "Let's describe the two stages in more detail now. In stage 1 we will show you %s that are drawn at random%s from one of two possible urns labelled A and B.\n\n", sample, replacement)
	b.WriteString("Urn A contains 2 light balls and 1 dark ball.\nUrn B contains 1 light ball and 2 dark balls.\n\n")
	fmt.Fprintf(&b, "We select the urn, A or B, from which we draw the sample of %s by the outcome of throwing a 6 sided die.\n", sample)
	b.WriteString("We do not show you the outcome of this throw of the die but we do tell you the rule we use to select urn A or B.\n\n")
	fmt.Fprintf(&b, "If the outcome of the die throw is 1 to %d we select urn A.\n", threshold)
	fmt.Fprintf(&b, "If the outcome of the die throw is %d to 6, we use urn B to draw the random sample of %s%s.\n\n", threshold+1, sample, replacement)
	fmt.Fprintf(&b, "Once you see the outcome of the sample of %s, stage 1 is over and stage 2 begins.\n\n", sample)
	b.WriteString("At the start of stage 2 we ask you to report a number P between 0 and 1. Your payoff from this experiment depend on another random number, which we call U, " +
		"which we draw after you report the number P. We draw the random number U in a way that every possible number between 0 and 1 has an equal chance of being selected.\n\n")
	b.WriteString("Here is how you will be paid from participating in this experiment. There are two possible cases:\n\n")
	fmt.Fprintf(&b, "Case 1. If the number U is less than or equal to P then you will receive $1000 if the sample of %s we showed you in stage 1 was from urn A and $0 otherwise.\n", sample)
	b.WriteString("Case 2. If the number U is between the number P you report and 1, you will receive $1000 with probability equal to the realized value of U, but with probability 1-U you will get $0.\n\n")
	b.WriteString("OK, this is the setup. Let's now start begin this experiment, starting with stage 1.\n\n")
	fmt.Fprintf(&b, "We have tossed the die (the outcome we don't show to you) and selected one of these urns according to the rule given above "+
		"(i.e. urn A if the die throw was 1 to %d, and urn B otherwise). We have drawn %s%s from the selected urn and the outcome is %s, i.e., %s.\n\n",
		threshold, sample, replacement, draws, u.OutcomeExpand)
	b.WriteString("Now, we are at stage 2 where we are asking you, given the information from stage 1 to report a number P between 0 and 1 " +
		"that in conjunction with the random number U will determine if you get either $1000 or $0 according to the rule given in cases 1 and 2 above.\n\n")
	b.WriteString("Please report a number P between 0 and 1 that maximizes your probability of winning $1000 in this experiment.\n")
	b.WriteString(closing)
	return b.String(), nil
}

func pick(instruction specs.Instruction, reasoning, noReasoning string) (string, error) {
	switch instruction {
	case specs.InstructionReasoning:
		return reasoning, nil
	case specs.InstructionNoReasoning:
		return noReasoning, nil
	default:
		return "", fmt.Errorf("invalid instruction %q", instruction)
	}
}
