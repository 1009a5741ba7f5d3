package prompts

import (
	"strings"
	"testing"

	"github.com/mwiater/bayesbatch/internal/specs"
)

func sampleCage() Cage {
	return Cage{
		Pay:               1,
		NBalls:            6,
		NDrawsFromCage:    6,
		CageABallsMarkedN: 4,
		CageBBallsMarkedN: 3,
		NBallsPriorCage:   6,
		Priors:            2,
		NDraws:            4,
	}
}

func TestCagePromptFillsDesign(t *testing.T) {
	got, err := CagePrompt(sampleCage(), specs.InstructionReasoning)
	if err != nil {
		t.Fatalf("CagePrompt: %v", err)
	}
	for _, want := range []string{
		cageIntroPaid,
		"each containing 6 balls",
		`Cage A contains 4 balls labeled "N" and 2 balls labeled "G"`,
		`Cage B contains 3 balls labeled "N" and 3 balls labeled "G"`,
		"A 6-sided die",
		"shows 1 through 2, I will use Cage A; if it shows 3 through 6",
		`The result is 4 "N" balls and 2 "G" balls.`,
		"YOU ARE WELCOME TO ALSO DESCRIBE YOUR REASONING",
		`"Final answer: Cage A." or "Final answer: Cage B.".`,
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("prompt missing %q:\n%s", want, got)
		}
	}
}

func TestCagePromptVariants(t *testing.T) {
	c := sampleCage()
	c.Pay = 0
	got, err := CagePrompt(c, specs.InstructionNoReasoning)
	if err != nil {
		t.Fatalf("CagePrompt: %v", err)
	}
	if !strings.HasPrefix(got, cageIntroUnpaid+"\n\n") {
		t.Fatalf("unexpected intro: %q", got[:80])
	}
	if !strings.Contains(got, "PLEASE JUST REPORT YOU FINAL ANSWER") || strings.Contains(got, "YOU ARE WELCOME") {
		t.Fatalf("wrong instruction block:\n%s", got)
	}
}

func TestCagePromptRejectsBadDesign(t *testing.T) {
	cases := map[string]func(*Cage){
		"pay":    func(c *Cage) { c.Pay = 2 },
		"priors": func(c *Cage) { c.Priors = 7 },
		"ndraws": func(c *Cage) { c.NDraws = 9 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := sampleCage()
			mutate(&c)
			if _, err := CagePrompt(c, specs.InstructionReasoning); err == nil {
				t.Fatal("expected error")
			}
		})
	}
	if _, err := CagePrompt(sampleCage(), "loud"); err == nil {
		t.Fatal("expected instruction error")
	}
}

func TestUrnPromptThresholdsAndSample(t *testing.T) {
	tests := []struct {
		name  string
		urn   Urn
		wants []string
	}{
		{
			name: "single draw even prior",
			urn:  Urn{PriorLabel: "1/2", NDrawsFromCage: 1, Outcome: "D", OutcomeExpand: "Dark"},
			wants: []string{
				"a drawing of 1 ball from one of two possible cages",
				"If the outcome of the die throw is 1 to 3 we select urn A.",
				"If the outcome of the die throw is 4 to 6, we use urn B to draw the random sample of 1 ball.",
				"the outcome is D, i.e., Dark.",
			},
		},
		{
			name: "several draws two thirds prior",
			urn:  Urn{PriorLabel: "2/3", NDrawsFromCage: 3, Outcome: "DLD", OutcomeExpand: "Dark, Light, Dark"},
			wants: []string{
				"a drawing of 3 balls with replacement from one of two possible cages",
				"If the outcome of the die throw is 1 to 4 we select urn A.",
				"If the outcome of the die throw is 5 to 6",
				"the outcome is D, L, D, i.e., Dark, Light, Dark.",
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := UrnPrompt(tc.urn, specs.InstructionReasoning)
			if err != nil {
				t.Fatalf("UrnPrompt: %v", err)
			}
			for _, want := range tc.wants {
				if !strings.Contains(got, want) {
					t.Fatalf("prompt missing %q:\n%s", want, got)
				}
			}
			if !strings.HasSuffix(got, "Final answer: [your P value here].\n") {
				t.Fatal("prompt must end with the answer format")
			}
		})
	}
}

func TestUrnPromptRejectsBadDesign(t *testing.T) {
	if _, err := UrnPrompt(Urn{PriorLabel: "3/4", NDrawsFromCage: 1, Outcome: "D"}, specs.InstructionReasoning); err == nil {
		t.Fatal("expected prior error")
	}
	if _, err := UrnPrompt(Urn{PriorLabel: "1/2", NDrawsFromCage: 2, Outcome: "D"}, specs.InstructionReasoning); err == nil {
		t.Fatal("expected outcome length error")
	}
	got, err := UrnPrompt(Urn{PriorLabel: "1/2", NDrawsFromCage: 1, Outcome: "L", OutcomeExpand: "Light"}, specs.InstructionNoReasoning)
	if err != nil {
		t.Fatalf("UrnPrompt: %v", err)
	}
	if !strings.Contains(got, "PLEASE JUST REPORT P") {
		t.Fatal("expected no-reasoning block")
	}
}

func TestInstructionLinesKeepTrailingSpace(t *testing.T) {
	tests := []struct {
		name        string
		render      func(specs.Instruction) (string, error)
		instruction specs.Instruction
		want        string
	}{
		{"cage reasoning", func(in specs.Instruction) (string, error) { return CagePrompt(sampleCage(), in) }, specs.InstructionReasoning,
			"HOW YOU ARRIVED AT YOUR FINAL ANSWER. \nPlease state your answer in the following format at the end.\n"},
		{"cage no reasoning", func(in specs.Instruction) (string, error) { return CagePrompt(sampleCage(), in) }, specs.InstructionNoReasoning,
			"HOW YOU ARRIVED AT YOUR FINAL ANSWER. \nPlease state your answer in the following format.\n"},
		{"urn reasoning", func(in specs.Instruction) (string, error) {
			return UrnPrompt(Urn{PriorLabel: "1/2", NDrawsFromCage: 1, Outcome: "D", OutcomeExpand: "Dark"}, in)
		}, specs.InstructionReasoning, "YOUR FINAL ANSWER P. \nPlease state"},
		{"urn no reasoning", func(in specs.Instruction) (string, error) {
			return UrnPrompt(Urn{PriorLabel: "1/2", NDrawsFromCage: 1, Outcome: "D", OutcomeExpand: "Dark"}, in)
		}, specs.InstructionNoReasoning, "AT THE VALUE P. \nPlease state"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.render(tc.instruction)
			if err != nil {
				t.Fatalf("render: %v", err)
			}
			if !strings.Contains(got, tc.want) {
				t.Fatalf("prompt missing %q:\n%q", tc.want, got)
			}
		})
	}
}
