package parsing

import "strings"

// Normalized forms of the two mutually exclusive answers.
const (
	choiceA = "cagea"
	choiceB = "cageb"
)

// Midpoint is reported when the response declares both options equally likely.
const Midpoint = 0.5

var indifferenceSynonyms = []string{
	"equallylikely",
	"indifferent",
	"equalprobability",
	"fiftyfifty",
	"50/50",
}

// ParseBinaryChoice reads the last line of a response and maps "Cage A" to 1
// and "Cage B" to 0. Mentioning both, or neither, is Missing unless the line
// states indifference, which maps to Midpoint. The last line is taken as is:
// a response ending in a newline has an empty last line.
func ParseBinaryChoice(text string) Answer {
	lines := strings.Split(text, "\n")
	last := strings.ToLower(strings.ReplaceAll(lines[len(lines)-1], " ", ""))

	hasA := strings.Contains(last, choiceA)
	hasB := strings.Contains(last, choiceB)
	switch {
	case hasA && hasB:
		return Answer{}
	case hasA:
		return NewAnswer(1)
	case hasB:
		return NewAnswer(0)
	}

	for _, synonym := range indifferenceSynonyms {
		if strings.Contains(last, synonym) {
			return NewAnswer(Midpoint)
		}
	}
	return Answer{}
}
