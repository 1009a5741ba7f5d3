package parsing

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/runenames"
)

// FinalAnswerMarker locates the answer span in free-form text. Matching is case-insensitive.
const FinalAnswerMarker = "final answer"

const vulgarFractionPrefix = "VULGAR FRACTION "

var (
	markerPattern = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(FinalAnswerMarker))

	// The order of numberPatterns is the parse precedence. Historical results
	// depend on it, so new formats go after the existing ones.
	latexFraction = regexp.MustCompile(`\\[dt]?frac\s*\{\s*(\d+(?:\.\d+)?)\s*\}\s*\{\s*(\d+(?:\.\d+)?)\s*\}`)
	slashFraction = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*[/⁄]\s*(\d+(?:\.\d+)?)`)
	decimalNumber = regexp.MustCompile(`\d*\.\d+`)
	integerNumber = regexp.MustCompile(`\d+`)
)

var numeratorWords = map[string]float64{
	"ZERO": 0, "ONE": 1, "TWO": 2, "THREE": 3, "FOUR": 4,
	"FIVE": 5, "SIX": 6, "SEVEN": 7, "EIGHT": 8, "NINE": 9,
}

var denominatorWords = map[string]float64{
	"HALF": 2, "HALVES": 2,
	"THIRD": 3, "THIRDS": 3,
	"QUARTER": 4, "QUARTERS": 4,
	"FIFTH": 5, "FIFTHS": 5,
	"SIXTH": 6, "SIXTHS": 6,
	"SEVENTH": 7, "SEVENTHS": 7,
	"EIGHTH": 8, "EIGHTHS": 8,
	"NINTH": 9, "NINTHS": 9,
	"TENTH": 10, "TENTHS": 10,
}

// ParseProbability extracts the number that follows the last "final answer"
// marker. Text without the marker is Missing regardless of the numbers it holds.
func ParseProbability(text string) Answer {
	locs := markerPattern.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return Answer{}
	}
	last := locs[len(locs)-1]
	span := text[last[1]:]
	if strings.TrimSpace(span) == "" {
		span = text[last[0]:]
	}
	if v, ok := parseNumber(span); ok {
		return NewAnswer(v)
	}
	return Answer{}
}

// parseNumber tries each supported notation in precedence order; the first
// notation present in s decides the result.
func parseNumber(s string) (float64, bool) {
	if m := latexFraction.FindStringSubmatch(s); m != nil {
		return divide(m[1], m[2])
	}
	if m := slashFraction.FindStringSubmatch(s); m != nil {
		return divide(m[1], m[2])
	}
	if m := decimalNumber.FindString(s); m != "" {
		v, err := strconv.ParseFloat(m, 64)
		return v, err == nil
	}
	if m := integerNumber.FindString(s); m != "" {
		v, err := strconv.ParseFloat(m, 64)
		return v, err == nil
	}
	for _, r := range s {
		name := runenames.Name(r)
		if strings.HasPrefix(name, vulgarFractionPrefix) {
			return vulgarFraction(strings.TrimPrefix(name, vulgarFractionPrefix))
		}
	}
	return 0, false
}

func divide(num, den string) (float64, bool) {
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, false
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0, false
	}
	return n / d, true
}

// vulgarFraction decodes the tail of a character name such as "TWO THIRDS".
func vulgarFraction(words string) (float64, bool) {
	parts := strings.Fields(words)
	if len(parts) != 2 {
		return 0, false
	}
	n, ok := numeratorWords[parts[0]]
	if !ok {
		return 0, false
	}
	d, ok := denominatorWords[parts[1]]
	if !ok {
		return 0, false
	}
	return n / d, true
}
