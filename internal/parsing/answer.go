// Package parsing turns free-text model responses into typed answers.
//
// Every parser either returns a definite answer or Missing. Ambiguous input
// never produces a partial guess.
package parsing

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind discriminates the Answer variant.
type Kind int

const (
	Missing Kind = iota
	Integer
	Real
)

// Answer is a parsed response value: an integer, a real number, or missing.
type Answer struct {
	Kind Kind
	Int  int64
	Real float64
}

// NewAnswer types v as Integer when it is integral and Real otherwise.
// NaN and infinities are Missing.
func NewAnswer(v float64) Answer {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Answer{}
	}
	if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
		return Answer{Kind: Integer, Int: int64(v)}
	}
	return Answer{Kind: Real, Real: v}
}

// IsMissing reports whether no answer could be determined.
func (a Answer) IsMissing() bool { return a.Kind == Missing }

// Float returns the numeric value and whether one exists.
func (a Answer) Float() (float64, bool) {
	switch a.Kind {
	case Integer:
		return float64(a.Int), true
	case Real:
		return a.Real, true
	default:
		return 0, false
	}
}

// String renders the answer for tabular output. Missing renders as "".
func (a Answer) String() string {
	switch a.Kind {
	case Integer:
		return strconv.FormatInt(a.Int, 10)
	case Real:
		return strconv.FormatFloat(a.Real, 'f', -1, 64)
	default:
		return ""
	}
}

// ParseAnswer reads a value previously rendered with String.
func ParseAnswer(s string) (Answer, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return Answer{}, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Answer{}, fmt.Errorf("parse answer %q: %w", s, err)
	}
	return NewAnswer(v), nil
}
