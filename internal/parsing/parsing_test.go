package parsing

import (
	"math"
	"testing"
)

func TestParseBinaryChoice(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Answer
	}{
		{name: "cage a", in: "Step 1: count the balls.\nFinal answer: Cage A.", want: Answer{Kind: Integer, Int: 1}},
		{name: "cage b lowercase", in: "final answer: cage b", want: Answer{Kind: Integer, Int: 0}},
		{name: "spaced out", in: "Final answer: C a g e   B", want: Answer{Kind: Integer, Int: 0}},
		{name: "both on last line", in: "reasoning\nCage A or cage b, hard to say", want: Answer{}},
		{name: "only earlier line", in: "I lean to Cage A\nno idea", want: Answer{}},
		{name: "indifferent", in: "Both cages fit.\nThey are equally likely", want: Answer{Kind: Real, Real: Midpoint}},
		{name: "fifty fifty", in: "it's 50/50", want: Answer{Kind: Real, Real: Midpoint}},
		{name: "trailing newline leaves an empty last line", in: "Final answer: Cage A.\n", want: Answer{}},
		{name: "trailing spaces on last line", in: "Final answer: Cage B.  ", want: Answer{Kind: Integer, Int: 0}},
		{name: "empty", in: "", want: Answer{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseBinaryChoice(tt.in); got != tt.want {
				t.Fatalf("ParseBinaryChoice(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseBinaryChoiceRendersLikeHistoricalOutput(t *testing.T) {
	if got := ParseBinaryChoice("...\nFinal answer: Cage A.").String(); got != "1" {
		t.Fatalf("expected \"1\", got %q", got)
	}
	if got := ParseBinaryChoice("Final answer: Cage A and Cage B").String(); got != "" {
		t.Fatalf("expected empty rendering for undetermined, got %q", got)
	}
}

func TestParseProbability(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    float64
		missing bool
	}{
		{name: "latex fraction beats trailing integer", in: "Final answer: \\frac{2}{3} (I am 100 percent sure)", want: 2.0 / 3.0},
		{name: "dfrac", in: "FINAL ANSWER: $\\dfrac{3}{4}$", want: 0.75},
		{name: "slash fraction", in: "Final answer: 2/4", want: 0.5},
		{name: "unicode fraction slash", in: "Final answer: 1⁄4", want: 0.25},
		{name: "decimal", in: "Reasoning 1/2 here.\nFinal answer: 0.71.", want: 0.71},
		{name: "leading dot decimal", in: "final answer: .3", want: 0.3},
		{name: "integer", in: "Final Answer: 1", want: 1},
		{name: "vulgar fraction", in: "Final answer: ⅔", want: 2.0 / 3.0},
		{name: "vulgar half", in: "final answer is ½", want: 0.5},
		{name: "last marker wins", in: "Final answer: 0.2\nOn reflection, final answer: 0.4", want: 0.4},
		{name: "nothing after marker falls back to marker span", in: "0.9 final answer", missing: true},
		{name: "no marker", in: "P = 0.66", missing: true},
		{name: "division by zero", in: "Final answer: 3/0", missing: true},
		{name: "marker without number", in: "Final answer: unsure", missing: true},
		{name: "empty", in: "", missing: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseProbability(tt.in)
			if tt.missing {
				if !got.IsMissing() {
					t.Fatalf("ParseProbability(%q) = %+v, want missing", tt.in, got)
				}
				return
			}
			v, ok := got.Float()
			if !ok {
				t.Fatalf("ParseProbability(%q) missing, want %v", tt.in, tt.want)
			}
			if math.Abs(v-tt.want) > 1e-9 {
				t.Fatalf("ParseProbability(%q) = %v, want %v", tt.in, v, tt.want)
			}
		})
	}
}

func TestParseProbabilityLatexRoundsToFourPlaces(t *testing.T) {
	v, ok := ParseProbability("Final answer: \\frac{2}{3}").Float()
	if !ok {
		t.Fatal("expected a value")
	}
	if math.Round(v*10000)/10000 != 0.6667 {
		t.Fatalf("expected 0.6667 after rounding, got %v", v)
	}
}

func TestParseProbabilityMarkerFallbackUsesMarkerSpan(t *testing.T) {
	// Nothing follows the marker, so the span starting at the marker is parsed.
	got := ParseProbability("Here is my final answer")
	if !got.IsMissing() {
		t.Fatalf("expected missing, got %+v", got)
	}
}

func TestNewAnswerTyping(t *testing.T) {
	if got := NewAnswer(1.0); got.Kind != Integer || got.Int != 1 {
		t.Fatalf("expected integer 1, got %+v", got)
	}
	if got := NewAnswer(0.25); got.Kind != Real || got.Real != 0.25 {
		t.Fatalf("expected real 0.25, got %+v", got)
	}
	if got := NewAnswer(math.NaN()); !got.IsMissing() {
		t.Fatalf("expected NaN to be missing, got %+v", got)
	}
}

func TestParseAnswerRoundTrip(t *testing.T) {
	for _, in := range []string{"1", "0", "0.5", ""} {
		a, err := ParseAnswer(in)
		if err != nil {
			t.Fatalf("ParseAnswer(%q): %v", in, err)
		}
		if a.String() != in {
			t.Fatalf("ParseAnswer(%q).String() = %q", in, a.String())
		}
	}
	if _, err := ParseAnswer("cage"); err == nil {
		t.Fatal("expected error for non-numeric answer")
	}
	if a, _ := ParseAnswer("1.0"); a.Kind != Integer {
		t.Fatalf("expected 1.0 to type as integer, got %+v", a)
	}
}
