// Package posterior computes the normative Bayesian answer for the two urn
// experiments. Arithmetic is exact (math/big.Rat) until the final conversion.
package posterior

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

var (
	zero = big.NewRat(0, 1)
	one  = big.NewRat(1, 1)
)

// Binomial returns P(A | k successes in n draws with replacement) given the
// per-draw success probabilities under A and B and the prior P(A).
func Binomial(k, n int, pA, pB, priorA *big.Rat) (float64, error) {
	if n < 0 || k < 0 || k > n {
		return 0, fmt.Errorf("invalid draw counts k=%d n=%d", k, n)
	}
	for _, p := range []*big.Rat{pA, pB, priorA} {
		if p == nil || p.Cmp(zero) < 0 || p.Cmp(one) > 0 {
			return 0, fmt.Errorf("probability %v outside [0,1]", p)
		}
	}
	priorB := new(big.Rat).Sub(one, priorA)

	weightA := new(big.Rat).Mul(likelihood(k, n, pA), priorA)
	weightB := new(big.Rat).Mul(likelihood(k, n, pB), priorB)
	total := new(big.Rat).Add(weightA, weightB)
	if total.Sign() == 0 {
		return 0, errors.New("observation has zero probability under both hypotheses")
	}
	post, _ := new(big.Rat).Quo(weightA, total).Float64()
	return post, nil
}

// likelihood is C(n,k) p^k (1-p)^(n-k).
func likelihood(k, n int, p *big.Rat) *big.Rat {
	coef := new(big.Rat).SetInt(new(big.Int).Binomial(int64(n), int64(k)))
	q := new(big.Rat).Sub(one, p)
	return coef.Mul(coef, new(big.Rat).Mul(pow(p, k), pow(q, n-k)))
}

func pow(x *big.Rat, e int) *big.Rat {
	out := new(big.Rat).Set(one)
	for i := 0; i < e; i++ {
		out.Mul(out, x)
	}
	return out
}

// Cage describes an El-Gamal and Grether bingo-cage trial.
type Cage struct {
	NBalls            int // balls per cage
	CageABallsMarkedN int
	CageBBallsMarkedN int
	PriorSides        int // sides of the die that picks the cage
	PriorA            int // die faces 1..PriorA select cage A
	Draws             int // draws with replacement
	MarkedNDrawn      int // "N" balls among the draws
}

// CagePosterior returns P(cage A | draws).
func CagePosterior(c Cage) (float64, error) {
	if c.NBalls <= 0 || c.PriorSides <= 0 {
		return 0, fmt.Errorf("cage design needs positive nballs and die sides, got %d and %d", c.NBalls, c.PriorSides)
	}
	pA := big.NewRat(int64(c.CageABallsMarkedN), int64(c.NBalls))
	pB := big.NewRat(int64(c.CageBBallsMarkedN), int64(c.NBalls))
	prior := big.NewRat(int64(c.PriorA), int64(c.PriorSides))
	return Binomial(c.MarkedNDrawn, c.Draws, pA, pB, prior)
}

// Holt and Smith urns: A holds 2 light and 1 dark ball, B holds 1 light and 2 dark.
var (
	urnADark = big.NewRat(1, 3)
	urnBDark = big.NewRat(2, 3)
)

// UrnPosterior returns P(urn A | dark balls among draws). priorLabel is the
// prior written as a fraction, for example "1/2" or "2/3".
func UrnPosterior(priorLabel string, draws, dark int) (float64, error) {
	prior, ok := new(big.Rat).SetString(strings.ReplaceAll(priorLabel, " ", ""))
	if !ok {
		return 0, fmt.Errorf("invalid prior %q", priorLabel)
	}
	return Binomial(dark, draws, urnADark, urnBDark, prior)
}
