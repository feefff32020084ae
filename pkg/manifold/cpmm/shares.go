package cpmm

import (
	"fmt"
	"math"
)

const (
	// FlatFee is deducted from every purchase regardless of its size.
	FlatFee = 0.1

	// ProportionalFeeRate weights the liquidity fee term, charged on the
	// amount bet times the probability of the side not purchased. It is
	// currently zero, so the term is computed but never changes a result.
	ProportionalFeeRate = 0.0
)

// Trade describes one simulated purchase against a CPMM pool.
type Trade struct {
	Outcome Outcome
	Amount  float64

	// SharesBeforeFee is what the curve yields; Shares is what the bettor
	// receives once Fee is deducted. Shares may be negative for tiny bets.
	SharesBeforeFee float64
	Fee             float64
	Shares          float64

	PoolBefore Pool
	PoolAfter  Pool

	ProbabilityBefore float64
	ProbabilityAfter  float64

	InvariantBefore float64
	InvariantAfter  float64
}

// Invariant returns k = y^p * n^(1-p).
func Invariant(p float64, pool Pool) float64 {
	return math.Pow(pool.Yes, p) * math.Pow(pool.No, 1-p)
}

// PoolProbability returns the YES probability implied by the pool.
func PoolProbability(p float64, pool Pool) float64 {
	return p * pool.No / (p*pool.No + (1-p)*pool.Yes)
}

// Simulate models a bet of amount on outcome without touching the market.
//
// The amount is first added to both reserves; the reserve on the purchased
// side is then solved from the invariant, and the difference is the number of
// shares bought.
func Simulate(s Snapshot, amount float64, outcome Outcome) (Trade, error) {
	if err := outcome.validate(); err != nil {
		return Trade{}, err
	}
	if !(amount >= 0) || math.IsInf(amount, 1) {
		return Trade{}, fmt.Errorf("%w: bet amount %v must be a finite non-negative number", ErrInvalidArgument, amount)
	}
	p, pool, err := s.weights()
	if err != nil {
		return Trade{}, err
	}

	k := Invariant(p, pool)
	y := pool.Yes + amount
	n := pool.No + amount

	t := Trade{
		Outcome:           outcome,
		Amount:            amount,
		PoolBefore:        pool,
		ProbabilityBefore: PoolProbability(p, pool),
		InvariantBefore:   k,
	}

	var unbought float64 // probability of the side not purchased, after the bet
	switch outcome {
	case OutcomeYes:
		y2 := math.Pow(k/math.Pow(n, 1-p), 1/p)
		t.SharesBeforeFee = y - y2
		t.PoolAfter = Pool{Yes: y2, No: n}
		t.ProbabilityAfter = PoolProbability(p, t.PoolAfter)
		unbought = 1 - t.ProbabilityAfter
	case OutcomeNo:
		n2 := math.Pow(k/math.Pow(y, p), 1/(1-p))
		t.SharesBeforeFee = n - n2
		t.PoolAfter = Pool{Yes: y, No: n2}
		t.ProbabilityAfter = PoolProbability(p, t.PoolAfter)
		unbought = t.ProbabilityAfter
	}

	t.Fee = ProportionalFeeRate*unbought*amount + FlatFee
	t.Shares = t.SharesBeforeFee - t.Fee
	if math.IsNaN(t.Shares) {
		return Trade{}, fmt.Errorf("%w: %s solve on pool %+v with bet %v is undefined", ErrDomain, outcome, pool, amount)
	}
	t.InvariantAfter = Invariant(p, t.PoolAfter)

	return t, nil
}

// SharesBought returns the number of shares a bet of amount on outcome
// yields after fees. Non-positive results mean the trade is not worth making.
func SharesBought(s Snapshot, amount float64, outcome Outcome) (float64, error) {
	t, err := Simulate(s, amount, outcome)
	if err != nil {
		return 0, err
	}
	return t.Shares, nil
}
