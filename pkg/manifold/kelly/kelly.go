// Package kelly sizes bets on Manifold CPMM markets by maximising expected
// log wealth under a subjective probability.
//
// The payout of a bet is taken from the simulated CPMM trade, so the sizing
// accounts for slippage and fees rather than assuming a fixed price.
package kelly

import (
	"context"
	"fmt"
	"math"

	"github.com/phenomenon0/manifold-go/pkg/manifold/cpmm"
)

// BetProposal is the bet that maximises expected log wealth.
type BetProposal struct {
	Size    int64        `json:"size"`
	Outcome cpmm.Outcome `json:"outcome"`
}

// ExpectedLogWealth returns E[ln(wealth)] after betting bet on outcome, where
// subjectiveProb is the bettor's probability that the market resolves YES.
//
// A winning bet pays the shares bought; a losing bet forfeits bet. For YES:
//
//	E = q*ln(balance - bet + shares) + (1-q)*ln(balance - bet)
//
// and mirrored for NO. Non-positive wealth in either branch is an ErrDomain.
func ExpectedLogWealth(s cpmm.Snapshot, subjectiveProb, bet float64, outcome cpmm.Outcome, balance float64) (float64, error) {
	if !outcome.Valid() {
		return 0, fmt.Errorf("%w: %q", cpmm.ErrInvalidOutcome, string(outcome))
	}
	if err := checkProbability(subjectiveProb); err != nil {
		return 0, err
	}

	shares, err := cpmm.SharesBought(s, bet, outcome)
	if err != nil {
		return 0, err
	}

	lose := balance - bet
	if lose <= 0 {
		return 0, fmt.Errorf("%w: wealth after losing bet %v of balance %v is %v", cpmm.ErrDomain, bet, balance, lose)
	}
	win := lose + shares
	if !(win > 0) {
		return 0, fmt.Errorf("%w: wealth after winning bet %v is %v", cpmm.ErrDomain, bet, win)
	}

	q := subjectiveProb
	if outcome == cpmm.OutcomeNo {
		q = 1 - q
	}
	return q*math.Log(win) + (1-q)*math.Log(lose), nil
}

// ChooseOutcome returns YES when the subjective probability is above the
// market's and NO otherwise, including when they are equal.
func ChooseOutcome(subjectiveProb, marketProb float64) cpmm.Outcome {
	if subjectiveProb > marketProb {
		return cpmm.OutcomeYes
	}
	return cpmm.OutcomeNo
}

// OptimalBet finds the integer bet in [0, balance) that maximises expected
// log wealth, using the default Engine.
func OptimalBet(s cpmm.Snapshot, subjectiveProb float64, balance int64) (BetProposal, error) {
	return defaultEngine.OptimalBet(context.Background(), s, subjectiveProb, balance)
}

func checkProbability(q float64) error {
	if !(q >= 0 && q <= 1) {
		return fmt.Errorf("%w: subjective probability %v outside [0, 1]", cpmm.ErrInvalidArgument, q)
	}
	return nil
}
