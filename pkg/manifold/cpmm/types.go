// Package cpmm implements the share math of Manifold's constant-product
// market maker ("Maniswap").
//
// A cpmm-1 market holds YES and NO share reserves y and n and a weight p
// fixed at creation. Every trade keeps the invariant
//
//	k = y^p * n^(1-p)
//
// constant. The implied probability of YES is p*n / (p*n + (1-p)*y).
//
// All functions are pure and operate on an immutable Snapshot.
package cpmm

import "fmt"

// Outcome is the side of a binary market a bet backs.
type Outcome string

const (
	OutcomeYes Outcome = "YES"
	OutcomeNo  Outcome = "NO"
)

// Valid reports whether o is YES or NO.
func (o Outcome) Valid() bool {
	return o == OutcomeYes || o == OutcomeNo
}

// Opposite returns the other side of a binary market.
func (o Outcome) Opposite() Outcome {
	if o == OutcomeYes {
		return OutcomeNo
	}
	return OutcomeYes
}

func (o Outcome) validate() error {
	if !o.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidOutcome, string(o))
	}
	return nil
}

// Pool holds the outstanding share reserves of a binary CPMM market.
type Pool struct {
	Yes float64 `json:"YES"`
	No  float64 `json:"NO"`
}

// Snapshot is a read-only view of the market fields the calculators need.
type Snapshot struct {
	// P is the CPMM weight in (0,1). Nil when the market is not cpmm-1.
	P *float64

	// Pool is nil when the market reports a scalar pool or none at all.
	Pool *Pool

	// Probability is the server-reported probability. Zero means unset.
	Probability float64

	// Min and Max bound the resolution value of pseudo-numeric markets.
	Min *float64
	Max *float64

	IsLogScale bool
}

// weights returns p and the pool or ErrInvalidState when either is missing.
func (s Snapshot) weights() (float64, Pool, error) {
	if s.P == nil {
		return 0, Pool{}, fmt.Errorf("%w: market has no CPMM weight p", ErrInvalidState)
	}
	if s.Pool == nil {
		return 0, Pool{}, fmt.Errorf("%w: market pool is not a YES/NO mapping", ErrInvalidState)
	}
	p := *s.P
	if !(p > 0 && p < 1) {
		return 0, Pool{}, fmt.Errorf("%w: CPMM weight p=%v outside (0,1)", ErrInvalidState, p)
	}
	if s.Pool.Yes < 0 || s.Pool.No < 0 {
		return 0, Pool{}, fmt.Errorf("%w: negative pool reserves %+v", ErrInvalidState, *s.Pool)
	}
	return p, *s.Pool, nil
}

// Bounds returns the pseudo-numeric resolution bounds of the market.
func (s Snapshot) Bounds() (lo, hi float64, err error) {
	if s.Min == nil || s.Max == nil {
		return 0, 0, fmt.Errorf("%w: market has no numeric bounds", ErrInvalidState)
	}
	return *s.Min, *s.Max, nil
}
