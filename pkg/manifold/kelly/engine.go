package kelly

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/phenomenon0/manifold-go/pkg/manifold/cpmm"
)

const (
	// ctxCheckInterval is how many candidates are scanned between context checks.
	ctxCheckInterval = 4096
)

// Observer receives a record of every completed search.
type Observer interface {
	ObserveKellySearch(outcome string, size int64, candidates int64, d time.Duration)
}

// EngineConfig configures the search engine.
type EngineConfig struct {
	Workers  int      // Default: runtime.GOMAXPROCS(0)
	MinChunk int64    // Default: 1024; searches no larger than this run on one goroutine
	Observer Observer // Optional
}

// DefaultEngineConfig returns default configuration.
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		Workers:  runtime.GOMAXPROCS(0),
		MinChunk: 1024,
	}
}

// Engine searches bet sizes for the maximum expected log wealth.
//
// Candidates are split into contiguous chunks scanned concurrently. Each chunk
// keeps its first maximum and chunks are merged in increasing order, so ties
// always resolve to the smallest bet whatever the worker count.
type Engine struct {
	workers  int
	minChunk int64
	observer Observer
}

// NewEngine creates a new search engine.
func NewEngine(config *EngineConfig) *Engine {
	if config == nil {
		config = DefaultEngineConfig()
	}

	defaults := DefaultEngineConfig()
	e := &Engine{
		workers:  config.Workers,
		minChunk: config.MinChunk,
		observer: config.Observer,
	}
	if e.workers <= 0 {
		e.workers = defaults.Workers
	}
	if e.minChunk <= 0 {
		e.minChunk = defaults.MinChunk
	}
	return e
}

var defaultEngine = NewEngine(nil)

// Evaluation is a proposal together with the numbers that justify it.
type Evaluation struct {
	Proposal BetProposal `json:"proposal"`

	MarketProb     float64 `json:"market_prob"`
	SubjectiveProb float64 `json:"subjective_prob"`
	Balance        int64   `json:"balance"`

	// LogWealth is the expected log wealth of the proposal; ZeroLogWealth is
	// that of not betting. Edge is their difference and never negative.
	LogWealth     float64 `json:"log_wealth"`
	ZeroLogWealth float64 `json:"zero_log_wealth"`
	Edge          float64 `json:"edge"`

	Trade cpmm.Trade `json:"-"`
}

// OptimalBet finds the integer bet in [0, balance) maximising expected log
// wealth on the side chosen by ChooseOutcome.
func (e *Engine) OptimalBet(ctx context.Context, s cpmm.Snapshot, subjectiveProb float64, balance int64) (BetProposal, error) {
	ev, err := e.Evaluate(ctx, s, subjectiveProb, balance)
	if err != nil {
		return BetProposal{}, err
	}
	return ev.Proposal, nil
}

// Evaluate runs the search and reports the chosen bet with its expected log
// wealth, the no-bet baseline and the simulated trade.
func (e *Engine) Evaluate(ctx context.Context, s cpmm.Snapshot, subjectiveProb float64, balance int64) (*Evaluation, error) {
	if s.Probability == 0 || math.IsNaN(s.Probability) {
		return nil, fmt.Errorf("%w: market probability is not set", cpmm.ErrInvalidState)
	}
	if balance <= 0 {
		return nil, fmt.Errorf("%w: balance %d leaves no bet to consider", cpmm.ErrInvalidArgument, balance)
	}
	if err := checkProbability(subjectiveProb); err != nil {
		return nil, err
	}

	outcome := ChooseOutcome(subjectiveProb, s.Probability)

	// Surface market shape errors before fanning out. Domain errors are per
	// candidate and only exclude that bet size.
	if _, err := cpmm.Simulate(s, 0, outcome); err != nil && !errors.Is(err, cpmm.ErrDomain) {
		return nil, err
	}

	wealth := float64(balance)
	objective := func(bet int64) float64 {
		v, err := ExpectedLogWealth(s, subjectiveProb, float64(bet), outcome, wealth)
		if err != nil || math.IsNaN(v) {
			return math.Inf(-1)
		}
		return v
	}

	start := time.Now()
	size, best, err := e.search(ctx, balance, objective)
	if err != nil {
		return nil, err
	}
	if e.observer != nil {
		e.observer.ObserveKellySearch(string(outcome), size, balance, time.Since(start))
	}

	trade, err := cpmm.Simulate(s, float64(size), outcome)
	if err != nil {
		return nil, err
	}

	zero := objective(0)
	return &Evaluation{
		Proposal:       BetProposal{Size: size, Outcome: outcome},
		MarketProb:     s.Probability,
		SubjectiveProb: subjectiveProb,
		Balance:        balance,
		LogWealth:      best,
		ZeroLogWealth:  zero,
		Edge:           best - zero,
		Trade:          trade,
	}, nil
}

// candidate is the first maximum found in a range of bet sizes.
type candidate struct {
	bet   int64
	value float64
}

// search returns the first bet in [0, n) at which f is maximal.
func (e *Engine) search(ctx context.Context, n int64, f func(int64) float64) (int64, float64, error) {
	if n <= 0 {
		return 0, 0, fmt.Errorf("%w: empty search space", cpmm.ErrInvalidArgument)
	}

	workers := int64(e.workers)
	if workers <= 1 || n <= e.minChunk {
		c, err := scan(ctx, 0, n, f)
		return c.bet, c.value, err
	}

	chunk := (n + workers - 1) / workers
	if chunk < e.minChunk {
		chunk = e.minChunk
	}
	chunks := (n + chunk - 1) / chunk

	results := make([]candidate, chunks)
	g, gctx := errgroup.WithContext(ctx)
	for i := int64(0); i < chunks; i++ {
		lo := i * chunk
		hi := min(lo+chunk, n)
		g.Go(func() error {
			c, err := scan(gctx, lo, hi, f)
			if err != nil {
				return err
			}
			results[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, 0, err
	}

	best := results[0]
	for _, c := range results[1:] {
		if c.value > best.value {
			best = c
		}
	}
	return best.bet, best.value, nil
}

// scan evaluates f over [lo, hi) in increasing order and keeps the first
// maximum.
func scan(ctx context.Context, lo, hi int64, f func(int64) float64) (candidate, error) {
	best := candidate{bet: lo, value: f(lo)}
	for bet := lo + 1; bet < hi; bet++ {
		if (bet-lo)%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return candidate{}, err
			}
		}
		if v := f(bet); v > best.value {
			best = candidate{bet: bet, value: v}
		}
	}
	return best, nil
}
