// Package policy enforces limits on bets proposed by the Kelly engine before
// they are submitted.
package policy

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// BetLimits defines the limits applied to every bet.
type BetLimits struct {
	// Per-bet limits
	MaxBetSize         decimal.Decimal // Max mana per bet
	MinBetSize         decimal.Decimal // Bets below this are skipped
	MaxBalanceFraction decimal.Decimal // Max share of the balance per bet (0-1)

	// Daily limits
	MaxDailyVolume decimal.Decimal // Max mana bet per day
	MaxDailyBets   int             // Max bets per day

	// Market restrictions
	AllowedMarkets []string // If set, only bet on these markets
	BlockedMarkets []string // Markets to never bet on
}

// DefaultBetLimits returns conservative default limits.
func DefaultBetLimits() *BetLimits {
	return &BetLimits{
		MaxBetSize:         decimal.NewFromInt(250),
		MinBetSize:         decimal.NewFromInt(1),
		MaxBalanceFraction: decimal.NewFromFloat(0.25),

		MaxDailyVolume: decimal.NewFromInt(2500),
		MaxDailyBets:   100,
	}
}

// Violation describes why a bet was rejected.
type Violation struct {
	Type   string
	Reason string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("policy %s: %s", v.Type, v.Reason)
}

// Violation types
const (
	ViolationMarket       = "market"
	ViolationMinSize      = "min_size"
	ViolationDailyBets    = "daily_bets"
	ViolationDailyVolume  = "daily_volume"
	ViolationInsufficient = "balance"
)

// Engine enforces bet limits and tracks daily usage.
type Engine struct {
	limits *BetLimits

	mu           sync.Mutex
	dailyVolume  decimal.Decimal
	dailyBets    int
	lastTradeDay int // Year*1000 + day of year
	now          func() time.Time
}

// NewEngine creates a new policy engine with the given limits.
func NewEngine(limits *BetLimits) *Engine {
	if limits == nil {
		limits = DefaultBetLimits()
	}
	return &Engine{
		limits:       limits,
		lastTradeDay: dayKey(time.Now()),
		now:          time.Now,
	}
}

// Limits returns the limits the engine enforces.
func (p *Engine) Limits() BetLimits {
	return *p.limits
}

// Clamp caps a proposed size to the per-bet limits and the remaining daily
// volume. The result may be below MinBetSize; Check rejects it in that case.
func (p *Engine) Clamp(size, balance decimal.Decimal) decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetDailyIfNeeded()

	if p.limits.MaxBetSize.IsPositive() && size.GreaterThan(p.limits.MaxBetSize) {
		size = p.limits.MaxBetSize
	}
	if p.limits.MaxBalanceFraction.IsPositive() {
		limit := balance.Mul(p.limits.MaxBalanceFraction).Floor()
		if size.GreaterThan(limit) {
			size = limit
		}
	}
	if p.limits.MaxDailyVolume.IsPositive() {
		remaining := p.limits.MaxDailyVolume.Sub(p.dailyVolume)
		if size.GreaterThan(remaining) {
			size = remaining
		}
	}
	if size.IsNegative() {
		size = decimal.Zero
	}
	return size
}

// Check validates a bet against the limits. It returns a *Violation.
func (p *Engine) Check(market string, size, balance decimal.Decimal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetDailyIfNeeded()

	if err := p.checkMarketAllowed(market); err != nil {
		return err
	}

	if !size.IsPositive() || size.LessThan(p.limits.MinBetSize) {
		return &Violation{ViolationMinSize, fmt.Sprintf("bet M%s below min M%s", size, p.limits.MinBetSize)}
	}
	if size.GreaterThan(balance) {
		return &Violation{ViolationInsufficient, fmt.Sprintf("bet M%s exceeds balance M%s", size, balance)}
	}
	if p.limits.MaxDailyBets > 0 && p.dailyBets >= p.limits.MaxDailyBets {
		return &Violation{ViolationDailyBets, fmt.Sprintf("daily bet limit reached: %d", p.limits.MaxDailyBets)}
	}
	if p.limits.MaxDailyVolume.IsPositive() && p.dailyVolume.Add(size).GreaterThan(p.limits.MaxDailyVolume) {
		return &Violation{ViolationDailyVolume, fmt.Sprintf("would exceed daily volume limit M%s", p.limits.MaxDailyVolume)}
	}

	return nil
}

// RecordBet records a placed bet.
func (p *Engine) RecordBet(size decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetDailyIfNeeded()
	p.dailyBets++
	p.dailyVolume = p.dailyVolume.Add(size)
}

// Status summarises daily usage.
type Status struct {
	DailyBets      int    `json:"daily_bets"`
	MaxDailyBets   int    `json:"max_daily_bets"`
	DailyVolume    string `json:"daily_volume"`
	MaxDailyVolume string `json:"max_daily_volume"`
}

// Status returns the current policy status.
func (p *Engine) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetDailyIfNeeded()

	return Status{
		DailyBets:      p.dailyBets,
		MaxDailyBets:   p.limits.MaxDailyBets,
		DailyVolume:    p.dailyVolume.String(),
		MaxDailyVolume: p.limits.MaxDailyVolume.String(),
	}
}

// --- Internal helpers ---

func (p *Engine) resetDailyIfNeeded() {
	day := dayKey(p.now())
	if p.lastTradeDay != day {
		p.dailyVolume = decimal.Zero
		p.dailyBets = 0
		p.lastTradeDay = day
	}
}

// dayKey identifies a calendar day, so that the same day of a later year
// still counts as a new day.
func dayKey(t time.Time) int {
	return t.Year()*1000 + t.YearDay()
}

func (p *Engine) checkMarketAllowed(market string) error {
	for _, blocked := range p.limits.BlockedMarkets {
		if market == blocked {
			return &Violation{ViolationMarket, fmt.Sprintf("market %s is blocked", market)}
		}
	}

	if len(p.limits.AllowedMarkets) > 0 {
		for _, allowed := range p.limits.AllowedMarkets {
			if market == allowed {
				return nil
			}
		}
		return &Violation{ViolationMarket, fmt.Sprintf("market %s is not in allowed list", market)}
	}

	return nil
}
