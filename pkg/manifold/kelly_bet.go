package manifold

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/phenomenon0/manifold-go/pkg/manifold/kelly"
	"github.com/phenomenon0/manifold-go/pkg/trader/policy"
)

// Skip reasons reported by PlaceKellyBet.
const (
	SkipNoEdge = "no_edge"
	SkipPolicy = "policy"
	SkipDryRun = "dry_run"
)

// KellyBet is the outcome of PlaceKellyBet.
type KellyBet struct {
	Market     *Market
	Balance    decimal.Decimal
	Evaluation *kelly.Evaluation

	// Amount is the proposal after policy limits were applied.
	Amount decimal.Decimal

	BetID      string // Set when a bet was placed
	SkipReason string // Set when no bet was placed
	SkipDetail string
}

// Placed returns true if a bet was submitted.
func (b *KellyBet) Placed() bool {
	return b.BetID != ""
}

// KellyOptions controls PlaceKellyBet.
type KellyOptions struct {
	// Policy caps and vets the proposal. Nil places the raw proposal.
	Policy *policy.Engine

	// DryRun evaluates without submitting.
	DryRun bool
}

// EvaluateKelly fetches the market and the account balance and sizes the
// bet that maximises expected log wealth under subjectiveProb.
func (c *Client) EvaluateKelly(ctx context.Context, marketRef string, subjectiveProb float64) (*KellyBet, error) {
	market, err := c.LookupMarket(ctx, marketRef)
	if err != nil {
		return nil, fmt.Errorf("fetch market: %w", err)
	}
	me, err := c.GetMe(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch balance: %w", err)
	}
	return c.evaluate(ctx, market, me.Balance, subjectiveProb)
}

// EvaluateKellyWithBalance sizes a bet against an explicit balance without
// needing an API key.
func (c *Client) EvaluateKellyWithBalance(ctx context.Context, marketRef string, subjectiveProb float64, balance decimal.Decimal) (*KellyBet, error) {
	market, err := c.LookupMarket(ctx, marketRef)
	if err != nil {
		return nil, fmt.Errorf("fetch market: %w", err)
	}
	return c.evaluate(ctx, market, balance, subjectiveProb)
}

func (c *Client) evaluate(ctx context.Context, market *Market, balance decimal.Decimal, subjectiveProb float64) (*KellyBet, error) {
	ev, err := c.kelly.Evaluate(ctx, market.Snapshot(), subjectiveProb, balance.Floor().IntPart())
	if err != nil {
		return nil, fmt.Errorf("size bet on %s: %w", market.ID, err)
	}
	if c.metrics != nil {
		c.metrics.UpdateDivergence(market.ID, subjectiveProb, market.Probability)
	}

	c.logger.Debug("kelly evaluation",
		"market", market.ID,
		"market_prob", market.Probability,
		"subjective_prob", subjectiveProb,
		"balance", balance.String(),
		"size", ev.Proposal.Size,
		"outcome", ev.Proposal.Outcome,
		"edge", ev.Edge)

	return &KellyBet{
		Market:     market,
		Balance:    balance,
		Evaluation: ev,
		Amount:     decimal.NewFromInt(ev.Proposal.Size),
	}, nil
}

// PlaceKellyBet sizes a bet with EvaluateKelly, applies the policy and, unless
// the bet is skipped, submits it. A skipped bet is not an error.
func (c *Client) PlaceKellyBet(ctx context.Context, marketRef string, subjectiveProb float64, opts *KellyOptions) (*KellyBet, error) {
	if opts == nil {
		opts = &KellyOptions{}
	}
	if !c.HasAPIKey() {
		return nil, ErrNoAPIKey
	}

	bet, err := c.EvaluateKelly(ctx, marketRef, subjectiveProb)
	if err != nil {
		return nil, err
	}

	if !bet.Amount.IsPositive() {
		return c.skip(bet, SkipNoEdge, "optimal bet is zero"), nil
	}

	if opts.Policy != nil {
		bet.Amount = opts.Policy.Clamp(bet.Amount, bet.Balance)
		if err := opts.Policy.Check(bet.Market.ID, bet.Amount, bet.Balance); err != nil {
			var v *policy.Violation
			if errors.As(err, &v) && c.metrics != nil {
				c.metrics.RecordPolicyViolation(v.Type)
			}
			return c.skip(bet, SkipPolicy, err.Error()), nil
		}
	}

	if opts.DryRun {
		return c.skip(bet, SkipDryRun, "dry run"), nil
	}

	id, err := c.CreateBet(ctx, &BetRequest{
		ContractID: bet.Market.ID,
		Amount:     bet.Amount,
		Outcome:    bet.Evaluation.Proposal.Outcome,
	})
	if err != nil {
		return nil, fmt.Errorf("place bet on %s: %w", bet.Market.ID, err)
	}
	bet.BetID = id

	if opts.Policy != nil {
		opts.Policy.RecordBet(bet.Amount)
	}
	return bet, nil
}

func (c *Client) skip(bet *KellyBet, reason, detail string) *KellyBet {
	bet.SkipReason = reason
	bet.SkipDetail = detail
	if c.metrics != nil {
		c.metrics.RecordSkip(reason)
	}
	c.logger.Info("kelly bet skipped", "market", bet.Market.ID, "reason", reason, "detail", detail)
	return bet
}
