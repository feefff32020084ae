// Package manifold provides a client for the Manifold Markets API.
// It covers the endpoints needed to read markets and balances, size bets with
// the kelly package and submit them.
package manifold

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/phenomenon0/manifold-go/pkg/manifold/cpmm"
)

// Outcome types
const (
	OutcomeTypeBinary         = "BINARY"
	OutcomeTypePseudoNumeric  = "PSEUDO_NUMERIC"
	OutcomeTypeMultipleChoice = "MULTIPLE_CHOICE"
	OutcomeTypeFreeResponse   = "FREE_RESPONSE"
)

// MechanismCPMM1 is the constant-product market maker used by binary and
// pseudo-numeric markets.
const MechanismCPMM1 = "cpmm-1"

// Millis is a millisecond Unix timestamp as used throughout the API.
type Millis int64

// Time converts the timestamp to a time.Time.
func (m Millis) Time() time.Time {
	return time.UnixMilli(int64(m))
}

// LiteMarket is a market without its bets and comments.
type LiteMarket struct {
	ID               string  `json:"id"`
	CreatorID        string  `json:"creatorId"`
	CreatorUsername  string  `json:"creatorUsername"`
	CreatorName      string  `json:"creatorName"`
	CreatorAvatarURL *string `json:"creatorAvatarUrl,omitempty"`
	CreatedTime      Millis  `json:"createdTime"`
	CloseTime        *Millis `json:"closeTime,omitempty"`
	Question         string  `json:"question"`
	URL              string  `json:"url"`
	OutcomeType      string  `json:"outcomeType"`
	Mechanism        string  `json:"mechanism"`

	// CPMM state
	Probability    float64   `json:"probability"`
	Pool           PoolValue `json:"pool"`
	P              *float64  `json:"p,omitempty"`
	TotalLiquidity *float64  `json:"totalLiquidity,omitempty"`

	// Pseudo-numeric markets
	Value      *float64 `json:"value,omitempty"`
	Min        *float64 `json:"min,omitempty"`
	Max        *float64 `json:"max,omitempty"`
	IsLogScale *bool    `json:"isLogScale,omitempty"`

	// Activity
	Volume            float64 `json:"volume"`
	Volume24Hours     float64 `json:"volume24Hours"`
	UniqueBettorCount int     `json:"uniqueBettorCount"`
	LastUpdatedTime   *Millis `json:"lastUpdatedTime,omitempty"`
	LastBetTime       *Millis `json:"lastBetTime,omitempty"`

	// Resolution
	IsResolved            bool     `json:"isResolved"`
	ResolutionTime        *Millis  `json:"resolutionTime,omitempty"`
	Resolution            *string  `json:"resolution,omitempty"`
	ResolutionProbability *float64 `json:"resolutionProbability,omitempty"`

	Token string `json:"token,omitempty"` // "MANA" or "CASH"
}

// Market is a complete market including its bets.
type Market struct {
	LiteMarket

	Bets            []Bet    `json:"bets,omitempty"`
	TextDescription string   `json:"textDescription,omitempty"`
	CoverImageURL   *string  `json:"coverImageUrl,omitempty"`
	GroupSlugs      []string `json:"groupSlugs,omitempty"`
}

// Bet is a bet placed on a market.
type Bet struct {
	ID           string          `json:"id"`
	ContractID   string          `json:"contractId"`
	CreatedTime  Millis          `json:"createdTime"`
	Amount       decimal.Decimal `json:"amount"`
	Outcome      string          `json:"outcome"`
	Shares       float64         `json:"shares"`
	ProbBefore   *float64        `json:"probBefore,omitempty"`
	ProbAfter    *float64        `json:"probAfter,omitempty"`
	LimitProb    *float64        `json:"limitProb,omitempty"`
	OrderAmount  *float64        `json:"orderAmount,omitempty"`
	LoanAmount   *float64        `json:"loanAmount,omitempty"`
	IsFilled     bool            `json:"isFilled"`
	IsCancelled  bool            `json:"isCancelled"`
	UserID       string          `json:"userId,omitempty"`
	UserUsername string          `json:"userUsername,omitempty"`
}

// User is a Manifold account.
type User struct {
	ID            string          `json:"id"`
	CreatedTime   Millis          `json:"createdTime"`
	Name          string          `json:"name"`
	Username      string          `json:"username"`
	URL           string          `json:"url"`
	AvatarURL     *string         `json:"avatarUrl,omitempty"`
	Bio           *string         `json:"bio,omitempty"`
	IsBot         bool            `json:"isBot,omitempty"`
	Balance       decimal.Decimal `json:"balance"`
	TotalDeposits decimal.Decimal `json:"totalDeposits"`
	LastBetTime   *Millis         `json:"lastBetTime,omitempty"`
}

// PoolValue is a market's liquidity pool. The API reports an outcome to
// shares mapping for CPMM markets and a bare number for some other
// mechanisms.
type PoolValue struct {
	Outcomes map[string]float64
	Scalar   *float64
}

func (v *PoolValue) UnmarshalJSON(data []byte) error {
	*v = PoolValue{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] == '{' {
		var outcomes map[string]float64
		if err := json.Unmarshal(data, &outcomes); err != nil {
			return fmt.Errorf("pool: %w", err)
		}
		v.Outcomes = outcomes
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("pool: %w", err)
	}
	v.Scalar = &f
	return nil
}

func (v PoolValue) MarshalJSON() ([]byte, error) {
	switch {
	case v.Outcomes != nil:
		return json.Marshal(v.Outcomes)
	case v.Scalar != nil:
		return json.Marshal(*v.Scalar)
	default:
		return []byte("null"), nil
	}
}

// Binary returns the YES/NO reserves, or nil when the pool is not a mapping
// containing both outcomes.
func (v PoolValue) Binary() *cpmm.Pool {
	yes, okYes := v.Outcomes["YES"]
	no, okNo := v.Outcomes["NO"]
	if !okYes || !okNo {
		return nil
	}
	return &cpmm.Pool{Yes: yes, No: no}
}

// Snapshot returns the fields of the market used by the share and Kelly
// calculators.
func (m *LiteMarket) Snapshot() cpmm.Snapshot {
	return cpmm.Snapshot{
		P:           copyFloat(m.P),
		Pool:        m.Pool.Binary(),
		Probability: m.Probability,
		Min:         copyFloat(m.Min),
		Max:         copyFloat(m.Max),
		IsLogScale:  m.IsLogScale != nil && *m.IsLogScale,
	}
}

// IsCPMM returns true if the market trades against a constant-product pool.
func (m *LiteMarket) IsCPMM() bool {
	return m.Mechanism == MechanismCPMM1
}

// IsOpen returns true if the market can still be bet on at t.
func (m *LiteMarket) IsOpen(t time.Time) bool {
	if m.IsResolved {
		return false
	}
	return m.CloseTime == nil || m.CloseTime.Time().After(t)
}

// Slug returns the slug from the market URL.
func (m *LiteMarket) Slug() (string, error) {
	if m.URL == "" {
		return "", fmt.Errorf("market %s has no url", m.ID)
	}
	return SlugFromURL(m.URL), nil
}

// SlugFromURL extracts the market slug from a market URL.
func SlugFromURL(u string) string {
	u = strings.TrimRight(u, "/")
	if i := strings.LastIndex(u, "/"); i >= 0 {
		u = u[i+1:]
	}
	if i := strings.IndexAny(u, "#?"); i >= 0 {
		u = u[:i]
	}
	return u
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

// BetsFilter contains filter parameters for listing bets.
type BetsFilter struct {
	UserID       string
	Username     string
	ContractID   string
	ContractSlug string
	Before       string // Bet ID to page before
	Limit        int
}

// BetRequest is the body of a bet submission.
type BetRequest struct {
	ContractID string
	Amount     decimal.Decimal
	Outcome    cpmm.Outcome
	LimitProb  *float64 // Optional; makes the bet a limit order
}

// MarshalJSON encodes Amount as a JSON number, which the API requires.
func (r BetRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ContractID string       `json:"contractId"`
		Amount     json.Number  `json:"amount"`
		Outcome    cpmm.Outcome `json:"outcome"`
		LimitProb  *float64     `json:"limitProb,omitempty"`
	}{r.ContractID, json.Number(r.Amount.String()), r.Outcome, r.LimitProb})
}

// resolution is the body of a resolve request.
type resolution struct {
	Outcome        string   `json:"outcome"`
	ProbabilityInt *float64 `json:"probabilityInt,omitempty"`
	Value          *float64 `json:"value,omitempty"`
}
