package manifold

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/phenomenon0/manifold-go/pkg/manifold/cpmm"
	"github.com/phenomenon0/manifold-go/pkg/manifold/kelly"
	"github.com/phenomenon0/manifold-go/pkg/trader/metrics"
)

const (
	// DefaultBaseURL is the Manifold API base URL
	DefaultBaseURL = "https://api.manifold.markets/v0"

	// Manifold allows 500 requests per minute per IP
	defaultRateLimit = 8.0 // requests per second
	defaultBurst     = 5
)

// ErrNoAPIKey is returned by endpoints that require authentication when the
// client has no API key.
var ErrNoAPIKey = errors.New("manifold: no API key configured")

// APIError is a non-success response from the API.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Body)
}

// Client is a Manifold API client. It holds its own HTTP client and rate
// limiter; create one per process and share it.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
	metrics    *metrics.Metrics
	kelly      *kelly.Engine
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithAPIKey sets the API key used for authenticated endpoints.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithRateLimit sets custom rate limiting.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the logger for request tracing.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics records request and bet metrics.
func WithMetrics(m *metrics.Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithKellyEngine sets the engine used by PlaceKellyBet.
func WithKellyEngine(e *kelly.Engine) ClientOption {
	return func(c *Client) {
		c.kelly = e
	}
}

// NewClient creates a new Manifold API client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(defaultRateLimit), defaultBurst),
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.kelly == nil {
		cfg := kelly.DefaultEngineConfig()
		if c.metrics != nil {
			cfg.Observer = c.metrics
		}
		c.kelly = kelly.NewEngine(cfg)
	}

	return c
}

// Close releases idle connections held by the client.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// HasAPIKey returns true if an API key is set.
func (c *Client) HasAPIKey() bool {
	return c.apiKey != ""
}

// ListMarkets fetches markets, newest first. before is a market ID to page
// from; limit <= 0 uses the server default.
func (c *Client) ListMarkets(ctx context.Context, limit int, before string) ([]LiteMarket, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if before != "" {
		params.Set("before", before)
	}

	var markets []LiteMarket
	if err := c.get(ctx, "/markets", params, false, &markets); err != nil {
		return nil, err
	}
	return markets, nil
}

// GetMarket fetches a market by ID.
func (c *Client) GetMarket(ctx context.Context, id string) (*Market, error) {
	var market Market
	if err := c.get(ctx, "/market/"+url.PathEscape(id), nil, false, &market); err != nil {
		return nil, err
	}
	return &market, nil
}

// GetMarketBySlug fetches a market by its slug.
func (c *Client) GetMarketBySlug(ctx context.Context, slug string) (*Market, error) {
	var market Market
	if err := c.get(ctx, "/slug/"+url.PathEscape(slug), nil, false, &market); err != nil {
		return nil, err
	}
	return &market, nil
}

// GetMarketByURL fetches a market by its public URL.
func (c *Client) GetMarketByURL(ctx context.Context, marketURL string) (*Market, error) {
	slug := SlugFromURL(marketURL)
	if slug == "" {
		return nil, fmt.Errorf("no slug in url %q", marketURL)
	}
	return c.GetMarketBySlug(ctx, slug)
}

// LookupMarket accepts a market ID, slug or URL.
func (c *Client) LookupMarket(ctx context.Context, ref string) (*Market, error) {
	if strings.Contains(ref, "/") {
		return c.GetMarketByURL(ctx, ref)
	}
	market, err := c.GetMarket(ctx, ref)
	if err == nil {
		return market, nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return c.GetMarketBySlug(ctx, ref)
	}
	return nil, err
}

// GetUser fetches a user by username.
func (c *Client) GetUser(ctx context.Context, username string) (*User, error) {
	var user User
	if err := c.get(ctx, "/user/"+url.PathEscape(username), nil, false, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetMe fetches the user that owns the API key.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var user User
	if err := c.get(ctx, "/me", nil, true, &user); err != nil {
		return nil, err
	}
	if c.metrics != nil {
		c.metrics.UpdateBalance(user.Username, user.Balance)
	}
	return &user, nil
}

// ListBets fetches bets, newest first.
func (c *Client) ListBets(ctx context.Context, filter *BetsFilter) ([]Bet, error) {
	params := url.Values{}
	if filter != nil {
		if filter.UserID != "" {
			params.Set("userId", filter.UserID)
		}
		if filter.Username != "" {
			params.Set("username", filter.Username)
		}
		if filter.ContractID != "" {
			params.Set("contractId", filter.ContractID)
		}
		if filter.ContractSlug != "" {
			params.Set("contractSlug", filter.ContractSlug)
		}
		if filter.Before != "" {
			params.Set("before", filter.Before)
		}
		if filter.Limit > 0 {
			params.Set("limit", strconv.Itoa(filter.Limit))
		}
	}

	var bets []Bet
	if err := c.get(ctx, "/bets", params, false, &bets); err != nil {
		return nil, err
	}
	return bets, nil
}

// CreateBet places a bet and returns its ID.
func (c *Client) CreateBet(ctx context.Context, req *BetRequest) (string, error) {
	if err := req.validate(); err != nil {
		return "", err
	}

	var resp struct {
		BetID string `json:"betId"`
	}
	if err := c.post(ctx, "/bet", req, &resp); err != nil {
		return "", err
	}
	if c.metrics != nil {
		c.metrics.RecordBet(string(req.Outcome), req.Amount)
	}
	c.logger.Info("bet placed",
		"bet_id", resp.BetID,
		"market", req.ContractID,
		"outcome", req.Outcome,
		"amount", req.Amount.String())
	return resp.BetID, nil
}

func (r *BetRequest) validate() error {
	if r.ContractID == "" {
		return fmt.Errorf("%w: bet has no contract id", cpmm.ErrInvalidArgument)
	}
	if !r.Outcome.Valid() {
		return fmt.Errorf("%w: %q", cpmm.ErrInvalidOutcome, string(r.Outcome))
	}
	if !r.Amount.IsPositive() {
		return fmt.Errorf("%w: bet amount %s must be positive", cpmm.ErrInvalidArgument, r.Amount)
	}
	if r.LimitProb != nil && !(*r.LimitProb > 0 && *r.LimitProb < 1) {
		return fmt.Errorf("%w: limit probability %v outside (0, 1)", cpmm.ErrDomain, *r.LimitProb)
	}
	return nil
}

// ResolveBinary resolves a binary market. probabilityInt of 100 resolves YES,
// 0 resolves NO, anything between resolves to that market probability.
func (c *Client) ResolveBinary(ctx context.Context, marketID string, probabilityInt float64) error {
	if !(probabilityInt >= 0 && probabilityInt <= 100) {
		return fmt.Errorf("%w: probability %v outside [0, 100]", cpmm.ErrDomain, probabilityInt)
	}

	body := resolution{Outcome: "MKT", ProbabilityInt: &probabilityInt}
	switch probabilityInt {
	case 100:
		body = resolution{Outcome: "YES"}
	case 0:
		body = resolution{Outcome: "NO"}
	}
	return c.resolve(ctx, marketID, body)
}

// ResolvePseudoNumeric resolves a pseudo-numeric market to value, reporting
// the probability that value maps to on the market's scale.
func (c *Client) ResolvePseudoNumeric(ctx context.Context, market *LiteMarket, value float64) error {
	if market.OutcomeType != OutcomeTypePseudoNumeric {
		return fmt.Errorf("%w: market %s is %s, not %s", cpmm.ErrInvalidState, market.ID, market.OutcomeType, OutcomeTypePseudoNumeric)
	}
	prob, err := cpmm.SnapshotValueToProbability(market.Snapshot(), value)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", market.ID, err)
	}

	probabilityInt := 100 * prob
	return c.resolve(ctx, market.ID, resolution{
		Outcome:        "MKT",
		Value:          &value,
		ProbabilityInt: &probabilityInt,
	})
}

// CancelMarket resolves a market N/A.
func (c *Client) CancelMarket(ctx context.Context, marketID string) error {
	return c.resolve(ctx, marketID, resolution{Outcome: "CANCEL"})
}

func (c *Client) resolve(ctx context.Context, marketID string, body resolution) error {
	if err := c.post(ctx, "/market/"+url.PathEscape(marketID)+"/resolve", body, nil); err != nil {
		return err
	}
	c.logger.Info("market resolved", "market", marketID, "outcome", body.Outcome)
	return nil
}

// get performs a GET request with rate limiting.
func (c *Client) get(ctx context.Context, path string, params url.Values, auth bool, result interface{}) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return c.do(ctx, http.MethodGet, path, u, nil, auth, result)
}

// post performs an authenticated POST request with a JSON body.
func (c *Client) post(ctx context.Context, path string, body interface{}, result interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, c.baseURL+path, data, true, result)
}

func (c *Client) do(ctx context.Context, method, path, u string, body []byte, auth bool, result interface{}) error {
	if auth && c.apiKey == "" {
		return ErrNoAPIKey
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		req.Header.Set("Authorization", "Key "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(method, path, 0, start, requestID)
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()
	c.observe(method, path, resp.StatusCode, start, requestID)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(resp.Body)
		return &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(data)),
		}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}

func (c *Client) observe(method, path string, status int, start time.Time, requestID string) {
	elapsed := time.Since(start)
	if c.metrics != nil {
		c.metrics.RecordRequest(method, endpointLabel(path), status, elapsed)
	}
	c.logger.Debug("manifold request",
		"method", method,
		"path", path,
		"status", status,
		"duration", elapsed,
		"request_id", requestID)
}

// endpointLabel reduces a path to its first segment to bound metric
// cardinality.
func endpointLabel(path string) string {
	trimmed := strings.TrimPrefix(path, "/")
	if i := strings.Index(trimmed, "/"); i >= 0 {
		trimmed = trimmed[:i]
	}
	return "/" + trimmed
}
