package manifold

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"

	"github.com/phenomenon0/manifold-go/pkg/manifold/cpmm"
	"github.com/phenomenon0/manifold-go/pkg/trader/metrics"
	"github.com/phenomenon0/manifold-go/pkg/trader/policy"
)

const binaryMarketJSON = `{
	"id": "m1",
	"creatorUsername": "alice",
	"question": "Will it rain tomorrow?",
	"url": "https://manifold.markets/alice/will-it-rain-tomorrow",
	"outcomeType": "BINARY",
	"mechanism": "cpmm-1",
	"probability": 0.3,
	"p": 0.5,
	"pool": {"YES": 70, "NO": 30},
	"createdTime": 1700000000000
}`

const numericMarketJSON = `{
	"id": "n1",
	"question": "How many mm of rain?",
	"outcomeType": "PSEUDO_NUMERIC",
	"mechanism": "cpmm-1",
	"probability": 0.5,
	"p": 0.5,
	"pool": {"YES": 50, "NO": 50},
	"min": 0,
	"max": 100,
	"isLogScale": false
}`

// fakeAPI is a minimal stand-in for the Manifold API.
type fakeAPI struct {
	mu      sync.Mutex
	bets    []map[string]any
	resolve []map[string]any
	auth    []string
	balance float64
}

func (f *fakeAPI) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/market/m1", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, binaryMarketJSON)
	})
	mux.HandleFunc("/market/n1", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, numericMarketJSON)
	})
	mux.HandleFunc("/slug/will-it-rain-tomorrow", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, binaryMarketJSON)
	})
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		f.recordAuth(r)
		json.NewEncoder(w).Encode(map[string]any{
			"id":       "u1",
			"username": "bettor",
			"balance":  f.balance,
		})
	})
	mux.HandleFunc("/bet", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST /bet, got %s", r.Method)
		}
		f.recordAuth(r)
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode bet body: %v", err)
		}
		f.mu.Lock()
		f.bets = append(f.bets, body)
		f.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{"betId": "bet-1"})
	})
	mux.HandleFunc("/market/m1/resolve", f.handleResolve)
	mux.HandleFunc("/market/n1/resolve", f.handleResolve)
	return mux
}

func (f *fakeAPI) handleResolve(w http.ResponseWriter, r *http.Request) {
	f.recordAuth(r)
	var body map[string]any
	json.NewDecoder(r.Body).Decode(&body)
	f.mu.Lock()
	f.resolve = append(f.resolve, body)
	f.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (f *fakeAPI) recordAuth(r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.auth = append(f.auth, r.Header.Get("Authorization"))
}

func newTestClient(t *testing.T, api *fakeAPI, opts ...ClientOption) *Client {
	t.Helper()
	server := httptest.NewServer(api.handler(t))
	t.Cleanup(server.Close)

	opts = append([]ClientOption{WithBaseURL(server.URL), WithRateLimit(1000, 100)}, opts...)
	return NewClient(opts...)
}

func TestGetMarket(t *testing.T) {
	client := newTestClient(t, &fakeAPI{})

	market, err := client.GetMarket(context.Background(), "m1")
	if err != nil {
		t.Fatalf("GetMarket failed: %v", err)
	}

	if market.Question != "Will it rain tomorrow?" {
		t.Errorf("Wrong question: got %s", market.Question)
	}
	if !market.IsCPMM() {
		t.Error("Expected cpmm-1 market")
	}
	if market.CreatedTime.Time().Year() != 2023 {
		t.Errorf("Wrong created time: got %v", market.CreatedTime.Time())
	}

	s := market.Snapshot()
	if s.P == nil || *s.P != 0.5 {
		t.Errorf("Wrong p: got %v", s.P)
	}
	if s.Pool == nil || s.Pool.Yes != 70 || s.Pool.No != 30 {
		t.Errorf("Wrong pool: got %+v", s.Pool)
	}
	if s.Probability != 0.3 {
		t.Errorf("Wrong probability: got %v", s.Probability)
	}
}

func TestListMarkets(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/markets" {
			t.Errorf("Expected path /markets, got %s", r.URL.Path)
		}
		query := r.URL.Query()
		if query.Get("limit") != "2" {
			t.Errorf("Expected limit=2, got %s", query.Get("limit"))
		}
		if query.Get("before") != "m0" {
			t.Errorf("Expected before=m0, got %s", query.Get("before"))
		}
		io.WriteString(w, `[{"id":"a","pool":3.5,"mechanism":"dpm-2"},{"id":"b","pool":{"YES":1,"NO":2}}]`)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))

	markets, err := client.ListMarkets(context.Background(), 2, "m0")
	if err != nil {
		t.Fatalf("ListMarkets failed: %v", err)
	}
	if len(markets) != 2 {
		t.Fatalf("Expected 2 markets, got %d", len(markets))
	}
	if markets[0].Pool.Scalar == nil || *markets[0].Pool.Scalar != 3.5 {
		t.Errorf("Expected scalar pool 3.5, got %+v", markets[0].Pool)
	}
	if markets[0].Snapshot().Pool != nil {
		t.Error("Scalar pool should not produce a binary pool")
	}
	if markets[1].Snapshot().Pool == nil {
		t.Error("Mapping pool should produce a binary pool")
	}
}

func TestLookupMarket(t *testing.T) {
	client := newTestClient(t, &fakeAPI{})
	ctx := context.Background()

	refs := []string{
		"m1",
		"will-it-rain-tomorrow",
		"https://manifold.markets/alice/will-it-rain-tomorrow#comments",
	}
	for _, ref := range refs {
		market, err := client.LookupMarket(ctx, ref)
		if err != nil {
			t.Fatalf("LookupMarket(%q) failed: %v", ref, err)
		}
		if market.ID != "m1" {
			t.Errorf("LookupMarket(%q) = %s, want m1", ref, market.ID)
		}
	}
}

func TestAPIError(t *testing.T) {
	client := newTestClient(t, &fakeAPI{})

	_, err := client.GetUser(context.Background(), "nobody")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", apiErr.StatusCode)
	}
}

func TestCreateBet(t *testing.T) {
	api := &fakeAPI{}
	client := newTestClient(t, api, WithAPIKey("test-key"))

	limit := 0.4
	id, err := client.CreateBet(context.Background(), &BetRequest{
		ContractID: "m1",
		Amount:     decimal.NewFromInt(25),
		Outcome:    cpmm.OutcomeYes,
		LimitProb:  &limit,
	})
	if err != nil {
		t.Fatalf("CreateBet failed: %v", err)
	}
	if id != "bet-1" {
		t.Errorf("Wrong bet id: got %s", id)
	}

	if len(api.bets) != 1 {
		t.Fatalf("Expected 1 bet, got %d", len(api.bets))
	}
	body := api.bets[0]
	if body["amount"] != float64(25) {
		t.Errorf("Expected numeric amount 25, got %#v", body["amount"])
	}
	if body["outcome"] != "YES" || body["contractId"] != "m1" || body["limitProb"] != 0.4 {
		t.Errorf("Unexpected bet body: %v", body)
	}
	if api.auth[0] != "Key test-key" {
		t.Errorf("Wrong Authorization header: %q", api.auth[0])
	}
}

func TestCreateBet_Validation(t *testing.T) {
	api := &fakeAPI{}
	ctx := context.Background()

	unauthenticated := newTestClient(t, api)
	_, err := unauthenticated.CreateBet(ctx, &BetRequest{ContractID: "m1", Amount: decimal.NewFromInt(1), Outcome: cpmm.OutcomeNo})
	if !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("Expected ErrNoAPIKey, got %v", err)
	}

	client := newTestClient(t, api, WithAPIKey("k"))
	_, err = client.CreateBet(ctx, &BetRequest{ContractID: "m1", Amount: decimal.NewFromInt(1), Outcome: "MKT"})
	if !errors.Is(err, cpmm.ErrInvalidOutcome) {
		t.Errorf("Expected ErrInvalidOutcome, got %v", err)
	}
	_, err = client.CreateBet(ctx, &BetRequest{ContractID: "m1", Amount: decimal.Zero, Outcome: cpmm.OutcomeYes})
	if !errors.Is(err, cpmm.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument, got %v", err)
	}

	if len(api.bets) != 0 {
		t.Errorf("Invalid bets reached the server: %v", api.bets)
	}
}

func TestResolveBinary(t *testing.T) {
	api := &fakeAPI{}
	client := newTestClient(t, api, WithAPIKey("k"))
	ctx := context.Background()

	for _, prob := range []float64{100, 0, 30} {
		if err := client.ResolveBinary(ctx, "m1", prob); err != nil {
			t.Fatalf("ResolveBinary(%v) failed: %v", prob, err)
		}
	}
	if err := client.ResolveBinary(ctx, "m1", 120); !errors.Is(err, cpmm.ErrDomain) {
		t.Errorf("Expected ErrDomain, got %v", err)
	}

	if len(api.resolve) != 3 {
		t.Fatalf("Expected 3 resolutions, got %d", len(api.resolve))
	}
	if api.resolve[0]["outcome"] != "YES" || api.resolve[1]["outcome"] != "NO" {
		t.Errorf("Unexpected resolutions: %v", api.resolve[:2])
	}
	if api.resolve[2]["outcome"] != "MKT" || api.resolve[2]["probabilityInt"] != float64(30) {
		t.Errorf("Unexpected MKT resolution: %v", api.resolve[2])
	}
}

func TestResolvePseudoNumeric(t *testing.T) {
	api := &fakeAPI{}
	client := newTestClient(t, api, WithAPIKey("k"))
	ctx := context.Background()

	market, err := client.GetMarket(ctx, "n1")
	if err != nil {
		t.Fatalf("GetMarket failed: %v", err)
	}

	if err := client.ResolvePseudoNumeric(ctx, &market.LiteMarket, 50); err != nil {
		t.Fatalf("ResolvePseudoNumeric failed: %v", err)
	}
	if len(api.resolve) != 1 {
		t.Fatalf("Expected 1 resolution, got %d", len(api.resolve))
	}
	got := api.resolve[0]
	if got["outcome"] != "MKT" || got["value"] != float64(50) || got["probabilityInt"] != float64(50) {
		t.Errorf("Unexpected resolution body: %v", got)
	}

	if err := client.ResolvePseudoNumeric(ctx, &market.LiteMarket, 150); !errors.Is(err, cpmm.ErrDomain) {
		t.Errorf("Expected ErrDomain for out of range value, got %v", err)
	}

	binary, err := client.GetMarket(ctx, "m1")
	if err != nil {
		t.Fatalf("GetMarket failed: %v", err)
	}
	if err := client.ResolvePseudoNumeric(ctx, &binary.LiteMarket, 50); !errors.Is(err, cpmm.ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState for binary market, got %v", err)
	}

	if len(api.resolve) != 1 {
		t.Errorf("Rejected resolutions reached the server: %v", api.resolve)
	}
}

func TestCancelMarket(t *testing.T) {
	api := &fakeAPI{}
	client := newTestClient(t, api, WithAPIKey("k"))

	if err := client.CancelMarket(context.Background(), "m1"); err != nil {
		t.Fatalf("CancelMarket failed: %v", err)
	}
	if len(api.resolve) != 1 || api.resolve[0]["outcome"] != "CANCEL" {
		t.Errorf("Unexpected resolution: %v", api.resolve)
	}
}

func TestSlugFromURL(t *testing.T) {
	tests := map[string]string{
		"https://manifold.markets/alice/will-it-rain":          "will-it-rain",
		"https://manifold.markets/alice/will-it-rain#comments": "will-it-rain",
		"https://manifold.markets/alice/will-it-rain?r=bob":    "will-it-rain",
		"https://manifold.markets/alice/will-it-rain/":         "will-it-rain",
		"will-it-rain": "will-it-rain",
	}
	for in, want := range tests {
		if got := SlugFromURL(in); got != want {
			t.Errorf("SlugFromURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPoolValue(t *testing.T) {
	tests := []struct {
		name       string
		data       string
		wantBinary bool
		wantScalar bool
	}{
		{"binary", `{"YES": 10, "NO": 20}`, true, false},
		{"multi outcome", `{"a": 1, "b": 2, "c": 3}`, false, false},
		{"scalar", `42.5`, false, true},
		{"null", `null`, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v PoolValue
			if err := json.Unmarshal([]byte(tt.data), &v); err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			if (v.Binary() != nil) != tt.wantBinary {
				t.Errorf("Binary() = %v, want binary=%v", v.Binary(), tt.wantBinary)
			}
			if (v.Scalar != nil) != tt.wantScalar {
				t.Errorf("Scalar = %v, want scalar=%v", v.Scalar, tt.wantScalar)
			}

			out, err := json.Marshal(v)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			var again PoolValue
			if err := json.Unmarshal(out, &again); err != nil {
				t.Fatalf("Unmarshal of %s failed: %v", out, err)
			}
			if (again.Binary() != nil) != tt.wantBinary || (again.Scalar != nil) != tt.wantScalar {
				t.Errorf("Round trip changed pool shape: %s", out)
			}
		})
	}
}

func TestPlaceKellyBet(t *testing.T) {
	api := &fakeAPI{balance: 100}
	m := metrics.New()
	client := newTestClient(t, api, WithAPIKey("k"), WithMetrics(m))

	bet, err := client.PlaceKellyBet(context.Background(), "m1", 0.6, nil)
	if err != nil {
		t.Fatalf("PlaceKellyBet failed: %v", err)
	}
	if !bet.Placed() {
		t.Fatalf("Expected a bet to be placed, skipped: %s (%s)", bet.SkipReason, bet.SkipDetail)
	}

	proposal := bet.Evaluation.Proposal
	if proposal.Outcome != cpmm.OutcomeYes {
		t.Errorf("Expected YES, got %s", proposal.Outcome)
	}
	if proposal.Size <= 0 || proposal.Size >= 100 {
		t.Errorf("Size %d outside (0, 100)", proposal.Size)
	}
	if !bet.Amount.Equal(decimal.NewFromInt(proposal.Size)) {
		t.Errorf("Amount %s differs from proposal %d", bet.Amount, proposal.Size)
	}

	if len(api.bets) != 1 || api.bets[0]["amount"] != float64(proposal.Size) {
		t.Errorf("Unexpected bets: %v", api.bets)
	}

	if got := testutil.ToFloat64(m.BetsPlaced.WithLabelValues("YES")); got != 1 {
		t.Errorf("BetsPlaced = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.KellySearches.WithLabelValues("YES")); got != 1 {
		t.Errorf("KellySearches = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("POST", "/bet", "200")); got != 1 {
		t.Errorf("POST /bet requests = %v, want 1", got)
	}
}

func TestPlaceKellyBet_PolicyClamp(t *testing.T) {
	api := &fakeAPI{balance: 100}
	client := newTestClient(t, api, WithAPIKey("k"))

	limits := policy.NewEngine(&policy.BetLimits{
		MaxBetSize: decimal.NewFromInt(5),
		MinBetSize: decimal.NewFromInt(1),
	})

	bet, err := client.PlaceKellyBet(context.Background(), "m1", 0.6, &KellyOptions{Policy: limits})
	if err != nil {
		t.Fatalf("PlaceKellyBet failed: %v", err)
	}
	if !bet.Amount.Equal(decimal.NewFromInt(5)) {
		t.Errorf("Expected amount clamped to 5, got %s", bet.Amount)
	}
	if status := limits.Status(); status.DailyBets != 1 || status.DailyVolume != "5" {
		t.Errorf("Policy did not record the bet: %+v", status)
	}
}

func TestPlaceKellyBet_Skips(t *testing.T) {
	ctx := context.Background()

	t.Run("no edge", func(t *testing.T) {
		api := &fakeAPI{balance: 100}
		client := newTestClient(t, api, WithAPIKey("k"))

		// Agreeing with the market leaves nothing to gain after the fee.
		bet, err := client.PlaceKellyBet(ctx, "m1", 0.3, nil)
		if err != nil {
			t.Fatalf("PlaceKellyBet failed: %v", err)
		}
		if bet.Placed() || bet.SkipReason != SkipNoEdge {
			t.Errorf("Expected no_edge skip, got placed=%v reason=%s", bet.Placed(), bet.SkipReason)
		}
		if bet.Evaluation.Proposal.Outcome != cpmm.OutcomeNo {
			t.Errorf("Equal beliefs should route to NO, got %s", bet.Evaluation.Proposal.Outcome)
		}
		if len(api.bets) != 0 {
			t.Errorf("Unexpected bets: %v", api.bets)
		}
	})

	t.Run("blocked market", func(t *testing.T) {
		api := &fakeAPI{balance: 100}
		client := newTestClient(t, api, WithAPIKey("k"))
		limits := policy.NewEngine(&policy.BetLimits{BlockedMarkets: []string{"m1"}})

		bet, err := client.PlaceKellyBet(ctx, "m1", 0.6, &KellyOptions{Policy: limits})
		if err != nil {
			t.Fatalf("PlaceKellyBet failed: %v", err)
		}
		if bet.SkipReason != SkipPolicy {
			t.Errorf("Expected policy skip, got %s", bet.SkipReason)
		}
		if len(api.bets) != 0 {
			t.Errorf("Unexpected bets: %v", api.bets)
		}
	})

	t.Run("daily volume used up", func(t *testing.T) {
		api := &fakeAPI{balance: 100}
		m := metrics.New()
		client := newTestClient(t, api, WithAPIKey("k"), WithMetrics(m))
		limits := policy.NewEngine(&policy.BetLimits{
			MinBetSize:     decimal.NewFromInt(1),
			MaxDailyVolume: decimal.NewFromInt(10),
		})
		limits.RecordBet(decimal.NewFromInt(10))

		bet, err := client.PlaceKellyBet(ctx, "m1", 0.6, &KellyOptions{Policy: limits})
		if err != nil {
			t.Fatalf("PlaceKellyBet failed: %v", err)
		}
		if bet.SkipReason != SkipPolicy || !bet.Amount.IsZero() {
			t.Errorf("Expected policy skip at zero, got reason=%s amount=%s", bet.SkipReason, bet.Amount)
		}
		if got := testutil.ToFloat64(m.PolicyViolations.WithLabelValues(policy.ViolationMinSize)); got != 1 {
			t.Errorf("PolicyViolations{min_size} = %v, want 1", got)
		}
		if len(api.bets) != 0 {
			t.Errorf("Unexpected bets: %v", api.bets)
		}
	})

	t.Run("dry run", func(t *testing.T) {
		api := &fakeAPI{balance: 100}
		client := newTestClient(t, api, WithAPIKey("k"))

		bet, err := client.PlaceKellyBet(ctx, "m1", 0.6, &KellyOptions{DryRun: true})
		if err != nil {
			t.Fatalf("PlaceKellyBet failed: %v", err)
		}
		if bet.SkipReason != SkipDryRun || bet.Amount.IsZero() {
			t.Errorf("Expected sized dry run, got reason=%s amount=%s", bet.SkipReason, bet.Amount)
		}
		if len(api.bets) != 0 {
			t.Errorf("Unexpected bets: %v", api.bets)
		}
	})

	t.Run("no api key", func(t *testing.T) {
		client := newTestClient(t, &fakeAPI{})
		if _, err := client.PlaceKellyBet(ctx, "m1", 0.6, nil); !errors.Is(err, ErrNoAPIKey) {
			t.Errorf("Expected ErrNoAPIKey, got %v", err)
		}
	})
}

func TestEvaluateKellyWithBalance(t *testing.T) {
	client := newTestClient(t, &fakeAPI{})

	bet, err := client.EvaluateKellyWithBalance(context.Background(), "m1", 0.6, decimal.NewFromFloat(100.9))
	if err != nil {
		t.Fatalf("EvaluateKellyWithBalance failed: %v", err)
	}
	if bet.Evaluation.Balance != 100 {
		t.Errorf("Expected balance floored to 100, got %d", bet.Evaluation.Balance)
	}

	_, err = client.EvaluateKellyWithBalance(context.Background(), "m1", 0.6, decimal.Zero)
	if !errors.Is(err, cpmm.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument for zero balance, got %v", err)
	}
}

func TestEndpointLabel(t *testing.T) {
	tests := map[string]string{
		"/market/abc/resolve": "/market",
		"/bet":                "/bet",
		"/me":                 "/me",
	}
	for in, want := range tests {
		if got := endpointLabel(in); got != want {
			t.Errorf("endpointLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestListBets(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if query.Get("contractId") != "m1" || query.Get("username") != "bettor" || query.Get("limit") != "10" {
			t.Errorf("Unexpected query: %s", r.URL.RawQuery)
		}
		if query.Has("userId") {
			t.Error("Empty filter fields should not be sent")
		}
		io.WriteString(w, `[{"id":"b1","contractId":"m1","amount":12.5,"outcome":"YES","shares":20.1,"probBefore":0.3,"probAfter":0.35,"createdTime":1700000000000}]`)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))

	bets, err := client.ListBets(context.Background(), &BetsFilter{ContractID: "m1", Username: "bettor", Limit: 10})
	if err != nil {
		t.Fatalf("ListBets failed: %v", err)
	}
	if len(bets) != 1 {
		t.Fatalf("Expected 1 bet, got %d", len(bets))
	}
	if !bets[0].Amount.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("Wrong amount: got %s", bets[0].Amount)
	}
	if bets[0].ProbAfter == nil || *bets[0].ProbAfter != 0.35 {
		t.Errorf("Wrong probAfter: got %v", bets[0].ProbAfter)
	}
}

func TestGetMe(t *testing.T) {
	api := &fakeAPI{balance: 1234.5}
	m := metrics.New()
	client := newTestClient(t, api, WithAPIKey("k"), WithMetrics(m))

	me, err := client.GetMe(context.Background())
	if err != nil {
		t.Fatalf("GetMe failed: %v", err)
	}
	if !me.Balance.Equal(decimal.RequireFromString("1234.5")) {
		t.Errorf("Wrong balance: got %s", me.Balance)
	}
	if got := testutil.ToFloat64(m.AccountBalance.WithLabelValues("bettor")); got != 1234.5 {
		t.Errorf("AccountBalance = %v, want 1234.5", got)
	}

	_, err = newTestClient(t, api).GetMe(context.Background())
	if !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("Expected ErrNoAPIKey, got %v", err)
	}
}
