// Package metrics provides Prometheus metrics for the Manifold client and the
// Kelly sizing engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Metrics collects and exposes client and sizing metrics.
type Metrics struct {
	registry *prometheus.Registry

	// API metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Bet metrics
	BetsPlaced  *prometheus.CounterVec
	BetVolume   *prometheus.CounterVec
	BetsSkipped *prometheus.CounterVec

	// Sizing metrics
	KellySearches        *prometheus.CounterVec
	KellySearchDuration  *prometheus.HistogramVec
	KellyBetSize         *prometheus.HistogramVec
	KellyCandidates      *prometheus.HistogramVec
	SubjectiveDivergence *prometheus.GaugeVec

	// Account metrics
	AccountBalance *prometheus.GaugeVec

	// Policy metrics
	PolicyViolations *prometheus.CounterVec
}

// New creates a new metrics collector with its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "manifold_requests_total",
				Help: "Total number of API requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "manifold_request_duration_seconds",
				Help:    "API request latency",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
			},
			[]string{"method", "endpoint"},
		),

		BetsPlaced: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "manifold_bets_placed_total",
				Help: "Total number of bets placed",
			},
			[]string{"outcome"},
		),
		BetVolume: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "manifold_bet_volume_mana",
				Help: "Total mana bet",
			},
			[]string{"outcome"},
		),
		BetsSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "manifold_bets_skipped_total",
				Help: "Kelly proposals that were not placed",
			},
			[]string{"reason"},
		),

		KellySearches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "manifold_kelly_searches_total",
				Help: "Total number of Kelly bet searches",
			},
			[]string{"outcome"},
		),
		KellySearchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "manifold_kelly_search_duration_seconds",
				Help:    "Kelly bet search duration",
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10), // 10us to ~2.6s
			},
			[]string{},
		),
		KellyBetSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "manifold_kelly_bet_size_mana",
				Help:    "Bet size proposed by the Kelly search",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
			},
			[]string{"outcome"},
		),
		KellyCandidates: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "manifold_kelly_candidates",
				Help:    "Number of bet sizes evaluated per search",
				Buckets: prometheus.ExponentialBuckets(10, 10, 7),
			},
			[]string{},
		),
		SubjectiveDivergence: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "manifold_subjective_divergence",
				Help: "Subjective probability minus market probability",
			},
			[]string{"market"},
		),

		AccountBalance: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "manifold_account_balance_mana",
				Help: "Mana balance of the account",
			},
			[]string{"user"},
		),

		PolicyViolations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "manifold_policy_violations_total",
				Help: "Total number of bet policy violations",
			},
			[]string{"type"},
		),
	}

	m.registerAll()

	return m
}

func (m *Metrics) registerAll() {
	m.registry.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.BetsPlaced,
		m.BetVolume,
		m.BetsSkipped,
		m.KellySearches,
		m.KellySearchDuration,
		m.KellyBetSize,
		m.KellyCandidates,
		m.SubjectiveDivergence,
		m.AccountBalance,
		m.PolicyViolations,
	)
}

// Registry returns the prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// --- Helper methods for recording metrics ---

// RecordRequest records a completed API request. status is 0 when the
// request failed before a response arrived.
func (m *Metrics) RecordRequest(method, endpoint string, status int, d time.Duration) {
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	m.RequestsTotal.WithLabelValues(method, endpoint, code).Inc()
	m.RequestDuration.WithLabelValues(method, endpoint).Observe(d.Seconds())
}

// RecordBet records a placed bet.
func (m *Metrics) RecordBet(outcome string, amount decimal.Decimal) {
	m.BetsPlaced.WithLabelValues(outcome).Inc()
	m.BetVolume.WithLabelValues(outcome).Add(DecimalToFloat64(amount))
}

// RecordSkip records a proposal that was not placed.
func (m *Metrics) RecordSkip(reason string) {
	m.BetsSkipped.WithLabelValues(reason).Inc()
}

// ObserveKellySearch records a completed Kelly search.
func (m *Metrics) ObserveKellySearch(outcome string, size, candidates int64, d time.Duration) {
	m.KellySearches.WithLabelValues(outcome).Inc()
	m.KellySearchDuration.WithLabelValues().Observe(d.Seconds())
	m.KellyBetSize.WithLabelValues(outcome).Observe(float64(size))
	m.KellyCandidates.WithLabelValues().Observe(float64(candidates))
}

// UpdateDivergence records how far a belief is from the market.
func (m *Metrics) UpdateDivergence(market string, subjective, marketProb float64) {
	m.SubjectiveDivergence.WithLabelValues(market).Set(subjective - marketProb)
}

// UpdateBalance records an account balance.
func (m *Metrics) UpdateBalance(user string, balance decimal.Decimal) {
	m.AccountBalance.WithLabelValues(user).Set(DecimalToFloat64(balance))
}

// RecordPolicyViolation records a policy violation.
func (m *Metrics) RecordPolicyViolation(violationType string) {
	m.PolicyViolations.WithLabelValues(violationType).Inc()
}

// --- Decimal helpers ---

// DecimalToFloat64 converts decimal.Decimal to float64 for metrics.
func DecimalToFloat64(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
