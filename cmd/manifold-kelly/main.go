// manifold-kelly sizes Kelly-optimal bets on Manifold markets and can place
// them, resolve pseudo-numeric markets and watch a market on an interval.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/phenomenon0/manifold-go/internal/config"
	"github.com/phenomenon0/manifold-go/pkg/manifold"
	"github.com/phenomenon0/manifold-go/pkg/manifold/kelly"
	"github.com/phenomenon0/manifold-go/pkg/trader/metrics"
	"github.com/phenomenon0/manifold-go/pkg/trader/policy"
)

var (
	// Flags
	configPath   = flag.String("config", "", "Path to a TOML config file")
	marketRef    = flag.String("market", "", "Market ID, slug or URL")
	subjective   = flag.Float64("prob", -1, "Your probability that the market resolves YES")
	balanceFlag  = flag.Float64("balance", 0, "Size against this balance instead of the account balance (no API key needed)")
	place        = flag.Bool("place", false, "Place the bet after sizing it")
	dryRun       = flag.Bool("dry-run", false, "Apply the policy but do not submit the bet")
	watch        = flag.Duration("watch", 0, "Re-evaluate on this interval until interrupted")
	metricsAddr  = flag.String("metrics", "", "HTTP address for /metrics, /health and /policy (overrides config)")
	resolveValue = flag.String("resolve-value", "", "Resolve the pseudo-numeric market to this value and exit")
	verbose      = flag.Bool("verbose", false, "Debug logging")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("manifold-kelly failed", "error", err)
		os.Exit(1)
	}
}

type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	client  *manifold.Client
	policy  *policy.Engine
	metrics *metrics.Metrics
}

func run(cfg *config.Config, logger *slog.Logger) error {
	if *marketRef == "" {
		return errors.New("-market is required")
	}

	// Context with cancellation on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := newApp(cfg, logger)
	defer a.client.Close()

	if cfg.Metrics.Addr != "" {
		server := a.startHTTP(cfg.Metrics.Addr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			server.Shutdown(shutdownCtx)
		}()
	}

	if *resolveValue != "" {
		value, err := strconv.ParseFloat(*resolveValue, 64)
		if err != nil {
			return fmt.Errorf("-resolve-value: %w", err)
		}
		return a.resolve(ctx, value)
	}

	if *subjective < 0 || *subjective > 1 {
		return errors.New("-prob must be within [0, 1]")
	}

	if err := a.evaluateOnce(ctx); err != nil {
		return err
	}
	if *watch <= 0 {
		return nil
	}

	logger.Info("watching market", "market", *marketRef, "interval", watch.String())
	ticker := time.NewTicker(*watch)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return nil
		case <-ticker.C:
			if err := a.evaluateOnce(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				// A failed round is retried on the next tick.
				logger.Warn("evaluation failed", "error", err)
			}
		}
	}
}

func newApp(cfg *config.Config, logger *slog.Logger) *app {
	m := metrics.New()

	engine := kelly.NewEngine(&kelly.EngineConfig{
		Workers:  cfg.Kelly.Workers,
		MinChunk: cfg.Kelly.MinChunk,
		Observer: m,
	})

	client := manifold.NewClient(
		manifold.WithBaseURL(cfg.API.BaseURL),
		manifold.WithAPIKey(cfg.API.Key),
		manifold.WithHTTPClient(&http.Client{Timeout: cfg.API.Timeout.Duration}),
		manifold.WithRateLimit(cfg.API.RateLimit, cfg.API.Burst),
		manifold.WithLogger(logger),
		manifold.WithMetrics(m),
		manifold.WithKellyEngine(engine),
	)

	return &app{
		cfg:     cfg,
		logger:  logger,
		client:  client,
		policy:  policy.NewEngine(cfg.BetLimits()),
		metrics: m,
	}
}

// evaluateOnce sizes, and with -place submits, one bet.
func (a *app) evaluateOnce(ctx context.Context) error {
	var (
		bet *manifold.KellyBet
		err error
	)

	switch {
	case *place:
		bet, err = a.client.PlaceKellyBet(ctx, *marketRef, *subjective, &manifold.KellyOptions{
			Policy: a.policy,
			DryRun: *dryRun,
		})
	case *balanceFlag > 0:
		bet, err = a.client.EvaluateKellyWithBalance(ctx, *marketRef, *subjective, decimal.NewFromFloat(*balanceFlag))
	case a.client.HasAPIKey():
		bet, err = a.client.EvaluateKelly(ctx, *marketRef, *subjective)
	default:
		return errors.New("set -balance or configure an API key (MANIFOLD_API_KEY)")
	}
	if err != nil {
		return err
	}

	printBet(bet)
	return nil
}

func (a *app) resolve(ctx context.Context, value float64) error {
	market, err := a.client.LookupMarket(ctx, *marketRef)
	if err != nil {
		return fmt.Errorf("fetch market: %w", err)
	}
	if err := a.client.ResolvePseudoNumeric(ctx, &market.LiteMarket, value); err != nil {
		return err
	}
	fmt.Printf("Resolved %q to %v\n", market.Question, value)
	return nil
}

func (a *app) startHTTP(addr string) *http.Server {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	// Policy endpoint
	mux.HandleFunc("/policy", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(a.policy.Status())
	})

	// Prometheus metrics endpoint
	mux.Handle("/metrics", a.metrics.Handler())

	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		a.logger.Info("HTTP server listening", "addr", addr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("HTTP server error", "error", err)
		}
	}()
	return server
}

func printBet(bet *manifold.KellyBet) {
	ev := bet.Evaluation
	fmt.Printf("%s\n", bet.Market.Question)
	fmt.Printf("  market %.2f%%  yours %.2f%%  balance M%s\n",
		ev.MarketProb*100, ev.SubjectiveProb*100, bet.Balance.StringFixed(2))
	fmt.Printf("  kelly bet: M%d on %s (edge %.6f)\n", ev.Proposal.Size, ev.Proposal.Outcome, ev.Edge)
	if ev.Proposal.Size > 0 {
		fmt.Printf("  shares %.2f, probability after %.2f%%\n", ev.Trade.Shares, ev.Trade.ProbabilityAfter*100)
	}

	switch {
	case bet.Placed():
		fmt.Printf("  placed M%s (bet %s)\n", bet.Amount, bet.BetID)
	case bet.SkipReason != "":
		fmt.Printf("  not placed: %s (%s)\n", bet.SkipReason, bet.SkipDetail)
	}
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(cfg.Format) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
