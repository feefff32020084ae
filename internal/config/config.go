// Package config defines the configuration for the manifold-kelly tool and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/phenomenon0/manifold-go/pkg/trader/policy"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by MANIFOLD_* environment variables.
type Config struct {
	API     APIConfig     `toml:"api"`
	Kelly   KellyConfig   `toml:"kelly"`
	Policy  PolicyConfig  `toml:"policy"`
	Log     LogConfig     `toml:"log"`
	Metrics MetricsConfig `toml:"metrics"`
}

// APIConfig holds the Manifold API endpoint and credentials.
type APIConfig struct {
	BaseURL   string   `toml:"base_url"`
	Key       string   `toml:"key"`
	Timeout   duration `toml:"timeout"`
	RateLimit float64  `toml:"rate_limit"` // requests per second
	Burst     int      `toml:"burst"`
}

// KellyConfig tunes the bet size search.
type KellyConfig struct {
	Workers  int   `toml:"workers"` // 0 uses GOMAXPROCS
	MinChunk int64 `toml:"min_chunk"`
}

// PolicyConfig caps the bets the tool will place. Amounts are in mana.
type PolicyConfig struct {
	MaxBet             float64  `toml:"max_bet"`
	MinBet             float64  `toml:"min_bet"`
	MaxBalanceFraction float64  `toml:"max_balance_fraction"`
	MaxDailyVolume     float64  `toml:"max_daily_volume"`
	MaxDailyBets       int      `toml:"max_daily_bets"`
	AllowedMarkets     []string `toml:"allowed_markets"`
	BlockedMarkets     []string `toml:"blocked_markets"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "text" or "json"
}

// MetricsConfig controls the Prometheus endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `toml:"addr"`
}

// duration is a wrapper around time.Duration that decodes TOML strings such
// as "30s".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with sensible defaults.
func Defaults() Config {
	return Config{
		API: APIConfig{
			BaseURL:   "https://api.manifold.markets/v0",
			Timeout:   duration{30 * time.Second},
			RateLimit: 8,
			Burst:     5,
		},
		Kelly: KellyConfig{
			MinChunk: 1024,
		},
		Policy: PolicyConfig{
			MaxBet:             250,
			MinBet:             1,
			MaxBalanceFraction: 0.25,
			MaxDailyVolume:     2500,
			MaxDailyBets:       100,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"text": true,
	"json": true,
}

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() error {
	var errs []string

	// API
	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		errs = append(errs, fmt.Sprintf("api: base_url must be an http(s) url, got %q", c.API.BaseURL))
	}
	if c.API.Timeout.Duration <= 0 {
		errs = append(errs, "api: timeout must be > 0")
	}
	if c.API.RateLimit <= 0 {
		errs = append(errs, "api: rate_limit must be > 0")
	}
	if c.API.Burst < 1 {
		errs = append(errs, "api: burst must be >= 1")
	}

	// Kelly
	if c.Kelly.Workers < 0 {
		errs = append(errs, "kelly: workers must be >= 0")
	}
	if c.Kelly.MinChunk < 1 {
		errs = append(errs, "kelly: min_chunk must be >= 1")
	}

	// Policy
	if c.Policy.MaxBet < 0 || c.Policy.MinBet < 0 || c.Policy.MaxDailyVolume < 0 || c.Policy.MaxDailyBets < 0 {
		errs = append(errs, "policy: limits must not be negative")
	}
	if c.Policy.MaxBet > 0 && c.Policy.MinBet > c.Policy.MaxBet {
		errs = append(errs, "policy: min_bet must not exceed max_bet")
	}
	if c.Policy.MaxBalanceFraction < 0 || c.Policy.MaxBalanceFraction > 1 {
		errs = append(errs, "policy: max_balance_fraction must be within [0, 1]")
	}

	// Log
	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Sprintf("unknown log level %q (valid: debug, info, warn, error)", c.Log.Level))
	}
	if !validLogFormats[strings.ToLower(c.Log.Format)] {
		errs = append(errs, fmt.Sprintf("unknown log format %q (valid: text, json)", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// BetLimits converts the policy section into limits for the policy engine.
func (c *Config) BetLimits() *policy.BetLimits {
	return &policy.BetLimits{
		MaxBetSize:         decimal.NewFromFloat(c.Policy.MaxBet),
		MinBetSize:         decimal.NewFromFloat(c.Policy.MinBet),
		MaxBalanceFraction: decimal.NewFromFloat(c.Policy.MaxBalanceFraction),
		MaxDailyVolume:     decimal.NewFromFloat(c.Policy.MaxDailyVolume),
		MaxDailyBets:       c.Policy.MaxDailyBets,
		AllowedMarkets:     c.Policy.AllowedMarkets,
		BlockedMarkets:     c.Policy.BlockedMarkets,
	}
}
