package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies MANIFOLD_* environment variable overrides, and
// returns the final Config. An empty path skips the file. The returned Config
// has NOT been validated; the caller should invoke Config.Validate() after
// Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("load config %s: unknown keys %s", path, strings.Join(keys, ", "))
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known MANIFOLD_* environment variables and
// overwrites the corresponding Config fields when a variable is set.
func applyEnvOverrides(cfg *Config) {
	// ── API ──
	setStr(&cfg.API.BaseURL, "MANIFOLD_API_BASE_URL")
	setStr(&cfg.API.Key, "MANIFOLD_API_KEY")
	setDuration(&cfg.API.Timeout, "MANIFOLD_API_TIMEOUT")
	setFloat64(&cfg.API.RateLimit, "MANIFOLD_API_RATE_LIMIT")
	setInt(&cfg.API.Burst, "MANIFOLD_API_BURST")

	// ── Kelly ──
	setInt(&cfg.Kelly.Workers, "MANIFOLD_KELLY_WORKERS")
	setInt64(&cfg.Kelly.MinChunk, "MANIFOLD_KELLY_MIN_CHUNK")

	// ── Policy ──
	setFloat64(&cfg.Policy.MaxBet, "MANIFOLD_POLICY_MAX_BET")
	setFloat64(&cfg.Policy.MinBet, "MANIFOLD_POLICY_MIN_BET")
	setFloat64(&cfg.Policy.MaxBalanceFraction, "MANIFOLD_POLICY_MAX_BALANCE_FRACTION")
	setFloat64(&cfg.Policy.MaxDailyVolume, "MANIFOLD_POLICY_MAX_DAILY_VOLUME")
	setInt(&cfg.Policy.MaxDailyBets, "MANIFOLD_POLICY_MAX_DAILY_BETS")
	setStringSlice(&cfg.Policy.AllowedMarkets, "MANIFOLD_POLICY_ALLOWED_MARKETS")
	setStringSlice(&cfg.Policy.BlockedMarkets, "MANIFOLD_POLICY_BLOCKED_MARKETS")

	// ── Log / metrics ──
	setStr(&cfg.Log.Level, "MANIFOLD_LOG_LEVEL")
	setStr(&cfg.Log.Format, "MANIFOLD_LOG_FORMAT")
	setStr(&cfg.Metrics.Addr, "MANIFOLD_METRICS_ADDR")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
