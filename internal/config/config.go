// Package config loads the single immutable configuration value threaded
// through every constructor in the bot. Nothing here is a process-wide
// singleton; Load returns a *Config and callers pass it down explicitly.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every tunable named in the external interfaces table, plus
// the ambient plumbing (dashboard, journal, logging) needed to run.
type Config struct {
	MarketTicker string
	KalshiEnv    string // "prod" or "demo"
	DryRun       bool

	KalshiAPIKeyID     string
	KalshiPrivateKey   string // inline PEM, takes precedence over the path below
	KalshiPrivKeyPath  string

	SpreadWidth              int
	QuoteSize                int
	RequoteThreshold         int
	InventorySkewPerContract int
	MaxPositionSize          int
	MaxTotalExposureCents    int

	LoopIntervalSeconds     int
	FillPollIntervalSeconds int
	FillPollLimit           int
	MaxRuntimeSeconds       int

	JournalPath   string
	DashboardPort int
	DashboardHost string

	LogLevel string
}

func (c *Config) BaseURL() string {
	if c.KalshiEnv == "prod" {
		return "https://api.elections.kalshi.com/trade-api/v2"
	}
	return "https://demo-api.kalshi.co/trade-api/v2"
}

// Load reads .env (if present) then layers viper-bound environment
// variables over the defaults below. Every name matches spec.md §6's
// configuration table.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("market_ticker", "")
	v.SetDefault("kalshi_env", "demo")
	v.SetDefault("dry_run", true)
	v.SetDefault("kalshi_api_key_id", "")
	v.SetDefault("kalshi_private_key", "")
	v.SetDefault("kalshi_priv_key_path", "./kalshi_private_key.pem")

	v.SetDefault("spread_width", 4)
	v.SetDefault("quote_size", 5)
	v.SetDefault("requote_threshold", 1)
	v.SetDefault("inventory_skew_per_contract", 1)
	v.SetDefault("max_position_size", 50)
	v.SetDefault("max_total_exposure", 200000) // cents

	v.SetDefault("loop_interval", 5)
	v.SetDefault("fill_poll_interval", 3)
	v.SetDefault("fill_poll_limit", 100)
	v.SetDefault("max_runtime", 0) // 0 = unbounded

	v.SetDefault("journal_path", "./journal.jsonl")
	v.SetDefault("dashboard_port", 8090)
	v.SetDefault("dashboard_host", "localhost")

	v.SetDefault("log_level", "info")

	cfg := &Config{
		MarketTicker: v.GetString("market_ticker"),
		KalshiEnv:    v.GetString("kalshi_env"),
		DryRun:       v.GetBool("dry_run"),

		KalshiAPIKeyID:    v.GetString("kalshi_api_key_id"),
		KalshiPrivateKey:  v.GetString("kalshi_private_key"),
		KalshiPrivKeyPath: v.GetString("kalshi_priv_key_path"),

		SpreadWidth:              v.GetInt("spread_width"),
		QuoteSize:                v.GetInt("quote_size"),
		RequoteThreshold:         v.GetInt("requote_threshold"),
		InventorySkewPerContract: v.GetInt("inventory_skew_per_contract"),
		MaxPositionSize:          v.GetInt("max_position_size"),
		MaxTotalExposureCents:    v.GetInt("max_total_exposure"),

		LoopIntervalSeconds:     v.GetInt("loop_interval"),
		FillPollIntervalSeconds: v.GetInt("fill_poll_interval"),
		FillPollLimit:           v.GetInt("fill_poll_limit"),
		MaxRuntimeSeconds:       v.GetInt("max_runtime"),

		JournalPath:   v.GetString("journal_path"),
		DashboardPort: v.GetInt("dashboard_port"),
		DashboardHost: v.GetString("dashboard_host"),

		LogLevel: v.GetString("log_level"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.MarketTicker == "" {
		return fmt.Errorf("MARKET_TICKER is required")
	}
	if c.KalshiAPIKeyID == "" {
		return fmt.Errorf("KALSHI_API_KEY_ID is required")
	}
	if c.KalshiPrivateKey == "" && c.KalshiPrivKeyPath == "" {
		return fmt.Errorf("either KALSHI_PRIVATE_KEY or KALSHI_PRIV_KEY_PATH is required")
	}
	if c.KalshiEnv != "prod" && c.KalshiEnv != "demo" {
		return fmt.Errorf("KALSHI_ENV must be 'prod' or 'demo', got %q", c.KalshiEnv)
	}
	if c.SpreadWidth <= 0 {
		return fmt.Errorf("SPREAD_WIDTH must be positive")
	}
	if c.QuoteSize <= 0 {
		return fmt.Errorf("QUOTE_SIZE must be positive")
	}
	return nil
}
