// Package config defines all configuration for the bidding agent.
// Config is loaded from a YAML file (default: configs/config.yaml) with
// sensitive fields overridable via BIDPILOT_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML file structure.
type Config struct {
	DryRun    bool            `mapstructure:"dry_run"`
	Account   AccountConfig   `mapstructure:"account"`
	API       APIConfig       `mapstructure:"api"`
	Watch     WatchConfig     `mapstructure:"watch"`
	Agent     AgentConfig     `mapstructure:"agent"`
	Guard     GuardConfig     `mapstructure:"guard"`
	Currency  CurrencyConfig  `mapstructure:"currency"`
	Store     StoreConfig     `mapstructure:"store"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
}

// AccountConfig identifies the marketplace session.
// SessionToken authenticates every request; BidderID is the account's public
// bidder handle, used to recognise our own bids in listing histories.
type AccountConfig struct {
	SessionToken string `mapstructure:"session_token"`
	BidderID     string `mapstructure:"bidder_id"`
}

// APIConfig holds the marketplace API endpoint.
type APIConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// WatchConfig controls listing polling.
//
//   - Listings: listing IDs to watch. Lot references use "listingID/lotNumber".
//   - PollInterval: how often each listing's price state is refetched.
//   - HistoryDepth: how many recent bids to keep per listing.
//   - StaleTimeout: a listing whose state is older than this is flagged stale.
type WatchConfig struct {
	Listings     []string      `mapstructure:"listings"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	HistoryDepth int           `mapstructure:"history_depth"`
	StaleTimeout time.Duration `mapstructure:"stale_timeout"`
}

// AgentConfig tunes the orchestrator.
//
//   - AutoPlaceBids: when true the agent submits auto-bid counter-bids itself
//     (preview-only when false).
//   - EntitlementRefresh: how often /subscription/status is refetched.
type AgentConfig struct {
	AutoPlaceBids      bool          `mapstructure:"auto_place_bids"`
	EntitlementRefresh time.Duration `mapstructure:"entitlement_refresh"`
}

// GuardConfig sets hard spending limits that pause bidding when breached.
//
//   - MaxCommitmentPerListing: max standing bid exposure on one listing.
//   - MaxTotalCommitment: max standing exposure across all watched listings.
//   - PriceSpikePct: if a listing's price jumps more than this fraction within
//     the window, bidding on it pauses (bid-war brake).
//   - PriceSpikeWindowSec: window for measuring the jump.
//   - CooldownAfterStop: how long the brake stays engaged.
type GuardConfig struct {
	MaxCommitmentPerListing float64       `mapstructure:"max_commitment_per_listing"`
	MaxTotalCommitment      float64       `mapstructure:"max_total_commitment"`
	PriceSpikePct           float64       `mapstructure:"price_spike_pct"`
	PriceSpikeWindowSec     int           `mapstructure:"price_spike_window_sec"`
	CooldownAfterStop       time.Duration `mapstructure:"cooldown_after_stop"`
}

// CurrencyConfig drives conversion and display formatting.
// Rates are units of Base per one unit of the keyed currency.
type CurrencyConfig struct {
	Base    string             `mapstructure:"base"`
	Display string             `mapstructure:"display"`
	Rates   map[string]float64 `mapstructure:"rates"`
}

// StoreConfig sets where entitlement usage and auto-bid state are persisted
// (JSON files).
type StoreConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DashboardConfig controls the local dashboard server.
type DashboardConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads config from a YAML file with env var overrides.
// Sensitive fields use env vars: BIDPILOT_SESSION_TOKEN, BIDPILOT_DRY_RUN.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("BIDPILOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Override sensitive fields from env
	if token := os.Getenv("BIDPILOT_SESSION_TOKEN"); token != "" {
		cfg.Account.SessionToken = token
	}
	if os.Getenv("BIDPILOT_DRY_RUN") == "true" || os.Getenv("BIDPILOT_DRY_RUN") == "1" {
		cfg.DryRun = true
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Watch.PollInterval == 0 {
		cfg.Watch.PollInterval = 5 * time.Second
	}
	if cfg.Watch.HistoryDepth == 0 {
		cfg.Watch.HistoryDepth = 20
	}
	if cfg.Watch.StaleTimeout == 0 {
		cfg.Watch.StaleTimeout = 30 * time.Second
	}
	if cfg.Agent.EntitlementRefresh == 0 {
		cfg.Agent.EntitlementRefresh = time.Minute
	}
	if cfg.Guard.CooldownAfterStop == 0 {
		cfg.Guard.CooldownAfterStop = 5 * time.Minute
	}
	if cfg.Currency.Base == "" {
		cfg.Currency.Base = "EUR"
	}
	if cfg.Currency.Display == "" {
		cfg.Currency.Display = cfg.Currency.Base
	}
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	if c.Account.SessionToken == "" {
		return fmt.Errorf("account.session_token is required (set BIDPILOT_SESSION_TOKEN)")
	}
	if c.Account.BidderID == "" {
		return fmt.Errorf("account.bidder_id is required")
	}
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if len(c.Watch.Listings) == 0 {
		return fmt.Errorf("watch.listings must name at least one listing")
	}
	if c.Watch.PollInterval < time.Second {
		return fmt.Errorf("watch.poll_interval must be >= 1s")
	}
	if c.Guard.MaxCommitmentPerListing <= 0 {
		return fmt.Errorf("guard.max_commitment_per_listing must be > 0")
	}
	if c.Guard.MaxTotalCommitment <= 0 {
		return fmt.Errorf("guard.max_total_commitment must be > 0")
	}
	if c.Guard.MaxTotalCommitment < c.Guard.MaxCommitmentPerListing {
		return fmt.Errorf("guard.max_total_commitment must be >= guard.max_commitment_per_listing")
	}
	for code, rate := range c.Currency.Rates {
		if rate <= 0 {
			return fmt.Errorf("currency.rates[%s] must be > 0", code)
		}
	}
	return nil
}
