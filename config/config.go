// Package config loads the agent's configuration the teacher's way:
// gopkg.in/yaml.v3 unmarshals a file into nested section structs, then a
// godotenv-loaded .env (if present) supplies overrides and secrets that are
// never placed in the struct that gets marshaled back.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/alejandrodnm/polyagent/internal/domain"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the complete agent configuration (§6).
type Config struct {
	Agent      AgentConfig      `yaml:"agent"`
	Scanning   ScanningConfig   `yaml:"scanning"`
	Valuation  ValuationConfig  `yaml:"valuation"`
	Risk       RiskConfig       `yaml:"risk"`
	Execution  ExecutionConfig  `yaml:"execution"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Polymarket PolymarketConfig `yaml:"polymarket"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Database   DatabaseConfig   `yaml:"database"`
}

// Mode selects the agent's execution semantics (§6).
type Mode string

const (
	ModePaper    Mode = "Paper"
	ModeLive     Mode = "Live"
	ModeBacktest Mode = "Backtest"
)

// AgentConfig carries the self-funding survival thresholds (§4.1) and the
// initial paper bankroll.
type AgentConfig struct {
	Mode                  Mode           `yaml:"mode"`
	CycleIntervalSeconds  int            `yaml:"cycle_interval_seconds"`
	DeathBalanceThreshold domain.Decimal `yaml:"death_balance_threshold"`
	LowFuelThreshold      domain.Decimal `yaml:"low_fuel_threshold"`
	ApiReserve            domain.Decimal `yaml:"api_reserve"`
	InitialPaperBalance   domain.Decimal `yaml:"initial_paper_balance"`
	MaxEvaluationsPerCycle int           `yaml:"max_evaluations_per_cycle"`
}

// ScanningConfig bounds MarketClient.DiscoverMarkets (§4.2 candidate list).
type ScanningConfig struct {
	MaxMarkets        int      `yaml:"max_markets"`
	MinVolume24h       domain.Decimal `yaml:"min_volume_24h"`
	MaxResolutionDays int      `yaml:"max_resolution_days"`
	MaxSpreadPct      domain.Decimal `yaml:"max_spread_pct"`
	Categories        []string `yaml:"categories"`
}

// ValuationConfig drives the ValuationEngine and edge thresholds (§4.2 step
// 4, §4.3 cache).
type ValuationConfig struct {
	Model              string         `yaml:"model"`
	MinEdgeThreshold   domain.Decimal `yaml:"min_edge_threshold"`
	HighConfidenceEdge domain.Decimal `yaml:"high_confidence_edge"`
	LowConfidenceEdge  domain.Decimal `yaml:"low_confidence_edge"`
	CacheTtlSeconds    int            `yaml:"cache_ttl_seconds"`
}

// RiskConfig drives Kelly sizing and portfolio constraints (§4.4-4.5).
type RiskConfig struct {
	KellyFraction           domain.Decimal `yaml:"kelly_fraction"`
	MaxPositionPct          domain.Decimal `yaml:"max_position_pct"`
	MaxTotalExposurePct     domain.Decimal `yaml:"max_total_exposure_pct"`
	MaxPositionsPerCategory int            `yaml:"max_positions_per_category"`
	MinPositionUsd          domain.Decimal `yaml:"min_position_usd"`
	MaxLossPct              domain.Decimal `yaml:"max_loss_pct"`
}

// ExecutionConfig governs order preparation (§4.2 step 10, §5 retry).
type ExecutionConfig struct {
	OrderType        string         `yaml:"order_type"`
	OrderTtlSeconds  int            `yaml:"order_ttl_seconds"`
	MaxSlippagePct   domain.Decimal `yaml:"max_slippage_pct"`
	MaxRetries       int            `yaml:"max_retries"`
}

// MonitoringConfig configures the health/metrics HTTP surface (§4.14).
type MonitoringConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// PolymarketConfig supplies the MarketClient adapter's base URLs.
type PolymarketConfig struct {
	CLOBBaseURL  string `yaml:"clob_base_url"`
	GammaBaseURL string `yaml:"gamma_base_url"`
}

// RateLimitConfig governs outbound request pacing (§5).
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size"`
	BackoffBaseMs     int     `yaml:"backoff_base_ms"`
	BackoffMaxMs      int     `yaml:"backoff_max_ms"`
}

// DatabaseConfig points at the ledger's backing SQLite file.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// CycleInterval returns Agent.CycleIntervalSeconds as a time.Duration.
func (c *Config) CycleInterval() time.Duration {
	return time.Duration(c.Agent.CycleIntervalSeconds) * time.Second
}

// Secrets holds credentials read directly from the environment — never
// from the config file, never marshaled back (§6).
type Secrets struct {
	ReasoningAPIKey     string
	DiscordWebhookURL   string
	PolymarketPrivateKey string
}

// LoadSecrets reads the three recognized secrets from the environment.
func LoadSecrets() Secrets {
	return Secrets{
		ReasoningAPIKey:      os.Getenv("ANTHROPIC_API_KEY"),
		DiscordWebhookURL:    os.Getenv("DISCORD_WEBHOOK_URL"),
		PolymarketPrivateKey: os.Getenv("POLYMARKET_PRIVATE_KEY"),
	}
}

// Load reads the YAML file at path, loads a .env file if present (silently
// skipped if absent), applies environment overrides, then fills defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// applyEnvOverrides overrides non-secret fields with environment variables,
// matching the teacher's LOG_LEVEL/LOG_FORMAT override pattern generalized
// to this agent's mode/listen-addr knobs.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AGENT_MODE"); v != "" {
		cfg.Agent.Mode = Mode(v)
	}
	if v := os.Getenv("MONITORING_LISTEN_ADDR"); v != "" {
		cfg.Monitoring.ListenAddr = v
	}
}

// setDefaults fills zero-valued fields with the values the teacher's
// setDefaults fills for its own scanner config, generalized to this
// agent's section structs.
func setDefaults(cfg *Config) {
	if cfg.Agent.Mode == "" {
		cfg.Agent.Mode = ModePaper
	}
	if cfg.Agent.CycleIntervalSeconds <= 0 {
		cfg.Agent.CycleIntervalSeconds = 600
	}
	if cfg.Agent.DeathBalanceThreshold.IsZero() {
		cfg.Agent.DeathBalanceThreshold = mustDecimal("0")
	}
	if cfg.Agent.LowFuelThreshold.IsZero() {
		cfg.Agent.LowFuelThreshold = mustDecimal("5")
	}
	if cfg.Agent.ApiReserve.IsZero() {
		cfg.Agent.ApiReserve = mustDecimal("2")
	}
	if cfg.Agent.InitialPaperBalance.IsZero() {
		cfg.Agent.InitialPaperBalance = mustDecimal("100")
	}
	if cfg.Agent.MaxEvaluationsPerCycle <= 0 {
		cfg.Agent.MaxEvaluationsPerCycle = 10
	}

	if cfg.Scanning.MaxMarkets <= 0 {
		cfg.Scanning.MaxMarkets = 100
	}
	if cfg.Scanning.MaxResolutionDays <= 0 {
		cfg.Scanning.MaxResolutionDays = 30
	}
	if cfg.Scanning.MaxSpreadPct.IsZero() {
		cfg.Scanning.MaxSpreadPct = mustDecimal("0.05")
	}

	if cfg.Valuation.Model == "" {
		cfg.Valuation.Model = "claude-sonnet-4-5"
	}
	if cfg.Valuation.MinEdgeThreshold.IsZero() {
		cfg.Valuation.MinEdgeThreshold = mustDecimal("0.05")
	}
	if cfg.Valuation.HighConfidenceEdge.IsZero() {
		cfg.Valuation.HighConfidenceEdge = mustDecimal("0.06")
	}
	if cfg.Valuation.LowConfidenceEdge.IsZero() {
		cfg.Valuation.LowConfidenceEdge = mustDecimal("0.10")
	}
	if cfg.Valuation.CacheTtlSeconds <= 0 {
		cfg.Valuation.CacheTtlSeconds = 900
	}

	if cfg.Risk.KellyFraction.IsZero() {
		cfg.Risk.KellyFraction = mustDecimal("0.5")
	}
	if cfg.Risk.MaxPositionPct.IsZero() {
		cfg.Risk.MaxPositionPct = mustDecimal("0.06")
	}
	if cfg.Risk.MaxTotalExposurePct.IsZero() {
		cfg.Risk.MaxTotalExposurePct = mustDecimal("0.50")
	}
	if cfg.Risk.MaxPositionsPerCategory <= 0 {
		cfg.Risk.MaxPositionsPerCategory = 5
	}
	if cfg.Risk.MinPositionUsd.IsZero() {
		cfg.Risk.MinPositionUsd = mustDecimal("1")
	}
	if cfg.Risk.MaxLossPct.IsZero() {
		cfg.Risk.MaxLossPct = mustDecimal("0.20")
	}

	if cfg.Execution.OrderType == "" {
		cfg.Execution.OrderType = "limit"
	}
	if cfg.Execution.OrderTtlSeconds <= 0 {
		cfg.Execution.OrderTtlSeconds = 60
	}
	if cfg.Execution.MaxSlippagePct.IsZero() {
		cfg.Execution.MaxSlippagePct = mustDecimal("0.02")
	}
	if cfg.Execution.MaxRetries <= 0 {
		cfg.Execution.MaxRetries = 3
	}

	if cfg.Monitoring.ListenAddr == "" {
		cfg.Monitoring.ListenAddr = ":8080"
	}

	if cfg.Polymarket.CLOBBaseURL == "" {
		cfg.Polymarket.CLOBBaseURL = "https://clob.polymarket.com"
	}
	if cfg.Polymarket.GammaBaseURL == "" {
		cfg.Polymarket.GammaBaseURL = "https://gamma-api.polymarket.com"
	}

	if cfg.RateLimit.RequestsPerSecond <= 0 {
		cfg.RateLimit.RequestsPerSecond = 10
	}
	if cfg.RateLimit.BurstSize <= 0 {
		cfg.RateLimit.BurstSize = 10
	}
	if cfg.RateLimit.BackoffBaseMs <= 0 {
		cfg.RateLimit.BackoffBaseMs = 1000
	}
	if cfg.RateLimit.BackoffMaxMs <= 0 {
		cfg.RateLimit.BackoffMaxMs = 30000
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "agent.db"
	}
}

func mustDecimal(s string) domain.Decimal {
	d, err := domain.ParseDecimal(s)
	if err != nil {
		panic("config: bad decimal literal " + s)
	}
	return d
}
