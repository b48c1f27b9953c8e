// Package config defines all configuration for the arbitrage scanner.
// Config is loaded from a YAML file (default: configs/config.yaml) with
// sensitive fields overridable via ARB_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Provider names accepted by source.provider.
const (
	ProviderClob    = "clob"
	ProviderOpinion = "opinion"
)

// Config is the top-level configuration. Maps directly to the YAML file structure.
type Config struct {
	Source   SourceConfig   `mapstructure:"source"`
	Scanner  ScannerConfig  `mapstructure:"scanner"`
	Strategy StrategyConfig `mapstructure:"strategy"`
	Stats    StatsConfig    `mapstructure:"stats"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// SourceConfig selects and tunes the market data provider.
//
//   - Provider: "clob" (Polymarket CLOB) or "opinion" (opinion.trade).
//   - ClobHost: base URL of the CLOB REST API.
//   - OpinionAPIKey: required when Provider is "opinion" (ARB_SOURCE_OPINION_API_KEY).
//   - BooksChunkSize: tokens per batch book request (clob only).
//   - BooksConcurrency: max in-flight book requests.
//   - SnapshotTimeout: overall deadline for one cycle's book fan-out.
type SourceConfig struct {
	Provider         string        `mapstructure:"provider"`
	ClobHost         string        `mapstructure:"clob_host"`
	OpinionAPIKey    string        `mapstructure:"opinion_api_key"`
	BooksChunkSize   int           `mapstructure:"books_chunk_size"`
	BooksConcurrency int           `mapstructure:"books_concurrency"`
	SnapshotTimeout  time.Duration `mapstructure:"snapshot_timeout"`
}

// ScannerConfig controls market discovery and the poll cadence.
type ScannerConfig struct {
	MaxMarkets      int           `mapstructure:"max_markets"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
}

// StrategyConfig tunes the sum-arbitrage rule. Edges and fees are basis
// points; sizes and the optional per-leg limits are decimal strings so no
// precision is lost between the file and the threshold math.
type StrategyConfig struct {
	FeeBps        int64  `mapstructure:"fee_bps"`
	MinEdgeBps    int64  `mapstructure:"min_edge_bps"`
	WarnEdgeBps   int64  `mapstructure:"warn_edge_bps"`
	MaxBundleSize string `mapstructure:"max_bundle_size"`
	MaxLegSpread  string `mapstructure:"max_leg_spread"` // optional, empty disables
	MinLegSize    string `mapstructure:"min_leg_size"`   // optional, empty disables
}

// StatsConfig controls the periodic stats summary.
type StatsConfig struct {
	LogInterval time.Duration `mapstructure:"log_interval"` // 0 disables
	JSONLPath   string        `mapstructure:"jsonl_path"`   // optional, empty disables
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads config from a YAML file with env var overrides.
// The opinion API key can be supplied via ARB_SOURCE_OPINION_API_KEY.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("ARB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("source.provider", ProviderClob)
	v.SetDefault("source.books_chunk_size", 20)
	v.SetDefault("source.books_concurrency", 8)
	v.SetDefault("source.snapshot_timeout", "30s")
	v.SetDefault("scanner.max_markets", 200)
	v.SetDefault("scanner.refresh_interval", "10m")
	v.SetDefault("scanner.poll_interval", "2s")
	v.SetDefault("stats.log_interval", "60s")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if key := os.Getenv("ARB_SOURCE_OPINION_API_KEY"); key != "" {
		cfg.Source.OpinionAPIKey = key
	}

	return &cfg, nil
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	switch c.Source.Provider {
	case ProviderClob:
		if c.Source.ClobHost == "" {
			return fmt.Errorf("source.clob_host is required when source.provider is %q", ProviderClob)
		}
	case ProviderOpinion:
		if c.Source.OpinionAPIKey == "" {
			return fmt.Errorf("source.opinion_api_key is required when source.provider is %q (set ARB_SOURCE_OPINION_API_KEY)", ProviderOpinion)
		}
	default:
		return fmt.Errorf("source.provider must be %q or %q", ProviderClob, ProviderOpinion)
	}
	if c.Source.BooksChunkSize < 1 {
		return fmt.Errorf("source.books_chunk_size must be >= 1")
	}
	if c.Source.BooksConcurrency < 1 {
		return fmt.Errorf("source.books_concurrency must be >= 1")
	}
	if c.Scanner.MaxMarkets <= 0 {
		return fmt.Errorf("scanner.max_markets must be > 0")
	}
	if c.Scanner.PollInterval <= 0 {
		return fmt.Errorf("scanner.poll_interval must be > 0")
	}
	if c.Strategy.FeeBps < 0 || c.Strategy.MinEdgeBps < 0 || c.Strategy.WarnEdgeBps < 0 {
		return fmt.Errorf("strategy fee/edge bps must be >= 0")
	}
	maxBundle, err := c.Strategy.MaxBundle()
	if err != nil {
		return err
	}
	if maxBundle.IsNegative() || maxBundle.IsZero() {
		return fmt.Errorf("strategy.max_bundle_size must be > 0")
	}
	if _, err := c.Strategy.MaxLegSpreadDecimal(); err != nil {
		return err
	}
	if _, err := c.Strategy.MinLegSizeDecimal(); err != nil {
		return err
	}
	return nil
}

// MaxBundle parses the bundle size cap.
func (s StrategyConfig) MaxBundle() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s.MaxBundleSize))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("strategy.max_bundle_size: %w", err)
	}
	return d, nil
}

// MaxLegSpreadDecimal parses the optional per-leg spread limit. Nil when unset.
func (s StrategyConfig) MaxLegSpreadDecimal() (*decimal.Decimal, error) {
	return parseOptDecimal("strategy.max_leg_spread", s.MaxLegSpread)
}

// MinLegSizeDecimal parses the optional per-leg size floor. Nil when unset.
func (s StrategyConfig) MinLegSizeDecimal() (*decimal.Decimal, error) {
	return parseOptDecimal("strategy.min_leg_size", s.MinLegSize)
}

func parseOptDecimal(field, raw string) (*decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return &d, nil
}
