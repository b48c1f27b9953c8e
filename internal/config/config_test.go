package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validYAML = `
source:
  provider: clob
  clob_host: https://clob.example.com
scanner:
  max_markets: 50
  poll_interval: 1s
strategy:
  fee_bps: 20
  min_edge_bps: 10
  warn_edge_bps: 100
  max_bundle_size: "25"
stats:
  log_interval: 30s
`

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.Source.Provider != ProviderClob {
		t.Errorf("provider = %s, want clob", cfg.Source.Provider)
	}
	if cfg.Source.ClobHost != "https://clob.example.com" {
		t.Errorf("clob_host = %s", cfg.Source.ClobHost)
	}
	if cfg.Scanner.MaxMarkets != 50 {
		t.Errorf("max_markets = %d, want 50", cfg.Scanner.MaxMarkets)
	}
	if cfg.Strategy.MinEdgeBps != 10 {
		t.Errorf("min_edge_bps = %d, want 10", cfg.Strategy.MinEdgeBps)
	}
	if cfg.Stats.LogInterval != 30*time.Second {
		t.Errorf("log_interval = %s, want 30s", cfg.Stats.LogInterval)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
source:
  clob_host: https://clob.example.com
strategy:
  max_bundle_size: "10"
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Source.Provider != ProviderClob {
		t.Errorf("default provider = %s, want clob", cfg.Source.Provider)
	}
	if cfg.Source.BooksChunkSize != 20 {
		t.Errorf("default books_chunk_size = %d, want 20", cfg.Source.BooksChunkSize)
	}
	if cfg.Source.BooksConcurrency != 8 {
		t.Errorf("default books_concurrency = %d, want 8", cfg.Source.BooksConcurrency)
	}
	if cfg.Source.SnapshotTimeout != 30*time.Second {
		t.Errorf("default snapshot_timeout = %s, want 30s", cfg.Source.SnapshotTimeout)
	}
	if cfg.Scanner.PollInterval != 2*time.Second {
		t.Errorf("default poll_interval = %s, want 2s", cfg.Scanner.PollInterval)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("default logging = %s/%s, want info/text", cfg.Logging.Level, cfg.Logging.Format)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestOpinionKeyFromEnv(t *testing.T) {
	t.Setenv("ARB_SOURCE_OPINION_API_KEY", "secret-from-env")

	cfg, err := Load(writeConfig(t, `
source:
  provider: opinion
strategy:
  max_bundle_size: "10"
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Source.OpinionAPIKey != "secret-from-env" {
		t.Errorf("opinion_api_key = %q, want env value", cfg.Source.OpinionAPIKey)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate with env key: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	base := func() *Config {
		return &Config{
			Source: SourceConfig{
				Provider:         ProviderClob,
				ClobHost:         "https://clob.example.com",
				BooksChunkSize:   20,
				BooksConcurrency: 8,
			},
			Scanner:  ScannerConfig{MaxMarkets: 10, PollInterval: time.Second},
			Strategy: StrategyConfig{MaxBundleSize: "10"},
		}
	}

	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown provider", func(c *Config) { c.Source.Provider = "ftx" }, "source.provider"},
		{"clob without host", func(c *Config) { c.Source.ClobHost = "" }, "clob_host"},
		{"opinion without key", func(c *Config) { c.Source.Provider = ProviderOpinion }, "opinion_api_key"},
		{"zero chunk size", func(c *Config) { c.Source.BooksChunkSize = 0 }, "books_chunk_size"},
		{"zero concurrency", func(c *Config) { c.Source.BooksConcurrency = 0 }, "books_concurrency"},
		{"zero max markets", func(c *Config) { c.Scanner.MaxMarkets = 0 }, "max_markets"},
		{"zero poll interval", func(c *Config) { c.Scanner.PollInterval = 0 }, "poll_interval"},
		{"negative fee", func(c *Config) { c.Strategy.FeeBps = -1 }, "bps"},
		{"zero bundle size", func(c *Config) { c.Strategy.MaxBundleSize = "0" }, "max_bundle_size"},
		{"garbage bundle size", func(c *Config) { c.Strategy.MaxBundleSize = "lots" }, "max_bundle_size"},
		{"garbage leg spread", func(c *Config) { c.Strategy.MaxLegSpread = "wide" }, "max_leg_spread"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q should mention %q", err, tc.want)
			}
		})
	}
}

func TestOptionalDecimalsEmptyMeansDisabled(t *testing.T) {
	s := StrategyConfig{MaxBundleSize: "10"}

	spread, err := s.MaxLegSpreadDecimal()
	if err != nil || spread != nil {
		t.Errorf("empty max_leg_spread = %v,%v, want nil,nil", spread, err)
	}

	s.MinLegSize = " 2.5 "
	size, err := s.MinLegSizeDecimal()
	if err != nil {
		t.Fatalf("MinLegSizeDecimal: %v", err)
	}
	if size == nil || size.String() != "2.5" {
		t.Errorf("min_leg_size = %v, want 2.5", size)
	}
}
