// Polymarket Sum-Arb Scanner — polls prediction-market data providers,
// builds cross-market top-of-book snapshots, and flags markets where buying
// every outcome costs less than the guaranteed $1 payout.
//
// Architecture:
//
//	main.go              — entry point + the poll loop: refresh markets → snapshot → strategy → sink
//	config/config.go     — YAML config with ARB_* env overrides
//	source/source.go     — MarketDataSource interface
//	source/clob.go       — Polymarket CLOB adapter (cursor pagination, chunked batch books)
//	source/opinion.go    — opinion.trade adapter (page pagination, per-token books, ladder filter)
//	source/ladder.go     — lexical heuristic excluding ladder-style categorical markets
//	strategy/sumarb.go   — sum-of-asks arbitrage rule over each snapshot (exact decimals)
//	stats/stats.go       — atomic activity counters, periodic structured summary
//	sink/sink.go         — execution observer: logs + records bundles, places nothing
//	store/store.go       — append-only JSONL record file
//
// The cycle is single-threaded and cooperative; only the per-token book
// fetches inside a snapshot run concurrently. A cycle that fails is logged
// and retried after the poll interval — transient provider trouble never
// crashes the process.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"polymarket-arb/internal/config"
	"polymarket-arb/internal/sink"
	"polymarket-arb/internal/source"
	"polymarket-arb/internal/stats"
	"polymarket-arb/internal/store"
	"polymarket-arb/internal/strategy"
	"polymarket-arb/pkg/types"
)

func main() {
	// Optional .env for local runs; real deployments set env vars directly.
	_ = godotenv.Load()

	cfgPath := "configs/config.yaml"
	if p := os.Getenv("ARB_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Logging.Level)}
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)

	src := buildSource(cfg, logger)
	st := stats.New(nowMs())

	strat, err := buildStrategy(cfg, st, logger)
	if err != nil {
		logger.Error("failed to build strategy", "error", err)
		os.Exit(1)
	}

	var records *store.Store
	if cfg.Stats.JSONLPath != "" {
		records, err = store.Open(cfg.Stats.JSONLPath)
		if err != nil {
			logger.Error("failed to open stats store", "error", err, "path", cfg.Stats.JSONLPath)
			os.Exit(1)
		}
		defer records.Close()
	}
	observer := sink.NewObserver(records, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("sum-arb scanner started",
		"provider", cfg.Source.Provider,
		"max_markets", cfg.Scanner.MaxMarkets,
		"poll_interval", cfg.Scanner.PollInterval,
		"min_edge_bps", cfg.Strategy.MinEdgeBps,
	)

	runLoop(ctx, cfg, src, strat, observer, st, records, logger)
	logger.Info("shutdown complete")
}

// buildSource constructs the configured provider adapter. The provider name
// was already validated.
func buildSource(cfg *config.Config, logger *slog.Logger) source.MarketDataSource {
	switch cfg.Source.Provider {
	case config.ProviderOpinion:
		return source.NewOpinionSource(source.OpinionConfig{
			APIKey:          cfg.Source.OpinionAPIKey,
			Concurrency:     cfg.Source.BooksConcurrency,
			SnapshotTimeout: cfg.Source.SnapshotTimeout,
		}, logger)
	default:
		return source.NewClobSource(source.ClobConfig{
			Host:             cfg.Source.ClobHost,
			BooksChunkSize:   cfg.Source.BooksChunkSize,
			BooksConcurrency: cfg.Source.BooksConcurrency,
			SnapshotTimeout:  cfg.Source.SnapshotTimeout,
		}, logger)
	}
}

func buildStrategy(cfg *config.Config, st *stats.Stats, logger *slog.Logger) (*strategy.SumArb, error) {
	maxBundle, err := cfg.Strategy.MaxBundle()
	if err != nil {
		return nil, err
	}
	maxLegSpread, err := cfg.Strategy.MaxLegSpreadDecimal()
	if err != nil {
		return nil, err
	}
	minLegSize, err := cfg.Strategy.MinLegSizeDecimal()
	if err != nil {
		return nil, err
	}

	return strategy.NewSumArb(strategy.SumArbParams{
		FeeBps:        cfg.Strategy.FeeBps,
		MinEdgeBps:    cfg.Strategy.MinEdgeBps,
		WarnEdgeBps:   cfg.Strategy.WarnEdgeBps,
		MaxBundleSize: maxBundle,
		MaxLegSpread:  maxLegSpread,
		MinLegSize:    minLegSize,
	}, st, logger), nil
}

// runLoop is the poll cycle: refresh markets when due, build the snapshot,
// run the strategy, hand intents to the sink, emit stats, sleep. The market
// list and last refresh time are local state threaded through the loop.
func runLoop(
	ctx context.Context,
	cfg *config.Config,
	src source.MarketDataSource,
	strat strategy.Strategy,
	exec sink.Executor,
	st *stats.Stats,
	records *store.Store,
	logger *slog.Logger,
) {
	var markets []types.MarketDef
	var lastRefresh time.Time

	for ctx.Err() == nil {
		refreshDue := len(markets) == 0 ||
			(cfg.Scanner.RefreshInterval > 0 && time.Since(lastRefresh) >= cfg.Scanner.RefreshInterval)

		if refreshDue {
			logger.Info("refreshing open markets", "max_markets", cfg.Scanner.MaxMarkets)
			fresh, err := src.FetchOpenMarkets(ctx, cfg.Scanner.MaxMarkets)
			if err != nil {
				// Fatal to this cycle only; the listing is retried after
				// the poll interval.
				logger.Error("market refresh failed", "error", err)
				if !sleepCtx(ctx, cfg.Scanner.PollInterval) {
					return
				}
				continue
			}
			markets = fresh
			lastRefresh = time.Now()
			st.SetMarketsLoaded(uint64(len(markets)))
			logger.Info("open markets loaded", "count", len(markets))
		}

		snap, err := src.SnapshotForMarkets(ctx, markets)
		if err != nil {
			logger.Error("snapshot failed", "error", err)
			if !sleepCtx(ctx, cfg.Scanner.PollInterval) {
				return
			}
			continue
		}
		st.IncHeartbeat()
		st.SetMarketsInSnapshot(uint64(len(snap.Markets)))
		logger.Info("heartbeat: snapshot fetched", "markets", len(snap.Markets), "ts", snap.TsMs)

		intents := strat.OnSnapshot(snap)
		if err := exec.Execute(ctx, intents); err != nil {
			logger.Error("execution sink failed", "error", err)
		}

		now := nowMs()
		if st.ShouldLog(now, uint64(cfg.Stats.LogInterval/time.Second)) {
			ss := st.Snapshot(now)
			st.MarkLogged(now)
			logger.Info("stats",
				"up_sec", ss.UpSec,
				"heartbeats", ss.Heartbeats,
				"markets_loaded", ss.MarketsLoaded,
				"markets_in_snapshot", ss.MarketsInSnapshot,
				"near_arb_hits", ss.NearArbHits,
				"opportunities", ss.Opportunities,
				"intents_emitted", ss.IntentsEmitted,
			)
			if records != nil {
				if err := records.Append(ss); err != nil {
					logger.Error("failed to append stats record", "error", err)
				}
			}
		}

		if !sleepCtx(ctx, cfg.Scanner.PollInterval) {
			return
		}
	}
}

// sleepCtx sleeps for d or until ctx is cancelled. Returns false on cancel.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func nowMs() uint64 {
	return uint64(time.Now().UnixMilli())
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
