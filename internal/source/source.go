// Package source provides market discovery and order book snapshotting for
// prediction-market data providers.
//
// Two providers are implemented behind the MarketDataSource interface:
//
//   - ClobSource:    Polymarket CLOB — cursor-paginated market listing and a
//     batch books endpoint, fetched in chunks with bounded concurrency.
//   - OpinionSource: opinion.trade — page-paginated listing with a ladder
//     heuristic applied to categorical markets, and per-token book fetches.
//
// Both assemble a GlobalSnapshot the same way: deduplicate outcome tokens
// across the requested markets, fetch top-of-book concurrently, and keep only
// markets for which every token resolved. A failed token fetch is never fatal
// to the cycle — the affected markets simply drop out of this snapshot and
// are re-attempted next cycle.
package source

import (
	"context"

	"polymarket-arb/pkg/types"
)

// MarketDataSource abstracts a prediction-market data provider.
type MarketDataSource interface {
	// FetchOpenMarkets pages through the provider's market listing until
	// maxMarkets definitions with at least two outcome tokens are collected
	// or the listing is exhausted.
	FetchOpenMarkets(ctx context.Context, maxMarkets int) ([]types.MarketDef, error)

	// SnapshotForMarkets fetches top-of-book for every outcome token of the
	// given markets and assembles the per-cycle snapshot. Markets with any
	// unresolved token are omitted.
	SnapshotForMarkets(ctx context.Context, markets []types.MarketDef) (types.GlobalSnapshot, error)
}
