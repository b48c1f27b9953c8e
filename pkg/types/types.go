// Package types defines shared data structures used across all packages.
//
// This package is the common vocabulary for the scanner — market definitions,
// top-of-book quotes, per-cycle snapshots, and order intents. It has no
// dependencies on internal packages, so it can be imported by any layer.
//
// All prices and sizes are shopspring decimals. Threshold math near the $1
// boundary cannot tolerate binary floating point: a single ulp of error can
// flip a trade decision.
package types

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Side represents the direction of an order intent.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// MarketDef is a provider-agnostic market definition produced by market
// discovery. TokenIDs holds one outcome token per leg, in provider order;
// a valid definition has at least two legs (a one-leg "bundle" has no
// sum-arbitrage meaning).
type MarketDef struct {
	MarketID string
	Question string
	TokenIDs []string
}

// OutcomeTop is the top-of-book quote for a single outcome token within one
// snapshot cycle. A nil price means that side of the book was empty (or no
// level parsed); price and size are always set together per side.
type OutcomeTop struct {
	TokenID   string           `json:"token_id"`
	BestBidPx *decimal.Decimal `json:"best_bid_px"`
	BestBidSz *decimal.Decimal `json:"best_bid_sz"`
	BestAskPx *decimal.Decimal `json:"best_ask_px"`
	BestAskSz *decimal.Decimal `json:"best_ask_sz"`
}

// FullyQuoted reports whether both a best bid and a best ask are present.
func (o OutcomeTop) FullyQuoted() bool {
	return o.BestBidPx != nil && o.BestAskPx != nil
}

// Spread returns bestAsk - bestBid. ok is false when either side is missing.
func (o OutcomeTop) Spread() (decimal.Decimal, bool) {
	if !o.FullyQuoted() {
		return decimal.Zero, false
	}
	return o.BestAskPx.Sub(*o.BestBidPx), true
}

// MarketBook is one market's fully-quoted view within a snapshot. It is only
// constructed when every token of the originating MarketDef resolved to an
// OutcomeTop; Outcomes preserves the MarketDef token order.
type MarketBook struct {
	MarketID string       `json:"market_id"`
	Question string       `json:"question"`
	Outcomes []OutcomeTop `json:"outcomes"`
}

// GlobalSnapshot is the cross-market view built once per poll cycle.
// Markets with incomplete quotes are silently absent. The snapshot is owned
// by the cycle that built it and is immutable thereafter.
type GlobalSnapshot struct {
	TsMs    int64        `json:"ts_ms"`
	Markets []MarketBook `json:"markets"`
}

// OrderIntent is a single leg of an arbitrage bundle, produced by the
// strategy and consumed by the execution sink. All intents sharing a
// BundleID came from one decision over one market in one cycle.
type OrderIntent struct {
	MarketID string          `json:"market_id"`
	TokenID  string          `json:"token_id"`
	Side     Side            `json:"side"`
	Price    decimal.Decimal `json:"price"`
	Size     decimal.Decimal `json:"size"`
	Reason   string          `json:"reason"`
	BundleID uuid.UUID       `json:"bundle_id"`
}

// PriceLevel is a single bid or ask level as returned by provider REST APIs.
// Price and Size are strings on the wire to preserve decimal precision;
// levels that fail to parse are dropped from top-of-book consideration.
type PriceLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}
