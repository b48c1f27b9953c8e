// Package strategy implements sum-of-prices arbitrage detection over
// cross-market snapshots.
//
// The premise: buying one unit of every mutually exclusive, exhaustive
// outcome of a market guarantees a payout of exactly $1 at resolution. When
// the sum of best ask prices across all legs (plus fees) is below $1 by at
// least the configured edge, the bundle is a riskless buy. The strategy is a
// pure function from snapshot to order intents — its only side effects are
// counter increments on the shared Stats.
package strategy

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"polymarket-arb/internal/stats"
	"polymarket-arb/pkg/types"
)

// Strategy evaluates one snapshot and returns the order intents it implies.
// Implementations must be safe to re-run on an unchanged snapshot: the same
// decisions come out, only bundle ids differ.
type Strategy interface {
	OnSnapshot(snap types.GlobalSnapshot) []types.OrderIntent
}

// SumArbParams are the tuning knobs for the sum-arbitrage rule. Edges and
// fees are expressed in basis points (1 bps = 0.0001).
type SumArbParams struct {
	FeeBps      int64
	MinEdgeBps  int64
	WarnEdgeBps int64

	// MaxBundleSize caps the per-leg size of any emitted bundle.
	MaxBundleSize decimal.Decimal

	// MaxLegSpread, when set, disqualifies a market if any leg's ask-bid
	// spread exceeds it. MinLegSize, when set, requires every leg's bid and
	// ask size to meet it. Nil disables the filter.
	MaxLegSpread *decimal.Decimal
	MinLegSize   *decimal.Decimal
}

// SumArb applies the sum-of-asks arbitrage rule to every market in a
// snapshot.
type SumArb struct {
	params SumArbParams
	stats  *stats.Stats
	logger *slog.Logger

	fee      decimal.Decimal
	minEdge  decimal.Decimal
	warnEdge decimal.Decimal
}

// NewSumArb creates a strategy instance. The bps parameters are converted to
// decimal fractions once, up front.
func NewSumArb(params SumArbParams, st *stats.Stats, logger *slog.Logger) *SumArb {
	return &SumArb{
		params:   params,
		stats:    st,
		logger:   logger.With("component", "sum_arb"),
		fee:      bpsToFraction(params.FeeBps),
		minEdge:  bpsToFraction(params.MinEdgeBps),
		warnEdge: bpsToFraction(params.WarnEdgeBps),
	}
}

var (
	one         = decimal.NewFromInt(1)
	tenThousand = decimal.NewFromInt(10000)
)

// bpsToFraction converts basis points to a decimal fraction (bps / 10000).
func bpsToFraction(bps int64) decimal.Decimal {
	return decimal.NewFromInt(bps).Div(tenThousand)
}

// OnSnapshot evaluates every market book against the arbitrage rule and
// returns one Buy intent per leg for each detected opportunity.
func (s *SumArb) OnSnapshot(snap types.GlobalSnapshot) []types.OrderIntent {
	var out []types.OrderIntent

	for _, m := range snap.Markets {
		// A single-outcome book cannot represent a complete outcome set;
		// its "sum of asks" is artificially low and would false-positive.
		if len(m.Outcomes) < 2 {
			continue
		}

		if !s.legsAdmissible(m.Outcomes) {
			continue
		}

		sumAsk, sumBid, buyCap := s.priceBundle(m.Outcomes)
		if buyCap.LessThanOrEqual(decimal.Zero) {
			continue
		}

		// Near-arb: operator visibility for markets approaching the
		// boundary. Counted, never traded on its own.
		if sumAsk.LessThan(one.Add(s.warnEdge)) {
			s.stats.IncNearArb()
			s.logger.Warn("near-arb: bundle pricing close to 1",
				"market_id", m.MarketID,
				"question", m.Question,
				"sum_ask", sumAsk.String(),
				"sum_bid", sumBid.String(),
				"spread", sumAsk.Sub(sumBid).String(),
				"size", buyCap.String(),
				"legs", len(m.Outcomes),
			)
		}

		// Execution threshold, strict: sumAsk * (1 + fee) < 1 - minEdge.
		if !sumAsk.Mul(one.Add(s.fee)).LessThan(one.Sub(s.minEdge)) {
			continue
		}

		s.stats.IncOpportunity()
		bundleID := uuid.New()
		s.logger.Info("opportunity: BUY_BUNDLE",
			"market_id", m.MarketID,
			"question", m.Question,
			"sum_ask", sumAsk.String(),
			"size", buyCap.String(),
			"legs", len(m.Outcomes),
			"bundle_id", bundleID.String(),
		)

		reason := fmt.Sprintf("BUY_BUNDLE sum_ask=%s size=%s", sumAsk, buyCap)
		for _, o := range m.Outcomes {
			if o.BestAskPx == nil {
				continue
			}
			out = append(out, types.OrderIntent{
				MarketID: m.MarketID,
				TokenID:  o.TokenID,
				Side:     types.Buy,
				Price:    *o.BestAskPx,
				Size:     buyCap,
				Reason:   reason,
				BundleID: bundleID,
			})
		}
	}

	s.stats.AddIntents(uint64(len(out)))
	return out
}

// legsAdmissible applies the per-leg filters: every outcome must be quoted on
// both sides, within the max spread, and at or above the min size. One bad
// leg disqualifies the whole market for this cycle.
func (s *SumArb) legsAdmissible(outcomes []types.OutcomeTop) bool {
	for _, o := range outcomes {
		spread, ok := o.Spread()
		if !ok {
			return false
		}
		if s.params.MaxLegSpread != nil && spread.GreaterThan(*s.params.MaxLegSpread) {
			return false
		}
		if s.params.MinLegSize != nil {
			askSz, bidSz := decimal.Zero, decimal.Zero
			if o.BestAskSz != nil {
				askSz = *o.BestAskSz
			}
			if o.BestBidSz != nil {
				bidSz = *o.BestBidSz
			}
			if askSz.LessThan(*s.params.MinLegSize) || bidSz.LessThan(*s.params.MinLegSize) {
				return false
			}
		}
	}
	return true
}

// priceBundle computes the summed best asks and bids across the legs and the
// bundle size cap: the minimum best-ask size, bounded by MaxBundleSize. A leg
// with no ask size zeroes the cap.
func (s *SumArb) priceBundle(outcomes []types.OutcomeTop) (sumAsk, sumBid, buyCap decimal.Decimal) {
	capSet := false
	for _, o := range outcomes {
		if o.BestAskPx == nil || o.BestAskSz == nil {
			return sumAsk, sumBid, decimal.Zero
		}
		sumAsk = sumAsk.Add(*o.BestAskPx)
		if o.BestBidPx != nil {
			sumBid = sumBid.Add(*o.BestBidPx)
		}
		if !capSet || o.BestAskSz.LessThan(buyCap) {
			buyCap = *o.BestAskSz
			capSet = true
		}
	}
	if buyCap.GreaterThan(s.params.MaxBundleSize) {
		buyCap = s.params.MaxBundleSize
	}
	return sumAsk, sumBid, buyCap
}
