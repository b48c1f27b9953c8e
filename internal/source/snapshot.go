package source

import (
	"time"

	"github.com/shopspring/decimal"

	"polymarket-arb/pkg/types"
)

// dedupeTokenIDs collects the distinct outcome token ids across the requested
// markets, preserving first-seen order. Order is cosmetic (results are keyed
// by token id) but keeps logs and batch requests stable.
func dedupeTokenIDs(markets []types.MarketDef) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range markets {
		for _, t := range m.TokenIDs {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

// assembleSnapshot builds the per-cycle snapshot from resolved top-of-book
// quotes. A market is included iff every one of its token ids is present in
// topMap; outcome order follows the MarketDef token order.
func assembleSnapshot(markets []types.MarketDef, topMap map[string]types.OutcomeTop) types.GlobalSnapshot {
	books := make([]types.MarketBook, 0, len(markets))
	for _, m := range markets {
		outcomes := make([]types.OutcomeTop, 0, len(m.TokenIDs))
		for _, tid := range m.TokenIDs {
			top, ok := topMap[tid]
			if !ok {
				break
			}
			outcomes = append(outcomes, top)
		}
		if len(outcomes) != len(m.TokenIDs) {
			continue
		}
		books = append(books, types.MarketBook{
			MarketID: m.MarketID,
			Question: m.Question,
			Outcomes: outcomes,
		})
	}
	return types.GlobalSnapshot{
		TsMs:    time.Now().UnixMilli(),
		Markets: books,
	}
}

// parseLevel parses one wire price level. Both fields must parse or the
// level is excluded from top-of-book consideration.
func parseLevel(lvl types.PriceLevel) (px, sz decimal.Decimal, ok bool) {
	px, err := decimal.NewFromString(lvl.Price)
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, false
	}
	sz, err = decimal.NewFromString(lvl.Size)
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, false
	}
	return px, sz, true
}

// topFromScan extracts top-of-book with an explicit max/min scan over price,
// for providers that do not guarantee sorted levels. Ties are broken by
// encounter order, which is insignificant since a book has one row per price.
func topFromScan(tokenID string, bids, asks []types.PriceLevel) types.OutcomeTop {
	top := types.OutcomeTop{TokenID: tokenID}
	for _, lvl := range bids {
		px, sz, ok := parseLevel(lvl)
		if !ok {
			continue
		}
		if top.BestBidPx == nil || px.GreaterThan(*top.BestBidPx) {
			p, s := px, sz
			top.BestBidPx, top.BestBidSz = &p, &s
		}
	}
	for _, lvl := range asks {
		px, sz, ok := parseLevel(lvl)
		if !ok {
			continue
		}
		if top.BestAskPx == nil || px.LessThan(*top.BestAskPx) {
			p, s := px, sz
			top.BestAskPx, top.BestAskSz = &p, &s
		}
	}
	return top
}

// topFromSorted extracts top-of-book from a provider that returns pre-sorted
// levels: bids descending, asks ascending. Only the first element of each
// side is consulted; a first element that fails to parse leaves that side
// unquoted.
func topFromSorted(tokenID string, bids, asks []types.PriceLevel) types.OutcomeTop {
	top := types.OutcomeTop{TokenID: tokenID}
	if len(bids) > 0 {
		if px, sz, ok := parseLevel(bids[0]); ok {
			top.BestBidPx, top.BestBidSz = &px, &sz
		}
	}
	if len(asks) > 0 {
		if px, sz, ok := parseLevel(asks[0]); ok {
			top.BestAskPx, top.BestAskSz = &px, &sz
		}
	}
	return top
}
