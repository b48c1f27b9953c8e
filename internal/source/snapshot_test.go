package source

import (
	"testing"

	"github.com/shopspring/decimal"

	"polymarket-arb/pkg/types"
)

// eq reports whether an optional decimal equals want.
func eq(got *decimal.Decimal, want string) bool {
	return got != nil && got.Equal(decimal.RequireFromString(want))
}

func TestDedupeTokenIDsPreservesFirstSeenOrder(t *testing.T) {
	t.Parallel()

	markets := []types.MarketDef{
		{MarketID: "m1", TokenIDs: []string{"a", "b"}},
		{MarketID: "m2", TokenIDs: []string{"b", "c", "a"}},
		{MarketID: "m3", TokenIDs: []string{"d"}},
	}

	got := dedupeTokenIDs(markets)
	want := []string{"a", "b", "c", "d"}
	if len(got) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestAssembleSnapshotDropsIncompleteMarkets(t *testing.T) {
	t.Parallel()

	markets := []types.MarketDef{
		{MarketID: "complete", Question: "q1", TokenIDs: []string{"a", "b"}},
		{MarketID: "partial", Question: "q2", TokenIDs: []string{"c", "missing"}},
	}
	topMap := map[string]types.OutcomeTop{
		"a": {TokenID: "a"},
		"b": {TokenID: "b"},
		"c": {TokenID: "c"},
	}

	snap := assembleSnapshot(markets, topMap)
	if len(snap.Markets) != 1 {
		t.Fatalf("expected 1 market in snapshot, got %d", len(snap.Markets))
	}
	mb := snap.Markets[0]
	if mb.MarketID != "complete" {
		t.Errorf("market = %s, want complete", mb.MarketID)
	}
	if len(mb.Outcomes) != 2 {
		t.Fatalf("outcome count = %d, want 2 (must match token-id count)", len(mb.Outcomes))
	}
	if mb.Outcomes[0].TokenID != "a" || mb.Outcomes[1].TokenID != "b" {
		t.Errorf("outcome order %s,%s does not match token order a,b",
			mb.Outcomes[0].TokenID, mb.Outcomes[1].TokenID)
	}
	if snap.TsMs == 0 {
		t.Error("snapshot timestamp not set")
	}
}

func TestTopFromScanFindsExtremes(t *testing.T) {
	t.Parallel()

	bids := []types.PriceLevel{
		{Price: "0.40", Size: "100"},
		{Price: "0.55", Size: "25"},
		{Price: "0.50", Size: "10"},
	}
	asks := []types.PriceLevel{
		{Price: "0.90", Size: "5"},
		{Price: "0.57", Size: "40"},
		{Price: "0.60", Size: "8"},
	}

	top := topFromScan("tok", bids, asks)
	if !eq(top.BestBidPx, "0.55") {
		t.Errorf("best bid = %v, want 0.55", top.BestBidPx)
	}
	if !eq(top.BestBidSz, "25") {
		t.Errorf("best bid size = %v, want 25", top.BestBidSz)
	}
	if !eq(top.BestAskPx, "0.57") {
		t.Errorf("best ask = %v, want 0.57", top.BestAskPx)
	}
	if !eq(top.BestAskSz, "40") {
		t.Errorf("best ask size = %v, want 40", top.BestAskSz)
	}
}

func TestTopFromScanSkipsMalformedLevels(t *testing.T) {
	t.Parallel()

	bids := []types.PriceLevel{
		{Price: "not-a-number", Size: "100"}, // would be best, but unparseable
		{Price: "0.50", Size: "10"},
		{Price: "0.52", Size: "oops"}, // size unparseable
	}

	top := topFromScan("tok", bids, nil)
	if !eq(top.BestBidPx, "0.50") {
		t.Errorf("best bid = %v, want 0.50 (malformed levels excluded)", top.BestBidPx)
	}
	if top.BestAskPx != nil {
		t.Error("ask side should be absent for empty asks")
	}
}

func TestTopFromScanEmptyBook(t *testing.T) {
	t.Parallel()

	top := topFromScan("tok", nil, nil)
	if top.FullyQuoted() {
		t.Error("empty book must not be fully quoted")
	}
	if top.TokenID != "tok" {
		t.Errorf("token id = %s, want tok", top.TokenID)
	}
}

func TestTopFromSortedTakesFirstElement(t *testing.T) {
	t.Parallel()

	bids := []types.PriceLevel{{Price: "0.55", Size: "25"}, {Price: "0.50", Size: "10"}}
	asks := []types.PriceLevel{{Price: "0.57", Size: "40"}, {Price: "0.60", Size: "8"}}

	top := topFromSorted("tok", bids, asks)
	if !eq(top.BestBidPx, "0.55") {
		t.Errorf("best bid = %v, want 0.55", top.BestBidPx)
	}
	if !eq(top.BestAskPx, "0.57") {
		t.Errorf("best ask = %v, want 0.57", top.BestAskPx)
	}
}

func TestTopFromSortedUnparseableFirstLeavesSideUnquoted(t *testing.T) {
	t.Parallel()

	bids := []types.PriceLevel{{Price: "", Size: "25"}}
	asks := []types.PriceLevel{{Price: "0.60", Size: "8"}}

	top := topFromSorted("tok", bids, asks)
	if top.BestBidPx != nil {
		t.Error("unparseable first bid must leave the bid side unquoted")
	}
	if top.BestAskPx == nil {
		t.Error("ask side should still resolve")
	}
}

func TestChunkStrings(t *testing.T) {
	t.Parallel()

	ids := []string{"a", "b", "c", "d", "e"}
	chunks := chunkStrings(ids, 2)
	if len(chunks) != 3 {
		t.Fatalf("chunk count = %d, want 3", len(chunks))
	}
	if len(chunks[0]) != 2 || len(chunks[1]) != 2 || len(chunks[2]) != 1 {
		t.Errorf("chunk sizes = %d,%d,%d, want 2,2,1", len(chunks[0]), len(chunks[1]), len(chunks[2]))
	}

	if got := chunkStrings(nil, 3); got != nil {
		t.Errorf("chunking empty input should return nil, got %v", got)
	}
}
