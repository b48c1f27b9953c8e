package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"polymarket-arb/internal/store"
	"polymarket-arb/pkg/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func intent(bundle uuid.UUID, marketID, tokenID string) types.OrderIntent {
	return types.OrderIntent{
		MarketID: marketID,
		TokenID:  tokenID,
		Side:     types.Buy,
		Price:    decimal.RequireFromString("0.45"),
		Size:     decimal.RequireFromString("10"),
		Reason:   "BUY_BUNDLE sum_ask=0.9 size=10",
		BundleID: bundle,
	}
}

func TestExecuteEmptyIsNoOp(t *testing.T) {
	t.Parallel()
	o := NewObserver(nil, discardLogger())

	if err := o.Execute(context.Background(), nil); err != nil {
		t.Fatalf("Execute(nil): %v", err)
	}
}

func TestExecuteWithoutStore(t *testing.T) {
	t.Parallel()
	o := NewObserver(nil, discardLogger())

	b := uuid.New()
	intents := []types.OrderIntent{intent(b, "m1", "yes"), intent(b, "m1", "no")}
	if err := o.Execute(context.Background(), intents); err != nil {
		t.Fatalf("Execute without store: %v", err)
	}
}

func TestExecuteRecordsOneLinePerBundle(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bundles.jsonl")
	st, err := store.Open(path)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer st.Close()

	o := NewObserver(st, discardLogger())

	b1, b2 := uuid.New(), uuid.New()
	intents := []types.OrderIntent{
		intent(b1, "m1", "yes"),
		intent(b1, "m1", "no"),
		intent(b2, "m2", "a"),
		intent(b2, "m2", "b"),
		intent(b2, "m2", "c"),
	}
	if err := o.Execute(context.Background(), intents); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	defer f.Close()

	legsByBundle := map[string]int{}
	marketByBundle := map[string]string{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec struct {
			BundleID string            `json:"bundle_id"`
			MarketID string            `json:"market_id"`
			Legs     []json.RawMessage `json:"legs"`
		}
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			t.Fatalf("bad record line: %v", err)
		}
		legsByBundle[rec.BundleID] = len(rec.Legs)
		marketByBundle[rec.BundleID] = rec.MarketID
	}

	if len(legsByBundle) != 2 {
		t.Fatalf("got %d bundle records, want 2", len(legsByBundle))
	}
	if legsByBundle[b1.String()] != 2 {
		t.Errorf("bundle 1 legs = %d, want 2", legsByBundle[b1.String()])
	}
	if legsByBundle[b2.String()] != 3 {
		t.Errorf("bundle 2 legs = %d, want 3", legsByBundle[b2.String()])
	}
	if marketByBundle[b1.String()] != "m1" || marketByBundle[b2.String()] != "m2" {
		t.Errorf("bundle markets = %v, want m1 and m2", marketByBundle)
	}
}
