// Package sink consumes the order intents produced by the strategy.
//
// The only implementation in this repository is Observer, which records and
// logs bundles without touching any exchange. Real execution would implement
// the same Executor interface.
package sink

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"polymarket-arb/internal/store"
	"polymarket-arb/pkg/types"
)

// Executor accepts a batch of order intents, grouped by bundle id.
type Executor interface {
	Execute(ctx context.Context, intents []types.OrderIntent) error
}

// Observer logs every bundle and its legs, and optionally appends a record
// per bundle to a JSONL store. It never places orders.
type Observer struct {
	records *store.Store // nil disables persistence
	logger  *slog.Logger
}

// NewObserver creates an observing sink. records may be nil.
func NewObserver(records *store.Store, logger *slog.Logger) *Observer {
	return &Observer{
		records: records,
		logger:  logger.With("component", "execution_observer"),
	}
}

// bundleRecord is the persisted shape of one detected bundle.
type bundleRecord struct {
	BundleID string              `json:"bundle_id"`
	MarketID string              `json:"market_id"`
	Legs     []types.OrderIntent `json:"legs"`
}

// Execute groups intents by bundle id and logs each bundle with its legs.
func (o *Observer) Execute(ctx context.Context, intents []types.OrderIntent) error {
	if len(intents) == 0 {
		return nil
	}

	byBundle := make(map[uuid.UUID][]types.OrderIntent)
	for _, i := range intents {
		byBundle[i.BundleID] = append(byBundle[i.BundleID], i)
	}

	for id, legs := range byBundle {
		marketID := legs[0].MarketID
		o.logger.Info("bundle intents",
			"bundle_id", id.String(),
			"market_id", marketID,
			"legs", len(legs),
		)
		for _, i := range legs {
			o.logger.Info("intent",
				"bundle_id", i.BundleID.String(),
				"market_id", i.MarketID,
				"token_id", i.TokenID,
				"side", string(i.Side),
				"price", i.Price.String(),
				"size", i.Size.String(),
				"reason", i.Reason,
			)
		}

		if o.records != nil {
			rec := bundleRecord{BundleID: id.String(), MarketID: marketID, Legs: legs}
			if err := o.records.Append(rec); err != nil {
				o.logger.Error("failed to record bundle", "bundle_id", id.String(), "error", err)
			}
		}
	}

	return nil
}
