package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/errgroup"

	"polymarket-arb/pkg/types"
)

const (
	opinionBaseURL  = "https://openapi.opinion.trade/openapi"
	opinionPageSize = 20 // provider's maximum page size

	marketTypeBinary      = 0
	marketTypeCategorical = 1

	childStatusActivated = 2
)

// apiEnvelope is the wrapper around every opinion.trade response. The API
// answers in two dialects — {"code","msg"} and {"errno","errmsg"} — so both
// are decoded and reconciled at the accessors.
type apiEnvelope struct {
	Code   *int            `json:"code"`
	Errno  *int            `json:"errno"`
	Msg    string          `json:"msg"`
	ErrMsg string          `json:"errmsg"`
	Result json.RawMessage `json:"result"`
}

func (e *apiEnvelope) errCode() int {
	if e.Code != nil {
		return *e.Code
	}
	if e.Errno != nil {
		return *e.Errno
	}
	return 0
}

func (e *apiEnvelope) errMsg() string {
	if e.Msg != "" {
		return e.Msg
	}
	return e.ErrMsg
}

type opinionMarketList struct {
	Total int64               `json:"total"`
	List  []opinionMarketItem `json:"list"`
}

type opinionMarketItem struct {
	MarketID     int64                `json:"marketId"`
	MarketTitle  string               `json:"marketTitle"`
	MarketType   int                  `json:"marketType"` // 0=binary, 1=categorical
	Status       int                  `json:"status"`
	YesTokenID   string               `json:"yesTokenId"`
	NoTokenID    string               `json:"noTokenId"`
	ChildMarkets []opinionChildMarket `json:"childMarkets"`
}

type opinionChildMarket struct {
	MarketID    int64  `json:"marketId"`
	MarketTitle string `json:"marketTitle"`
	Status      int    `json:"status"`
	YesTokenID  string `json:"yesTokenId"`
	NoTokenID   string `json:"noTokenId"`
}

type opinionOrderbook struct {
	TokenID string             `json:"tokenId"`
	Bids    []types.PriceLevel `json:"bids"`
	Asks    []types.PriceLevel `json:"asks"`
}

// OpinionSource reads the opinion.trade open API: a page-paginated market
// listing and per-token order book fetches. Categorical markets pass through
// the ladder policy before being accepted, because many of them are nested
// date/threshold ladders rather than true partitions.
type OpinionSource struct {
	http        *resty.Client
	apiKey      string
	concurrency int
	snapTimeout time.Duration
	ladder      LadderPolicy
	logger      *slog.Logger
}

// OpinionConfig carries the tunables for an OpinionSource.
type OpinionConfig struct {
	APIKey          string
	Concurrency     int
	SnapshotTimeout time.Duration
}

// NewOpinionSource creates an opinion.trade data source with the default
// ladder policy.
func NewOpinionSource(cfg OpinionConfig, logger *slog.Logger) *OpinionSource {
	// The gateway is picky about header profiles; a minimal curl-like
	// profile avoids spurious 403s.
	client := resty.New().
		SetBaseURL(opinionBaseURL).
		SetTimeout(10 * time.Second).
		SetHeader("Accept", "*/*").
		SetHeader("User-Agent", "curl/8.0").
		SetHeader("apikey", cfg.APIKey)

	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.SnapshotTimeout <= 0 {
		cfg.SnapshotTimeout = 30 * time.Second
	}

	return &OpinionSource{
		http:        client,
		apiKey:      cfg.APIKey,
		concurrency: cfg.Concurrency,
		snapTimeout: cfg.SnapshotTimeout,
		ladder:      DefaultLadderPolicy(),
		logger:      logger.With("component", "opinion_source"),
	}
}

// FetchOpenMarkets pages through the activated-market listing (1-based
// pagination) until maxMarkets definitions are collected or a page comes
// back empty. Ladder-like categorical markets are skipped at discovery.
func (s *OpinionSource) FetchOpenMarkets(ctx context.Context, maxMarkets int) ([]types.MarketDef, error) {
	var out []types.MarketDef

	for page := 1; len(out) < maxMarkets; page++ {
		items, err := s.fetchMarketsPage(ctx, page, opinionPageSize)
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			break
		}

		for _, item := range items {
			if item.MarketType == marketTypeCategorical &&
				s.ladder.IsLadder(item.MarketTitle, childOptions(item.ChildMarkets)) {
				s.logger.Debug("skipping ladder-like market",
					"market_id", item.MarketID,
					"title", item.MarketTitle,
					"children", len(item.ChildMarkets),
				)
				continue
			}

			tokenIDs := extractTokenIDs(item)
			if len(tokenIDs) < 2 {
				continue
			}
			out = append(out, types.MarketDef{
				MarketID: fmt.Sprintf("%d", item.MarketID),
				Question: item.MarketTitle,
				TokenIDs: tokenIDs,
			})
			if len(out) >= maxMarkets {
				return out, nil
			}
		}
	}

	return out, nil
}

func (s *OpinionSource) fetchMarketsPage(ctx context.Context, page, limit int) ([]opinionMarketItem, error) {
	resp, err := s.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"page":       fmt.Sprintf("%d", page),
			"limit":      fmt.Sprintf("%d", limit),
			"status":     "activated",
			"marketType": "2",
		}).
		Get("/market")
	if err != nil {
		return nil, fmt.Errorf("get market page %d: %w", page, err)
	}

	body := resp.String()
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("get market page %d: status %d: %s", page, resp.StatusCode(), bodySnippet(body))
	}

	var env apiEnvelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return nil, fmt.Errorf("decode market page %d: %w: %s", page, err, bodySnippet(body))
	}
	if env.errCode() != 0 {
		return nil, fmt.Errorf("get market page %d: api error code=%d msg=%s", page, env.errCode(), env.errMsg())
	}

	var list opinionMarketList
	if err := json.Unmarshal(env.Result, &list); err != nil {
		return nil, fmt.Errorf("decode market list page %d: %w", page, err)
	}
	return list.List, nil
}

// extractTokenIDs maps a listing item to its outcome tokens: yes/no for a
// binary market, the YES token of each activated child for a categorical one.
func extractTokenIDs(item opinionMarketItem) []string {
	switch item.MarketType {
	case marketTypeBinary:
		var ids []string
		if item.YesTokenID != "" {
			ids = append(ids, item.YesTokenID)
		}
		if item.NoTokenID != "" {
			ids = append(ids, item.NoTokenID)
		}
		return ids
	case marketTypeCategorical:
		var ids []string
		for _, cm := range item.ChildMarkets {
			if cm.Status == childStatusActivated && cm.YesTokenID != "" {
				ids = append(ids, cm.YesTokenID)
			}
		}
		return ids
	default:
		return nil
	}
}

func childOptions(children []opinionChildMarket) []ChildOption {
	out := make([]ChildOption, len(children))
	for i, cm := range children {
		out[i] = ChildOption{
			Title:  cm.MarketTitle,
			Active: cm.Status == childStatusActivated,
		}
	}
	return out
}

// SnapshotForMarkets fetches each distinct token's order book concurrently
// (bounded by the configured concurrency) and assembles the cycle snapshot.
// Individual fetch failures are silently skipped; the next cycle retries.
func (s *OpinionSource) SnapshotForMarkets(ctx context.Context, markets []types.MarketDef) (types.GlobalSnapshot, error) {
	tokenIDs := dedupeTokenIDs(markets)
	topMap := make(map[string]types.OutcomeTop, len(tokenIDs))

	if len(tokenIDs) > 0 {
		ctx, cancel := context.WithTimeout(ctx, s.snapTimeout)
		defer cancel()

		var mu sync.Mutex
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.concurrency)

		for _, tokenID := range tokenIDs {
			tokenID := tokenID
			g.Go(func() error {
				top, ok := s.fetchOrderbook(gctx, tokenID)
				if !ok {
					return nil
				}
				mu.Lock()
				topMap[tokenID] = top
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
	}

	return assembleSnapshot(markets, topMap), nil
}

// fetchOrderbook fetches one token's book. Hot path: any transport, status,
// decode, or provider-level error just yields ok=false.
func (s *OpinionSource) fetchOrderbook(ctx context.Context, tokenID string) (types.OutcomeTop, bool) {
	resp, err := s.http.R().
		SetContext(ctx).
		SetQueryParam("token_id", tokenID).
		Get("/token/orderbook")
	if err != nil || resp.StatusCode() != 200 {
		return types.OutcomeTop{}, false
	}

	var env apiEnvelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil || env.errCode() != 0 {
		return types.OutcomeTop{}, false
	}

	var book opinionOrderbook
	if err := json.Unmarshal(env.Result, &book); err != nil {
		return types.OutcomeTop{}, false
	}

	// Books arrive pre-sorted: bids descending, asks ascending.
	return topFromSorted(tokenID, book.Bids, book.Asks), true
}
