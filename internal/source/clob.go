package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/errgroup"

	"polymarket-arb/pkg/types"
)

// clobMarket is the JSON shape of one market in the CLOB listing.
type clobMarket struct {
	EnableOrderBook bool        `json:"enable_order_book"`
	AcceptingOrders bool        `json:"accepting_orders"`
	Closed          bool        `json:"closed"`
	ConditionID     string      `json:"condition_id"`
	Question        string      `json:"question"`
	Tokens          []clobToken `json:"tokens"`
}

type clobToken struct {
	TokenID string `json:"token_id"`
}

type clobMarketsResp struct {
	Data       []clobMarket `json:"data"`
	NextCursor string       `json:"next_cursor"`
}

type clobBooksReqItem struct {
	TokenID string `json:"token_id"`
}

// clobBook is one book in the batch POST /books response. Level order is not
// guaranteed, so top-of-book uses an explicit scan.
type clobBook struct {
	AssetID string             `json:"asset_id"`
	Bids    []types.PriceLevel `json:"bids"`
	Asks    []types.PriceLevel `json:"asks"`
}

// ClobSource reads the Polymarket CLOB REST API: a cursor-paginated market
// listing and a batch books endpoint. Book fetches are chunked and issued
// with bounded concurrency; a failed chunk only costs this cycle the markets
// whose tokens it carried.
type ClobSource struct {
	list        *resty.Client
	books       *resty.Client
	rl          *RateLimiter
	chunkSize   int
	concurrency int
	snapTimeout time.Duration
	logger      *slog.Logger
}

// ClobConfig carries the tunables for a ClobSource.
type ClobConfig struct {
	Host             string
	BooksChunkSize   int
	BooksConcurrency int
	SnapshotTimeout  time.Duration
}

// NewClobSource creates a CLOB data source. Listing requests retry on 5xx;
// book requests are fail-fast, since a missed token is recovered next cycle.
func NewClobSource(cfg ClobConfig, logger *slog.Logger) *ClobSource {
	list := resty.New().
		SetBaseURL(cfg.Host).
		SetTimeout(10 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(250 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err == nil && r.StatusCode() >= 500
		})

	books := resty.New().
		SetBaseURL(cfg.Host).
		SetTimeout(10 * time.Second).
		SetHeader("Content-Type", "application/json")

	if cfg.BooksChunkSize < 1 {
		cfg.BooksChunkSize = 1
	}
	if cfg.BooksConcurrency < 1 {
		cfg.BooksConcurrency = 1
	}
	if cfg.SnapshotTimeout <= 0 {
		cfg.SnapshotTimeout = 30 * time.Second
	}

	return &ClobSource{
		list:        list,
		books:       books,
		rl:          NewRateLimiter(),
		chunkSize:   cfg.BooksChunkSize,
		concurrency: cfg.BooksConcurrency,
		snapTimeout: cfg.SnapshotTimeout,
		logger:      logger.With("component", "clob_source"),
	}
}

// FetchOpenMarkets pages through GET /markets following next_cursor until
// maxMarkets tradeable definitions are collected or the cursor runs out.
// Markets must have the order book enabled, be accepting orders, not be
// closed, and carry at least two non-empty token ids.
func (s *ClobSource) FetchOpenMarkets(ctx context.Context, maxMarkets int) ([]types.MarketDef, error) {
	var out []types.MarketDef
	cursor := ""

	for {
		if err := s.rl.Markets.Wait(ctx); err != nil {
			return nil, err
		}

		req := s.list.R().SetContext(ctx)
		if cursor != "" {
			req.SetQueryParam("next_cursor", cursor)
		}

		resp, err := req.Get("/markets")
		if err != nil {
			return nil, fmt.Errorf("get markets: %w", err)
		}
		if resp.StatusCode() != http.StatusOK {
			return nil, fmt.Errorf("get markets: status %d: %s", resp.StatusCode(), bodySnippet(resp.String()))
		}

		var page clobMarketsResp
		if err := json.Unmarshal(resp.Body(), &page); err != nil {
			return nil, fmt.Errorf("decode markets: %w: %s", err, bodySnippet(resp.String()))
		}

		for _, m := range page.Data {
			if !m.EnableOrderBook || !m.AcceptingOrders || m.Closed {
				continue
			}
			tokenIDs := make([]string, 0, len(m.Tokens))
			for _, t := range m.Tokens {
				if t.TokenID != "" {
					tokenIDs = append(tokenIDs, t.TokenID)
				}
			}
			if len(tokenIDs) < 2 {
				continue
			}
			out = append(out, types.MarketDef{
				MarketID: m.ConditionID,
				Question: m.Question,
				TokenIDs: tokenIDs,
			})
			if len(out) >= maxMarkets {
				return out, nil
			}
		}

		// An empty or repeated cursor means the listing is exhausted; never
		// spin on a provider that keeps returning the same page.
		if page.NextCursor == "" || page.NextCursor == cursor {
			break
		}
		cursor = page.NextCursor
	}

	return out, nil
}

// SnapshotForMarkets fetches top-of-book for every distinct token via the
// batch books endpoint and assembles the cycle snapshot. The whole fan-out
// runs under one deadline so a hung request cannot stall the poll loop.
func (s *ClobSource) SnapshotForMarkets(ctx context.Context, markets []types.MarketDef) (types.GlobalSnapshot, error) {
	tokenIDs := dedupeTokenIDs(markets)
	topMap := make(map[string]types.OutcomeTop, len(tokenIDs))

	if len(tokenIDs) > 0 {
		ctx, cancel := context.WithTimeout(ctx, s.snapTimeout)
		defer cancel()

		chunks := chunkStrings(tokenIDs, s.chunkSize)
		s.logger.Debug("fetching books in chunks",
			"total_tokens", len(tokenIDs),
			"chunks", len(chunks),
			"chunk_size", s.chunkSize,
			"concurrency", s.concurrency,
		)

		var mu sync.Mutex
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.concurrency)

		for _, chunk := range chunks {
			chunk := chunk
			g.Go(func() error {
				books, err := s.fetchBooks(gctx, chunk)
				if err != nil {
					// Non-fatal: the chunk's tokens stay unresolved and
					// their markets drop out of this cycle's snapshot.
					s.logger.Debug("books chunk failed", "tokens", len(chunk), "error", err)
					return nil
				}
				mu.Lock()
				for _, b := range books {
					topMap[b.TokenID] = b
				}
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
	}

	return assembleSnapshot(markets, topMap), nil
}

// fetchBooks issues one batch POST /books request for a chunk of tokens.
func (s *ClobSource) fetchBooks(ctx context.Context, tokenIDs []string) ([]types.OutcomeTop, error) {
	if err := s.rl.Books.Wait(ctx); err != nil {
		return nil, err
	}

	body := make([]clobBooksReqItem, len(tokenIDs))
	for i, t := range tokenIDs {
		body[i] = clobBooksReqItem{TokenID: t}
	}

	var books []clobBook
	resp, err := s.books.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&books).
		Post("/books")
	if err != nil {
		return nil, fmt.Errorf("post books: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("post books: status %d", resp.StatusCode())
	}

	out := make([]types.OutcomeTop, 0, len(books))
	for _, b := range books {
		out = append(out, topFromScan(b.AssetID, b.Bids, b.Asks))
	}
	return out, nil
}

// chunkStrings splits ids into slices of at most size elements.
func chunkStrings(ids []string, size int) [][]string {
	var chunks [][]string
	for len(ids) > size {
		chunks = append(chunks, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		chunks = append(chunks, ids)
	}
	return chunks
}

// bodySnippet bounds a raw response body for inclusion in an error message.
func bodySnippet(body string) string {
	const max = 512
	if len(body) > max {
		return body[:max]
	}
	return body
}
