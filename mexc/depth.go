package mexc

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"arbscan/types"

	"github.com/shopspring/decimal"
)

var ErrEmptyBook = errors.New("empty order book")

type DepthResponse struct {
	LastUpdateID int64      `json:"lastUpdateId"`
	Asks         [][]string `json:"asks"`
	Bids         [][]string `json:"bids"`
}

// FetchOrderBook returns a depth snapshot for symbol with asks ascending and
// bids descending, as the exchange sends them.
func (c *Client) FetchOrderBook(ctx context.Context, symbol string, depth int) (types.OrderBook, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	if depth > 0 {
		q.Set("limit", strconv.Itoa(depth))
	}

	var d DepthResponse
	if err := c.get(ctx, "/api/v3/depth", q, false, &d); err != nil {
		return types.OrderBook{}, err
	}

	asks, err := parseLevels(d.Asks)
	if err != nil {
		return types.OrderBook{}, fmt.Errorf("%s asks: %w", symbol, err)
	}
	bids, err := parseLevels(d.Bids)
	if err != nil {
		return types.OrderBook{}, fmt.Errorf("%s bids: %w", symbol, err)
	}

	if len(asks) == 0 && len(bids) == 0 {
		return types.OrderBook{}, fmt.Errorf("%s: %w", symbol, ErrEmptyBook)
	}

	return types.OrderBook{Asks: asks, Bids: bids}, nil
}

func parseLevels(raw [][]string) ([]types.PriceLevel, error) {
	levels := make([]types.PriceLevel, 0, len(raw))
	for _, r := range raw {
		if len(r) < 2 {
			return nil, fmt.Errorf("malformed level %v", r)
		}
		price, err := decimal.NewFromString(r[0])
		if err != nil {
			return nil, fmt.Errorf("price %q: %w", r[0], err)
		}
		size, err := decimal.NewFromString(r[1])
		if err != nil {
			return nil, fmt.Errorf("size %q: %w", r[1], err)
		}
		levels = append(levels, types.PriceLevel{Price: price, Size: size})
	}
	return levels, nil
}
