package mexc

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

const ActiveTokensKey = "arbscan:active_tokens"

type Ticker24h struct {
	Symbol      string `json:"symbol"`
	QuoteVolume string `json:"quoteVolume"`
}

// QuoteVolumes returns the 24h quote-currency volume of every pair quoted in
// settlement, keyed by base symbol.
func (c *Client) QuoteVolumes(ctx context.Context, settlement string) (map[string]float64, error) {
	var tickers []Ticker24h
	if err := c.get(ctx, "/api/v3/ticker/24hr", url.Values{}, false, &tickers); err != nil {
		return nil, fmt.Errorf("fetch 24h tickers: %w", err)
	}

	suffix := strings.ToUpper(settlement)
	volumes := make(map[string]float64, len(tickers))
	for _, t := range tickers {
		base, ok := strings.CutSuffix(t.Symbol, suffix)
		if !ok || base == "" {
			continue
		}
		v, err := strconv.ParseFloat(t.QuoteVolume, 64)
		if err != nil {
			continue
		}
		volumes[base] = v
	}
	return volumes, nil
}

// UpdateActiveTokens replaces the active set in redis with the base symbols
// whose 24h volume is at least threshold. An empty result leaves the previous
// set in place.
func UpdateActiveTokens(ctx context.Context, c *Client, rdb *redis.Client, settlement string, threshold float64) (int, error) {
	volumes, err := c.QuoteVolumes(ctx, settlement)
	if err != nil {
		return 0, err
	}

	symbols := make([]string, 0, len(volumes))
	for sym, v := range volumes {
		if v < threshold {
			continue
		}
		symbols = append(symbols, sym)
	}
	if len(symbols) == 0 {
		return 0, nil
	}
	sort.Strings(symbols)

	fields := make([]interface{}, 0, len(symbols)*2)
	for _, sym := range symbols {
		fields = append(fields, sym, strconv.FormatFloat(volumes[sym], 'f', 2, 64))
	}

	_, err = rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, ActiveTokensKey)
		pipe.HSet(ctx, ActiveTokensKey, fields...)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("redis replace active tokens: %w", err)
	}

	return len(symbols), nil
}

func ActiveTokens(ctx context.Context, rdb *redis.Client) (map[string]string, error) {
	tokens, err := rdb.HGetAll(ctx, ActiveTokensKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get active tokens from redis: %w", err)
	}
	return tokens, nil
}
