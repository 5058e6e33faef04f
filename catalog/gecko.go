package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"arbscan/types"

	"github.com/rs/zerolog/log"
)

const (
	DefaultGeckoURL = "https://api.coingecko.com/api/v3"
	maxTickerPages  = 200
	maxRateRetries  = 5
)

type geckoTicker struct {
	Base   string `json:"base"`
	Target string `json:"target"`
	CoinID string `json:"coin_id"`
}

type geckoTickersPage struct {
	Name    string        `json:"name"`
	Tickers []geckoTicker `json:"tickers"`
}

type geckoCoin struct {
	ID        string            `json:"id"`
	Symbol    string            `json:"symbol"`
	Platforms map[string]string `json:"platforms"`
}

// Gecko builds the asset catalog of one exchange from CoinGecko: the exchange's
// tickers quoted in the settlement currency joined with per-chain addresses.
type Gecko struct {
	baseURL   string
	apiKey    string
	pageDelay time.Duration
	cooldown  time.Duration
	http      *http.Client
}

func NewGecko(baseURL, apiKey string, pageDelay time.Duration) *Gecko {
	if baseURL == "" {
		baseURL = DefaultGeckoURL
	}
	return &Gecko{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		pageDelay: pageDelay,
		cooldown:  30 * time.Second,
		http:      &http.Client{Timeout: 10 * time.Second},
	}
}

func (g *Gecko) Fetch(ctx context.Context, exchange, settlement string) ([]types.Asset, error) {
	tickers, err := g.exchangeTickers(ctx, exchange, settlement)
	if err != nil {
		return nil, err
	}

	coins, err := g.coinList(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]geckoCoin, len(coins))
	for _, c := range coins {
		byID[c.ID] = c
	}

	assets := make([]types.Asset, 0, len(tickers))
	for _, t := range tickers {
		coin, ok := byID[t.CoinID]
		if !ok {
			log.Debug().Str("component", "catalog").Str("coin_id", t.CoinID).Msg("coin missing from coin list")
			continue
		}
		assets = append(assets, types.Asset{
			CoinID:     t.CoinID,
			BaseSymbol: t.Base,
			Target:     t.Target,
			Platforms:  coin.Platforms,
		})
	}
	return assets, nil
}

// exchangeTickers pages until an empty page and keeps the first ticker per coin
// quoted in settlement.
func (g *Gecko) exchangeTickers(ctx context.Context, exchange, settlement string) ([]geckoTicker, error) {
	var out []geckoTicker
	seen := make(map[string]bool)

	for page := 1; page <= maxTickerPages; page++ {
		q := url.Values{}
		q.Set("page", strconv.Itoa(page))

		var p geckoTickersPage
		if err := g.get(ctx, "/exchanges/"+url.PathEscape(exchange)+"/tickers", q, &p); err != nil {
			return nil, fmt.Errorf("exchange tickers page %d: %w", page, err)
		}
		if len(p.Tickers) == 0 {
			break
		}

		for _, t := range p.Tickers {
			if !strings.EqualFold(t.Target, settlement) || t.CoinID == "" || seen[t.CoinID] {
				continue
			}
			seen[t.CoinID] = true
			out = append(out, t)
		}
		log.Info().Str("component", "catalog").Str("exchange", exchange).Int("page", page).Msg("tickers page done")

		if err := sleep(ctx, g.pageDelay); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (g *Gecko) coinList(ctx context.Context) ([]geckoCoin, error) {
	q := url.Values{}
	q.Set("include_platform", "true")

	var coins []geckoCoin
	if err := g.get(ctx, "/coins/list", q, &coins); err != nil {
		return nil, fmt.Errorf("coin list: %w", err)
	}
	return coins, nil
}

func (g *Gecko) get(ctx context.Context, path string, q url.Values, out any) error {
	for attempt := 1; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path+"?"+q.Encode(), nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		if g.apiKey != "" {
			req.Header.Set("x-cg-demo-api-key", g.apiKey)
		}

		res, err := g.http.Do(req)
		if err != nil {
			return err
		}
		body, err := io.ReadAll(res.Body)
		res.Body.Close()
		if err != nil {
			return fmt.Errorf("read response body: %w", err)
		}

		if res.StatusCode == http.StatusTooManyRequests && attempt < maxRateRetries {
			log.Warn().Str("component", "catalog").Str("path", path).Dur("cooldown", g.cooldown).Msg("coingecko rate limited")
			if err := sleep(ctx, g.cooldown); err != nil {
				return err
			}
			continue
		}
		if res.StatusCode != http.StatusOK {
			return fmt.Errorf("coingecko status %d", res.StatusCode)
		}

		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("unmarshal json: %w", err)
		}
		return nil
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
