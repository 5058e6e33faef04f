package mexc

import (
	"context"
	"errors"
	"time"

	"arbscan/internal/metrics"
	"arbscan/orderbook"
	"arbscan/types"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type ProviderConfig struct {
	Name        string
	Settlement  string
	Depth       int
	MaxAttempts int
	Backoff     time.Duration
	CallTimeout time.Duration
}

// Provider quotes the executable price of filling a notional on the spot book.
type Provider struct {
	client *Client
	cfg    ProviderConfig
}

func NewProvider(client *Client, cfg ProviderConfig) *Provider {
	if cfg.Name == "" {
		cfg.Name = "mexc"
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Provider{client: client, cfg: cfg}
}

func (p *Provider) Name() string { return p.cfg.Name }

// Quote never returns an error: failures are logged and come back unavailable,
// after the fixed backoff so a struggling API is not hammered by the next batch.
func (p *Provider) Quote(ctx context.Context, asset types.Asset, dir types.Direction, notional decimal.Decimal) types.Quote {
	symbol := Symbol(asset.BaseSymbol, p.cfg.Settlement)
	unavailable := types.Unavailable(asset.BaseSymbol, types.VenueCEX, dir)

	book, err := p.fetch(ctx, symbol)
	if err != nil {
		metrics.QuotesTotal.WithLabelValues(p.cfg.Name, "unavailable").Inc()
		return unavailable
	}

	price, err := orderbook.Fill(orderbook.Side(book, dir), notional)
	if err != nil {
		log.Warn().Str("venue", p.cfg.Name).Str("symbol", symbol).Str("side", dir.String()).
			Str("notional", notional.String()).Err(err).Msg("not enough depth")
		metrics.QuotesTotal.WithLabelValues(p.cfg.Name, "unavailable").Inc()
		return unavailable
	}

	metrics.QuotesTotal.WithLabelValues(p.cfg.Name, "ok").Inc()
	return types.NewQuote(asset.BaseSymbol, types.VenueCEX, dir, price)
}

func (p *Provider) fetch(ctx context.Context, symbol string) (types.OrderBook, error) {
	var lastErr error
	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		callCtx, cancel := withTimeout(ctx, p.cfg.CallTimeout)
		book, err := p.client.FetchOrderBook(callCtx, symbol, p.cfg.Depth)
		cancel()
		if err == nil {
			return book, nil
		}
		lastErr = err

		log.Error().Str("venue", p.cfg.Name).Str("symbol", symbol).Int("attempt", attempt).
			Err(err).Msg("fetch order book")

		if err := sleep(ctx, p.cfg.Backoff); err != nil {
			return types.OrderBook{}, err
		}
		if errors.Is(err, ErrEmptyBook) || isClientError(err) {
			// unknown or delisted pair, the same request will fail again
			return types.OrderBook{}, lastErr
		}
	}
	return types.OrderBook{}, lastErr
}

func isClientError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 && apiErr.StatusCode != 429
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
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
