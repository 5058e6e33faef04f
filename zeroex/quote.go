package zeroex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"arbscan/internal/metrics"
	"arbscan/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type ProviderConfig struct {
	Chain        types.Chain
	TakerAddress string
	Slippage     decimal.Decimal
	Cooldown     time.Duration
	CallTimeout  time.Duration
}

// Provider quotes one asset at a time against the settlement token using a
// single API key. The scanner holds one Provider per key.
type Provider struct {
	client *Client
	key    string
	cfg    ProviderConfig
	name   string
}

func NewProvider(client *Client, apiKey string, cfg ProviderConfig) *Provider {
	label := cfg.Chain.Label
	if label == "" {
		label = cfg.Chain.Name
	}
	return &Provider{client: client, key: apiKey, cfg: cfg, name: "0x/" + label}
}

func (p *Provider) Name() string { return p.name }

// Quote returns the settlement-currency price per base unit of swapping the
// notional. Buying sells exactly notional of settlement token, selling buys it.
func (p *Provider) Quote(ctx context.Context, asset types.Asset, dir types.Direction, notional decimal.Decimal) types.Quote {
	unavailable := types.Unavailable(asset.BaseSymbol, types.VenueDEX, dir)

	token := asset.Address(p.cfg.Chain.Name)
	if token == "" {
		log.Debug().Str("venue", p.name).Str("asset", asset.BaseSymbol).Msg("not listed on chain")
		metrics.QuotesTotal.WithLabelValues(p.name, "unavailable").Inc()
		return unavailable
	}
	if !common.IsHexAddress(token) {
		log.Warn().Str("venue", p.name).Str("asset", asset.BaseSymbol).Str("address", token).Msg("invalid token address")
		metrics.QuotesTotal.WithLabelValues(p.name, "unavailable").Inc()
		return unavailable
	}

	req, err := p.request(common.HexToAddress(token), dir, notional)
	if err != nil {
		log.Error().Str("venue", p.name).Str("asset", asset.BaseSymbol).Err(err).Msg("build price request")
		metrics.QuotesTotal.WithLabelValues(p.name, "unavailable").Inc()
		return unavailable
	}

	callCtx, cancel := withTimeout(ctx, p.cfg.CallTimeout)
	res, err := p.client.Price(callCtx, p.key, req)
	cancel()
	if err != nil {
		log.Error().Str("venue", p.name).Str("asset", asset.BaseSymbol).Str("side", dir.String()).Err(err).Msg("fetch price")
		metrics.QuotesTotal.WithLabelValues(p.name, "unavailable").Inc()
		if errors.Is(err, ErrRateLimited) {
			metrics.RateLimitedTotal.WithLabelValues(p.name).Inc()
			_ = sleep(ctx, p.cfg.Cooldown)
		}
		return unavailable
	}

	price, err := decimal.NewFromString(res.Price)
	if err != nil || !price.IsPositive() {
		log.Error().Str("venue", p.name).Str("asset", asset.BaseSymbol).Str("price", res.Price).Msg("unusable price in response")
		metrics.QuotesTotal.WithLabelValues(p.name, "unavailable").Inc()
		return unavailable
	}

	metrics.QuotesTotal.WithLabelValues(p.name, "ok").Inc()
	return types.NewQuote(asset.BaseSymbol, types.VenueDEX, dir, decimal.NewFromInt(1).Div(price))
}

func (p *Provider) request(token common.Address, dir types.Direction, notional decimal.Decimal) (PriceRequest, error) {
	if !common.IsHexAddress(p.cfg.Chain.SettlementToken) {
		return PriceRequest{}, fmt.Errorf("settlement token %q is not an address", p.cfg.Chain.SettlementToken)
	}
	settlement := common.HexToAddress(p.cfg.Chain.SettlementToken).Hex()
	amount := notional.Shift(p.cfg.Chain.SettlementDecimals).Truncate(0).String()

	req := PriceRequest{
		ChainID:            p.cfg.Chain.ID,
		TakerAddress:       p.cfg.TakerAddress,
		SlippagePercentage: p.cfg.Slippage.String(),
	}
	if p.cfg.Slippage.IsZero() {
		req.SlippagePercentage = ""
	}

	if dir == types.Buy {
		req.BuyToken = token.Hex()
		req.SellToken = settlement
		req.SellAmount = amount
	} else {
		req.BuyToken = settlement
		req.SellToken = token.Hex()
		req.BuyAmount = amount
	}
	return req, nil
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
