package jupiter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"arbscan/internal/metrics"
	"arbscan/types"

	"github.com/mr-tron/base58"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type ProviderConfig struct {
	Chain       types.Chain
	SlippageBps int
	Cooldown    time.Duration
	CallTimeout time.Duration
}

// Provider quotes one asset at a time against the settlement mint. Unlike 0x,
// Jupiter answers in raw amounts, so the asset's mint decimals must be known.
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
	return &Provider{client: client, key: apiKey, cfg: cfg, name: "jupiter/" + label}
}

func (p *Provider) Name() string { return p.name }

// IsMint reports whether s is a base58 encoded 32 byte Solana address.
func IsMint(s string) bool {
	b, err := base58.Decode(s)
	return err == nil && len(b) == 32
}

// Quote prices a buy as notional of settlement swapped in, and a sell as the
// asset amount needed to receive exactly notional of settlement.
func (p *Provider) Quote(ctx context.Context, asset types.Asset, dir types.Direction, notional decimal.Decimal) types.Quote {
	unavailable := types.Unavailable(asset.BaseSymbol, types.VenueDEX, dir)
	fail := func() types.Quote {
		metrics.QuotesTotal.WithLabelValues(p.name, "unavailable").Inc()
		return unavailable
	}

	mint := asset.Address(p.cfg.Chain.Name)
	if mint == "" {
		log.Debug().Str("venue", p.name).Str("asset", asset.BaseSymbol).Msg("not listed on chain")
		return fail()
	}
	if !IsMint(mint) {
		log.Warn().Str("venue", p.name).Str("asset", asset.BaseSymbol).Str("mint", mint).Msg("invalid mint")
		return fail()
	}
	decimals, ok := asset.Decimals[p.cfg.Chain.Name]
	if !ok {
		log.Debug().Str("venue", p.name).Str("asset", asset.BaseSymbol).Msg("mint decimals unknown")
		return fail()
	}

	req := p.request(mint, dir, notional)

	callCtx, cancel := withTimeout(ctx, p.cfg.CallTimeout)
	res, err := p.client.Quote(callCtx, p.key, req)
	cancel()
	if err != nil {
		log.Error().Str("venue", p.name).Str("asset", asset.BaseSymbol).Str("side", dir.String()).Err(err).Msg("fetch quote")
		if errors.Is(err, ErrRateLimited) {
			metrics.RateLimitedTotal.WithLabelValues(p.name).Inc()
			_ = sleep(ctx, p.cfg.Cooldown)
		}
		return fail()
	}

	raw := res.OutAmount
	if dir == types.Sell {
		raw = res.InAmount
	}
	filled, err := units(raw, decimals)
	if err != nil {
		log.Error().Str("venue", p.name).Str("asset", asset.BaseSymbol).Str("amount", raw).Err(err).Msg("unusable amount in response")
		return fail()
	}

	metrics.QuotesTotal.WithLabelValues(p.name, "ok").Inc()
	return types.NewQuote(asset.BaseSymbol, types.VenueDEX, dir, notional.Div(filled))
}

func (p *Provider) request(mint string, dir types.Direction, notional decimal.Decimal) QuoteRequest {
	amount := notional.Shift(p.cfg.Chain.SettlementDecimals).Truncate(0).String()
	settlement := p.cfg.Chain.SettlementToken

	if dir == types.Buy {
		return QuoteRequest{InputMint: settlement, OutputMint: mint, Amount: amount, SwapMode: ExactIn, SlippageBps: p.cfg.SlippageBps}
	}
	return QuoteRequest{InputMint: mint, OutputMint: settlement, Amount: amount, SwapMode: ExactOut, SlippageBps: p.cfg.SlippageBps}
}

func units(raw string, decimals int) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("non-positive amount %s", raw)
	}
	return d.Shift(int32(-decimals)), nil
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
