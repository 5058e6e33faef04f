// Package catalog provides the tradable asset universe of an exchange, with
// the contract address of every asset on each chain it is deployed to.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"arbscan/types"

	"github.com/rs/zerolog/log"
)

type Fetcher interface {
	Fetch(ctx context.Context, exchange, settlement string) ([]types.Asset, error)
}

// Load serves the persisted snapshot when there is one, otherwise fetches a
// fresh catalog and persists it. A failed save is logged, the fetched catalog
// is still returned.
func Load(ctx context.Context, store Store, src Fetcher, exchange, settlement string) ([]types.Asset, error) {
	assets, err := store.Load(ctx, exchange)
	if err == nil {
		return assets, nil
	}
	if !errors.Is(err, ErrNoSnapshot) {
		log.Warn().Str("component", "catalog").Str("exchange", exchange).Err(err).Msg("snapshot unreadable, refetching")
	}
	return Refresh(ctx, store, src, exchange, settlement)
}

func Refresh(ctx context.Context, store Store, src Fetcher, exchange, settlement string) ([]types.Asset, error) {
	assets, err := src.Fetch(ctx, exchange, settlement)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	if len(assets) == 0 {
		return nil, fmt.Errorf("fetch catalog: no %s tickers on %s", settlement, exchange)
	}

	if err := store.Save(ctx, exchange, assets); err != nil {
		log.Error().Str("component", "catalog").Str("exchange", exchange).Err(err).Msg("persist snapshot")
	} else {
		log.Info().Str("component", "catalog").Str("exchange", exchange).Int("assets", len(assets)).Msg("snapshot saved")
	}
	return assets, nil
}

// Filter keeps assets deployed on chain whose base symbol does not contain
// stable, so stablecoin-vs-stablecoin pairs never get compared. Order is kept.
func Filter(assets []types.Asset, chain, stable string) []types.Asset {
	stable = strings.ToUpper(stable)
	out := make([]types.Asset, 0, len(assets))
	for _, a := range assets {
		if a.Address(chain) == "" {
			continue
		}
		if stable != "" && strings.Contains(strings.ToUpper(a.BaseSymbol), stable) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// OnlyActive keeps assets whose base symbol is in active. A nil set keeps all.
func OnlyActive(assets []types.Asset, active map[string]string) []types.Asset {
	if active == nil {
		return assets
	}
	out := make([]types.Asset, 0, len(assets))
	for _, a := range assets {
		if _, ok := active[strings.ToUpper(a.BaseSymbol)]; ok {
			out = append(out, a)
		}
	}
	return out
}

// WithDecimals sets each asset's decimals on chain from decimals, keyed by the
// asset's address there. Assets are copied, the input is left untouched.
func WithDecimals(assets []types.Asset, chain string, decimals map[string]int) []types.Asset {
	out := make([]types.Asset, len(assets))
	for i, a := range assets {
		if d, ok := decimals[a.Address(chain)]; ok {
			m := make(map[string]int, len(a.Decimals)+1)
			for k, v := range a.Decimals {
				m[k] = v
			}
			m[chain] = d
			a.Decimals = m
		}
		out[i] = a
	}
	return out
}
