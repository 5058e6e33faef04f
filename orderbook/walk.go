// Package orderbook walks ranked price levels to get the volume-weighted price
// of filling a fixed notional.
package orderbook

import (
	"errors"

	"arbscan/types"

	"github.com/shopspring/decimal"
)

var ErrInsufficientLiquidity = errors.New("insufficient liquidity")

// Fill returns the average unit price paid to fill notional (in quote currency)
// walking levels best first. The last level touched is only partially taken so
// that exactly notional of cost is filled.
func Fill(levels []types.PriceLevel, notional decimal.Decimal) (decimal.Decimal, error) {
	if !notional.IsPositive() {
		return decimal.Zero, errors.New("notional must be positive")
	}

	cost := decimal.Zero
	filled := decimal.Zero

	for _, l := range levels {
		if cost.GreaterThanOrEqual(notional) {
			break
		}
		if !l.Price.IsPositive() || !l.Size.IsPositive() {
			continue
		}

		levelCost := l.Price.Mul(l.Size)
		if cost.Add(levelCost).LessThanOrEqual(notional) {
			cost = cost.Add(levelCost)
			filled = filled.Add(l.Size)
			continue
		}

		filled = filled.Add(notional.Sub(cost).Div(l.Price))
		cost = notional
	}

	if cost.LessThan(notional) || !filled.IsPositive() {
		return decimal.Zero, ErrInsufficientLiquidity
	}

	return notional.Div(filled), nil
}

// Side picks the levels a taker consumes: asks to buy, bids to sell into.
func Side(book types.OrderBook, dir types.Direction) []types.PriceLevel {
	if dir == types.Buy {
		return book.Asks
	}
	return book.Bids
}
