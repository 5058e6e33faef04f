package orderbook

import (
	"testing"

	"arbscan/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lvl(price, size string) types.PriceLevel {
	return types.PriceLevel{Price: decimal.RequireFromString(price), Size: decimal.RequireFromString(size)}
}

var hundred = decimal.NewFromInt(100)

func TestFillPartialLastLevel(t *testing.T) {
	asks := []types.PriceLevel{lvl("10", "5"), lvl("11", "10")}

	price, err := Fill(asks, hundred)
	require.NoError(t, err)

	// 5 @ 10 then (100-50)/11 @ 11
	assert.InDelta(t, 10.476190, price.InexactFloat64(), 1e-6)
	assert.True(t, price.GreaterThan(decimal.NewFromInt(10)))
	assert.True(t, price.LessThan(decimal.NewFromInt(11)))
}

func TestFillExactLevelBoundary(t *testing.T) {
	asks := []types.PriceLevel{lvl("10", "10"), lvl("20", "1")}

	price, err := Fill(asks, hundred)
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.NewFromInt(10)), "got %s", price)
}

func TestFillSingleLevelIsThatPrice(t *testing.T) {
	price, err := Fill([]types.PriceLevel{lvl("0.25", "100000")}, hundred)
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.RequireFromString("0.25")), "got %s", price)
}

func TestFillInsufficientLiquidity(t *testing.T) {
	_, err := Fill(nil, hundred)
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)

	_, err = Fill([]types.PriceLevel{}, hundred)
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)

	_, err = Fill([]types.PriceLevel{lvl("10", "5"), lvl("11", "4")}, hundred)
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)
}

func TestFillSkipsDegenerateLevels(t *testing.T) {
	bids := []types.PriceLevel{lvl("0", "5"), lvl("9", "0"), lvl("8", "20")}

	price, err := Fill(bids, hundred)
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.NewFromInt(8)), "got %s", price)
}

func TestFillRejectsNonPositiveNotional(t *testing.T) {
	_, err := Fill([]types.PriceLevel{lvl("1", "1")}, decimal.Zero)
	assert.Error(t, err)
}

func TestFillIsDeterministic(t *testing.T) {
	asks := []types.PriceLevel{lvl("1.01", "30"), lvl("1.02", "40"), lvl("1.05", "100")}

	first, err := Fill(asks, hundred)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := Fill(asks, hundred)
		require.NoError(t, err)
		assert.True(t, first.Equal(again))
	}
}

func TestFillWeightedBetweenBestAndWorst(t *testing.T) {
	bids := []types.PriceLevel{lvl("2.0", "10"), lvl("1.9", "10"), lvl("1.5", "100")}

	price, err := Fill(bids, hundred)
	require.NoError(t, err)
	assert.True(t, price.LessThan(decimal.RequireFromString("2.0")))
	assert.True(t, price.GreaterThan(decimal.RequireFromString("1.5")))
}

func TestSide(t *testing.T) {
	book := types.OrderBook{
		Asks: []types.PriceLevel{lvl("11", "1")},
		Bids: []types.PriceLevel{lvl("10", "1")},
	}
	assert.Equal(t, book.Asks, Side(book, types.Buy))
	assert.Equal(t, book.Bids, Side(book, types.Sell))
}
