package zeroex

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"arbscan/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	bscUSDT = "0x55d398326f99059ff775485246999027b3197955"
	bscCAKE = "0x0e09fabb73bd3ade0a17ecc321fd13a19e81ce82"
)

var bsc = types.Chain{
	Name:               "binance-smart-chain",
	ID:                 56,
	Label:              "BNB",
	SettlementToken:    bscUSDT,
	SettlementDecimals: 18,
}

func cake() types.Asset {
	return types.Asset{BaseSymbol: "CAKE", Platforms: map[string]string{"binance-smart-chain": bscCAKE}}
}

func newProvider(t *testing.T, h http.HandlerFunc, cooldown time.Duration) *Provider {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewProvider(NewClient(srv.URL, time.Second), "k1", ProviderConfig{
		Chain:        bsc,
		TakerAddress: "0x12e2A84dA0249d2623cc563D94d7A57F3028cFbE",
		Slippage:     decimal.RequireFromString("0.005"),
		Cooldown:     cooldown,
	})
}

func TestQuoteBuySellsNotionalOfSettlement(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/swap/v1/price", r.URL.Path)
		assert.Equal(t, "k1", r.Header.Get("0x-api-key"))
		assert.Equal(t, "56", q.Get("chainId"))
		assert.True(t, strings.EqualFold(bscCAKE, q.Get("buyToken")))
		assert.True(t, strings.EqualFold(bscUSDT, q.Get("sellToken")))
		assert.Equal(t, "100000000000000000000", q.Get("sellAmount"))
		assert.Empty(t, q.Get("buyAmount"))
		assert.Equal(t, "0.005", q.Get("slippagePercentage"))
		_, _ = w.Write([]byte(`{"price":"0.4","buyAmount":"40000000000000000000"}`))
	}, 0)

	q := p.Quote(context.Background(), cake(), types.Buy, decimal.NewFromInt(100))
	require.True(t, q.Available())
	assert.Equal(t, types.VenueDEX, q.Venue)
	assert.True(t, q.Price.Equal(decimal.RequireFromString("2.5")), "got %s", q.Price)
	assert.Equal(t, "0x/BNB", p.Name())
}

func TestQuoteSellBuysNotionalOfSettlement(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.True(t, strings.EqualFold(bscUSDT, q.Get("buyToken")))
		assert.True(t, strings.EqualFold(bscCAKE, q.Get("sellToken")))
		assert.Equal(t, "100000000000000000000", q.Get("buyAmount"))
		assert.Empty(t, q.Get("sellAmount"))
		_, _ = w.Write([]byte(`{"price":"0.5"}`))
	}, 0)

	q := p.Quote(context.Background(), cake(), types.Sell, decimal.NewFromInt(100))
	require.True(t, q.Available())
	assert.True(t, q.Price.Equal(decimal.NewFromInt(2)), "got %s", q.Price)
}

func TestQuoteUnlistedOnChain(t *testing.T) {
	var calls atomic.Int32
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}, 0)

	eth := types.Asset{BaseSymbol: "UNI", Platforms: map[string]string{"ethereum": "0x1f9840a85d5af5bf1d1762f925bdaddc4201f984"}}
	assert.False(t, p.Quote(context.Background(), eth, types.Buy, decimal.NewFromInt(100)).Available())

	bad := types.Asset{BaseSymbol: "BAD", Platforms: map[string]string{"binance-smart-chain": "not-an-address"}}
	assert.False(t, p.Quote(context.Background(), bad, types.Buy, decimal.NewFromInt(100)).Available())

	assert.Zero(t, calls.Load())
}

func TestQuoteRateLimitedWaitsCooldown(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"reason":"Too Many Requests"}`))
	}, 50*time.Millisecond)

	start := time.Now()
	q := p.Quote(context.Background(), cake(), types.Buy, decimal.NewFromInt(100))
	assert.False(t, q.Available())
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestQuoteOtherFailuresSkipCooldown(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":100,"reason":"Validation Failed"}`))
	}, time.Hour)

	start := time.Now()
	q := p.Quote(context.Background(), cake(), types.Sell, decimal.NewFromInt(100))
	assert.False(t, q.Available())
	assert.Less(t, time.Since(start), time.Minute)
}

func TestQuoteRejectsUnusablePrice(t *testing.T) {
	for _, body := range []string{`{"price":"0"}`, `{"price":""}`, `{"price":"-1"}`, `not json`} {
		p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}, 0)
		assert.False(t, p.Quote(context.Background(), cake(), types.Buy, decimal.NewFromInt(100)).Available(), body)
	}
}

func TestAPIErrorUnwrap(t *testing.T) {
	assert.ErrorIs(t, &APIError{StatusCode: http.StatusTooManyRequests}, ErrRateLimited)
	assert.NotErrorIs(t, &APIError{StatusCode: http.StatusBadRequest}, ErrRateLimited)
}
