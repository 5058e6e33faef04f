package jupiter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"arbscan/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	solUSDT  = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"
	bonkMint = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
)

var solana = types.Chain{
	Name:               "solana",
	Label:              "SOL",
	SettlementToken:    solUSDT,
	SettlementDecimals: 6,
}

func bonk() types.Asset {
	return types.Asset{
		BaseSymbol: "BONK",
		Platforms:  map[string]string{"solana": bonkMint},
		Decimals:   map[string]int{"solana": 5},
	}
}

func newProvider(t *testing.T, h http.HandlerFunc, cooldown time.Duration) *Provider {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewProvider(NewClient(srv.URL, time.Second), "", ProviderConfig{
		Chain:       solana,
		SlippageBps: 50,
		Cooldown:    cooldown,
	})
}

func TestQuoteBuySwapsNotionalIn(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/swap/v1/quote", r.URL.Path)
		assert.Equal(t, solUSDT, q.Get("inputMint"))
		assert.Equal(t, bonkMint, q.Get("outputMint"))
		assert.Equal(t, "100000000", q.Get("amount"))
		assert.Equal(t, ExactIn, q.Get("swapMode"))
		assert.Equal(t, "50", q.Get("slippageBps"))
		assert.Empty(t, r.Header.Get("x-api-key"))
		_, _ = w.Write([]byte(`{"inAmount":"100000000","outAmount":"400000000000","swapMode":"ExactIn"}`))
	}, 0)

	q := p.Quote(context.Background(), bonk(), types.Buy, decimal.NewFromInt(100))
	require.True(t, q.Available())
	assert.Equal(t, "jupiter/SOL", p.Name())
	assert.True(t, q.Price.Equal(decimal.RequireFromString("0.000025")), q.Price.String())
}

func TestQuoteSellReceivesNotionalOut(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, bonkMint, q.Get("inputMint"))
		assert.Equal(t, solUSDT, q.Get("outputMint"))
		assert.Equal(t, "100000000", q.Get("amount"))
		assert.Equal(t, ExactOut, q.Get("swapMode"))
		_, _ = w.Write([]byte(`{"inAmount":"500000000000","outAmount":"100000000","swapMode":"ExactOut"}`))
	}, 0)

	q := p.Quote(context.Background(), bonk(), types.Sell, decimal.NewFromInt(100))
	require.True(t, q.Available())
	assert.Equal(t, types.Sell, q.Direction)
	assert.True(t, q.Price.Equal(decimal.RequireFromString("0.00002")), q.Price.String())
}

func TestQuoteUnavailableWithoutRequest(t *testing.T) {
	var hits atomic.Int32
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}, 0)

	noDecimals := bonk()
	noDecimals.Decimals = nil
	badMint := bonk()
	badMint.Platforms["solana"] = "0x0e09fabb73bd3ade0a17ecc321fd13a19e81ce82"
	unlisted := types.Asset{BaseSymbol: "CAKE"}

	for _, a := range []types.Asset{noDecimals, badMint, unlisted} {
		q := p.Quote(context.Background(), a, types.Buy, decimal.NewFromInt(100))
		assert.False(t, q.Available(), a.BaseSymbol)
	}
	assert.Zero(t, hits.Load())
}

func TestQuoteRateLimitedWaitsCooldown(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}, 50*time.Millisecond)

	start := time.Now()
	q := p.Quote(context.Background(), bonk(), types.Buy, decimal.NewFromInt(100))
	assert.False(t, q.Available())
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestQuoteRejectsZeroAmount(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"inAmount":"100000000","outAmount":"0"}`))
	}, 0)

	assert.False(t, p.Quote(context.Background(), bonk(), types.Buy, decimal.NewFromInt(100)).Available())
}

func TestClientSendsAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Could not find any route"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Quote(context.Background(), "secret", QuoteRequest{Amount: "1"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.NotErrorIs(t, err, ErrRateLimited)
}

func TestIsMint(t *testing.T) {
	assert.True(t, IsMint(solUSDT))
	assert.True(t, IsMint(bonkMint))
	assert.False(t, IsMint("0x55d398326f99059fF775485246999027B3197955"))
	assert.False(t, IsMint(""))
	assert.False(t, IsMint("abc"))
}
