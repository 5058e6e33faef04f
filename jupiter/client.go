// Package jupiter quotes swaps on Solana through the Jupiter aggregator.
package jupiter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const DefaultBaseURL = "https://lite-api.jup.ag"

const (
	ExactIn  = "ExactIn"
	ExactOut = "ExactOut"
)

var ErrRateLimited = errors.New("rate limited")

type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("jupiter api status %d: %s", e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusTooManyRequests {
		return ErrRateLimited
	}
	return nil
}

// QuoteRequest amounts are in base units: of the input mint for ExactIn, of
// the output mint for ExactOut.
type QuoteRequest struct {
	InputMint   string
	OutputMint  string
	Amount      string
	SwapMode    string
	SlippageBps int
}

type QuoteResponse struct {
	InputMint      string `json:"inputMint"`
	InAmount       string `json:"inAmount"`
	OutputMint     string `json:"outputMint"`
	OutAmount      string `json:"outAmount"`
	SwapMode       string `json:"swapMode"`
	PriceImpactPct string `json:"priceImpactPct"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Quote calls /swap/v1/quote. apiKey may be empty on the keyless host.
func (c *Client) Quote(ctx context.Context, apiKey string, qr QuoteRequest) (QuoteResponse, error) {
	q := url.Values{}
	q.Set("inputMint", qr.InputMint)
	q.Set("outputMint", qr.OutputMint)
	q.Set("amount", qr.Amount)
	if qr.SwapMode != "" {
		q.Set("swapMode", qr.SwapMode)
	}
	if qr.SlippageBps > 0 {
		q.Set("slippageBps", strconv.Itoa(qr.SlippageBps))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/swap/v1/quote?"+q.Encode(), nil)
	if err != nil {
		return QuoteResponse{}, fmt.Errorf("build request: %w", err)
	}
	if apiKey != "" {
		req.Header.Set("x-api-key", apiKey)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return QuoteResponse{}, fmt.Errorf("get quote: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return QuoteResponse{}, fmt.Errorf("read response body: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		if len(body) > 512 {
			body = body[:512]
		}
		return QuoteResponse{}, &APIError{StatusCode: res.StatusCode, Body: string(body)}
	}

	var out QuoteResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return QuoteResponse{}, fmt.Errorf("unmarshal json: %w", err)
	}
	return out, nil
}
