// Package zeroex quotes swaps through the 0x aggregator price endpoint.
package zeroex

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

const DefaultBaseURL = "https://api.0x.org"

var ErrRateLimited = errors.New("rate limited")

type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("0x api status %d: %s", e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusTooManyRequests {
		return ErrRateLimited
	}
	return nil
}

// PriceRequest sets exactly one of SellAmount and BuyAmount, in base units of
// the corresponding token.
type PriceRequest struct {
	ChainID            int64
	BuyToken           string
	SellToken          string
	SellAmount         string
	BuyAmount          string
	TakerAddress       string
	SlippagePercentage string
}

type PriceResponse struct {
	Price      string `json:"price"`
	BuyAmount  string `json:"buyAmount"`
	SellAmount string `json:"sellAmount"`
	GasPrice   string `json:"gasPrice"`
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

func (c *Client) Price(ctx context.Context, apiKey string, pr PriceRequest) (PriceResponse, error) {
	q := url.Values{}
	q.Set("chainId", strconv.FormatInt(pr.ChainID, 10))
	q.Set("buyToken", pr.BuyToken)
	q.Set("sellToken", pr.SellToken)
	if pr.SellAmount != "" {
		q.Set("sellAmount", pr.SellAmount)
	}
	if pr.BuyAmount != "" {
		q.Set("buyAmount", pr.BuyAmount)
	}
	if pr.TakerAddress != "" {
		q.Set("takerAddress", pr.TakerAddress)
	}
	if pr.SlippagePercentage != "" {
		q.Set("slippagePercentage", pr.SlippagePercentage)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/swap/v1/price?"+q.Encode(), nil)
	if err != nil {
		return PriceResponse{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("0x-api-key", apiKey)

	res, err := c.http.Do(req)
	if err != nil {
		return PriceResponse{}, fmt.Errorf("get price: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return PriceResponse{}, fmt.Errorf("read response body: %w", err)
	}

	if res.StatusCode != http.StatusOK {
		if len(body) > 512 {
			body = body[:512]
		}
		return PriceResponse{}, &APIError{StatusCode: res.StatusCode, Body: string(body)}
	}

	var out PriceResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return PriceResponse{}, fmt.Errorf("unmarshal json: %w", err)
	}
	return out, nil
}
