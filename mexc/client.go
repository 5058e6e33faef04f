package mexc

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const DefaultBaseURL = "https://api.mexc.com"

type APIError struct {
	StatusCode int
	Code       int    `json:"code"`
	Msg        string `json:"msg"`
}

func (e *APIError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("mexc api status %d: code %d: %s", e.StatusCode, e.Code, e.Msg)
	}
	return fmt.Sprintf("mexc api status %d", e.StatusCode)
}

// Client talks to the MEXC spot REST API. Public endpoints work without
// credentials; deposit lookups need both key and secret.
type Client struct {
	baseURL   string
	apiKey    string
	apiSecret string
	http      *http.Client
	now       func() time.Time
}

func NewClient(baseURL, apiKey, apiSecret string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		apiSecret: apiSecret,
		http:      &http.Client{Timeout: timeout},
		now:       time.Now,
	}
}

// Symbol joins base and quote the way MEXC spot names pairs, e.g. PEPEUSDT.
func Symbol(base, quote string) string {
	return strings.ToUpper(base) + strings.ToUpper(quote)
}

func (c *Client) get(ctx context.Context, path string, q url.Values, signed bool, out any) error {
	if signed {
		if c.apiKey == "" || c.apiSecret == "" {
			return fmt.Errorf("mexc: %s needs api credentials", path)
		}
		q.Set("timestamp", strconv.FormatInt(c.now().UnixMilli(), 10))
	}

	u := c.baseURL + path
	if len(q) > 0 {
		payload := q.Encode()
		u += "?" + payload
		if signed {
			u += "&signature=" + sign(c.apiSecret, payload)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-MEXC-APIKEY", c.apiKey)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if res.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: res.StatusCode}
		_ = json.Unmarshal(body, apiErr)
		return apiErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unmarshal json: %w", err)
	}
	return nil
}

// sign returns the hex HMAC-SHA256 of the exact query string sent, which must
// end up in front of the signature parameter.
func sign(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
