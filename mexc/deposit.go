package mexc

import (
	"context"
	"net/url"
	"strings"
)

type DepositAddress struct {
	Coin    string  `json:"coin"`
	Network string  `json:"network"`
	Address string  `json:"address"`
	Memo    *string `json:"memo"`
}

// DepositNetworks lists the networks the exchange accepts deposits of coin on.
// Signed endpoint.
func (c *Client) DepositNetworks(ctx context.Context, coin string) ([]string, error) {
	q := url.Values{}
	q.Set("coin", strings.ToUpper(coin))

	var addrs []DepositAddress
	if err := c.get(ctx, "/api/v3/capital/deposit/address", q, true, &addrs); err != nil {
		return nil, err
	}

	networks := make([]string, 0, len(addrs))
	seen := make(map[string]bool, len(addrs))
	for _, a := range addrs {
		if a.Network == "" || seen[a.Network] {
			continue
		}
		seen[a.Network] = true
		networks = append(networks, a.Network)
	}
	return networks, nil
}
