package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

type TokenInfo struct {
	Mint     string `json:"mint"`
	Decimals int    `json:"decimals"`
}

// LoadTokens reads a JSON object of symbol to mint and decimals.
func LoadTokens(path string) (map[string]TokenInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tokens: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("empty tokens file")
	}

	m := make(map[string]TokenInfo)
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse tokens: %w", err)
	}
	return m, nil
}

// MintDecimals indexes tokens by mint.
func MintDecimals(tokens map[string]TokenInfo) map[string]int {
	out := make(map[string]int, len(tokens))
	for _, t := range tokens {
		if t.Mint != "" {
			out[t.Mint] = t.Decimals
		}
	}
	return out
}
