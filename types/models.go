package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	Exchange          string          `yaml:"exchange"`
	SettlementSymbol  string          `yaml:"settlement_symbol"`
	StableSubstring   string          `yaml:"stable_substring"`
	Notional          decimal.Decimal `yaml:"notional"`
	AlertThreshold    decimal.Decimal `yaml:"alert_threshold"`
	Chain             Chain           `yaml:"chain"`
	Scans             []ScanJob       `yaml:"scans"`
	BatchDelay        time.Duration   `yaml:"batch_delay"`
	IdleDelay         time.Duration   `yaml:"idle_delay"`
	CallTimeout       time.Duration   `yaml:"call_timeout"`
	MaxAttempts       int             `yaml:"max_attempts"`
	CexErrorBackoff   time.Duration   `yaml:"cex_error_backoff"`
	RateLimitCooldown time.Duration   `yaml:"rate_limit_cooldown"`
	ContractDepth     int             `yaml:"contract_depth"`
	Volume24hMin      float64         `yaml:"volume_24h_min"`
	CatalogCron       string          `yaml:"catalog_cron"`
	MetricsAddr       string          `yaml:"metrics_addr"`
	LogLevel          string          `yaml:"log_level"`
	LogPretty         bool            `yaml:"log_pretty"`

	// DEX selects the aggregator: "0x" for EVM chains, "jupiter" for Solana.
	DEX       string          `yaml:"dex"`
	// KeysFile lists the aggregator API keys, one DEX provider per key.
	KeysFile  string          `yaml:"keys_file"`
	Mexc      MexcConfig      `yaml:"mexc"`
	ZeroEx    ZeroExConfig    `yaml:"zeroex"`
	Jupiter   JupiterConfig   `yaml:"jupiter"`
	CoinGecko CoinGeckoConfig `yaml:"coingecko"`
	Redis     RedisConfig     `yaml:"redis"`

	TelegramBotToken string  `yaml:"telegram_bot_token"`
	TelegramChatIDs  []int64 `yaml:"telegram_chat_ids"`
}

// Chain describes the network the DEX side is quoted on and how the CEX names it.
type Chain struct {
	Name               string   `yaml:"name"`
	ID                 int64    `yaml:"id"`
	Label              string   `yaml:"label"`
	SettlementToken    string   `yaml:"settlement_token"`
	SettlementDecimals int32    `yaml:"settlement_decimals"`
	CexNetworks        []string `yaml:"cex_networks"`
}

// ScanJob is one scanner run per iteration: which venue buys and which slice of
// API keys it may use. KeysTo of zero means up to the last key.
type ScanJob struct {
	BuySide  string `yaml:"buy_side"`
	KeysFrom int    `yaml:"keys_from"`
	KeysTo   int    `yaml:"keys_to"`
}

type MexcConfig struct {
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
}

type ZeroExConfig struct {
	BaseURL      string          `yaml:"base_url"`
	TakerAddress string          `yaml:"taker_address"`
	Slippage     decimal.Decimal `yaml:"slippage"`
}

type JupiterConfig struct {
	BaseURL     string `yaml:"base_url"`
	SlippageBps int    `yaml:"slippage_bps"`
	// TokensFile maps symbols to mint and decimals; quotes need the decimals.
	TokensFile string `yaml:"tokens_file"`
}

type CoinGeckoConfig struct {
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	SnapshotDir string        `yaml:"snapshot_dir"`
	Store       string        `yaml:"store"`
	PageDelay   time.Duration `yaml:"page_delay"`
}

type RedisConfig struct {
	Addr          string        `yaml:"addr"`
	Password      string        `yaml:"password"`
	DB            int           `yaml:"db"`
	AlertCooldown time.Duration `yaml:"alert_cooldown"`
}

type PriceLevel struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// OrderBook holds asks ascending and bids descending, best level first.
type OrderBook struct {
	Asks []PriceLevel
	Bids []PriceLevel
}

type Asset struct {
	CoinID     string            `json:"coin_id"`
	BaseSymbol string            `json:"base"`
	Target     string            `json:"target,omitempty"`
	Platforms  map[string]string `json:"platforms"`
	Decimals   map[string]int    `json:"decimals,omitempty"`
}

// Address returns the asset's contract address on chain, or "" when unlisted.
func (a Asset) Address(chain string) string {
	return a.Platforms[chain]
}

type Opportunity struct {
	Asset     Asset
	BuyVenue  string
	SellVenue string
	BuyPrice  decimal.Decimal
	SellPrice decimal.Decimal
	Profit    decimal.Decimal
	Alerted   bool
}
