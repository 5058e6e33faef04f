package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"arbscan/types"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Defaults is a BSC setup quoting USDT against MEXC spot.
func Defaults() types.Config {
	return types.Config{
		Exchange:         "mxc",
		SettlementSymbol: "USDT",
		StableSubstring:  "USD",
		Notional:         decimal.NewFromInt(100),
		AlertThreshold:   decimal.NewFromInt(5),
		Chain: types.Chain{
			Name:               "binance-smart-chain",
			ID:                 56,
			Label:              "BSC",
			SettlementToken:    "0x55d398326f99059fF775485246999027B3197955",
			SettlementDecimals: 18,
			CexNetworks:        []string{"BSC", "BEP20(BSC)", "BNB Smart Chain(BEP20)"},
		},
		Scans:             []types.ScanJob{{BuySide: "CEX"}},
		BatchDelay:        3 * time.Second,
		IdleDelay:         5 * time.Second,
		CallTimeout:       10 * time.Second,
		MaxAttempts:       3,
		CexErrorBackoff:   2 * time.Second,
		RateLimitCooldown: 5 * time.Second,
		ContractDepth:     100,
		CatalogCron:       "0 3 * * *",
		LogLevel:          "info",

		DEX:      "0x",
		KeysFile: "api-keys.yaml",
		Mexc:     types.MexcConfig{BaseURL: "https://api.mexc.com"},
		ZeroEx: types.ZeroExConfig{
			BaseURL:  "https://bsc.api.0x.org",
			Slippage: decimal.RequireFromString("0.01"),
		},
		Jupiter: types.JupiterConfig{
			BaseURL:     "https://lite-api.jup.ag",
			SlippageBps: 50,
		},
		CoinGecko: types.CoinGeckoConfig{
			BaseURL:     "https://api.coingecko.com/api/v3",
			SnapshotDir: ".",
			Store:       "file",
			PageDelay:   2 * time.Second,
		},
		Redis: types.RedisConfig{
			Addr:          "localhost:6379",
			AlertCooldown: 30 * time.Minute,
		},
	}
}

// LoadConfig decodes the YAML file at path over Defaults, then applies .env and
// environment overrides. The result is not validated.
func LoadConfig(path string) (*types.Config, error) {
	cfg := Defaults()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	_ = godotenv.Load()

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *types.Config) error {
	setStr(&cfg.Mexc.APIKey, "MEXC_API_KEY")
	setStr(&cfg.Mexc.APISecret, "MEXC_API_SECRET")
	setStr(&cfg.TelegramBotToken, "TELEGRAM_BOT_TOKEN")

	setStr(&cfg.DEX, "ARBSCAN_DEX")
	setStr(&cfg.LogLevel, "ARBSCAN_LOG_LEVEL")
	setStr(&cfg.MetricsAddr, "ARBSCAN_METRICS_ADDR")
	setStr(&cfg.Redis.Addr, "ARBSCAN_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ARBSCAN_REDIS_PASSWORD")
	setStr(&cfg.KeysFile, "ARBSCAN_KEYS_FILE")
	setStr(&cfg.ZeroEx.TakerAddress, "ARBSCAN_ZEROEX_TAKER_ADDRESS")
	setStr(&cfg.CoinGecko.APIKey, "ARBSCAN_COINGECKO_API_KEY")

	var errs []error
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		ids, err := parseChatIDs(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("TELEGRAM_CHAT_ID: %w", err))
		} else {
			cfg.TelegramChatIDs = ids
		}
	}
	if err := setDecimal(&cfg.Notional, "ARBSCAN_NOTIONAL"); err != nil {
		errs = append(errs, err)
	}
	if err := setDecimal(&cfg.AlertThreshold, "ARBSCAN_ALERT_THRESHOLD"); err != nil {
		errs = append(errs, err)
	}
	if err := setDuration(&cfg.BatchDelay, "ARBSCAN_BATCH_DELAY"); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func parseChatIDs(v string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDecimal(dst *decimal.Decimal, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
