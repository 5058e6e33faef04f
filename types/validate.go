package types

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mr-tron/base58"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
)

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Exchange == "" {
		add("exchange is required")
	}
	if c.SettlementSymbol == "" {
		add("settlement_symbol is required")
	}
	if !c.Notional.IsPositive() {
		add("notional must be positive, got %s", c.Notional)
	}
	if c.AlertThreshold.IsNegative() {
		add("alert_threshold must not be negative, got %s", c.AlertThreshold)
	}

	if c.Chain.Name == "" {
		add("chain.name is required")
	}
	switch c.DEX {
	case "0x":
		if c.Chain.ID <= 0 {
			add("chain.id must be positive")
		}
		if !common.IsHexAddress(c.Chain.SettlementToken) {
			add("chain.settlement_token %q is not an address", c.Chain.SettlementToken)
		}
	case "jupiter":
		if b, err := base58.Decode(c.Chain.SettlementToken); err != nil || len(b) != 32 {
			add("chain.settlement_token %q is not a mint", c.Chain.SettlementToken)
		}
		if c.Jupiter.TokensFile == "" {
			add("jupiter.tokens_file is required")
		}
	default:
		add("dex must be 0x or jupiter, got %q", c.DEX)
	}
	if c.Chain.SettlementDecimals < 0 || c.Chain.SettlementDecimals > 36 {
		add("chain.settlement_decimals out of range: %d", c.Chain.SettlementDecimals)
	}
	if len(c.Chain.CexNetworks) == 0 {
		add("chain.cex_networks is required")
	}

	if len(c.Scans) == 0 {
		add("at least one scan job is required")
	}
	for i, s := range c.Scans {
		if _, err := ParseVenue(s.BuySide); err != nil {
			add("scans[%d].buy_side: %v", i, err)
		}
		if s.KeysFrom < 0 || (s.KeysTo != 0 && s.KeysTo <= s.KeysFrom) {
			add("scans[%d]: bad key range [%d:%d]", i, s.KeysFrom, s.KeysTo)
		}
	}

	if c.BatchDelay < 0 || c.IdleDelay < 0 || c.CexErrorBackoff < 0 || c.RateLimitCooldown < 0 {
		add("delays must not be negative")
	}
	if c.CallTimeout <= 0 {
		add("call_timeout must be positive")
	}
	if c.MaxAttempts < 1 {
		add("max_attempts must be >= 1")
	}
	if c.ContractDepth < 1 || c.ContractDepth > 5000 {
		add("contract_depth must be between 1 and 5000, got %d", c.ContractDepth)
	}
	if c.CatalogCron != "" {
		if _, err := cron.ParseStandard(c.CatalogCron); err != nil {
			add("catalog_cron: %v", err)
		}
	}

	if c.Mexc.APIKey == "" || c.Mexc.APISecret == "" {
		add("MEXC_API_KEY and MEXC_API_SECRET are required")
	}
	if c.TelegramBotToken == "" {
		add("TELEGRAM_BOT_TOKEN is required")
	}
	if len(c.TelegramChatIDs) == 0 {
		add("TELEGRAM_CHAT_ID is required")
	}

	if c.KeysFile == "" {
		add("keys_file is required")
	}
	if c.ZeroEx.TakerAddress != "" && !common.IsHexAddress(c.ZeroEx.TakerAddress) {
		add("zeroex.taker_address %q is not an address", c.ZeroEx.TakerAddress)
	}
	if c.ZeroEx.Slippage.IsNegative() || c.ZeroEx.Slippage.GreaterThan(decimal.NewFromInt(1)) {
		add("zeroex.slippage must be within [0, 1]")
	}

	switch c.CoinGecko.Store {
	case "file":
	case "redis":
		if c.Redis.Addr == "" {
			add("coingecko.store redis needs redis.addr")
		}
	default:
		add("coingecko.store must be file or redis, got %q", c.CoinGecko.Store)
	}
	if c.Volume24hMin > 0 && c.Redis.Addr == "" {
		add("volume_24h_min needs redis.addr")
	}

	return errors.Join(errs...)
}
