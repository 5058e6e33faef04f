package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"arbscan/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func validConfig() types.Config {
	cfg := Defaults()
	cfg.Mexc.APIKey = "k"
	cfg.Mexc.APISecret = "s"
	cfg.TelegramBotToken = "t"
	cfg.TelegramChatIDs = []int64{1}
	return cfg
}

func TestLoadConfig(t *testing.T) {
	path := writeTempFile(t, "config.yaml", `
settlement_symbol: USDT
notional: 250
alert_threshold: "12.5"
batch_delay: 1500ms
chain:
  name: ethereum
  id: 1
  label: ETH
  settlement_token: "0xdAC17F958D2ee523a2206206994597C13D831ec7"
  settlement_decimals: 6
  cex_networks: [ERC20, "Ethereum(ERC20)"]
scans:
  - buy_side: cex
    keys_from: 0
    keys_to: 2
  - buy_side: dex
    keys_from: 2
telegram_chat_ids: [10, 20]
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.True(t, cfg.Notional.Equal(decimal.NewFromInt(250)))
	assert.True(t, cfg.AlertThreshold.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, 1500*time.Millisecond, cfg.BatchDelay)
	assert.Equal(t, "ethereum", cfg.Chain.Name)
	assert.Equal(t, int32(6), cfg.Chain.SettlementDecimals)
	assert.Equal(t, []string{"ERC20", "Ethereum(ERC20)"}, cfg.Chain.CexNetworks)
	require.Len(t, cfg.Scans, 2)
	assert.Equal(t, types.ScanJob{BuySide: "dex", KeysFrom: 2}, cfg.Scans[1])
	assert.Equal(t, []int64{10, 20}, cfg.TelegramChatIDs)

	// untouched fields keep their defaults
	assert.Equal(t, "USD", cfg.StableSubstring)
	assert.Equal(t, 5*time.Second, cfg.RateLimitCooldown)
	assert.Equal(t, "0 3 * * *", cfg.CatalogCron)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("MEXC_API_KEY", "env-key")
	t.Setenv("MEXC_API_SECRET", "env-secret")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "-100123, 42")
	t.Setenv("ARBSCAN_NOTIONAL", "50")
	t.Setenv("ARBSCAN_REDIS_ADDR", "redis:6379")

	path := writeTempFile(t, "config.yaml", "notional: 100\n")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.Mexc.APIKey)
	assert.Equal(t, "env-secret", cfg.Mexc.APISecret)
	assert.Equal(t, "123:abc", cfg.TelegramBotToken)
	assert.Equal(t, []int64{-100123, 42}, cfg.TelegramChatIDs)
	assert.True(t, cfg.Notional.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadConfig(writeTempFile(t, "bad.yaml", "notional: [1, 2\n"))
	assert.Error(t, err)

	t.Setenv("TELEGRAM_CHAT_ID", "not-a-number")
	_, err = LoadConfig(writeTempFile(t, "ok.yaml", ""))
	assert.ErrorContains(t, err, "TELEGRAM_CHAT_ID")
}

func TestValidate(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())

	cfg = validConfig()
	cfg.Mexc.APISecret = ""
	cfg.TelegramChatIDs = nil
	cfg.Notional = decimal.Zero
	cfg.Scans = []types.ScanJob{{BuySide: "both"}, {BuySide: "dex", KeysFrom: 3, KeysTo: 2}}
	cfg.CatalogCron = "every day"
	cfg.Chain.SettlementToken = "0x123"

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{
		"MEXC_API_SECRET",
		"TELEGRAM_CHAT_ID",
		"notional",
		"scans[0].buy_side",
		"scans[1]: bad key range",
		"catalog_cron",
		"settlement_token",
	} {
		assert.ErrorContains(t, err, want)
	}
}

func TestValidateRedisRequirements(t *testing.T) {
	cfg := validConfig()
	cfg.Redis.Addr = ""
	cfg.CoinGecko.Store = "redis"
	cfg.Volume24hMin = 100000

	err := cfg.Validate()
	assert.ErrorContains(t, err, "coingecko.store redis needs redis.addr")
	assert.ErrorContains(t, err, "volume_24h_min needs redis.addr")
}

func TestLoadAPIKeys(t *testing.T) {
	path := writeTempFile(t, "keys.yaml", `
- name: account-a
  keys: [k1, " k2 ", ""]
- name: account-b
  keys:
    - k3
    - k1
`)

	keys, err := LoadAPIKeys(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"k1", "k2", "k3"}, keys)

	_, err = LoadAPIKeys(writeTempFile(t, "empty.yaml", "- name: none\n  keys: []\n"))
	assert.Error(t, err)

	_, err = LoadAPIKeys(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestKeyRange(t *testing.T) {
	keys := []string{"a", "b", "c", "d"}

	got, err := KeyRange(keys, types.ScanJob{})
	require.NoError(t, err)
	assert.Equal(t, keys, got)

	got, err = KeyRange(keys, types.ScanJob{KeysFrom: 1, KeysTo: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, got)

	got, err = KeyRange(keys, types.ScanJob{KeysFrom: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"d"}, got)

	_, err = KeyRange(keys, types.ScanJob{KeysFrom: 4})
	assert.Error(t, err)
	_, err = KeyRange(keys, types.ScanJob{KeysFrom: 0, KeysTo: 5})
	assert.Error(t, err)
	_, err = KeyRange(nil, types.ScanJob{})
	assert.Error(t, err)
}

func TestLoadTokens(t *testing.T) {
	path := writeTempFile(t, "tokens.json", `{
  "BONK": {"mint": "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263", "decimals": 5},
  "WIF": {"mint": "EKpQGSJtjMFqKZ9KQanSqYXRcF8fBopzLHYxdM65zcjm", "decimals": 6},
  "NONE": {"decimals": 9}
}`)

	tokens, err := LoadTokens(path)
	require.NoError(t, err)
	assert.Len(t, tokens, 3)

	assert.Equal(t, map[string]int{
		"DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263": 5,
		"EKpQGSJtjMFqKZ9KQanSqYXRcF8fBopzLHYxdM65zcjm": 6,
	}, MintDecimals(tokens))

	_, err = LoadTokens(writeTempFile(t, "empty.json", ""))
	assert.Error(t, err)
}

func TestValidateJupiter(t *testing.T) {
	cfg := validConfig()
	cfg.DEX = "jupiter"
	cfg.Chain.SettlementToken = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"

	err := cfg.Validate()
	assert.ErrorContains(t, err, "jupiter.tokens_file")

	cfg.Jupiter.TokensFile = "tokens.json"
	assert.NoError(t, cfg.Validate())

	cfg.Chain.SettlementToken = "0x55d398326f99059fF775485246999027B3197955"
	assert.ErrorContains(t, cfg.Validate(), "is not a mint")

	cfg.DEX = "uniswap"
	assert.ErrorContains(t, cfg.Validate(), "dex must be 0x or jupiter")
}
