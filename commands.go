package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"arbscan/catalog"
	"arbscan/internal/config"
	"arbscan/internal/dedup"
	"arbscan/internal/logger"
	"arbscan/internal/metrics"
	"arbscan/jupiter"
	"arbscan/mexc"
	"arbscan/scanner"
	"arbscan/scheduler"
	"arbscan/tg"
	"arbscan/types"
	"arbscan/zeroex"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// app holds the clients every command shares.
type app struct {
	cfg     *types.Config
	rdb     *redis.Client
	mexc    *mexc.Client
	zeroex  *zeroex.Client
	jupiter *jupiter.Client
	store   catalog.Store
	gecko   *catalog.Gecko
	// decimals by token address, set for aggregators quoting raw amounts
	decimals map[string]int
}

func setup(ctx context.Context, validate bool) (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger.Setup(cfg.LogLevel, cfg.LogPretty)

	if validate {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config:\n%w", err)
		}
	}

	a := &app{
		cfg:     cfg,
		mexc:    mexc.NewClient(cfg.Mexc.BaseURL, cfg.Mexc.APIKey, cfg.Mexc.APISecret, cfg.CallTimeout),
		zeroex:  zeroex.NewClient(cfg.ZeroEx.BaseURL, cfg.CallTimeout),
		jupiter: jupiter.NewClient(cfg.Jupiter.BaseURL, cfg.CallTimeout),
		gecko:   catalog.NewGecko(cfg.CoinGecko.BaseURL, cfg.CoinGecko.APIKey, cfg.CoinGecko.PageDelay),
	}

	if cfg.DEX == "jupiter" && cfg.Jupiter.TokensFile != "" {
		tokens, err := config.LoadTokens(cfg.Jupiter.TokensFile)
		if err != nil {
			return nil, err
		}
		a.decimals = config.MintDecimals(tokens)
	}

	a.rdb, err = connectRedis(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a.store = catalog.FileStore{Dir: cfg.CoinGecko.SnapshotDir}
	if cfg.CoinGecko.Store == "redis" && a.rdb != nil {
		a.store = catalog.NewRedisStore(a.rdb)
	}
	return a, nil
}

// connectRedis returns nil when redis is not configured, or when it is down and
// nothing configured depends on it.
func connectRedis(ctx context.Context, cfg *types.Config) (*redis.Client, error) {
	if cfg.Redis.Addr == "" {
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		required := cfg.CoinGecko.Store == "redis" || cfg.Volume24hMin > 0
		if required {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis %s: %w", cfg.Redis.Addr, err)
		}
		log.Warn().Str("component", "redis").Str("addr", cfg.Redis.Addr).Err(err).Msg("unreachable, alert dedup disabled")
		_ = rdb.Close()
		return nil, nil
	}
	return rdb, nil
}

func (a *app) close() {
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
}

func (a *app) cexProvider() *mexc.Provider {
	return mexc.NewProvider(a.mexc, mexc.ProviderConfig{
		Settlement:  a.cfg.SettlementSymbol,
		Depth:       a.cfg.ContractDepth,
		MaxAttempts: a.cfg.MaxAttempts,
		Backoff:     a.cfg.CexErrorBackoff,
		CallTimeout: a.cfg.CallTimeout,
	})
}

func (a *app) dexProvider(apiKey string) scanner.QuoteProvider {
	if a.cfg.DEX == "jupiter" {
		return jupiter.NewProvider(a.jupiter, apiKey, jupiter.ProviderConfig{
			Chain:       a.cfg.Chain,
			SlippageBps: a.cfg.Jupiter.SlippageBps,
			Cooldown:    a.cfg.RateLimitCooldown,
			CallTimeout: a.cfg.CallTimeout,
		})
	}
	return zeroex.NewProvider(a.zeroex, apiKey, zeroex.ProviderConfig{
		Chain:        a.cfg.Chain,
		TakerAddress: a.cfg.ZeroEx.TakerAddress,
		Slippage:     a.cfg.ZeroEx.Slippage,
		Cooldown:     a.cfg.RateLimitCooldown,
		CallTimeout:  a.cfg.CallTimeout,
	})
}

// refresh rebuilds the catalog snapshot and, with a volume floor set, the
// active token set.
func (a *app) refresh(ctx context.Context) error {
	var errs []error
	if _, err := catalog.Refresh(ctx, a.store, a.gecko, a.cfg.Exchange, a.cfg.SettlementSymbol); err != nil {
		errs = append(errs, err)
	}
	if a.rdb != nil && a.cfg.Volume24hMin > 0 {
		n, err := mexc.UpdateActiveTokens(ctx, a.mexc, a.rdb, a.cfg.SettlementSymbol, a.cfg.Volume24hMin)
		if err != nil {
			errs = append(errs, fmt.Errorf("update active tokens: %w", err))
		} else {
			log.Info().Str("venue", "mexc").Int("tokens", n).Msg("active tokens updated")
		}
	}
	return errors.Join(errs...)
}

func runScanner(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx, true)
	if err != nil {
		return err
	}
	defer a.close()
	cfg := a.cfg

	if _, err := config.LoadAPIKeys(cfg.KeysFile); err != nil {
		return err
	}

	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr); err != nil {
				log.Error().Str("component", "metrics").Err(err).Msg("server stopped")
			}
		}()
	}

	if cfg.CatalogCron != "" {
		c := cron.New(cron.WithLocation(time.UTC))
		_, err := c.AddFunc(cfg.CatalogCron, func() {
			if err := a.refresh(ctx); err != nil {
				log.Error().Str("component", "cron").Err(err).Msg("scheduled refresh")
			}
		})
		if err != nil {
			return fmt.Errorf("schedule refresh: %w", err)
		}
		c.Start()
		defer c.Stop()
	}

	var active scheduler.ActiveFunc
	if a.rdb != nil && cfg.Volume24hMin > 0 {
		if _, err := mexc.UpdateActiveTokens(ctx, a.mexc, a.rdb, cfg.SettlementSymbol, cfg.Volume24hMin); err != nil {
			log.Error().Str("venue", "mexc").Err(err).Msg("initial active token update")
		}
		active = func(ctx context.Context) (map[string]string, error) {
			return mexc.ActiveTokens(ctx, a.rdb)
		}
	}

	sched, err := scheduler.New(cfg, scheduler.Options{
		Store:    a.store,
		Source:   a.gecko,
		Active:   active,
		Decimals: a.decimals,
		CEX:      a.cexProvider(),
		NewDEX:   a.dexProvider,
		Deposits: a.mexc,
		Notifier: tg.NewSender(cfg.TelegramBotToken, cfg.TelegramChatIDs),
		Gate:     dedup.NewGate(a.rdb, cfg.Redis.AlertCooldown),
	})
	if err != nil {
		return err
	}

	log.Info().Str("chain", cfg.Chain.Label).Str("notional", cfg.Notional.String()).
		Str("threshold", cfg.AlertThreshold.String()).Int("scans", len(cfg.Scans)).Msg("scanner starting")

	if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info().Msg("shutdown")
	return nil
}

func runRefresh(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx, false)
	if err != nil {
		return err
	}
	defer a.close()
	return a.refresh(ctx)
}

func runQuote(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx, false)
	if err != nil {
		return err
	}
	defer a.close()

	assets, err := catalog.Load(ctx, a.store, a.gecko, a.cfg.Exchange, a.cfg.SettlementSymbol)
	if err != nil {
		return err
	}
	if a.decimals != nil {
		assets = catalog.WithDecimals(assets, a.cfg.Chain.Name, a.decimals)
	}
	asset, ok := findAsset(assets, args[0])
	if !ok {
		return fmt.Errorf("%s is not in the %s catalog", strings.ToUpper(args[0]), a.cfg.Exchange)
	}

	keys, err := config.LoadAPIKeys(a.cfg.KeysFile)
	if err != nil {
		return err
	}

	providers := []scanner.QuoteProvider{a.cexProvider(), a.dexProvider(keys[0])}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "VENUE\tSIDE\tPRICE (%s)\n", a.cfg.SettlementSymbol)
	for _, p := range providers {
		for _, dir := range []types.Direction{types.Buy, types.Sell} {
			q := p.Quote(ctx, asset, dir, a.cfg.Notional)
			fmt.Fprintf(w, "%s\t%s\t%s\n", p.Name(), dir, quotePrice(q))
		}
	}
	return w.Flush()
}

func findAsset(assets []types.Asset, symbol string) (types.Asset, bool) {
	for _, a := range assets {
		if strings.EqualFold(a.BaseSymbol, symbol) {
			return a, true
		}
	}
	return types.Asset{}, false
}

func quotePrice(q types.Quote) string {
	if !q.Available() {
		return "unavailable"
	}
	return q.Price.Round(8).String()
}
