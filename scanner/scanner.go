// Package scanner pairs CEX and DEX quotes per asset, computes the round-trip
// profit of a fixed notional and alerts on the ones worth acting on.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strconv"
	"strings"
	"time"

	"arbscan/internal/metrics"
	"arbscan/types"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

type QuoteProvider interface {
	Name() string
	Quote(ctx context.Context, asset types.Asset, dir types.Direction, notional decimal.Decimal) types.Quote
}

type DepositChecker interface {
	DepositNetworks(ctx context.Context, coin string) ([]string, error)
}

type Notifier interface {
	Send(ctx context.Context, text string) error
}

type Gate interface {
	Allow(ctx context.Context, id string) bool
}

type Config struct {
	Settlement     string
	Notional       decimal.Decimal
	AlertThreshold decimal.Decimal
	BatchDelay     time.Duration
	// CexNetworks are the names the CEX uses for the chain the DEX quotes on.
	CexNetworks []string
	CallTimeout time.Duration
}

type Scanner struct {
	cfg      Config
	cex      QuoteProvider
	dex      []QuoteProvider
	deposits DepositChecker
	notifier Notifier
	gate     Gate
	// every dex provider quotes the same chain, so they share a venue label
	dexName string
}

// New builds a scanner with one DEX provider per API credential. The number of
// DEX providers is the batch size. gate may be nil.
func New(cfg Config, cex QuoteProvider, dex []QuoteProvider, deposits DepositChecker, notifier Notifier, gate Gate) (*Scanner, error) {
	if cex == nil {
		return nil, errors.New("scanner: cex provider is nil")
	}
	if len(dex) == 0 {
		return nil, errors.New("scanner: no dex providers")
	}
	if deposits == nil || notifier == nil {
		return nil, errors.New("scanner: deposit checker and notifier are required")
	}
	if !cfg.Notional.IsPositive() {
		return nil, errors.New("scanner: notional must be positive")
	}
	return &Scanner{
		cfg:      cfg,
		cex:      cex,
		dex:      dex,
		deposits: deposits,
		notifier: notifier,
		gate:     gate,
		dexName:  dex[0].Name(),
	}, nil
}

func (s *Scanner) BatchSize() int { return len(s.dex) }

// Profit is the settlement-currency gain of buying notional worth at buy and
// selling the proceeds at sell.
func Profit(buy, sell, notional decimal.Decimal) decimal.Decimal {
	return sell.Div(buy).Mul(notional).Sub(notional)
}

type pair struct {
	asset types.Asset
	dex   types.Quote
	cex   types.Quote
}

// Scan walks assets in batches and yields every asset for which both venues
// quoted. Each batch is fetched only when the consumer asks for more, and
// every call fetches live quotes again.
func (s *Scanner) Scan(ctx context.Context, assets []types.Asset, buySide types.Venue) iter.Seq[types.Opportunity] {
	return func(yield func(types.Opportunity) bool) {
		size := len(s.dex)
		for start := 0; start < len(assets); start += size {
			if ctx.Err() != nil {
				return
			}
			batch := assets[start:min(start+size, len(assets))]

			for _, p := range s.fetchBatch(ctx, batch, buySide) {
				opp, ok := s.evaluate(ctx, p, buySide)
				if !ok {
					continue
				}
				if !yield(opp) {
					return
				}
			}

			if err := sleep(ctx, s.cfg.BatchDelay); err != nil {
				return
			}
		}
	}
}

// fetchBatch quotes every asset of the batch on both venues at once, asset i on
// DEX provider i. Results come back in batch order.
func (s *Scanner) fetchBatch(ctx context.Context, batch []types.Asset, buySide types.Venue) []pair {
	start := time.Now()
	defer func() { metrics.BatchDuration.Observe(time.Since(start).Seconds()) }()

	dexDir := types.Sell
	if buySide == types.VenueDEX {
		dexDir = types.Buy
	}
	cexDir := dexDir.Opposite()

	pairs := make([]pair, len(batch))
	var g errgroup.Group
	for i, a := range batch {
		pairs[i].asset = a
		dex := s.dex[i]
		g.Go(func() error {
			pairs[i].dex = safeQuote(ctx, dex, a, types.VenueDEX, dexDir, s.cfg.Notional)
			return nil
		})
		g.Go(func() error {
			pairs[i].cex = safeQuote(ctx, s.cex, a, types.VenueCEX, cexDir, s.cfg.Notional)
			return nil
		})
	}
	_ = g.Wait()
	return pairs
}

func safeQuote(ctx context.Context, p QuoteProvider, a types.Asset, venue types.Venue, dir types.Direction, notional decimal.Decimal) (q types.Quote) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("venue", p.Name()).Str("asset", a.BaseSymbol).Interface("panic", r).Msg("quote panicked")
			q = types.Unavailable(a.BaseSymbol, venue, dir)
		}
	}()

	q = p.Quote(ctx, a, dir, notional)
	if q.Asset != a.BaseSymbol || q.Venue != venue || q.Direction != dir {
		log.Error().Str("venue", p.Name()).Str("asset", a.BaseSymbol).Str("got_asset", q.Asset).Msg("quote does not match request")
		return types.Unavailable(a.BaseSymbol, venue, dir)
	}
	return q
}

func (s *Scanner) evaluate(ctx context.Context, p pair, buySide types.Venue) (types.Opportunity, bool) {
	if !p.dex.Available() || !p.cex.Available() {
		return types.Opportunity{}, false
	}

	opp := types.Opportunity{Asset: p.asset}
	if buySide == types.VenueDEX {
		opp.BuyVenue, opp.SellVenue = s.dexName, s.cex.Name()
		opp.BuyPrice, opp.SellPrice = p.dex.Price, p.cex.Price
	} else {
		opp.BuyVenue, opp.SellVenue = s.cex.Name(), s.dexName
		opp.BuyPrice, opp.SellPrice = p.cex.Price, p.dex.Price
	}
	opp.Profit = Profit(opp.BuyPrice, opp.SellPrice, s.cfg.Notional)

	msg := s.Message(opp)
	log.Info().Str("asset", p.asset.BaseSymbol).Str("buy_venue", opp.BuyVenue).Str("sell_venue", opp.SellVenue).
		Str("profit", opp.Profit.StringFixed(3)).Msg(msg)
	metrics.PairsEvaluated.WithLabelValues(buySide.String()).Inc()

	if opp.Profit.GreaterThanOrEqual(s.cfg.AlertThreshold) {
		opp.Alerted = s.alert(ctx, opp, buySide, msg)
	}
	return opp, true
}

// alert confirms the CEX takes deposits of the asset on the chain the DEX side
// was quoted on, then forwards msg. Delivery errors are logged only.
func (s *Scanner) alert(ctx context.Context, opp types.Opportunity, buySide types.Venue, msg string) bool {
	base := opp.Asset.BaseSymbol

	callCtx, cancel := withTimeout(ctx, s.cfg.CallTimeout)
	networks, err := s.deposits.DepositNetworks(callCtx, base)
	cancel()
	if err != nil {
		log.Error().Str("asset", base).Err(err).Msg("deposit network lookup")
		metrics.AlertsTotal.WithLabelValues("failed").Inc()
		return false
	}
	if !NetworkMatches(networks, s.cfg.CexNetworks) {
		log.Info().Str("asset", base).Strs("networks", networks).Msg("deposit network differs from quoted chain")
		metrics.AlertsTotal.WithLabelValues("network_mismatch").Inc()
		return false
	}

	if s.gate != nil && !s.gate.Allow(ctx, base+":"+buySide.String()) {
		log.Debug().Str("asset", base).Msg("alert suppressed, still cooling down")
		metrics.AlertsTotal.WithLabelValues("suppressed").Inc()
		return false
	}

	sendCtx, cancel := withTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()
	if err := s.notifier.Send(sendCtx, msg); err != nil {
		log.Error().Str("asset", base).Err(err).Msg("send alert")
		metrics.AlertsTotal.WithLabelValues("failed").Inc()
		return true
	}
	metrics.AlertsTotal.WithLabelValues("sent").Inc()
	return true
}

func (s *Scanner) Message(opp types.Opportunity) string {
	return fmt.Sprintf("%s %s Buy Price: %s, %s Sell Price: %s, profit: %s%s",
		opp.Asset.BaseSymbol,
		opp.BuyVenue, precision(opp.BuyPrice, 4),
		opp.SellVenue, precision(opp.SellPrice, 4),
		opp.Profit.StringFixed(3), s.cfg.Settlement)
}

func precision(d decimal.Decimal, digits int) string {
	return strconv.FormatFloat(d.InexactFloat64(), 'g', digits, 64)
}

// NetworkMatches reports whether any of networks is one of aliases, ignoring
// case and spaces.
func NetworkMatches(networks, aliases []string) bool {
	for _, n := range networks {
		for _, a := range aliases {
			if normalizeNetwork(n) == normalizeNetwork(a) {
				return true
			}
		}
	}
	return false
}

func normalizeNetwork(s string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
