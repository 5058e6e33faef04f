// Package scheduler drives the scanner forever: every iteration reloads the API
// keys and the asset universe, then runs each configured scan job.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"arbscan/catalog"
	"arbscan/internal/config"
	"arbscan/internal/metrics"
	"arbscan/scanner"
	"arbscan/types"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ActiveFunc returns the base symbols that currently pass the volume floor.
type ActiveFunc func(ctx context.Context) (map[string]string, error)

type Options struct {
	Store  catalog.Store
	Source catalog.Fetcher
	// Active is optional; nil scans the whole filtered universe.
	Active ActiveFunc
	// Decimals maps token addresses on the configured chain to their decimals,
	// for aggregators that answer in raw amounts.
	Decimals map[string]int

	CEX      scanner.QuoteProvider
	NewDEX   func(apiKey string) scanner.QuoteProvider
	Deposits scanner.DepositChecker
	Notifier scanner.Notifier
	Gate     scanner.Gate

	// LoadKeys defaults to config.LoadAPIKeys.
	LoadKeys func(path string) ([]string, error)
}

type Scheduler struct {
	cfg  *types.Config
	opts Options
}

type Summary struct {
	Cycle     string
	Assets    int
	Evaluated int
	Alerted   int
}

func New(cfg *types.Config, opts Options) (*Scheduler, error) {
	if cfg == nil {
		return nil, errors.New("scheduler: nil config")
	}
	if opts.Store == nil || opts.Source == nil {
		return nil, errors.New("scheduler: catalog store and source are required")
	}
	if opts.CEX == nil || opts.NewDEX == nil {
		return nil, errors.New("scheduler: quote providers are required")
	}
	if opts.LoadKeys == nil {
		opts.LoadKeys = config.LoadAPIKeys
	}
	return &Scheduler{cfg: cfg, opts: opts}, nil
}

// Run loops until ctx is done and then returns ctx.Err(). A failed or empty
// iteration is followed by the idle delay.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		start := time.Now()
		sum, err := s.RunOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		l := log.With().Str("component", "scheduler").Str("cycle", sum.Cycle).Logger()
		if err != nil {
			l.Error().Err(err).Msg("iteration failed")
			metrics.IterationsTotal.WithLabelValues("failed").Inc()
		} else {
			l.Info().Int("assets", sum.Assets).Int("evaluated", sum.Evaluated).Int("alerted", sum.Alerted).
				Dur("took", time.Since(start)).Msg("iteration done")
			metrics.IterationsTotal.WithLabelValues("ok").Inc()
		}

		if err != nil || sum.Evaluated == 0 {
			if err := sleep(ctx, s.cfg.IdleDelay); err != nil {
				return err
			}
		}
	}
}

// RunOnce performs a single iteration. Panics are returned as errors.
func (s *Scheduler) RunOnce(ctx context.Context) (sum Summary, err error) {
	sum.Cycle = uuid.NewString()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("iteration panicked: %v", r)
		}
	}()

	l := log.With().Str("component", "scheduler").Str("cycle", sum.Cycle).Logger()

	keys, err := s.opts.LoadKeys(s.cfg.KeysFile)
	if err != nil {
		return sum, fmt.Errorf("load api keys: %w", err)
	}

	assets, err := s.Universe(ctx)
	if err != nil {
		return sum, err
	}
	sum.Assets = len(assets)
	if len(assets) == 0 {
		l.Warn().Msg("asset universe is empty")
		return sum, nil
	}

	var evaluated, alerted atomic.Int64
	var g errgroup.Group
	for i, job := range s.cfg.Scans {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("scan %d panicked: %v", i, r)
				}
			}()
			return s.runJob(ctx, l, i, job, keys, assets, &evaluated, &alerted)
		})
	}
	err = g.Wait()

	sum.Evaluated = int(evaluated.Load())
	sum.Alerted = int(alerted.Load())
	return sum, err
}

func (s *Scheduler) runJob(ctx context.Context, l zerolog.Logger, i int, job types.ScanJob, keys []string, assets []types.Asset, evaluated, alerted *atomic.Int64) error {
	buySide, err := types.ParseVenue(job.BuySide)
	if err != nil {
		return fmt.Errorf("scan %d: %w", i, err)
	}
	jobKeys, err := config.KeyRange(keys, job)
	if err != nil {
		return fmt.Errorf("scan %d: %w", i, err)
	}

	dex := make([]scanner.QuoteProvider, len(jobKeys))
	for k, key := range jobKeys {
		dex[k] = s.opts.NewDEX(key)
	}

	sc, err := scanner.New(scanner.Config{
		Settlement:     s.cfg.SettlementSymbol,
		Notional:       s.cfg.Notional,
		AlertThreshold: s.cfg.AlertThreshold,
		BatchDelay:     s.cfg.BatchDelay,
		CexNetworks:    s.cfg.Chain.CexNetworks,
		CallTimeout:    s.cfg.CallTimeout,
	}, s.opts.CEX, dex, s.opts.Deposits, s.opts.Notifier, s.opts.Gate)
	if err != nil {
		return fmt.Errorf("scan %d: %w", i, err)
	}

	l.Info().Int("scan", i).Stringer("buy_side", buySide).Int("keys", len(jobKeys)).Int("assets", len(assets)).Msg("scan started")
	for opp := range sc.Scan(ctx, assets, buySide) {
		evaluated.Add(1)
		if opp.Alerted {
			alerted.Add(1)
		}
	}
	return nil
}

// Universe loads the catalog, keeps assets quotable on the configured chain and
// narrows them to the active set when one is configured. An unreadable or empty
// active set leaves the universe unnarrowed.
func (s *Scheduler) Universe(ctx context.Context) ([]types.Asset, error) {
	all, err := catalog.Load(ctx, s.opts.Store, s.opts.Source, s.cfg.Exchange, s.cfg.SettlementSymbol)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	assets := catalog.Filter(all, s.cfg.Chain.Name, s.cfg.StableSubstring)
	if s.opts.Decimals != nil {
		assets = catalog.WithDecimals(assets, s.cfg.Chain.Name, s.opts.Decimals)
	}

	if s.opts.Active == nil {
		return assets, nil
	}
	active, err := s.opts.Active(ctx)
	if err != nil {
		log.Warn().Str("component", "scheduler").Err(err).Msg("active tokens unavailable, scanning all")
		return assets, nil
	}
	if len(active) == 0 {
		log.Warn().Str("component", "scheduler").Msg("active token set is empty, scanning all")
		return assets, nil
	}
	return catalog.OnlyActive(assets, active), nil
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
