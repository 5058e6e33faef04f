package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	QuotesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbscan_quotes_total",
			Help: "Quote lookups by venue and outcome (ok, unavailable)",
		},
		[]string{"venue", "outcome"},
	)

	RateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbscan_rate_limited_total",
			Help: "Rate limit responses received per venue",
		},
		[]string{"venue"},
	)

	PairsEvaluated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbscan_pairs_evaluated_total",
			Help: "Assets with both quotes available, by buy side",
		},
		[]string{"buy_side"},
	)

	AlertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbscan_alerts_total",
			Help: "Opportunities above threshold by outcome (sent, network_mismatch, suppressed, failed)",
		},
		[]string{"outcome"},
	)

	BatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "arbscan_batch_duration_seconds",
			Help:    "Time to fetch every quote of one batch",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
	)

	IterationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbscan_iterations_total",
			Help: "Scheduler iterations by result (ok, failed)",
		},
		[]string{"result"},
	)
)

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("metrics listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
