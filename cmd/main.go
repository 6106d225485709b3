// Command realmrep runs the ledger maintenance job: it opens the configured
// record store, sweeps decay on an interval and serves Prometheus metrics.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/realmrep/pkg/ledger"
	"github.com/okian/realmrep/pkg/logger"
	"github.com/okian/realmrep/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := ledger.LoadConfig(ctx)
	if err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithLevel(cfg.LogLevel), logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	metrics.GetRegistry().MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if err := run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "realmrep exited with error", logger.Error(err))
		os.Exit(1)
	}
}

// run opens the ledger and sweeps decay until ctx is done, then shuts
// down: metrics server, then the ledger.
//
// The job records no interactions, so it opens the ledger without the event
// sink. Hosts that record interactions embed pkg/ledger with its sink.
func run(ctx context.Context, cfg *ledger.Config) error {
	log := logger.Get()

	l, err := ledger.Open(ctx, cfg, ledger.WithoutSink(), ledger.WithLogger(log.Named("ledger")))
	if err != nil {
		return err
	}

	var srv *http.Server
	if cfg.MetricsAddr != "" {
		srv = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           newMux(l),
			ReadTimeout:       readTimeout,
			WriteTimeout:      writeTimeout,
			IdleTimeout:       idleTimeout,
			ReadHeaderTimeout: readHeaderTimeout,
		}
		go func() {
			log.Info(ctx, "starting metrics server", logger.String("addr", cfg.MetricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error(ctx, "metrics server failed", logger.Error(err))
			}
		}()
	}

	log.Info(ctx, "realmrep decay job started",
		logger.String("store", cfg.StoreBackend),
		logger.Int64("decay_interval_seconds", int64(cfg.DecayIntervalSeconds)),
	)
	runSweeps(ctx, l, cfg.DecayInterval())

	log.Info(context.Background(), "shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}
	if err := l.Close(shutdownCtx); err != nil {
		errs = append(errs, err)
	}

	log.Info(context.Background(), "realmrep stopped")
	return errors.Join(errs...)
}

// sweeper is the part of the ledger the job drives.
type sweeper interface {
	DecaySweep(ctx context.Context) (ledger.SweepReport, error)
}

// runSweeps runs a decay sweep every interval until ctx is done. A failed
// sweep is logged by the service and retried on the next tick.
func runSweeps(ctx context.Context, svc sweeper, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = svc.DecaySweep(ctx)
		}
	}
}

func newMux(l *ledger.Ledger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if _, err := l.Store().ProfileIDs(r.Context()); err != nil {
			http.Error(w, "store unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}
