// Package ledger is the embeddable entry point of the reputation ledger. Open
// wires the configured record store, the event sink and the service; the
// returned Ledger exposes every ledger operation.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/okian/realmrep/internal/adapters/mq/publisher"
	"github.com/okian/realmrep/internal/adapters/mq/queue"
	"github.com/okian/realmrep/internal/adapters/mq/worker"
	"github.com/okian/realmrep/internal/adapters/repository"
	service "github.com/okian/realmrep/internal/app"
	"github.com/okian/realmrep/internal/config"
	"github.com/okian/realmrep/internal/domain/dedupe"
	"github.com/okian/realmrep/pkg/logger"
)

// Ledger is an open reputation ledger. Operations such as RecordInteraction
// or DecaySweep are promoted from the embedded service.
type Ledger struct {
	*service.Service

	store       repository.Store
	queue       *queue.InMemoryQueue
	pool        *worker.Pool
	stopWorkers context.CancelFunc
	closePub    func() error
	closeOnce   sync.Once
	closeErr    error
}

// DefaultConfig returns the configuration defaults.
func DefaultConfig() *Config { return config.New() }

// LoadConfig reads configuration from REPLEDGER_CONFIG and REPLEDGER_* env.
func LoadConfig(ctx context.Context) (*Config, error) { return config.Load(ctx) }

// Open validates cfg and opens the ledger. Unless WithoutSink is given, sink
// workers run until Close, independent of ctx.
func Open(ctx context.Context, cfg *Config, opts ...Option) (*Ledger, error) {
	o := options{sink: true}
	for _, opt := range opts {
		opt(&o)
	}
	if cfg == nil {
		cfg = config.New()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := o.logger
	if log == nil {
		log = logger.Get().Named("ledger")
	}

	store, err := repository.Open(ctx, repository.Backend(cfg.StoreBackend), cfg.DataDir, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.StoreBackend, err)
	}

	l := &Ledger{
		store:       store,
		stopWorkers: func() {},
		closePub:    func() error { return nil },
	}
	svcOpts := []service.Option{service.WithStore(store), service.WithLogger(log)}
	if o.now != nil {
		svcOpts = append(svcOpts, service.WithClock(o.now))
	}

	if o.sink {
		pub, err := l.publisher(ctx, cfg, o, log)
		if err != nil {
			_ = store.Close()
			return nil, err
		}

		l.queue = queue.NewInMemoryQueue(queue.WithCapacity(cfg.SinkQueueSize))
		l.pool = worker.NewPool(cfg.SinkWorkers, l.queue, pub,
			worker.WithDeduper(dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(cfg.SinkDedupeWindow))),
		)
		// Workers outlive a cancelled caller context so Close can drain
		// what is still queued.
		workerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		l.stopWorkers = cancel
		l.pool.Start(workerCtx)
		svcOpts = append(svcOpts, service.WithSink(l.queue))
	}

	l.Service = service.New(svcOpts...)
	return l, nil
}

func (l *Ledger) publisher(ctx context.Context, cfg *Config, o options, log logger.Logger) (Publisher, error) {
	if o.publisher != nil {
		return o.publisher, nil
	}
	if cfg.NATSURL == "" {
		log.Info(ctx, "no nats_url configured; logging interaction events")
		return publisher.NewLog(log.Named("events")), nil
	}

	pub, err := publisher.NewNATS(ctx, cfg.NATSURL, publisher.WithSubject(cfg.NATSSubject))
	if err != nil {
		return nil, err
	}
	l.closePub = pub.Close
	log.Info(ctx, "publishing interaction events to nats", logger.String("subject", pub.Subject()))
	return pub, nil
}

// SinkEnabled reports whether committed interactions are published.
func (l *Ledger) SinkEnabled() bool {
	return l.pool != nil
}

// SinkWorkers returns the number of sink workers, zero without a sink.
func (l *Ledger) SinkWorkers() int {
	if l.pool == nil {
		return 0
	}
	return l.pool.Size()
}

// Close drains the event sink until ctx is done, then closes the publisher
// and the store. Calls after the first return the first result.
func (l *Ledger) Close(ctx context.Context) error {
	l.closeOnce.Do(func() {
		var errs []error
		if l.pool != nil {
			if err := l.pool.Shutdown(ctx); err != nil {
				errs = append(errs, err)
			}
			l.stopWorkers()
		}
		if err := l.closePub(); err != nil {
			errs = append(errs, fmt.Errorf("close publisher: %w", err))
		}
		if err := l.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
		l.closeErr = errors.Join(errs...)
	})
	return l.closeErr
}
