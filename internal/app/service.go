// Package service runs the reputation transitions against a record store.
//
// Each operation loads the records it names, applies the pure domain rules,
// and writes the result back in a single store transaction. A rejection
// discards every mutation of the call.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/okian/realmrep/internal/adapters/repository"
	"github.com/okian/realmrep/internal/domain/model"
	"github.com/okian/realmrep/internal/domain/rules"
	"github.com/okian/realmrep/internal/domain/scoring"
	"github.com/okian/realmrep/pkg/logger"
	"github.com/okian/realmrep/pkg/metrics"
)

// Sink receives committed interaction events. Enqueue must not block; it
// reports false when the event was dropped.
type Sink interface {
	Enqueue(ctx context.Context, e model.InteractionEvent) bool
}

// Service implements the top-level reputation operations.
type Service struct {
	store  repository.Store
	engine *scoring.Engine
	sink   Sink
	now    func() time.Time
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the record store. The default is an in-memory store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithEngine sets the interaction scoring engine.
func WithEngine(engine *scoring.Engine) Option {
	return func(s *Service) {
		if engine != nil {
			s.engine = engine
		}
	}
}

// WithSink sets where committed interaction events are pushed.
func WithSink(sink Sink) Option {
	return func(s *Service) { s.sink = sink }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service.
func New(opts ...Option) *Service {
	s := &Service{now: time.Now}

	for _, opt := range opts {
		opt(s)
	}

	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	if s.engine == nil {
		s.engine = scoring.NewEngine()
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("ledger")
	}

	return s
}

// Store returns the record store backing the service.
func (s *Service) Store() repository.Store {
	return s.store
}

func (s *Service) unix() int64 {
	return s.now().Unix()
}

// conflictRetries bounds how often a transition is replayed after losing a
// write race in the store.
const conflictRetries = 3

func (s *Service) update(ctx context.Context, fn func(repository.Tx) error) error {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency("update", millis(start)) }()

	var err error
	for attempt := 0; attempt <= conflictRetries; attempt++ {
		if err = s.store.Update(ctx, fn); !errors.Is(err, repository.ErrConflict) {
			return err
		}
		metrics.RecordErrorByComponent("store", "conflict")
	}
	return err
}

func (s *Service) view(ctx context.Context, fn func(repository.Reader) error) error {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency("view", millis(start)) }()
	return s.store.View(ctx, fn)
}

// finish records the outcome of op and returns err wrapped with the
// operation name. Rule rejections log at warn with their reason code; any
// other failure is a backend error.
func (s *Service) finish(ctx context.Context, op string, start time.Time, err error, fields ...logger.Field) error {
	latency := millis(start)
	if err == nil {
		metrics.RecordOperation(op, "accepted", latency)
		s.logger.Debug(ctx, op+" accepted", fields...)
		return nil
	}

	if rules.KindOf(err) != rules.KindUnknown {
		code := rules.CodeOf(err)
		metrics.RecordOperation(op, "rejected", latency)
		metrics.RecordRejection(code)
		s.logger.Warn(ctx, op+" rejected", append(fields,
			logger.String("code", code),
			logger.String("kind", rules.KindOf(err).String()),
		)...)
	} else {
		metrics.RecordOperation(op, "failed", latency)
		metrics.RecordErrorByComponent("service", op)
		s.logger.Error(ctx, op+" failed", append(fields, logger.Error(err))...)
	}
	return rules.Wrap("service."+op, err)
}

func millis(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}

func loadProfile(r repository.Reader, id model.Identity) (*model.Profile, error) {
	p, err := r.Profile(id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, rules.ErrProfileNotFound
	}
	return p, err
}

func loadRealm(r repository.Reader, id model.Identity) (*model.Realm, error) {
	realm, err := r.Realm(id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, rules.ErrRealmNotFound
	}
	return realm, err
}

func idField(key string, v model.Identity) logger.Field {
	return logger.String(key, string(v))
}
