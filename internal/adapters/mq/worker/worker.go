// Package worker drains the event sink queue and hands each committed
// interaction event to a Publisher.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/okian/realmrep/internal/adapters/mq/queue"
	"github.com/okian/realmrep/internal/domain/dedupe"
	"github.com/okian/realmrep/internal/domain/model"
	"github.com/okian/realmrep/pkg/logger"
	"github.com/okian/realmrep/pkg/metrics"
)

const defaultWorkerCount = 2

// Event abstracts what workers read off the queue.
type Event = queue.Event

// Publisher delivers an event to an external consumer.
type Publisher interface {
	Publish(ctx context.Context, event model.InteractionEvent) error
}

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
}

// Worker publishes events read from a queue.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker without draining the queue.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for one publishing loop.
type InMemoryWorker struct {
	queue     Queue
	publisher Publisher
	deduper   dedupe.Deduper
	name      string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, publisher Publisher, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		publisher: publisher,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := w.publish(ctx, event); err != nil {
				w.logger.Error(ctx, "event publish failed",
					logger.String("event_id", event.ID.String()),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown signals the worker and waits for it to exit.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.signal()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed once Run has returned.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

func (w *InMemoryWorker) signal() {
	w.shutdownOnce.Do(func() { close(w.shutdown) })
}

func (w *InMemoryWorker) publish(ctx context.Context, event Event) error { //nolint:gocritic // hugeParam: Event must be passed by value for channel semantics
	if w.deduper != nil && w.deduper.SeenAndRecord(ctx, event.ID) {
		metrics.RecordDuplicateEvent()
		w.logger.Debug(ctx, "duplicate event skipped", logger.String("event_id", event.ID.String()))
		return nil
	}

	start := time.Now()
	if err := w.publisher.Publish(ctx, event); err != nil {
		if w.deduper != nil {
			w.deduper.Unrecord(ctx, event.ID)
		}
		metrics.RecordPublishError()
		metrics.RecordErrorByComponent("worker", "publish_error")
		return fmt.Errorf("publish event %s: %w", event.ID, err)
	}
	metrics.RecordEventPublished(float64(time.Since(start).Microseconds()) / 1000)
	return nil
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a new worker pool. A count below one selects the default.
func NewPool(workerCount int, q Queue, publisher Publisher, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("sink-pool"),
	}

	for i := 0; i < workerCount; i++ {
		workerOpts := append([]Option{WithName("sink-worker-" + strconv.Itoa(i))}, opts...)
		pool.workers[i] = NewInMemoryWorker(q, publisher, workerOpts...)
	}

	return pool
}

// Size returns the number of workers in the pool.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, worker := range p.workers {
		go worker.Run(ctx)
	}
	metrics.UpdateWorkerActiveCount(len(p.workers))
}

// Stop signals every worker without draining the queue.
func (p *Pool) Stop() {
	for _, worker := range p.workers {
		worker.signal()
	}
	for _, worker := range p.workers {
		<-worker.done
	}
	metrics.UpdateWorkerActiveCount(0)
}

// Shutdown closes the queue and lets the workers drain it. Workers still
// running when ctx expires are signalled to stop and the remaining events
// are dropped.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	defer metrics.UpdateWorkerActiveCount(0)

	var timedOut bool
	for i, worker := range p.workers {
		select {
		case <-worker.done:
		case <-ctx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker drain timed out", logger.Int("worker_id", i))
		}
		if timedOut {
			break
		}
	}

	if !timedOut {
		return nil
	}

	for _, worker := range p.workers {
		worker.signal()
	}
	return fmt.Errorf("sink drain timed out: %w", ctx.Err())
}
