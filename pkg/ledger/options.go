package ledger

import (
	"time"

	"github.com/okian/realmrep/pkg/logger"
)

type options struct {
	sink      bool
	publisher Publisher
	now       func() time.Time
	logger    logger.Logger
}

// Option applies a configuration option to Open.
type Option func(*options)

// WithoutSink opens the ledger without the event sink. Use it for processes
// that never record interactions, such as the decay job.
func WithoutSink() Option {
	return func(o *options) { o.sink = false }
}

// WithPublisher replaces the configured NATS or log publisher.
func WithPublisher(p Publisher) Option {
	return func(o *options) {
		if p != nil {
			o.publisher = p
		}
	}
}

// WithClock overrides the time source of every operation.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets the logger of the service and its sink.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
