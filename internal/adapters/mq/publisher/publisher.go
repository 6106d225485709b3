// Package publisher delivers committed interaction events to downstream
// consumers.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/okian/realmrep/internal/domain/model"
	"github.com/okian/realmrep/pkg/logger"
)

const flushTimeout = 5 * time.Second

// DefaultSubject is the NATS subject interaction events are published on.
const DefaultSubject = "realmrep.interaction.recorded"

// ErrClosed is returned when publishing through a closed publisher.
var ErrClosed = errors.New("publisher closed")

// NATS publishes events as JSON on a NATS subject.
type NATS struct {
	conn    *nats.Conn
	subject string
	logger  logger.Logger
}

// NATSOption configures NewNATS.
type NATSOption func(*natsConfig)

type natsConfig struct {
	subject       string
	token         string
	maxReconnects int
	reconnectWait time.Duration
	logger        logger.Logger
}

// WithSubject overrides DefaultSubject.
func WithSubject(subject string) NATSOption {
	return func(c *natsConfig) {
		if subject != "" {
			c.subject = subject
		}
	}
}

// WithToken authenticates with a NATS token.
func WithToken(token string) NATSOption {
	return func(c *natsConfig) { c.token = token }
}

// WithReconnect tunes the reconnect policy.
func WithReconnect(maxReconnects int, wait time.Duration) NATSOption {
	return func(c *natsConfig) {
		c.maxReconnects = maxReconnects
		if wait > 0 {
			c.reconnectWait = wait
		}
	}
}

// WithNATSLogger sets the logger for connection state changes.
func WithNATSLogger(l logger.Logger) NATSOption {
	return func(c *natsConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewNATS connects to url and returns a publisher.
func NewNATS(ctx context.Context, url string, opts ...NATSOption) (*NATS, error) {
	cfg := natsConfig{
		subject:       DefaultSubject,
		maxReconnects: 60,
		reconnectWait: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logger.Get().Named("nats")
	}
	log := cfg.logger

	natsOpts := []nats.Option{
		nats.Name("realmrep"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(cfg.maxReconnects),
		nats.ReconnectWait(cfg.reconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn(ctx, "nats disconnected", logger.Error(err))
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Info(ctx, "nats reconnected")
		}),
	}
	if cfg.token != "" {
		natsOpts = append(natsOpts, nats.Token(cfg.token))
	}

	nc, err := nats.Connect(url, natsOpts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &NATS{conn: nc, subject: cfg.subject, logger: log}, nil
}

// Subject returns the subject events are published on.
func (n *NATS) Subject() string {
	return n.subject
}

// Publish sends one event. The context is checked before publishing; the
// NATS client itself buffers and does not block.
func (n *NATS) Publish(ctx context.Context, event model.InteractionEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if n.conn.IsClosed() {
		return ErrClosed
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := n.conn.Publish(n.subject, payload); err != nil {
		return fmt.Errorf("nats publish %s: %w", n.subject, err)
	}
	return nil
}

// Close flushes pending messages and closes the connection.
func (n *NATS) Close() error {
	if n.conn.IsClosed() {
		return nil
	}
	err := n.conn.FlushTimeout(flushTimeout)
	n.conn.Close()
	if err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}
	return nil
}

// Log writes each event as a structured log line. It is the sink used when
// no broker is configured.
type Log struct {
	logger logger.Logger
}

// NewLog returns a publisher that logs to l.
func NewLog(l logger.Logger) *Log {
	return &Log{logger: l}
}

// Publish logs the event at info level.
func (p *Log) Publish(ctx context.Context, event model.InteractionEvent) error {
	p.logger.Info(ctx, "interaction recorded",
		logger.String("event_id", event.ID.String()),
		logger.String("from", string(event.From)),
		logger.String("to", string(event.To)),
		logger.Int("type", int(event.Type)),
		logger.Int("weight", int(event.Weight)),
		logger.Uint64("delta", event.ReputationDelta),
		logger.Int64("timestamp", event.Timestamp),
		logger.String("metadata_hash", event.MetadataHash.String()),
	)
	return nil
}
