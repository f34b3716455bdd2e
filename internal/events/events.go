// Package events publishes session activity to NATS with trace context in
// the message headers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"

	"github.com/onnwee/redpull/internal/config"
	"github.com/onnwee/redpull/internal/logger"
	"github.com/onnwee/redpull/internal/metrics"
)

// Publisher sends a JSON-encoded value under a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, v any) error
	Close()
}

// Noop discards everything. Used when NATS_URL is unset.
type Noop struct{}

func (Noop) Publish(context.Context, string, any) error { return nil }
func (Noop) Close()                                     {}

// NATS publishes to <prefix>.<topic>.
type NATS struct {
	nc     *nats.Conn
	prefix string
}

// Connect returns a NATS publisher, or Noop when no server is configured.
func Connect(cfg *config.Config) (Publisher, error) {
	if cfg.NATSURL == "" {
		return Noop{}, nil
	}
	log := logger.WithComponent("events")
	nc, err := nats.Connect(cfg.NATSURL,
		nats.Name("redpull"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", "url", c.ConnectedUrlRedacted())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NATS{nc: nc, prefix: cfg.NATSSubject}, nil
}

func (p *NATS) Publish(ctx context.Context, topic string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		metrics.EventsPublished.WithLabelValues("error").Inc()
		return fmt.Errorf("encode event: %w", err)
	}
	msg := &nats.Msg{Subject: subject(p.prefix, topic), Data: data}
	otel.GetTextMapPropagator().Inject(ctx, (*headerCarrier)(msg))
	if err := p.nc.PublishMsg(msg); err != nil {
		metrics.EventsPublished.WithLabelValues("error").Inc()
		return fmt.Errorf("publish %s: %w", msg.Subject, err)
	}
	metrics.EventsPublished.WithLabelValues("ok").Inc()
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *NATS) Close() {
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
	}
}

// subject joins prefix and topic, replacing characters NATS treats as
// wildcards or separators inside a token.
func subject(prefix, topic string) string {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', '*', '>':
			return '_'
		}
		return r
	}, topic)
	clean = strings.Trim(clean, ".")
	if prefix == "" {
		return clean
	}
	if clean == "" {
		return prefix
	}
	return prefix + "." + clean
}

// headerCarrier adapts nats.Msg headers for OTel TextMapCarrier.
type headerCarrier nats.Msg

func (c *headerCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *headerCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *headerCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}
