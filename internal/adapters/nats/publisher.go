package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/canvass/internal/core/domain"
	"github.com/samirrijal/canvass/internal/core/ports"
	"github.com/samirrijal/canvass/internal/pkg/metrics"
)

const (
	StreamName              = "CAMPAIGN_EVENTS"
	SubjectVisitCreated     = "canvass.visits.created"
	SubjectCoverageSnapshot = "canvass.coverage.snapshot"
)

// Connect opens a NATS connection that keeps retrying in the background.
func Connect(url, name string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			slog.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return conn, nil
}

// Publisher implements ports.EventPublisher using NATS JetStream. Every
// event is kept in the CAMPAIGN_EVENTS stream for a day, and API instances
// pick it up from the same subjects to feed their hubs.
type Publisher struct {
	conn     *nats.Conn
	js       nats.JetStreamContext
	fallback ports.VisitNotifier
}

// NewPublisher enables JetStream on conn and makes sure the stream exists.
func NewPublisher(conn *nats.Conn) (*Publisher, error) {
	js, err := conn.JetStream(nats.PublishAsyncMaxPending(1024))
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := &nats.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{SubjectVisitCreated, SubjectCoverageSnapshot},
		Retention: nats.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(cfg); err != nil {
		// Stream may already exist; try update
		if _, err := js.UpdateStream(cfg); err != nil {
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// WithFallback delivers visits to n directly whenever NATS refuses them,
// so clients of this instance still see their own agents' visits.
func (p *Publisher) WithFallback(n ports.VisitNotifier) *Publisher {
	p.fallback = n
	return p
}

// PublishVisitCreated queues the event without waiting for the server ack.
func (p *Publisher) PublishVisitCreated(ctx context.Context, s domain.VisitSummary) error {
	data, err := encodeEvent(domain.EventVisitCreated, s)
	if err != nil {
		return err
	}
	if _, err := p.js.PublishAsync(SubjectVisitCreated, data); err != nil {
		metrics.EventsPublished.WithLabelValues(SubjectVisitCreated, "error").Inc()
		return fmt.Errorf("publish %s: %w", SubjectVisitCreated, err)
	}
	metrics.EventsPublished.WithLabelValues(SubjectVisitCreated, "ok").Inc()
	return nil
}

// PublishCoverageSnapshot publishes and waits for the stream to store it.
func (p *Publisher) PublishCoverageSnapshot(ctx context.Context, stats *domain.CoverageStats) error {
	data, err := encodeEvent(domain.EventCoverageSnapshot, stats)
	if err != nil {
		return err
	}
	if _, err := p.js.Publish(SubjectCoverageSnapshot, data, nats.Context(ctx)); err != nil {
		metrics.EventsPublished.WithLabelValues(SubjectCoverageSnapshot, "error").Inc()
		return fmt.Errorf("publish %s: %w", SubjectCoverageSnapshot, err)
	}
	metrics.EventsPublished.WithLabelValues(SubjectCoverageSnapshot, "ok").Inc()
	return nil
}

// NotifyVisit implements ports.VisitNotifier. Failures never reach the
// request that created the visit.
func (p *Publisher) NotifyVisit(ctx context.Context, s domain.VisitSummary) {
	if err := p.PublishVisitCreated(ctx, s); err != nil {
		slog.Warn("visit event not published", "visit_id", s.ID, "error", err)
		if p.fallback != nil {
			p.fallback.NotifyVisit(ctx, s)
		}
	}
}

// Close flushes pending async publishes and drains the connection.
func (p *Publisher) Close() {
	select {
	case <-p.js.PublishAsyncComplete():
	case <-time.After(5 * time.Second):
		slog.Warn("nats: pending publishes not acknowledged before close")
	}
	_ = p.conn.Drain()
}

func encodeEvent(eventType string, data any) ([]byte, error) {
	b, err := json.Marshal(domain.Event{Type: eventType, Data: data})
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", eventType, err)
	}
	return b, nil
}
