package natsadapter

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/canvass/internal/core/domain"
)

// EventSink receives events relayed from NATS. The broadcast hub is one.
type EventSink interface {
	Publish(ev domain.Event) bool
}

// Relay forwards campaign events from NATS into the local hub. It uses plain
// core subscriptions: every API instance needs every event, and a client
// that was not connected when an event fired is not owed a replay.
type Relay struct {
	conn *nats.Conn
	sink EventSink
	subs []*nats.Subscription
}

// NewRelay creates a relay on an existing connection.
func NewRelay(conn *nats.Conn, sink EventSink) *Relay {
	return &Relay{conn: conn, sink: sink}
}

// Start subscribes to the visit and coverage subjects.
func (r *Relay) Start() error {
	for _, subject := range []string{SubjectVisitCreated, SubjectCoverageSnapshot} {
		sub, err := r.conn.Subscribe(subject, r.handle)
		if err != nil {
			r.Close()
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
		r.subs = append(r.subs, sub)
	}
	return nil
}

func (r *Relay) handle(msg *nats.Msg) {
	ev, err := decodeEvent(msg.Data)
	if err != nil {
		slog.Warn("relay: dropping malformed event", "subject", msg.Subject, "error", err)
		return
	}
	r.sink.Publish(ev)
}

// Close unsubscribes. The connection is owned by the caller.
func (r *Relay) Close() {
	for _, sub := range r.subs {
		_ = sub.Unsubscribe()
	}
	r.subs = nil
}

// decodeEvent keeps the payload as raw JSON so the hub forwards it
// byte-for-byte.
func decodeEvent(data []byte) (domain.Event, error) {
	var env struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return domain.Event{}, err
	}
	switch env.Type {
	case domain.EventVisitCreated, domain.EventCoverageSnapshot:
	default:
		return domain.Event{}, fmt.Errorf("unknown event type %q", env.Type)
	}
	if len(env.Data) == 0 {
		return domain.Event{}, fmt.Errorf("%s event without data", env.Type)
	}
	return domain.Event{Type: env.Type, Data: env.Data}, nil
}
