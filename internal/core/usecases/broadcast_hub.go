package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/samirrijal/canvass/internal/core/domain"
	"github.com/samirrijal/canvass/internal/core/ports"
	"github.com/samirrijal/canvass/internal/pkg/metrics"
)

// ConnState is the lifecycle of a realtime connection.
// Connecting -> Connected -> Disconnected; Disconnected is terminal.
type ConnState int

const (
	StateConnecting ConnState = iota
	StateConnected
	StateDisconnected
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// DefaultInboxSize bounds the number of pending notifications.
const DefaultInboxSize = 256

// BroadcastHub owns the set of live connections and fans events out to them.
// Delivery is best-effort and at most once per connection per broadcast;
// a connection that fails a send is removed immediately.
type BroadcastHub struct {
	mu    sync.Mutex
	conns map[string]ports.Connection

	inbox chan domain.Event
}

// NewBroadcastHub creates a hub whose inbox holds up to inboxSize events.
func NewBroadcastHub(inboxSize int) *BroadcastHub {
	if inboxSize <= 0 {
		inboxSize = DefaultInboxSize
	}
	return &BroadcastHub{
		conns: make(map[string]ports.Connection),
		inbox: make(chan domain.Event, inboxSize),
	}
}

// Connect registers c and returns its connection id.
func (h *BroadcastHub) Connect(c ports.Connection) string {
	id := uuid.NewString()

	h.mu.Lock()
	h.conns[id] = c
	n := len(h.conns)
	h.mu.Unlock()

	metrics.ActiveWebSockets.Set(float64(n))
	return id
}

// Disconnect removes the connection. Removing an unknown id is a no-op.
func (h *BroadcastHub) Disconnect(id string) bool {
	h.mu.Lock()
	_, ok := h.conns[id]
	delete(h.conns, id)
	n := len(h.conns)
	h.mu.Unlock()

	if ok {
		metrics.ActiveWebSockets.Set(float64(n))
	}
	return ok
}

// State reports where the connection is in its lifecycle.
// Ids the hub has never seen, or has dropped, are Disconnected.
func (h *BroadcastHub) State(id string) ConnState {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[id]; ok {
		return StateConnected
	}
	return StateDisconnected
}

// Len returns the number of active connections.
func (h *BroadcastHub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Broadcast sends ev to every active connection and returns how many
// accepted it. It iterates over a snapshot, so connections joining or
// leaving mid-broadcast do not disturb the other sends.
func (h *BroadcastHub) Broadcast(ev domain.Event) int {
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("broadcast: marshal event", "type", ev.Type, "error", err)
		return 0
	}

	type member struct {
		id   string
		conn ports.Connection
	}

	h.mu.Lock()
	snapshot := make([]member, 0, len(h.conns))
	for id, c := range h.conns {
		snapshot = append(snapshot, member{id: id, conn: c})
	}
	h.mu.Unlock()

	delivered := 0
	for _, m := range snapshot {
		if err := m.conn.Send(data); err != nil {
			err = fmt.Errorf("%w: %w", domain.ErrBroadcastSend, err)
			slog.Debug("broadcast: dropping connection", "conn_id", m.id, "error", err)
			metrics.BroadcastSends.WithLabelValues("failed").Inc()
			h.Disconnect(m.id)
			_ = m.conn.Close()
			continue
		}
		delivered++
	}
	metrics.BroadcastSends.WithLabelValues("delivered").Add(float64(delivered))
	return delivered
}

// Publish queues ev for the run loop without blocking. It reports false
// when the inbox is full and the event was dropped.
func (h *BroadcastHub) Publish(ev domain.Event) bool {
	select {
	case h.inbox <- ev:
		return true
	default:
		metrics.HubInboxDropped.Inc()
		slog.Warn("broadcast: inbox full, dropping event", "type", ev.Type)
		return false
	}
}

// NotifyVisit implements ports.VisitNotifier.
func (h *BroadcastHub) NotifyVisit(_ context.Context, summary domain.VisitSummary) {
	h.Publish(domain.Event{Type: domain.EventVisitCreated, Data: summary})
}

// Run drains the inbox until ctx is cancelled.
func (h *BroadcastHub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-h.inbox:
			h.Broadcast(ev)
		}
	}
}

// Shutdown closes and forgets every connection.
func (h *BroadcastHub) Shutdown() {
	h.mu.Lock()
	conns := h.conns
	h.conns = make(map[string]ports.Connection)
	h.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
	metrics.ActiveWebSockets.Set(0)
}
