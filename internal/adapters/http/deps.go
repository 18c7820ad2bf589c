package http

import (
	"context"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/canvass/internal/core/usecases"
)

// Pinger is anything readiness can probe: the postgres pool, the in-memory
// store or the cache.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Visits     *usecases.VisitService
	Aggregates *usecases.AggregationService
	Hub        *usecases.BroadcastHub
	NATS       *nats.Conn
	Store      Pinger
	Cache      Pinger

	RequestTimeout time.Duration
	WSWriteTimeout time.Duration
	WSPingInterval time.Duration
}

func (d *Dependencies) requestTimeout() time.Duration {
	if d.RequestTimeout <= 0 {
		return 15 * time.Second
	}
	return d.RequestTimeout
}
