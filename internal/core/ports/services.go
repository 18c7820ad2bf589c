package ports

import (
	"context"

	"github.com/samirrijal/canvass/internal/core/domain"
)

// VisitNotifier receives a summary of every newly stored visit.
// Implementations must not block the caller.
type VisitNotifier interface {
	NotifyVisit(ctx context.Context, summary domain.VisitSummary)
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishVisitCreated(ctx context.Context, summary domain.VisitSummary) error
	PublishCoverageSnapshot(ctx context.Context, stats *domain.CoverageStats) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// Connection is a live realtime client as seen by the broadcast hub.
type Connection interface {
	// Send delivers one serialized message. An error means the peer is gone.
	Send(data []byte) error
	Close() error
}
