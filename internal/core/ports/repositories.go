package ports

import (
	"context"
	"time"

	"github.com/samirrijal/canvass/internal/core/domain"
)

// VisitRepository is the spatial store behind visit ingestion and analytics.
type VisitRepository interface {
	// InsertPoint stores the visit and echoes back the id and the stored
	// coordinates, which are the source of truth after any rounding.
	InsertPoint(ctx context.Context, v *domain.Visit) (*domain.StoredPoint, error)

	// QueryWithinEnvelope groups points inside bounds by coordinate and stay
	// duration, ordered by visit count descending.
	QueryWithinEnvelope(ctx context.Context, bounds domain.Bounds) ([]domain.HeatmapBucket, error)

	// CountDistinctSnapped counts grid cells of gridSize degrees touched by
	// visits created within the trailing window.
	CountDistinctSnapped(ctx context.Context, gridSize float64, window time.Duration) (int, error)

	// WindowTotals aggregates visits created within the trailing window.
	// Visits with stay_duration >= productiveSeconds count as productive.
	WindowTotals(ctx context.Context, window time.Duration, productiveSeconds int) (domain.WindowTotals, error)

	// FindNearby returns visits within radiusMeters, nearest first.
	FindNearby(ctx context.Context, p domain.GeoPoint, radiusMeters float64, limit int) ([]domain.Visit, error)

	// ListRecent returns the newest visits first.
	ListRecent(ctx context.Context, limit int) ([]domain.Visit, error)
}
