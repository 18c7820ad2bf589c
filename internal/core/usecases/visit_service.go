package usecases

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/canvass/internal/core/domain"
	"github.com/samirrijal/canvass/internal/core/ports"
	"github.com/samirrijal/canvass/internal/pkg/metrics"
)

const visitCreatedMessage = "Location recorded successfully"

// VisitService validates and stores visits reported by field agents.
type VisitService struct {
	visits   ports.VisitRepository
	notifier ports.VisitNotifier
	cache    ports.CacheService
	tracer   trace.Tracer
}

// NewVisitService creates a new VisitService. notifier and cache may be nil.
func NewVisitService(visits ports.VisitRepository, notifier ports.VisitNotifier, cache ports.CacheService) *VisitService {
	return &VisitService{
		visits:   visits,
		notifier: notifier,
		cache:    cache,
		tracer:   otel.Tracer("canvass/usecases"),
	}
}

// Create validates the visit, persists it and notifies live dashboards.
func (s *VisitService) Create(ctx context.Context, in domain.VisitInput) (*domain.VisitResult, error) {
	ctx, span := s.tracer.Start(ctx, "VisitService.Create")
	defer span.End()

	if !domain.ValidateCoordinates(in.Latitude, in.Longitude) {
		metrics.VisitsRejected.WithLabelValues("out_of_bounds").Inc()
		return nil, fmt.Errorf("%w: (%.6f, %.6f)", domain.ErrOutOfBounds, in.Latitude, in.Longitude)
	}

	v, err := buildVisit(in)
	if err != nil {
		metrics.VisitsRejected.WithLabelValues("validation").Inc()
		return nil, err
	}
	span.SetAttributes(
		attribute.Int64("visit.user_id", v.UserID),
		attribute.String("visit.type", v.VisitType),
	)

	stored, err := s.visits.InsertPoint(ctx, v)
	if err != nil {
		span.RecordError(err)
		return nil, classify("insert visit", err)
	}
	metrics.VisitsIngested.WithLabelValues(v.VisitType).Inc()

	s.invalidateAggregates(ctx)

	if s.notifier != nil {
		// Detached so a cancelled request cannot cut the notification short.
		s.notifier.NotifyVisit(context.WithoutCancel(ctx), domain.VisitSummary{
			ID:        stored.ID,
			Latitude:  stored.Latitude,
			Longitude: stored.Longitude,
			UserID:    v.UserID,
		})
	}

	return &domain.VisitResult{
		ID:        stored.ID,
		Latitude:  stored.Latitude,
		Longitude: stored.Longitude,
		Message:   visitCreatedMessage,
	}, nil
}

// FindNearby returns stored visits within radiusMeters of a point inside the constituency.
func (s *VisitService) FindNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Visit, error) {
	if !domain.ValidateCoordinates(lat, lon) {
		return nil, fmt.Errorf("%w: (%.6f, %.6f)", domain.ErrOutOfBounds, lat, lon)
	}
	if radiusMeters <= 0 || radiusMeters > 5000 {
		return nil, &domain.ValidationError{Field: "radius", Reason: "must be between 1 and 5000 meters"}
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	visits, err := s.visits.FindNearby(ctx, domain.GeoPoint{Lat: lat, Lon: lon}, radiusMeters, limit)
	if err != nil {
		return nil, classify("find nearby visits", err)
	}
	return visits, nil
}

// ListRecent returns the newest visits first.
func (s *VisitService) ListRecent(ctx context.Context, limit int) ([]domain.Visit, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	visits, err := s.visits.ListRecent(ctx, limit)
	if err != nil {
		return nil, classify("list recent visits", err)
	}
	return visits, nil
}

func (s *VisitService) invalidateAggregates(ctx context.Context) {
	if s.cache == nil {
		return
	}
	for _, key := range aggregateCacheKeys() {
		_ = s.cache.Delete(ctx, key)
	}
}

// buildVisit applies defaults and rejects malformed scalar fields.
func buildVisit(in domain.VisitInput) (*domain.Visit, error) {
	if in.UserID == nil {
		return nil, &domain.ValidationError{Field: "user_id", Reason: "is required"}
	}

	v := &domain.Visit{
		UserID:       *in.UserID,
		Location:     domain.GeoPoint{Lat: in.Latitude, Lon: in.Longitude},
		Accuracy:     in.Accuracy,
		StayDuration: domain.DefaultStayDuration,
		VisitType:    domain.DefaultVisitType,
		Notes:        in.Notes,
	}

	if in.Accuracy != nil && *in.Accuracy < 0 {
		return nil, &domain.ValidationError{Field: "accuracy", Reason: "must not be negative"}
	}
	if in.StayDuration != nil {
		if *in.StayDuration < 0 {
			return nil, &domain.ValidationError{Field: "stay_duration", Reason: "must not be negative"}
		}
		v.StayDuration = *in.StayDuration
	}
	if in.VisitType != nil {
		vt := strings.TrimSpace(*in.VisitType)
		if len(vt) > domain.MaxVisitTypeLength {
			return nil, &domain.ValidationError{
				Field:  "visit_type",
				Reason: fmt.Sprintf("must be at most %d characters", domain.MaxVisitTypeLength),
			}
		}
		if vt != "" {
			v.VisitType = vt
		}
	}

	return v, nil
}
