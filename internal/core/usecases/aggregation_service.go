package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/canvass/internal/core/domain"
	"github.com/samirrijal/canvass/internal/core/ports"
	"github.com/samirrijal/canvass/internal/pkg/metrics"
)

// Heatmap and coverage constants. The intensity blend and the productive
// threshold are compatibility constants shared with existing dashboards.
const (
	IntensityPerVisit     = 0.1
	IntensityDurationUnit = 300.0 // seconds
	MaxIntensity          = 1.0

	ProductiveStaySeconds = 120
	CoverageGridSize      = 0.001 // degrees

	DefaultCoverageWindowDays = 7
	MaxCoverageWindowDays     = 90

	heatmapCacheKey      = "aggregates:heatmap"
	coverageCacheKey     = "aggregates:coverage:default"
	heatmapCacheTTLSecs  = 30
	coverageCacheTTLSecs = 60
)

// aggregateCacheKeys lists every cached aggregate that a new visit invalidates.
// Only the default coverage window is cached.
func aggregateCacheKeys() []string {
	return []string{heatmapCacheKey, coverageCacheKey}
}

// Intensity blends visit frequency and mean stay into a weight in [0, 1]:
// min(visitCount*0.1 + avgDuration/300, 1.0).
func Intensity(visitCount int, avgDuration float64) float64 {
	return math.Min(float64(visitCount)*IntensityPerVisit+avgDuration/IntensityDurationUnit, MaxIntensity)
}

// AggregationService computes read-only spatial analytics over stored visits.
type AggregationService struct {
	visits ports.VisitRepository
	cache  ports.CacheService
	tracer trace.Tracer
}

// NewAggregationService creates a new AggregationService. cache may be nil.
func NewAggregationService(visits ports.VisitRepository, cache ports.CacheService) *AggregationService {
	return &AggregationService{
		visits: visits,
		cache:  cache,
		tracer: otel.Tracer("canvass/usecases"),
	}
}

// HeatmapData returns one weighted point per (coordinate, stay duration) group
// inside the constituency, most visited first. The result is not capped.
func (s *AggregationService) HeatmapData(ctx context.Context) ([]domain.HeatmapPoint, error) {
	ctx, span := s.tracer.Start(ctx, "AggregationService.HeatmapData")
	defer span.End()

	var cached []domain.HeatmapPoint
	if s.cacheGet(ctx, heatmapCacheKey, "heatmap", &cached) {
		return cached, nil
	}

	buckets, err := s.visits.QueryWithinEnvelope(ctx, domain.ConstituencyBounds)
	if err != nil {
		span.RecordError(err)
		return nil, classify("query heatmap buckets", err)
	}

	// The store filters by envelope already; rows that slipped in out of band
	// are dropped here as well.
	kept := buckets[:0:0]
	for _, b := range buckets {
		if domain.ValidateCoordinates(b.Latitude, b.Longitude) {
			kept = append(kept, b)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].VisitCount > kept[j].VisitCount
	})

	points := make([]domain.HeatmapPoint, 0, len(kept))
	for _, b := range kept {
		points = append(points, domain.HeatmapPoint{
			Lat:       b.Latitude,
			Lon:       b.Longitude,
			Intensity: Intensity(b.VisitCount, b.AvgDuration),
		})
	}
	span.SetAttributes(attribute.Int("heatmap.points", len(points)))

	s.cacheSet(ctx, heatmapCacheKey, points, heatmapCacheTTLSecs)
	return points, nil
}

// CoverageStatistics summarizes visits created in the trailing windowDays.
// A windowDays of zero selects the default week.
func (s *AggregationService) CoverageStatistics(ctx context.Context, windowDays int) (*domain.CoverageStats, error) {
	ctx, span := s.tracer.Start(ctx, "AggregationService.CoverageStatistics")
	defer span.End()

	if windowDays == 0 {
		windowDays = DefaultCoverageWindowDays
	}
	if windowDays < 0 || windowDays > MaxCoverageWindowDays {
		return nil, &domain.ValidationError{
			Field:  "window_days",
			Reason: fmt.Sprintf("must be between 1 and %d", MaxCoverageWindowDays),
		}
	}
	span.SetAttributes(attribute.Int("coverage.window_days", windowDays))

	cacheable := windowDays == DefaultCoverageWindowDays
	var cached domain.CoverageStats
	if cacheable && s.cacheGet(ctx, coverageCacheKey, "coverage", &cached) {
		return &cached, nil
	}

	window := time.Duration(windowDays) * 24 * time.Hour

	unique, err := s.visits.CountDistinctSnapped(ctx, CoverageGridSize, window)
	if err != nil {
		span.RecordError(err)
		return nil, classify("count snapped cells", err)
	}

	totals, err := s.visits.WindowTotals(ctx, window, ProductiveStaySeconds)
	if err != nil {
		span.RecordError(err)
		return nil, classify("aggregate window totals", err)
	}

	stats := &domain.CoverageStats{
		UniqueLocationsCovered: unique,
		TotalVisits:            totals.TotalVisits,
		ProductiveVisits:       totals.ProductiveVisits,
		WindowDays:             windowDays,
	}
	if totals.AvgStayDuration != nil {
		stats.AverageStayDuration = round2(*totals.AvgStayDuration)
	}
	if totals.TotalVisits > 0 {
		stats.CoverageEfficiency = round2(float64(totals.ProductiveVisits) / float64(totals.TotalVisits) * 100)
	}

	if cacheable {
		s.cacheSet(ctx, coverageCacheKey, stats, coverageCacheTTLSecs)
	}
	return stats, nil
}

func (s *AggregationService) cacheGet(ctx context.Context, key, op string, dst any) bool {
	if s.cache == nil {
		return false
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil || json.Unmarshal(data, dst) != nil {
		metrics.CacheMisses.WithLabelValues(op).Inc()
		return false
	}
	metrics.CacheHits.WithLabelValues(op).Inc()
	return true
}

func (s *AggregationService) cacheSet(ctx context.Context, key string, v any, ttl int) {
	if s.cache == nil {
		return
	}
	if data, err := json.Marshal(v); err == nil {
		_ = s.cache.Set(ctx, key, data, ttl)
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
