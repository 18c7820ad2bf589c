// Package memory is an in-process spatial store for local development and
// tests. It honors the same contract as the PostGIS adapter.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/samirrijal/canvass/internal/core/domain"
	"github.com/samirrijal/canvass/internal/pkg/geospatial"
)

// VisitStore implements ports.VisitRepository in memory.
type VisitStore struct {
	mu     sync.RWMutex
	visits []domain.Visit
	nextID int64
	now    func() time.Time
}

// NewVisitStore creates an empty store using the wall clock.
func NewVisitStore() *VisitStore {
	return &VisitStore{nextID: 1, now: time.Now}
}

// WithClock replaces the store clock. Used by tests to age records.
func (s *VisitStore) WithClock(now func() time.Time) *VisitStore {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
	return s
}

// Ping always succeeds.
func (s *VisitStore) Ping(context.Context) error { return nil }

// Len returns the number of stored visits.
func (s *VisitStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.visits)
}

func (s *VisitStore) InsertPoint(ctx context.Context, v *domain.Visit) (*domain.StoredPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.StoreError{Op: "insert visit", Err: err}
	}
	if v.VisitType == "" {
		return nil, &domain.ValidationError{Field: "visit_type", Reason: "must not be null"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *v
	stored.ID = s.nextID
	stored.Distance = nil
	stored.CreatedAt = s.now()
	stored.UpdatedAt = stored.CreatedAt
	s.nextID++
	s.visits = append(s.visits, stored)

	return &domain.StoredPoint{
		ID:        stored.ID,
		Latitude:  stored.Location.Lat,
		Longitude: stored.Location.Lon,
	}, nil
}

type bucketKey struct {
	lat, lon float64
	stay     int
}

func (s *VisitStore) QueryWithinEnvelope(ctx context.Context, bounds domain.Bounds) ([]domain.HeatmapBucket, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.StoreError{Op: "query heatmap buckets", Err: err}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	index := make(map[bucketKey]int)
	var buckets []domain.HeatmapBucket
	sums := make([]int, 0)
	for _, v := range s.visits {
		if !bounds.Contains(v.Location.Lat, v.Location.Lon) {
			continue
		}
		k := bucketKey{v.Location.Lat, v.Location.Lon, v.StayDuration}
		i, ok := index[k]
		if !ok {
			i = len(buckets)
			index[k] = i
			buckets = append(buckets, domain.HeatmapBucket{
				Latitude:     k.lat,
				Longitude:    k.lon,
				StayDuration: k.stay,
			})
			sums = append(sums, 0)
		}
		buckets[i].VisitCount++
		sums[i] += v.StayDuration
	}
	for i := range buckets {
		buckets[i].AvgDuration = float64(sums[i]) / float64(buckets[i].VisitCount)
	}
	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].VisitCount > buckets[j].VisitCount
	})
	return buckets, nil
}

// inWindow returns the visits created since now-window inside the constituency.
// Caller holds the read lock.
func (s *VisitStore) inWindow(window time.Duration) []domain.Visit {
	since := s.now().Add(-window)
	var out []domain.Visit
	for _, v := range s.visits {
		if v.CreatedAt.Before(since) {
			continue
		}
		if !domain.ValidateCoordinates(v.Location.Lat, v.Location.Lon) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func (s *VisitStore) CountDistinctSnapped(ctx context.Context, gridSize float64, window time.Duration) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, &domain.StoreError{Op: "count snapped cells", Err: err}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	cells := make(map[geospatial.Cell]struct{})
	for _, v := range s.inWindow(window) {
		cells[geospatial.Snap(v.Location.Lat, v.Location.Lon, gridSize)] = struct{}{}
	}
	return len(cells), nil
}

func (s *VisitStore) WindowTotals(ctx context.Context, window time.Duration, productiveSeconds int) (domain.WindowTotals, error) {
	if err := ctx.Err(); err != nil {
		return domain.WindowTotals{}, &domain.StoreError{Op: "aggregate window totals", Err: err}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var t domain.WindowTotals
	sum := 0
	for _, v := range s.inWindow(window) {
		t.TotalVisits++
		sum += v.StayDuration
		if v.StayDuration >= productiveSeconds {
			t.ProductiveVisits++
		}
	}
	if t.TotalVisits > 0 {
		avg := float64(sum) / float64(t.TotalVisits)
		t.AvgStayDuration = &avg
	}
	return t, nil
}

func (s *VisitStore) FindNearby(ctx context.Context, p domain.GeoPoint, radiusMeters float64, limit int) ([]domain.Visit, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.StoreError{Op: "find nearby visits", Err: err}
	}

	minLat, minLon, maxLat, maxLon := geospatial.RadiusEnvelope(p.Lat, p.Lon, radiusMeters)
	box := domain.Bounds{MinLat: minLat, MinLon: minLon, MaxLat: maxLat, MaxLon: maxLon}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Visit
	for _, v := range s.visits {
		if !box.Contains(v.Location.Lat, v.Location.Lon) {
			continue
		}
		d := geospatial.DistanceMeters(p.Lat, p.Lon, v.Location.Lat, v.Location.Lon)
		if d > radiusMeters {
			continue
		}
		v.Distance = &d
		out = append(out, v)
	}
	sort.SliceStable(out, func(i, j int) bool { return *out[i].Distance < *out[j].Distance })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *VisitStore) ListRecent(ctx context.Context, limit int) ([]domain.Visit, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.StoreError{Op: "list recent visits", Err: err}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.visits)
	if limit > n {
		limit = n
	}
	out := make([]domain.Visit, 0, limit)
	for i := n - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.visits[i])
	}
	return out, nil
}
