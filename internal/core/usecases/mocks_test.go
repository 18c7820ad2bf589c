package usecases_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/samirrijal/canvass/internal/core/domain"
)

// --- Mock VisitRepository ---

type mockVisitRepo struct {
	insertFn    func(ctx context.Context, v *domain.Visit) (*domain.StoredPoint, error)
	envelopeFn  func(ctx context.Context, b domain.Bounds) ([]domain.HeatmapBucket, error)
	snappedFn   func(ctx context.Context, grid float64, window time.Duration) (int, error)
	totalsFn    func(ctx context.Context, window time.Duration, productive int) (domain.WindowTotals, error)
	nearbyFn    func(ctx context.Context, p domain.GeoPoint, radius float64, limit int) ([]domain.Visit, error)
	recentFn    func(ctx context.Context, limit int) ([]domain.Visit, error)
	insertCalls int
}

func (m *mockVisitRepo) InsertPoint(ctx context.Context, v *domain.Visit) (*domain.StoredPoint, error) {
	m.insertCalls++
	if m.insertFn != nil {
		return m.insertFn(ctx, v)
	}
	return &domain.StoredPoint{ID: 1, Latitude: v.Location.Lat, Longitude: v.Location.Lon}, nil
}

func (m *mockVisitRepo) QueryWithinEnvelope(ctx context.Context, b domain.Bounds) ([]domain.HeatmapBucket, error) {
	if m.envelopeFn != nil {
		return m.envelopeFn(ctx, b)
	}
	return nil, nil
}

func (m *mockVisitRepo) CountDistinctSnapped(ctx context.Context, grid float64, window time.Duration) (int, error) {
	if m.snappedFn != nil {
		return m.snappedFn(ctx, grid, window)
	}
	return 0, nil
}

func (m *mockVisitRepo) WindowTotals(ctx context.Context, window time.Duration, productive int) (domain.WindowTotals, error) {
	if m.totalsFn != nil {
		return m.totalsFn(ctx, window, productive)
	}
	return domain.WindowTotals{}, nil
}

func (m *mockVisitRepo) FindNearby(ctx context.Context, p domain.GeoPoint, radius float64, limit int) ([]domain.Visit, error) {
	if m.nearbyFn != nil {
		return m.nearbyFn(ctx, p, radius, limit)
	}
	return nil, nil
}

func (m *mockVisitRepo) ListRecent(ctx context.Context, limit int) ([]domain.Visit, error) {
	if m.recentFn != nil {
		return m.recentFn(ctx, limit)
	}
	return nil, nil
}

// --- Mock VisitNotifier ---

type recordingNotifier struct {
	mu        sync.Mutex
	summaries []domain.VisitSummary
}

func (n *recordingNotifier) NotifyVisit(_ context.Context, s domain.VisitSummary) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.summaries = append(n.summaries, s)
}

// --- Mock CacheService ---

type mockCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	deleted []string
	failGet bool
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string][]byte)}
}

func (c *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGet {
		return nil, errors.New("cache down")
	}
	v, ok := c.data[key]
	if !ok {
		return nil, errors.New("valkey nil message")
	}
	return v, nil
}

func (c *mockCache) Set(ctx context.Context, key string, value []byte, ttl int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *mockCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	c.deleted = append(c.deleted, key)
	return nil
}

// --- Mock Connection ---

type mockConn struct {
	mu       sync.Mutex
	received [][]byte
	fail     bool
	closed   bool
}

func (c *mockConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("broken pipe")
	}
	c.received = append(c.received, data)
	return nil
}

func (c *mockConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *mockConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.received)
}
