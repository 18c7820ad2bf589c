package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/canvass/internal/core/domain"
)

// VisitRepo implements ports.VisitRepository on PostGIS.
// Every query is parameterized; geometry is built server-side from numbers.
type VisitRepo struct {
	db *DB
}

// NewVisitRepo creates a new VisitRepo.
func NewVisitRepo(db *DB) *VisitRepo {
	return &VisitRepo{db: db}
}

// envelopeArgs returns ST_MakeEnvelope arguments: xmin, ymin, xmax, ymax.
func envelopeArgs(b domain.Bounds) []any {
	return []any{b.MinLon, b.MinLat, b.MaxLon, b.MaxLat}
}

// InsertPoint stores a visit and echoes the stored coordinates.
func (r *VisitRepo) InsertPoint(ctx context.Context, v *domain.Visit) (*domain.StoredPoint, error) {
	x, y := v.Location.XY()

	var sp domain.StoredPoint
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO campaign_visits (user_id, location, accuracy, stay_duration, visit_type, notes)
		VALUES ($1, ST_SetSRID(ST_MakePoint($2, $3), 4326), $4, $5, $6, $7)
		RETURNING id, ST_Y(location) AS latitude, ST_X(location) AS longitude
	`, v.UserID, x, y, v.Accuracy, v.StayDuration, v.VisitType, v.Notes,
	).Scan(&sp.ID, &sp.Latitude, &sp.Longitude)
	if err != nil {
		return nil, mapError("insert visit", err)
	}
	return &sp, nil
}

// QueryWithinEnvelope groups visits inside bounds (edges included) by exact
// coordinate and stay duration.
func (r *VisitRepo) QueryWithinEnvelope(ctx context.Context, bounds domain.Bounds) ([]domain.HeatmapBucket, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT ST_Y(location) AS latitude,
		       ST_X(location) AS longitude,
		       stay_duration,
		       COUNT(*) AS visit_count,
		       AVG(stay_duration)::float8 AS avg_duration
		FROM campaign_visits
		WHERE ST_Covers(ST_MakeEnvelope($1, $2, $3, $4, 4326), location)
		GROUP BY latitude, longitude, stay_duration
		ORDER BY visit_count DESC
	`, envelopeArgs(bounds)...)
	if err != nil {
		return nil, mapError("query heatmap buckets", err)
	}
	defer rows.Close()

	var buckets []domain.HeatmapBucket
	for rows.Next() {
		var b domain.HeatmapBucket
		if err := rows.Scan(&b.Latitude, &b.Longitude, &b.StayDuration, &b.VisitCount, &b.AvgDuration); err != nil {
			return nil, mapError("scan heatmap bucket", err)
		}
		buckets = append(buckets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("query heatmap buckets", err)
	}
	return buckets, nil
}

// CountDistinctSnapped counts grid cells touched inside the constituency
// within the trailing window, measured on the database clock.
func (r *VisitRepo) CountDistinctSnapped(ctx context.Context, gridSize float64, window time.Duration) (int, error) {
	args := append([]any{gridSize, window.Seconds()}, envelopeArgs(domain.ConstituencyBounds)...)

	var n int
	err := r.db.Pool.QueryRow(ctx, `
		SELECT COUNT(DISTINCT ST_SnapToGrid(location, $1))
		FROM campaign_visits
		WHERE created_at >= now() - make_interval(secs => $2)
		  AND ST_Covers(ST_MakeEnvelope($3, $4, $5, $6, 4326), location)
	`, args...).Scan(&n)
	if err != nil {
		return 0, mapError("count snapped cells", err)
	}
	return n, nil
}

// WindowTotals aggregates visit count, mean stay and productive visits
// within the trailing window.
func (r *VisitRepo) WindowTotals(ctx context.Context, window time.Duration, productiveSeconds int) (domain.WindowTotals, error) {
	args := append([]any{window.Seconds(), productiveSeconds}, envelopeArgs(domain.ConstituencyBounds)...)

	var t domain.WindowTotals
	err := r.db.Pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       AVG(stay_duration)::float8,
		       COUNT(*) FILTER (WHERE stay_duration >= $2)
		FROM campaign_visits
		WHERE created_at >= now() - make_interval(secs => $1)
		  AND ST_Covers(ST_MakeEnvelope($3, $4, $5, $6, 4326), location)
	`, args...).Scan(&t.TotalVisits, &t.AvgStayDuration, &t.ProductiveVisits)
	if err != nil {
		return domain.WindowTotals{}, mapError("aggregate window totals", err)
	}
	return t, nil
}

// FindNearby returns visits within radiusMeters using PostGIS ST_DWithin.
func (r *VisitRepo) FindNearby(ctx context.Context, p domain.GeoPoint, radiusMeters float64, limit int) ([]domain.Visit, error) {
	x, y := p.XY()
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, user_id,
		       ST_Y(location) AS lat,
		       ST_X(location) AS lon,
		       accuracy, stay_duration, visit_type, notes,
		       created_at, updated_at,
		       ST_Distance(location::geography, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography) AS distance
		FROM campaign_visits
		WHERE ST_DWithin(location::geography, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)
		ORDER BY distance
		LIMIT $4
	`, x, y, radiusMeters, limit)
	if err != nil {
		return nil, mapError("find nearby visits", err)
	}
	return collectVisits(rows, true)
}

// ListRecent returns the newest visits first.
func (r *VisitRepo) ListRecent(ctx context.Context, limit int) ([]domain.Visit, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, user_id,
		       ST_Y(location) AS lat,
		       ST_X(location) AS lon,
		       accuracy, stay_duration, visit_type, notes,
		       created_at, updated_at
		FROM campaign_visits
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, mapError("list recent visits", err)
	}
	return collectVisits(rows, false)
}

func collectVisits(rows pgx.Rows, withDistance bool) ([]domain.Visit, error) {
	defer rows.Close()

	var visits []domain.Visit
	for rows.Next() {
		var v domain.Visit
		dest := []any{
			&v.ID, &v.UserID,
			&v.Location.Lat, &v.Location.Lon,
			&v.Accuracy, &v.StayDuration, &v.VisitType, &v.Notes,
			&v.CreatedAt, &v.UpdatedAt,
		}
		var dist float64
		if withDistance {
			dest = append(dest, &dist)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, mapError("scan visit", err)
		}
		if withDistance {
			d := dist
			v.Distance = &d
		}
		visits = append(visits, v)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("read visits", err)
	}
	return visits, nil
}
