package http

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/canvass/internal/core/domain"
)

// createVisitRequest mirrors domain.VisitInput but keeps the coordinates
// optional so a missing field is reported instead of read as zero.
type createVisitRequest struct {
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	Accuracy     *float64 `json:"accuracy"`
	UserID       *int64   `json:"user_id"`
	StayDuration *int     `json:"stay_duration"`
	VisitType    *string  `json:"visit_type"`
	Notes        *string  `json:"notes"`
}

func (r createVisitRequest) toInput() (domain.VisitInput, error) {
	if r.Latitude == nil {
		return domain.VisitInput{}, &domain.ValidationError{Field: "latitude", Reason: "is required"}
	}
	if r.Longitude == nil {
		return domain.VisitInput{}, &domain.ValidationError{Field: "longitude", Reason: "is required"}
	}
	return domain.VisitInput{
		Latitude:     *r.Latitude,
		Longitude:    *r.Longitude,
		Accuracy:     r.Accuracy,
		UserID:       r.UserID,
		StayDuration: r.StayDuration,
		VisitType:    r.VisitType,
		Notes:        r.Notes,
	}, nil
}

// VisitView is the flat representation of a stored visit.
type VisitView struct {
	ID           int64    `json:"id"`
	Latitude     float64  `json:"latitude"`
	Longitude    float64  `json:"longitude"`
	Accuracy     *float64 `json:"accuracy"`
	UserID       int64    `json:"user_id"`
	StayDuration int      `json:"stay_duration"`
	VisitType    string   `json:"visit_type"`
	Notes        *string  `json:"notes"`
	Distance     *float64 `json:"distance,omitempty"`
	CreatedAt    string   `json:"created_at"`
}

func toVisitViews(visits []domain.Visit) []VisitView {
	out := make([]VisitView, 0, len(visits))
	for _, v := range visits {
		out = append(out, VisitView{
			ID:           v.ID,
			Latitude:     v.Location.Lat,
			Longitude:    v.Location.Lon,
			Accuracy:     v.Accuracy,
			UserID:       v.UserID,
			StayDuration: v.StayDuration,
			VisitType:    v.VisitType,
			Notes:        v.Notes,
			Distance:     v.Distance,
			CreatedAt:    v.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}

// CreateVisitHandler records a field visit.
func CreateVisitHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createVisitRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		in, err := req.toInput()
		if err != nil {
			return errFromDomain(c, err)
		}

		res, err := deps.Visits.Create(c.UserContext(), in)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(res)
	}
}

// HeatmapHandler returns weighted points for the constituency heatmap.
func HeatmapHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		points, err := deps.Aggregates.HeatmapData(c.UserContext())
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(fiber.Map{"heatmap_points": points})
	}
}

// CoverageStatsHandler returns coverage statistics for the trailing window.
func CoverageStatsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		windowDays := 0
		if raw := c.Query("window_days"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return errBadRequest(c, "window_days must be an integer")
			}
			if n == 0 {
				return errFromDomain(c, &domain.ValidationError{Field: "window_days", Reason: "must be between 1 and 90"})
			}
			windowDays = n
		}

		stats, err := deps.Aggregates.CoverageStatistics(c.UserContext(), windowDays)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(stats)
	}
}

// NearbyVisitsHandler returns visits within a radius of a point, nearest first.
func NearbyVisitsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Query("lat") == "" || c.Query("lon") == "" {
			return errBadRequest(c, "lat and lon are required")
		}
		lat, err := strconv.ParseFloat(c.Query("lat"), 64)
		if err != nil {
			return errBadRequest(c, "lat must be a number")
		}
		lon, err := strconv.ParseFloat(c.Query("lon"), 64)
		if err != nil {
			return errBadRequest(c, "lon must be a number")
		}
		radius := c.QueryFloat("radius", 500)
		limit := c.QueryInt("limit", 50)

		visits, err := deps.Visits.FindNearby(c.UserContext(), lat, lon, radius, limit)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(toVisitViews(visits))
	}
}

// RecentVisitsHandler lists the newest visits.
func RecentVisitsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		visits, err := deps.Visits.ListRecent(c.UserContext(), c.QueryInt("limit", 50))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(toVisitViews(visits))
	}
}

// RootHandler identifies the service.
func RootHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "Lalganj Campaign Management System API"})
	}
}
