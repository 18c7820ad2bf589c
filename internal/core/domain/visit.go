package domain

import (
	"encoding/json"
	"time"
)

// Visit defaults applied when the agent omits them.
const (
	DefaultVisitType    = "door_to_door"
	DefaultStayDuration = 0
	MaxVisitTypeLength  = 50
)

// Visit is a persisted door-to-door visit reported by a field agent.
type Visit struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	Location     GeoPoint  `json:"location"`
	Accuracy     *float64  `json:"accuracy,omitempty"`
	StayDuration int       `json:"stay_duration"` // seconds
	VisitType    string    `json:"visit_type"`
	Notes        *string   `json:"notes,omitempty"`
	Distance     *float64  `json:"distance,omitempty"` // computed field
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// VisitInput is an incoming visit as submitted by the mobile client.
type VisitInput struct {
	Latitude     float64  `json:"latitude"`
	Longitude    float64  `json:"longitude"`
	Accuracy     *float64 `json:"accuracy"`
	UserID       *int64   `json:"user_id"`
	StayDuration *int     `json:"stay_duration"`
	VisitType    *string  `json:"visit_type"`
	Notes        *string  `json:"notes"`
}

// StoredPoint is what the store echoes back after an insert.
type StoredPoint struct {
	ID        int64
	Latitude  float64
	Longitude float64
}

// VisitResult is returned to the client after a successful create.
type VisitResult struct {
	ID        int64   `json:"id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Message   string  `json:"message"`
}

// VisitSummary is the lightweight payload pushed to live dashboards.
type VisitSummary struct {
	ID        int64   `json:"id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	UserID    int64   `json:"user_id"`
}

// HeatmapBucket is one grouped row of the envelope query.
type HeatmapBucket struct {
	Latitude     float64
	Longitude    float64
	StayDuration int
	VisitCount   int
	AvgDuration  float64
}

// HeatmapPoint is a weighted point, serialized as [lat, lon, intensity].
type HeatmapPoint struct {
	Lat       float64
	Lon       float64
	Intensity float64
}

func (p HeatmapPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]float64{p.Lat, p.Lon, p.Intensity})
}

func (p *HeatmapPoint) UnmarshalJSON(data []byte) error {
	var v [3]float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	p.Lat, p.Lon, p.Intensity = v[0], v[1], v[2]
	return nil
}

// WindowTotals are the raw aggregates over a trailing time window.
type WindowTotals struct {
	TotalVisits      int
	AvgStayDuration  *float64 // nil when the window is empty
	ProductiveVisits int
}

// CoverageStats summarizes campaign coverage over a trailing window.
type CoverageStats struct {
	UniqueLocationsCovered int     `json:"unique_locations_covered"`
	TotalVisits            int     `json:"total_visits"`
	AverageStayDuration    float64 `json:"average_stay_duration"`
	ProductiveVisits       int     `json:"productive_visits"`
	CoverageEfficiency     float64 `json:"coverage_efficiency"`
	WindowDays             int     `json:"window_days"`
}

// Event types pushed over the realtime channel.
const (
	EventVisitCreated     = "visit_created"
	EventCoverageSnapshot = "coverage_snapshot"
)

// Event is the envelope of every realtime notification.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}
