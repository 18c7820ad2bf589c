package domain

// SRID is the coordinate reference of every stored point (WGS 84).
const SRID = 4326

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// XY returns the point in geometry axis order: x is longitude, y is latitude.
// Callers hold (lat, lon); PostGIS constructors take (x, y).
func (p GeoPoint) XY() (x, y float64) {
	return p.Lon, p.Lat
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Contains reports whether the point lies inside the box, edges included.
func (b Bounds) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat &&
		lon >= b.MinLon && lon <= b.MaxLon
}

// ConstituencyBounds is the fixed campaign region.
var ConstituencyBounds = Bounds{
	MinLat: 25.82,
	MinLon: 85.10,
	MaxLat: 25.90,
	MaxLon: 85.25,
}

// ValidateCoordinates reports whether (lat, lon) falls inside the constituency.
func ValidateCoordinates(lat, lon float64) bool {
	return ConstituencyBounds.Contains(lat, lon)
}
