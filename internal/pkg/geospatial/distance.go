package geospatial

import "math"

// Mean earth radius (IUGG). PostGIS geography uses the WGS84 spheroid, so
// results differ from the database by a few tenths of a percent.
const earthRadiusMeters = 6371008.8

const metersPerDegreeLat = math.Pi * earthRadiusMeters / 180

// DistanceMeters returns the great-circle distance between two points.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	φ1, φ2 := radians(lat1), radians(lat2)
	sinDLat := math.Sin((φ2 - φ1) / 2)
	sinDLon := math.Sin(radians(lon2-lon1) / 2)

	h := sinDLat*sinDLat + math.Cos(φ1)*math.Cos(φ2)*sinDLon*sinDLon
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

// RadiusEnvelope returns a lat/lon box that contains every point within
// radiusMeters of (lat, lon). It is a prefilter; callers still check the
// exact distance.
func RadiusEnvelope(lat, lon, radiusMeters float64) (minLat, minLon, maxLat, maxLon float64) {
	dLat := radiusMeters / metersPerDegreeLat
	dLon := radiusMeters / (metersPerDegreeLat * math.Cos(radians(lat)))
	return lat - dLat, lon - dLon, lat + dLat, lon + dLon
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
