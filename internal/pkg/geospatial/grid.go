package geospatial

import "math"

// Cell identifies a square grid cell by its integer column and row.
type Cell struct {
	X int64
	Y int64
}

// Snap maps (lat, lon) onto a grid of size degrees the way PostGIS
// ST_SnapToGrid does: each axis goes to the nearest multiple of size, ties
// to even.
func Snap(lat, lon, size float64) Cell {
	return Cell{
		X: int64(math.RoundToEven(lon / size)),
		Y: int64(math.RoundToEven(lat / size)),
	}
}
