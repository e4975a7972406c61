package transform

import (
	"math"

	"github.com/paulmach/orb"
)

// originShift is half the circumference of the spherical mercator world.
const originShift = 20037508.342789244 // 2 * pi * 6378137 / 2

// ProjectLatLon converts lat/lon in WGS84 to XY in Spherical Mercator (EPSG:3857, ESRI 102113)
func ProjectLatLon(lat, lon float64) (float64, float64) {
	x := lon * originShift / 180.0
	y := math.Log(math.Tan((90+lat)*math.Pi/360.0)) / (math.Pi / 180.0)
	y = y * originShift / 180.0

	return x, y
}

// ProjectBound projects a lon/lat bound to spherical mercator.
func ProjectBound(b orb.Bound) orb.Bound {
	minX, minY := ProjectLatLon(b.Min.Y(), b.Min.X())
	maxX, maxY := ProjectLatLon(b.Max.Y(), b.Max.X())
	return orb.Bound{Min: orb.Point{minX, minY}, Max: orb.Point{maxX, maxY}}
}
