// Package mercator converts WGS84 coordinates to canvas pixels under the
// Web Mercator projection and fits viewports around point sets.
package mercator

import "math"

// TileSize is the edge length in pixels of one map tile.
const TileSize = 256

// Default viewport: Seoul city hall.
const (
	DefaultCenterLat = 37.5666
	DefaultCenterLon = 126.9784
	DefaultZoom      = 12.0

	MinZoom = 7.0
	MaxZoom = 19.0
)

// Point is a WGS84 coordinate pair.
type Point struct {
	Lon float64
	Lat float64
}

func lonToX(lon, zoom float64) float64 {
	return (lon + 180.0) / 360.0 * TileSize * math.Pow(2, zoom)
}

func latToY(lat, zoom float64) float64 {
	lr := lat * math.Pi / 180.0
	return (1.0 - math.Log(math.Tan(lr)+1.0/math.Cos(lr))/math.Pi) / 2.0 * TileSize * math.Pow(2, zoom)
}

// MercatorY maps latitude to the unscaled Mercator ordinate.
func MercatorY(lat float64) float64 {
	lr := lat * math.Pi / 180.0
	return math.Log(math.Tan(lr) + 1.0/math.Cos(lr))
}

// LatFromMercatorY inverts MercatorY.
func LatFromMercatorY(y float64) float64 {
	return math.Atan(math.Sinh(y)) * 180.0 / math.Pi
}

// Project maps a WGS84 point to integer canvas pixels for a viewport centered
// at (centerLat, centerLon) at the given zoom. No bounds checking: callers
// filter out-of-canvas results themselves.
func Project(lat, lon, zoom, centerLat, centerLon float64, width, height int) (px, py int) {
	cx := lonToX(centerLon, zoom)
	cy := latToY(centerLat, zoom)
	x := lonToX(lon, zoom)
	y := latToY(lat, zoom)
	return int(float64(width)/2 + (x - cx)), int(float64(height)/2 + (y - cy))
}

// Shift pans a viewport center by a pixel delta at the given zoom, returning
// the new center. Positive dx drags the map east-to-west (content follows the
// cursor), matching drag semantics.
func Shift(centerLat, centerLon, zoom float64, dx, dy int) (lat, lon float64) {
	pixelPerDegree := math.Pow(2, zoom) * TileSize / 360.0
	cosLat := math.Cos(centerLat * math.Pi / 180.0)

	dLon := -float64(dx) / (pixelPerDegree * cosLat)
	dLat := float64(dy) / pixelPerDegree
	return centerLat + dLat, centerLon + dLon
}

// Reserved margins beyond the padding-derived base: pins extend above their
// anchor, labels extend sideways.
const (
	pinHeightBuffer = 30
	labelWidthBuffer = 60
)

// FitViewport finds the center and the maximum zoom (searched 19.0 down to
// 7.0 in tenths) at which every point projects inside a margin-reduced
// canvas rectangle. The discrete search is deliberate: pin and label
// footprints make the feasible region awkward to solve in closed form, and
// ~120 projections per candidate zoom are cheap.
//
// An empty point list yields the Seoul default viewport.
func FitViewport(points []Point, width, height int, padding float64) (centerLat, centerLon, zoom float64) {
	if len(points) == 0 {
		return DefaultCenterLat, DefaultCenterLon, DefaultZoom
	}

	minLon, maxLon := points[0].Lon, points[0].Lon
	minLat, maxLat := points[0].Lat, points[0].Lat
	for _, p := range points[1:] {
		minLon = math.Min(minLon, p.Lon)
		maxLon = math.Max(maxLon, p.Lon)
		minLat = math.Min(minLat, p.Lat)
		maxLat = math.Max(maxLat, p.Lat)
	}

	centerLon = (minLon + maxLon) / 2
	// Geometric midpoint in Mercator-y space, not arithmetic in latitude.
	centerLat = LatFromMercatorY((MercatorY(minLat) + MercatorY(maxLat)) / 2)

	baseMargin := int(float64(width) * padding / 2)
	topMargin := baseMargin + pinHeightBuffer
	sideMargin := baseMargin + labelWidthBuffer

	for tz := int(MaxZoom * 10); tz >= int(MinZoom*10); tz-- {
		z := float64(tz) / 10.0
		allFit := true
		for _, p := range points {
			px, py := Project(p.Lat, p.Lon, z, centerLat, centerLon, width, height)
			if px < sideMargin || px > width-sideMargin ||
				py < topMargin || py > height-baseMargin {
				allFit = false
				break
			}
		}
		if allFit {
			return centerLat, centerLon, z
		}
	}

	return centerLat, centerLon, MinZoom
}
