package spatial

import (
	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

const (
	EarthRadiusMeters = 6371000.0 // Earth's mean radius in meters
)

// GeodesicAreaKm2 measures a lon/lat multipolygon on the sphere, in km².
// Holes are subtracted from their outer ring.
func GeodesicAreaKm2(mp orb.MultiPolygon) float64 {
	var steradians float64
	for _, poly := range mp {
		for i, ring := range poly {
			a := ringArea(ring)
			if i == 0 {
				steradians += a
			} else {
				steradians -= a
			}
		}
	}
	return steradians * EarthRadiusMeters * EarthRadiusMeters / 1e6
}

// ringArea returns the spherical area enclosed by a ring in steradians,
// independent of the ring's winding order
func ringArea(ring orb.Ring) float64 {
	points := make([]s2.Point, 0, len(ring))
	for i, p := range ring {
		// WKT rings repeat the first vertex at the end; S2 loops must not
		if i == len(ring)-1 && i > 0 && p.Equal(ring[0]) {
			break
		}
		points = append(points, s2.PointFromLatLng(s2.LatLngFromDegrees(p.Lat(), p.Lon())))
	}
	if len(points) < 3 {
		return 0
	}

	loop := s2.LoopFromPoints(points)
	loop.Normalize()
	return loop.Area()
}

// LabelPoint returns the planar centroid of a multipolygon, used to
// anchor map labels. Falls back to the bounds center for degenerate shapes.
func LabelPoint(mp orb.MultiPolygon) orb.Point {
	if len(mp) == 0 {
		return orb.Point{}
	}
	c, area := planar.CentroidArea(mp)
	if area == 0 {
		return mp.Bound().Center()
	}
	return c
}

// BoundingBox returns (minLat, minLon, maxLat, maxLon) of a multipolygon
func BoundingBox(mp orb.MultiPolygon) (float64, float64, float64, float64) {
	if len(mp) == 0 {
		return 0, 0, 0, 0
	}
	b := mp.Bound()
	return b.Min.Lat(), b.Min.Lon(), b.Max.Lat(), b.Max.Lon()
}
