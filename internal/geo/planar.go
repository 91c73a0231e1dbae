package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// distanceToGeometry returns the planar distance from p to the geometry,
// 0 when p lies inside it. Units follow the coordinate frame (meters in
// Web Mercator).
func distanceToGeometry(g orb.Geometry, p orb.Point) float64 {
	switch geom := g.(type) {
	case orb.Polygon:
		return distanceToPolygon(geom, p)
	case orb.MultiPolygon:
		min := math.Inf(1)
		for _, poly := range geom {
			if d := distanceToPolygon(poly, p); d < min {
				min = d
			}
		}
		return min
	}
	return math.Inf(1)
}

func distanceToPolygon(poly orb.Polygon, p orb.Point) float64 {
	if planar.PolygonContains(poly, p) {
		return 0
	}
	min := math.Inf(1)
	for _, ring := range poly {
		for i := 0; i+1 < len(ring); i++ {
			if d := distanceToSegment(ring[i], ring[i+1], p); d < min {
				min = d
			}
		}
	}
	return min
}

func distanceToSegment(a, b, p orb.Point) float64 {
	abx, aby := b[0]-a[0], b[1]-a[1]
	apx, apy := p[0]-a[0], p[1]-a[1]

	segLen2 := abx*abx + aby*aby
	if segLen2 == 0 {
		return math.Hypot(apx, apy)
	}
	t := (apx*abx + apy*aby) / segLen2
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return math.Hypot(p[0]-(a[0]+t*abx), p[1]-(a[1]+t*aby))
}
