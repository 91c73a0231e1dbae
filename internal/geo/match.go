package geo

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"

	logx "torfbot/pkg/logx"
)

// Matcher intersects tolerance-buffered hotspots with peatland polygons.
//
// Buffering and radius comparison happen in Web Mercator meters, the same
// planar frame the historical pipeline used; buffering in geographic
// degrees is wrong because the degree-to-meter ratio varies with latitude.
type Matcher struct {
	tol Tolerances
	log logx.Logger
}

func NewMatcher(tol Tolerances, log logx.Logger) *Matcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Matcher{tol: tol, log: log}
}

type projectedPolygon struct {
	poly   Polygon
	planar orb.Geometry
}

// Match returns one row per (point, polygon) pair whose buffered disk
// intersects the polygon. A disk of radius r around a point intersects a
// polygon exactly when the planar distance from the point to the polygon
// is at most r, so the buffer itself is never materialized.
//
// Empty inputs yield an empty result, not an error.
func (m *Matcher) Match(points []Point, polygons []Polygon) []Match {
	if len(points) == 0 || len(polygons) == 0 {
		m.log.Warn("nothing to match", logx.Int("points", len(points)), logx.Int("polygons", len(polygons)))
		return nil
	}

	// Project polygons once per run.
	projected := make([]projectedPolygon, 0, len(polygons))
	for _, p := range polygons {
		projected = append(projected, projectedPolygon{
			poly:   p,
			planar: project.Geometry(clone(p.Geometry), project.WGS84.ToMercator),
		})
	}

	// Group points by source; sources are walked in sorted order so the
	// result (and the aggregator's "first point" choice) is reproducible.
	bySource := make(map[string][]Point)
	for _, pt := range points {
		bySource[pt.Source] = append(bySource[pt.Source], pt)
	}
	sources := make([]string, 0, len(bySource))
	for s := range bySource {
		sources = append(sources, s)
	}
	sort.Strings(sources)

	var out []Match
	for _, source := range sources {
		radius := m.tol.Radius(source)
		n := 0
		for _, pt := range bySource[source] {
			projectedPt := project.Point(orb.Point{pt.Lon, pt.Lat}, project.WGS84.ToMercator)
			for _, pp := range projected {
				if distanceToGeometry(pp.planar, projectedPt) <= radius {
					out = append(out, Match{Point: pt, Polygon: pp.poly})
					n++
				}
			}
		}
		m.log.Info("source matched",
			logx.String("source", source),
			logx.Float64("radius_m", radius),
			logx.Int("matches", n))
	}
	if len(out) == 0 {
		m.log.Warn("no source produced matches")
	}
	return out
}

// clone deep-copies a geometry: orb projections mutate points in place,
// and the WGS84 polygons stay live for the rest of the run.
func clone(g orb.Geometry) orb.Geometry {
	switch geom := g.(type) {
	case orb.Polygon:
		return geom.Clone()
	case orb.MultiPolygon:
		return geom.Clone()
	}
	return g
}
