package geo

import (
	"time"

	"github.com/paulmach/orb"
)

// Point is a single satellite hotspot detection in WGS84 degrees.
// Immutable once ingested; Source determines the positional tolerance.
type Point struct {
	Lat        float64
	Lon        float64
	Source     string
	ObservedAt time.Time
}

// Polygon is one peatland boundary from the reference dataset.
// Geometry is orb.Polygon or orb.MultiPolygon, always in WGS84 degrees
// by the time the store hands it out.
type Polygon struct {
	ID       int64
	Region   string
	District string
	Geometry orb.Geometry
}

// Match joins a hotspot with one polygon whose tolerance-buffered
// footprint contains it. A point near a boundary can produce several
// matches, one per polygon; they are kept as separate rows.
type Match struct {
	Point   Point
	Polygon Polygon
}
