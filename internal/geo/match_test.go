package geo

import (
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"

	logx "torfbot/pkg/logx"
)

// Test fixtures are laid out in Web Mercator meters and unprojected to
// WGS84, because that is the frame radii are compared in; distances
// below are exact by construction.

// mercSquare is a side×side square with its lower-left corner at (x, y)
// Mercator meters, returned in WGS84.
func mercSquare(x, y, side float64) orb.Polygon {
	ring := orb.Ring{
		{x, y}, {x + side, y}, {x + side, y + side}, {x, y + side}, {x, y},
	}
	poly := orb.Polygon{ring}
	return project.Polygon(poly, project.Mercator.ToWGS84)
}

// mercPoint is a hotspot at (x, y) Mercator meters.
func mercPoint(x, y float64, source string) Point {
	p := project.Point(orb.Point{x, y}, project.Mercator.ToWGS84)
	return Point{Lat: p[1], Lon: p[0], Source: source, ObservedAt: time.Unix(0, 0)}
}

// Near Moscow in Mercator meters.
const (
	baseX = 4.29e6
	baseY = 7.44e6
)

func testPolygons() []Polygon {
	return []Polygon{
		{
			ID:       1,
			Region:   "Московская область",
			District: "Шатурский район",
			Geometry: mercSquare(baseX, baseY, 1000),
		},
		{
			ID:       2,
			Region:   "Тверская область",
			District: "Конаковский район",
			Geometry: mercSquare(baseX+1600, baseY, 1000),
		},
	}
}

func newTestMatcher(defaultM float64) *Matcher {
	return NewMatcher(Tolerances{
		RadiusM: map[string]float64{
			"modis":        1000,
			"viirs_suomi":  300,
			"viirs_noaa20": 375,
		},
		DefaultM: defaultM,
	}, logx.Nop())
}

func TestMatchWithinTolerance(t *testing.T) {
	t.Parallel()
	m := newTestMatcher(500)
	polys := testPolygons()

	tests := []struct {
		name    string
		point   Point
		wantIDs []int64
	}{
		{
			name:    "inside polygon",
			point:   mercPoint(baseX+500, baseY+500, "viirs_noaa20"),
			wantIDs: []int64{1},
		},
		{
			name:    "300m outside edge, 375m tolerance",
			point:   mercPoint(baseX-300, baseY+500, "viirs_noaa20"),
			wantIDs: []int64{1},
		},
		{
			name:    "400m outside edge, 375m tolerance",
			point:   mercPoint(baseX-400, baseY+500, "viirs_noaa20"),
			wantIDs: nil,
		},
		{
			name:    "10km away",
			point:   mercPoint(baseX-10000, baseY+500, "viirs_noaa20"),
			wantIDs: nil,
		},
		{
			name:    "unknown source uses default radius",
			point:   mercPoint(baseX-450, baseY+500, "landsat"),
			wantIDs: []int64{1},
		},
		{
			name:    "archive suffix maps to live tolerance",
			point:   mercPoint(baseX-300, baseY+500, "viirs_noaa20_archive"),
			wantIDs: []int64{1},
		},
		{
			name:    "between polygons matches both",
			point:   mercPoint(baseX+1300, baseY+500, "viirs_noaa20"),
			wantIDs: []int64{1, 2},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := m.Match([]Point{tt.point}, polys)
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("got %d matches, want %d", len(got), len(tt.wantIDs))
			}
			seen := map[int64]bool{}
			for _, match := range got {
				seen[match.Polygon.ID] = true
			}
			for _, id := range tt.wantIDs {
				if !seen[id] {
					t.Errorf("expected a match against polygon %d", id)
				}
			}
		})
	}
}

func TestMatchEmptyInputs(t *testing.T) {
	t.Parallel()
	m := newTestMatcher(500)
	if got := m.Match(nil, testPolygons()); got != nil {
		t.Fatalf("expected no matches for empty points, got %d", len(got))
	}
	pt := mercPoint(baseX+500, baseY+500, "modis")
	if got := m.Match([]Point{pt}, nil); got != nil {
		t.Fatalf("expected no matches for empty polygons, got %d", len(got))
	}
}

// Increasing a source's radius can only add matches, never remove them.
func TestToleranceMonotonicity(t *testing.T) {
	t.Parallel()
	polys := testPolygons()
	points := []Point{
		mercPoint(baseX+500, baseY+500, "x"),
		mercPoint(baseX-200, baseY+500, "x"),
		mercPoint(baseX-600, baseY+500, "x"),
		mercPoint(baseX-3000, baseY+500, "x"),
	}

	prev := -1
	for _, radius := range []float64{100, 300, 700, 5000} {
		m := NewMatcher(Tolerances{DefaultM: radius}, logx.Nop())
		got := m.Match(points, polys)
		if prev >= 0 && len(got) < prev {
			t.Fatalf("radius %v produced %d matches, fewer than %d at the smaller radius", radius, len(got), prev)
		}
		prev = len(got)
	}
	if prev < len(points) {
		t.Fatalf("5km radius should match every point, got %d of %d", prev, len(points))
	}
}

func TestMatchKeepsGeographicCoordinates(t *testing.T) {
	t.Parallel()
	m := newTestMatcher(500)
	pt := mercPoint(baseX+500, baseY+500, "modis")
	got := m.Match([]Point{pt}, testPolygons())
	if len(got) != 1 {
		t.Fatalf("got %d matches, want 1", len(got))
	}
	if got[0].Point.Lat != pt.Lat || got[0].Point.Lon != pt.Lon {
		t.Fatalf("matched point coordinates changed: %v vs %v", got[0].Point, pt)
	}
	if got[0].Point.Lat < 55 || got[0].Point.Lat > 57 {
		t.Fatalf("latitude %v does not look geographic", got[0].Point.Lat)
	}
}
